// Package tool implements the registry and dispatch contracts for the
// functions the LLM can invoke. Descriptors are immutable after
// registration; the registry is frozen at startup and a deterministic
// manifest can be exported for the companion UI.
//
// Tool implementations live outside this module. They plug in as
// descriptors: a name, a description, a JSON-schema for the arguments, and
// either a handler or the passthrough flag. Passthrough tools emit a UI
// event and succeed immediately without local work.
//
// Discovery is decorator-driven: functions marked with a //wisp:tool comment
// are collected by cmd/wisp-tool-gen, which emits the registration file and
// the manifest artifact.
package tool
