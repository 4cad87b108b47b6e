// Package provider declares the external collaborators the orchestrator
// consumes: the LLM engine, the voice engine, the room transport, and the
// content store. The orchestrator owns none of these; it drives them through
// the interfaces here so tests can substitute in-memory fakes and binaries
// can pick concrete adapters (see the openai subpackage) from configuration.
package provider
