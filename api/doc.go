// Package api holds the shared data model for the orchestrator: sessions,
// participants, personalities, and the control-plane request and response
// shapes. It has no behavior of its own; every other package depends on it
// and it depends on nothing inside the module.
package api
