// Package events provides the typed in-process publish/subscribe bus and the
// canonical event envelope every subsystem emits.
//
// Design decisions:
//   - Closed topic set: topics are plain strings, but the full set is declared
//     here as constants so subscribers and log readers share one vocabulary.
//   - Fixed envelope: {id, ts, type, version, data} with version pinned at "1".
//     Changing the envelope shape is a breaking change by definition.
//   - Synchronous memory backend: Publish invokes every live subscriber before
//     it returns, in registration order, so tests and flow logic can rely on
//     happens-before between a publish and its observers.
//   - Isolated subscribers: a panicking handler is recovered and logged; it
//     never prevents delivery to the remaining subscribers.
//   - Independent sinks: when the NATS backend or the HTTP forwarder is also
//     enabled, each sink sees the same envelopes but no ordering is guaranteed
//     across sinks, only within one.
package events
