// Package scope provides the structured-concurrency primitives the echo
// server is built on. A Scope owns the tasks it spawns, offers a join point
// (Wait) and propagates cancellation and errors according to its Policy.
//
// The echo supervisor runs every connection handler in a Supervisor scope so
// that one failing connection never cancels its siblings or the accept loop.
// Join and JoinAll wait for independently suspending units of work without
// letting one of them block the others.
package scope
