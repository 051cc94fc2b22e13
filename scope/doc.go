// Package scope provides a structured fan-out primitive.
// A Scope owns the tasks it spawns and provides a single join point (Wait).
// Tasks are never cancelled by a sibling's failure: every task runs to
// completion and Wait reports the first error observed.
package scope
