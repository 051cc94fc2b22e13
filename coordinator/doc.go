// Package coordinator fans N asynchronous units out concurrently and merges
// their outcomes into one asynchronous result under a failure policy:
//
//   - FailFast: any failure voids the whole result.
//   - FailPartial: failed positions become "[FAILED: <unit-id>]" markers.
//   - FailSoft: failed positions are replaced by a caller-supplied fallback.
//
// Output position always follows request order, never completion order.
// Every dispatch waits for all units to settle before concluding, even under
// FailFast; there is no early cancellation. A caller may stop waiting by
// passing a deadline to Future.Await, but the invocations keep running.
package coordinator
