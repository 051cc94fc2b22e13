// Package future provides a generic write-once asynchronous result.
// A Future settles exactly once, to a value or an error, and can be awaited
// by any number of goroutines.
package future
