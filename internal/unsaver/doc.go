// Package unsaver removes many items from a saved list concurrently.
//
// A WorkerPool fans unsave calls out to a fixed number of workers and
// reports one Result per job on its Results channel. Run wraps the
// start, submit, drain and stop sequence for a slice of fullnames.
package unsaver
