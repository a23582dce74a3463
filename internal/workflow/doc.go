// Package workflow drives transcript batches end to end. The coordinator
// owns the registry and the batch progress counter on a single control
// goroutine; matching and upload tasks run on a bounded worker pool and
// report back through posted closures, so no worker touches shared state
// directly. A one-shot watchdog forces items stuck in processing into a
// terminal failure without cancelling the underlying work.
package workflow
