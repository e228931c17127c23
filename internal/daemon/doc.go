// Package daemon wires the FaceFrame host together: the worker supervisor,
// the job state machine, the library view, the dispatcher, job history, the
// folder watcher, and the asset server. It enforces single-instance
// execution via a lock file.
package daemon
