// Package worker supervises the face detection worker process. It owns the
// process's stdin/stdout/stderr exclusively, frames the output stream into
// discrete protocol events, and fans them out to subscribers in arrival
// order. All other components talk to the worker through Send/Subscribe.
package worker
