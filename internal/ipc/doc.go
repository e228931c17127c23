// Package ipc exposes daemon control to the faceframe CLI via JSON-RPC
// over a Unix domain socket. Requests and responses are plain DTO structs;
// nothing from the wire protocol or the daemon internals leaks across.
package ipc
