// Package protocol defines the line-delimited JSON records exchanged with
// the face detection worker: outbound commands tagged by action and inbound
// events tagged by status. Events decode into a closed set of concrete
// types so consumers can switch exhaustively instead of re-checking tags.
package protocol
