// Package library holds the host-side view of the face index: the last
// known persons and unclustered-faces snapshots for the selected folder.
// The view never mutates entities locally; every rename, merge, or clear
// goes to the worker as a command followed by a full refresh, and whichever
// snapshot event arrives next wholesale-replaces the cached lists.
package library
