// Package jobs tracks the single active scan or clustering job. It enforces
// at-most-one-active-job, keeps progress monotonic, and notifies observers
// when a job reaches a terminal outcome and the machine returns to idle.
package jobs
