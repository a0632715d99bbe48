// Package core is the orchestration layer.  It composes the protocol,
// the transform capability and the transports into complete modes and
// provides a builder that selects the right mode from a Config.
//
// Architecture layers (bottom → top):
//
//	transport / protocol  →  capability  →  session  →  core  →  cmd (CLI)
package core

import "context"

// Mode represents one way of producing a thumbnail (file, listen or
// send).  Each mode owns its full lifecycle from opening its inputs to
// teardown, and handles exactly one image.
type Mode interface {
	Run(ctx context.Context) error
}
