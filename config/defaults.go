package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, .env files, and environment variable loading.

const (
	// DefaultWidth is the thumbnail width when none is given.  Height
	// defaults to the resolved width.
	DefaultWidth = 150

	// LengthChunkSize is the single read performed on the length
	// connection.  No base-10 size_t needs more than 20 digits.
	LengthChunkSize = 32

	// DefaultMaxPayload caps the announced image length (64 MiB).
	DefaultMaxPayload int64 = 64 << 20

	// DefaultConnTimeout is the deadline for each read or write on a
	// session connection, and for dialing in send mode.  Zero disables
	// deadlines.
	DefaultConnTimeout = 30 * time.Second

	// DefaultDialAttempts is how many times send mode dials the length
	// connection while the service is still starting.
	DefaultDialAttempts = 5

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultEnvFile is loaded, when present, before the environment.
	DefaultEnvFile = ".env"

	// EnvPrefix namespaces every supported environment variable.
	EnvPrefix = "THUMBNAILER_"
)
