// Package cmd wires up the CLI flags and dispatches to the thumbnailer
// modes.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"thumbnailer/config"
	"thumbnailer/internal/core"
	tnerr "thumbnailer/internal/errors"
	"thumbnailer/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X thumbnailer/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Exit statuses from sysexits.h.
const (
	ExitUsage   = 64
	ExitDataErr = 65
)

const envFileUsage = "also loaded from " + config.DefaultEnvFile + " when present"

// stdout receives --version, --help and --dry-run output.
var stdout io.Writer = os.Stdout //nolint:gochecknoglobals

// ExitCode maps an error returned by Execute to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case tnerr.IsUsage(err):
		return ExitUsage
	default:
		return ExitDataErr
	}
}

// Execute parses args and runs the selected thumbnailer mode.
func Execute(ctx context.Context, args []string) error {
	cfg := config.Default()
	if err := config.Load(cfg, config.DefaultEnvFile); err != nil {
		return err
	}

	fs := flag.NewFlagSet("thumbnailer", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// ── paths ────────────────────────────────────────────────────
	fs.StringVarP(&cfg.ImagePath, "image", "i", "", "Source image")
	fs.StringVarP(&cfg.ThumbnailPath, "thumbnail", "t", "", "Thumbnail destination (stdout with --send when omitted)")

	// ── network ──────────────────────────────────────────────────
	fs.StringVarP(&cfg.Address, "address", "a", cfg.Address, "host:port to listen on, or to send to with --send")
	fs.BoolVarP(&cfg.Send, "send", "s", false, "Send --image to a listening service")
	maxSize := fs.String("max-size", "", "Largest accepted image, e.g. 32MB (default "+config.FormatSize(cfg.MaxPayload)+")")
	fs.DurationVarP(&cfg.Timeout, "timeout", "w", cfg.Timeout, "Per read/write deadline; 0 disables")

	// ── thumbnail ────────────────────────────────────────────────
	fs.UintVarP(&cfg.Width, "width", "x", cfg.Width, "Thumbnail width")
	fs.UintVarP(&cfg.Height, "height", "y", cfg.Height, "Thumbnail height (defaults to width)")
	fs.BoolVarP(&cfg.Crop, "crop", "c", cfg.Crop, "Fill the thumbnail exactly, cropping overflow")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "Send through an SSH tunnel via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", false, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Validate and print the resolved configuration")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return &tnerr.ConfigError{Field: "flags", Message: err.Error(), Hint: "use --help for usage"}
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "thumbnailer %s\n", version)
		return nil
	}

	if rest := fs.Args(); len(rest) > 0 {
		return &tnerr.ConfigError{
			Field:   "args",
			Value:   rest[0],
			Message: "unexpected positional argument",
			Hint:    "pass paths with -i and -t",
		}
	}

	if fs.Changed("height") {
		cfg.HeightSet = true
	}
	if *maxSize != "" {
		n, err := config.ParseSize(*maxSize)
		if err != nil {
			return &tnerr.ConfigError{
				Field:   "max-size",
				Value:   *maxSize,
				Message: err.Error(),
				Hint:    "use a value such as 32MB or 64MiB",
			}
		}
		cfg.MaxPayload = n
	}
	if cfg.Timeout < 0 {
		return &tnerr.ConfigError{Field: "timeout", Value: cfg.Timeout, Message: "must not be negative"}
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if cfg.TunnelSpec != "" {
		user, host, port, err := config.ParseTunnelSpec(cfg.TunnelSpec)
		if err != nil {
			return &tnerr.ConfigError{Field: "tunnel", Value: cfg.TunnelSpec, Message: err.Error()}
		}
		cfg.TunnelEnabled = true
		cfg.TunnelUser = user
		cfg.TunnelHost = host
		cfg.TunnelPort = port
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.DryRun {
		printConfig(cfg)
		return nil
	}

	// ── run ──────────────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func printConfig(cfg *config.Config) {
	p := cfg.Dimensions()
	fmt.Fprintf(stdout, "mode:      %s\n", cfg.Mode())
	switch cfg.Mode() {
	case config.ModeFile:
		fmt.Fprintf(stdout, "image:     %s\nthumbnail: %s\nsize:      %s\n", cfg.ImagePath, cfg.ThumbnailPath, p)
	case config.ModeListen:
		fmt.Fprintf(stdout, "address:   %s\nsize:      %s\nmax-size:  %s\n", cfg.Address, p, config.FormatSize(cfg.MaxPayload))
	case config.ModeSend:
		out := cfg.ThumbnailPath
		if out == "" {
			out = "(stdout)"
		}
		fmt.Fprintf(stdout, "address:   %s\nimage:     %s\nthumbnail: %s\n", cfg.Address, cfg.ImagePath, out)
		if cfg.TunnelEnabled {
			fmt.Fprintf(stdout, "tunnel:    %s@%s\n", cfg.TunnelUser, util.FormatAddr(cfg.TunnelHost, cfg.TunnelPort))
		}
	}
	fmt.Fprintf(stdout, "timeout:   %s\n", cfg.Timeout.Round(time.Millisecond))
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(stdout, `thumbnailer v%s

Produces fixed-size thumbnails from files or over a two-connection TCP
protocol: the first connection carries the image length in decimal, the
second carries the image and receives the thumbnail.

Usage:
  thumbnailer -i <image> -t <thumbnail> [options]        Convert a file
  thumbnailer -a <host:port> [options]                   Serve one session
  thumbnailer -s -a <host:port> -i <image> [-t <out>]    Send to a service

Options:
%s
Environment:
  %sADDRESS, WIDTH, HEIGHT, CROP, MAX_SIZE, TIMEOUT, TUNNEL, SSH_KEY,
  SSH_AGENT, STRICT_HOSTKEY, KNOWN_HOSTS, VERBOSE (%s)

Examples:
  thumbnailer -i photo.jpg -t thumb.png -x 200 -c
  thumbnailer -a 127.0.0.1:9000 --max-size 16MB
  thumbnailer -s -a 127.0.0.1:9000 -i photo.jpg > thumb.png
  thumbnailer -s -T admin@bastion -a 10.0.0.5:9000 -i photo.jpg -t thumb.png
`, version, fs.FlagUsages(), config.EnvPrefix, envFileUsage)
}
