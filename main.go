// Thumbnailer produces fixed-size image thumbnails from files or over a
// two-connection TCP protocol.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"thumbnailer/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "thumbnailer: %v\n", err)
		cancel()
		os.Exit(cmd.ExitCode(err))
	}
}
