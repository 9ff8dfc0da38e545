// ircserv - a minimal IRC-style server multiplexing clients with poll(2).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ircserv/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ircserv: %v\n", err)
		os.Exit(1)
	}
}
