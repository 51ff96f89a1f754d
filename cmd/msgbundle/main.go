// Command msgbundle checks, renders and serves localized message bundles.
//
// Usage:
//
//	msgbundle check --locales fr,de_DE
//	msgbundle render greeting hello Anne --locale fr
//	msgbundle serve
//	msgbundle migrate
//
// Configuration is read from the environment and from a .env file in the
// working directory. Flags override the environment.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
