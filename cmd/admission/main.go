// Command admission starts the admission control service.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/Luka-md19/Food-Delivery-App-sub002/internal/admission/app"
	"github.com/Luka-md19/Food-Delivery-App-sub002/internal/admission/config"
)

func main() {
	args := os.Args[1:]
	printOnly := false
	if len(args) > 0 && args[0] == "print_config" {
		printOnly = true
		args = args[1:]
	}

	fs := newFlagSet("admission", os.Stderr)
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(fs.Lookup("config").Value.String(), os.Environ())
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	applyFlagOverrides(cfg, fs)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if printOnly {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			log.Fatalf("failed to render configuration: %v", err)
		}
		fmt.Print(string(out))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApplication(cfg)
	if err != nil {
		log.Fatalf("failed to create application: %v", err)
	}
	if err := application.Start(ctx); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
