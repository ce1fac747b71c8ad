package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/Luka-md19/Food-Delivery-App-sub002/internal/admission/config"
)

func newFlagSet(name string, output io.Writer) *flag.FlagSet {
	if output == nil {
		output = io.Discard
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.String("config", "", "config file path")
	fs.String("service", "", "service scope for counter keys")
	fs.String("http_addr", "", "http listen address")
	fs.String("store_backend", "", "counter store backend (memory, redis, disabled)")
	fs.String("redis_addr", "", "redis address")
	fs.Bool("bypass", false, "bypass admission control")
	fs.Usage = func() {
		printUsage(output)
	}
	return fs
}

func applyFlagOverrides(cfg *config.Config, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "service":
			cfg.Service = f.Value.String()
		case "http_addr":
			cfg.HTTP.Addr = f.Value.String()
		case "store_backend":
			cfg.Store.Backend = f.Value.String()
		case "redis_addr":
			cfg.Store.Redis.Addr = f.Value.String()
		case "bypass":
			cfg.Limits.Bypass = f.Value.String() == "true"
		}
	})
}

func printUsage(w io.Writer) {
	if w == nil {
		return
	}
	fmt.Fprintln(w, "Usage")
	fmt.Fprintln(w, "  admission [print_config] [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flags")
	fmt.Fprintln(w, "  config string config file path")
	fmt.Fprintln(w, "  service string service scope for counter keys")
	fmt.Fprintln(w, "  http_addr string http listen address")
	fmt.Fprintln(w, "  store_backend string counter store backend")
	fmt.Fprintln(w, "  redis_addr string redis address")
	fmt.Fprintln(w, "  bypass bool bypass admission control")
}
