package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rfontaine/lycaon/internal/cli"
	"github.com/rfontaine/lycaon/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "lycaon: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
