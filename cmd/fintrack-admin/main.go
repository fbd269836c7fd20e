package main

import (
	"fmt"
	"os"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	// logs go to stderr so --output json stays parseable
	logger := cli.SetupLogger(os.Stderr, cfg.SlogLevel(), applog.ComponentApp)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if err := cli.NewRootCmd(cfg, logger).ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}
