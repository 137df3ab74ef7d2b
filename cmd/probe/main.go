package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/samvad-probe/internal/cli"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}, os.Args[1:])
	stop()
	os.Exit(code)
}
