package main

import (
	"context"
	"os"

	"github.com/carlmjohnson/versioninfo"
	"github.com/skyportal/dump/dump"
	"github.com/skyportal/dump/log"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:     "skydump",
		Usage:    "export a SkyPortal catalog into a re-importable bundle",
		Version:  versioninfo.Short(),
		Commands: dump.Commands(),
	}

	ctx := context.Background()
	logger := log.New("skydump")
	ctx = log.IntoContext(ctx, logger.With("command", cmd.Name))

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Error(err.Error())
		os.Exit(-1)
	}
}
