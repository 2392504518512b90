package main

import (
	"github.com/scott-cotton/cli"
)

type MainConfig struct {
	Main *cli.Command
}

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	return cli.NewCommandAt(&cfg.Main, "fragd").
		WithSynopsis("fragd <command>").
		WithDescription("fragd is a path-addressed JSON subdocument server.").
		WithSubs(
			ServeCommand(cfg),
			StatsCommand(cfg))
}
