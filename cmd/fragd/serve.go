package main

import (
	"fmt"

	"github.com/google/gops/agent"
	"github.com/scott-cotton/cli"

	"github.com/fragd/fragd/server"
	"github.com/fragd/fragd/store"
)

type ServeConfig struct {
	*MainConfig
	Serve      *cli.Command
	ConfigFile string `cli:"name=config desc='configuration file (yaml)'"`
	Addr       string `cli:"name=addr desc='session protocol listen address'"`
	AdminAddr  string `cli:"name=admin desc='admin endpoint listen address'"`
}

func ServeCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ServeConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Serve, "serve").
		WithSynopsis("serve [-config <file>] [-addr <addr>] [-admin <addr>]").
		WithDescription("run the fragd subdocument server").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return serve(cfg, cc, args)
		})
}

func serve(cfg *ServeConfig, cc *cli.Context, args []string) error {
	_, err := cfg.Serve.Parse(cc, args)
	if err != nil {
		return err
	}

	// Start gops agent for debugging
	if err := agent.Listen(agent.Options{}); err != nil {
		fmt.Fprintf(cc.Out, "gops agent failed: %v\n", err)
	}

	serverConfig := server.DefaultConfig()
	if cfg.ConfigFile != "" {
		serverConfig, err = server.LoadConfig(cfg.ConfigFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	// Command-line addresses override the config file.
	if cfg.Addr != "" {
		serverConfig.ListenAddr = cfg.Addr
	}
	if cfg.AdminAddr != "" {
		serverConfig.AdminAddr = cfg.AdminAddr
	}

	srv := server.New(&server.Spec{
		Config: serverConfig,
		Store:  store.NewMemStore(),
	})

	if err := srv.StartTCP(serverConfig.ListenAddr); err != nil {
		return fmt.Errorf("failed to start TCP listener: %w", err)
	}
	defer srv.StopTCP()
	fmt.Fprintf(cc.Out, "fragd listening on %s\n", srv.TCPAddr())

	if serverConfig.AdminAddr != "" {
		if err := srv.StartAdmin(serverConfig.AdminAddr); err != nil {
			return fmt.Errorf("failed to start admin endpoint: %w", err)
		}
		defer srv.StopAdmin()
		fmt.Fprintf(cc.Out, "admin endpoint on %s\n", srv.AdminAddr())
	}

	// Block forever
	select {}
}
