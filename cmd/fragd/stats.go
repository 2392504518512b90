package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
	"github.com/segmentio/encoding/json"

	"github.com/fragd/fragd/stats"
)

type StatsConfig struct {
	*MainConfig
	Stats *cli.Command
	Addr  string `cli:"name=admin desc='admin endpoint address'"`
	JSON  bool   `cli:"name=json desc='raw JSON output'"`
}

func StatsCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &StatsConfig{MainConfig: mainCfg, Addr: "127.0.0.1:4981"}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Stats, "stats").
		WithSynopsis("stats [-admin <addr>] [-json]").
		WithDescription("fetch and display a running server's counters").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return showStats(cfg, cc, args)
		})
}

func showStats(cfg *StatsConfig, cc *cli.Context, args []string) error {
	_, err := cfg.Stats.Parse(cc, args)
	if err != nil {
		return err
	}

	resp, err := http.Get("http://" + cfg.Addr + "/stats")
	if err != nil {
		return fmt.Errorf("failed to fetch stats from %s: %w", cfg.Addr, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stats endpoint returned %s: %s", resp.Status, body)
	}

	if cfg.JSON {
		fmt.Fprintf(cc.Out, "%s\n", body)
		return nil
	}

	var snap stats.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return fmt.Errorf("failed to parse stats: %w", err)
	}

	name := fmt.Sprintf
	if f, ok := cc.Out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		name = color.New(color.FgCyan).Sprintf
	}
	rows := []struct {
		label string
		value int64
	}{
		{"cmd_subdoc_lookup", snap.LookupCount},
		{"bytes_subdoc_lookup_total", snap.LookupDocBytes},
		{"bytes_subdoc_lookup_extracted", snap.LookupFragBytes},
		{"cmd_subdoc_mutation", snap.MutationCount},
		{"bytes_subdoc_mutation_total", snap.MutationDocBytes},
		{"bytes_subdoc_mutation_inserted", snap.MutationFragBytes},
	}
	for _, row := range rows {
		fmt.Fprintf(cc.Out, "%s %d\n", name("%-32s", row.label), row.value)
	}
	return nil
}
