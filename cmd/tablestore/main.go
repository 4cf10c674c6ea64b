/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Command tablestore loads an entity model, seeds a store and prints the
// content of its tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/suparena/tablestore"
	"github.com/suparena/tablestore/config"
	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/datastore/ddb"
	"github.com/suparena/tablestore/datastore/memory"
	"github.com/suparena/tablestore/datastore/sqlite"
	"github.com/suparena/tablestore/diagnostics"
	"github.com/suparena/tablestore/loader"
	"github.com/suparena/tablestore/registry"
	"github.com/suparena/tablestore/storagemodels"
	"github.com/suparena/tablestore/tracking"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	slog.SetDefault(slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})))

	if err := run(ctx, os.Args[1:], os.Stdout, ll); err != nil {
		slog.Error("tablestore failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer, ll *slog.LevelVar) error {
	fs := flag.NewFlagSet("tablestore", flag.ContinueOnError)
	version := fs.Bool("version", false, "Show version information")
	configPath := fs.String("config", "", "Path to a YAML config file")
	modelPath := fs.String("model", "", "Path to the YAML model; overrides the config")
	typeName := fs.String("type", "", "Only print the tables of this entity type and its derived types")
	showMetrics := fs.Bool("metrics", false, "Print transaction counters on exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unknown arguments: %v", fs.Args())
	}

	if *version {
		info := tablestore.GetVersionInfo()
		fmt.Fprintf(stdout, "tablestore version %s\n", info.Version)
		fmt.Fprintf(stdout, "Git commit: %s\n", info.GitCommit)
		fmt.Fprintf(stdout, "Build date: %s\n", info.BuildDate)
		fmt.Fprintf(stdout, "Go version: %s\n", info.GoVersion)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if level, err := cfg.Level(); err == nil && ll != nil {
		ll.Set(level)
	}
	if *modelPath != "" {
		cfg.Model = *modelPath
	}
	if cfg.Model == "" {
		return fmt.Errorf("no model given; use -model or TABLESTORE_MODEL")
	}

	model, err := loader.LoadModel(cfg.Model)
	if err != nil {
		return err
	}

	factory, err := newFactory(ctx, cfg)
	if err != nil {
		return err
	}
	store, err := tablestore.New(ctx, factory, cfg.Name,
		tablestore.WithNameMatching(cfg.NameMatching),
		tablestore.WithLogger(slog.Default()),
	)
	if err != nil {
		return err
	}
	defer closeStore(store, cfg.Name)

	reg := prometheus.NewRegistry()
	metrics, err := diagnostics.NewMetrics(reg)
	if err != nil {
		return err
	}
	updates := diagnostics.Multi(diagnostics.NewLogger(slog.Default()).WithLevel(slog.LevelInfo), metrics)

	created, err := store.EnsureCreated(ctx, tracking.Dependencies{Model: model}, updates)
	if err != nil {
		return err
	}
	slog.Info("store ready", "backend", cfg.Backend, "name", cfg.Name, "seeded", created)

	types, err := selectTypes(model, *typeName)
	if err != nil {
		return err
	}
	for _, et := range types {
		snapshots, err := store.GetTables(ctx, et)
		if err != nil {
			return err
		}
		for _, snap := range snapshots {
			if *typeName == "" && snap.EntityType != et {
				continue
			}
			if err := printSnapshot(stdout, snap); err != nil {
				return err
			}
		}
	}

	if *showMetrics {
		return printMetrics(stdout, reg)
	}
	return nil
}

// closeStore closes c and logs any error.
func closeStore(c io.Closer, name string) {
	if err := c.Close(); err != nil {
		slog.Error("close store", "name", name, "err", err)
	}
}

func newFactory(ctx context.Context, cfg config.Config) (datastore.TableFactory, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return sqlite.NewTableFactory(), nil
	case config.BackendDynamoDB:
		client, err := ddb.NewDynamoDBClient(ctx, cfg.AWS.Region, cfg.AWS.AccessKey, cfg.AWS.SecretKey, cfg.AWS.Endpoint)
		if err != nil {
			return nil, err
		}
		return ddb.NewTableFactory(client), nil
	default:
		return memory.NewTableFactory(), nil
	}
}

// selectTypes returns the named type, or every concrete type when name is empty.
func selectTypes(model *registry.Model, name string) ([]*registry.EntityType, error) {
	if name != "" {
		et, ok := model.FindEntityType(name)
		if !ok {
			return nil, fmt.Errorf("unknown entity type %q", name)
		}
		return []*registry.EntityType{et}, nil
	}
	var out []*registry.EntityType
	for _, et := range model.EntityTypes() {
		if !et.IsAbstract() {
			out = append(out, et)
		}
	}
	return out, nil
}

func printSnapshot(w io.Writer, snap storagemodels.TableSnapshot) error {
	rows := make([]map[string]any, 0, snap.Len())
	for _, r := range snap.Rows {
		rows = append(rows, r)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(map[string]any{snap.EntityType.Name(): rows})
}

func printMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			label := ""
			for _, lp := range m.GetLabel() {
				label += fmt.Sprintf("{%s=%q}", lp.GetName(), lp.GetValue())
			}
			fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), label, m.GetCounter().GetValue())
		}
	}
	return nil
}
