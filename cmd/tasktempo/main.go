package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"tasktempo/internal/api"
	"tasktempo/internal/config"
	"tasktempo/internal/db"
	"tasktempo/pkg/history"
	"tasktempo/pkg/task"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:          "tasktempo",
		Short:        "Task tracker with lifecycle deadlines and completion statistics",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "tasktempo.json", "path to config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Insert the demo task dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			svc, _, cleanup, err := buildService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			n, err := svc.SeedTasks(cmd.Context())
			if err != nil {
				return err
			}
			log.Printf("seeded %d tasks", n)
			return nil
		},
	})

	return root
}

func serve(ctx context.Context, cfg *config.Config) error {
	svc, hist, cleanup, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	server := api.New(svc, hist)

	log.Printf("tasktempo listening on %s (store=%s)", cfg.Addr(), cfg.Store.Backend)
	return http.ListenAndServe(cfg.Addr(), server)
}

func buildService(ctx context.Context, cfg *config.Config) (*task.Service, history.Log, func(), error) {
	switch cfg.Store.Backend {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		store := task.NewPgStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("ensure tasks schema: %w", err)
		}
		hist := history.NewPgStore(pool)
		if err := hist.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("ensure history schema: %w", err)
		}
		svc := task.NewService(store, task.WithRecorder(hist))
		return svc, hist, pool.Close, nil

	case "sqlite":
		store, err := task.OpenSQLiteStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, nil, fmt.Errorf("ensure tasks schema: %w", err)
		}
		hist := history.NewSQLiteStore(store.DB())
		if err := hist.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, nil, fmt.Errorf("ensure history schema: %w", err)
		}
		svc := task.NewService(store, task.WithRecorder(hist))
		return svc, hist, func() { store.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
