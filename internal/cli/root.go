package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/intraceai/archive-viewer/internal/archive"
	"github.com/intraceai/archive-viewer/internal/cache"
	"github.com/intraceai/archive-viewer/internal/config"
)

// NewRootCmd returns the root cobra command for the archive-viewer CLI.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "archive-viewer",
		Short:         "Browse, filter and export archived web page snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	addGlobalFlags(cmd)

	cmd.AddCommand(newServeCmd(stdout, stderr))
	cmd.AddCommand(newListCmd(stdout, stderr))
	cmd.AddCommand(newExportCmd(stdout, stderr))

	return cmd
}

// Execute runs the CLI with the process stdio.
func Execute() int {
	root := NewRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	cmd.PersistentFlags().String("backend", "", "Archive backend base URL (overrides BACKEND_URL)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig reads the config file and environment, then applies global
// flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if backend, _ := cmd.Root().PersistentFlags().GetString("backend"); backend != "" {
		cfg.Backend.URL = backend
	}
	if level, _ := cmd.Root().PersistentFlags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newClient(cfg *config.Config) *archive.Client {
	return archive.NewClient(cfg.Backend.URL, archive.WithTimeout(cfg.Backend.Timeout))
}

func cachePolicy(cfg *config.Config) cache.Policy {
	return cache.Policy{
		Retry:     cfg.Cache.Retry,
		RetryBase: cfg.Cache.RetryBase,
		StaleTime: cfg.Cache.StaleTime,
		GCTime:    cfg.Cache.GCTime,
	}
}

// newCache uses Redis when an address is configured and process memory
// otherwise. The returned client is nil for the memory store.
func newCache(cfg *config.Config) (*cache.Cache, *redis.Client) {
	if cfg.Redis.Addr == "" {
		return cache.New(cache.NewMemoryStore(), cachePolicy(cfg)), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return cache.New(cache.NewRedisStore(rdb), cachePolicy(cfg)), rdb
}
