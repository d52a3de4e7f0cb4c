// Command searchctl provisions, inspects and seeds the unisearch collections.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/unisearch/internal/config"
	"github.com/kailas-cloud/unisearch/internal/db"
	"github.com/kailas-cloud/unisearch/internal/db/elastic"
	"github.com/kailas-cloud/unisearch/internal/db/memory"
	dbRedis "github.com/kailas-cloud/unisearch/internal/db/redis"
	logpkg "github.com/kailas-cloud/unisearch/internal/logger"
	"github.com/kailas-cloud/unisearch/internal/version"
)

var (
	jsonOutput bool
	envName    string
)

// errConnection marks failures that should exit non-zero.
var errConnection = errors.New("connection failed")

func main() {
	rootCmd := &cobra.Command{
		Use:   "searchctl",
		Short: "Operate unisearch indexes",
		Long: `searchctl creates the collection and managed search indexes,
reports per-collection search capabilities and loads seed data.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&envName, "env", config.GetEnv(), "Config environment (local, dev, prod)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, _ []string) {
			if jsonOutput {
				_ = encodeJSON(cmd.OutOrStdout(), map[string]string{
					"version": version.Version,
					"commit":  version.Commit,
					"date":    version.Date,
				})
				return
			}
			cmd.Printf("searchctl %s (%s, %s)\n", version.Version, version.Commit, version.Date)
		},
	})
	rootCmd.AddCommand(newProvisionCmd(), newCheckCmd(), newSeedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errConnection) {
			os.Exit(1)
		}
	}
}

// backend holds the connected store and, when requested, the managed engine.
type backend struct {
	store   db.Store
	managed *elastic.Client
	logger  *zap.Logger
	cfg     config.Config
}

func (b *backend) Close() {
	b.store.Close()
	_ = b.logger.Sync()
}

// connect opens the store, and the managed engine when withManaged is set or
// the configuration enables it.
func connect(ctx context.Context, withManaged bool) (*backend, error) {
	cfg, err := config.Load(envName)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.NewLogger(envName, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	var store db.Store
	switch cfg.Database.Driver {
	case "memory":
		store = memory.NewStore()
	default:
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:             cfg.Database.Addrs,
			Username:          cfg.Database.Username,
			Password:          cfg.Database.Password,
			KeyPrefix:         cfg.Database.KeyPrefix,
			DisableTextSearch: cfg.Database.Driver == "valkey",
		})
		if err != nil {
			return nil, fmt.Errorf("%w: create store: %w", errConnection, err)
		}
	}
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, readiness); err != nil {
		store.Close()
		return nil, fmt.Errorf("%w: %w", errConnection, err)
	}

	b := &backend{store: store, logger: logger, cfg: cfg}
	if !withManaged && !cfg.Managed.Enabled {
		return b, nil
	}

	es, err := elastic.New(elastic.Config{
		Addresses:   cfg.Managed.Addresses,
		Username:    cfg.Managed.Username,
		Password:    cfg.Managed.Password,
		IndexPrefix: cfg.Managed.IndexPrefix,
		Transport: &http.Transport{
			ResponseHeaderTimeout: time.Duration(cfg.Managed.TimeoutMs) * time.Millisecond,
		},
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	if err := es.WaitForReady(ctx, readiness); err != nil {
		if withManaged {
			store.Close()
			return nil, fmt.Errorf("%w: %w", errConnection, err)
		}
		// managed search is optional for read-only commands
		logger.Warn("Elasticsearch not ready, reporting store capabilities only", zap.Error(err))
		return b, nil
	}
	b.managed = es
	return b, nil
}
