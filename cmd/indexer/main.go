package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goran-ethernal/PaymentIndexor/internal/common"
	"github.com/goran-ethernal/PaymentIndexor/internal/config"
	"github.com/goran-ethernal/PaymentIndexor/internal/db"
	"github.com/goran-ethernal/PaymentIndexor/internal/engine"
	"github.com/goran-ethernal/PaymentIndexor/internal/ledger"
	ledgermig "github.com/goran-ethernal/PaymentIndexor/internal/ledger/migrations"
	"github.com/goran-ethernal/PaymentIndexor/internal/logger"
	"github.com/goran-ethernal/PaymentIndexor/internal/metrics"
	"github.com/goran-ethernal/PaymentIndexor/internal/provider"
	"github.com/goran-ethernal/PaymentIndexor/pkg/api"
	pkgconfig "github.com/goran-ethernal/PaymentIndexor/pkg/config"
	pkgprovider "github.com/goran-ethernal/PaymentIndexor/pkg/provider"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	version = "1.0.0"
	banner  = `
╔═══════════════════════════════════════════╗
║         PaymentIndexor v%s             ║
║   Starknet Invoice Payment Indexer        ║
╚═══════════════════════════════════════════╝
`
)

var (
	configPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "indexer",
	Short: "PaymentIndexor - Starknet invoice payment indexer",
	Long: `PaymentIndexor streams remittance events of the invoice payment contract,
keeps a reorg-consistent SQLite ledger of payments and reports every payment
and chain invalidation as it happens.`,
	Version: version,
	RunE:    runIndexer,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the indexer (default command)",
	RunE:  runIndexer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "PaymentIndexor %s\n", version)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the ledger schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		log := logger.NewComponentLoggerFromConfig(common.ComponentLedger, cfg.Logging)

		database, err := db.NewSQLiteDBFromConfig(cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		defer database.Close()

		if err := ledgermig.RunMigrations(log, database); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		log.Infof("Ledger schema is up to date at %s", cfg.DB.Path)
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema := jsonschema.Reflect(&pkgconfig.Config{})

		out, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode schema: %w", err)
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.AddCommand(runCmd, migrateCmd, schemaCmd, versionCmd)
}

func runIndexer(cmd *cobra.Command, args []string) error {
	fmt.Printf(banner, version)

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := logger.NewComponentLoggerFromConfig(common.ComponentSupervisor, cfg.Logging)

	metrics.SetBuildInfo(version)

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics, log)
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer func() {
			if err := metricsServer.Stop(context.Background()); err != nil {
				log.Warnf("Failed to stop metrics server: %v", err)
			}
		}()
	}

	database, err := db.NewSQLiteDBFromConfig(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer database.Close()

	// the API reads on its own connection, so the schema must exist before either starts
	log.Info("Running database migrations...")
	if err := ledgermig.RunMigrations(logger.NewComponentLoggerFromConfig(common.ComponentLedger, cfg.Logging), database); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	dbMaintenance := db.NewMaintenanceCoordinator(
		cfg.DB.Path,
		database,
		cfg.Maintenance,
		logger.NewComponentLoggerFromConfig(common.ComponentMaintenance, cfg.Logging),
	)
	if err := dbMaintenance.Start(ctx); err != nil {
		return fmt.Errorf("failed to start database maintenance: %w", err)
	}
	defer func() {
		if err := dbMaintenance.Stop(); err != nil {
			log.Warnf("Failed to stop database maintenance: %v", err)
		}
	}()

	engineCfg, err := engine.ConfigFromProvider(cfg.Provider, cfg.Targets)
	if err != nil {
		return fmt.Errorf("invalid provider configuration: %w", err)
	}

	engineLog := logger.NewComponentLoggerFromConfig(common.ComponentEngine, cfg.Logging)
	supervisor, err := engine.NewSupervisor(
		engineCfg,
		cfg.Retry,
		database,
		dialer(cfg.Provider, logger.NewComponentLoggerFromConfig(common.ComponentProvider, cfg.Logging)),
		emit(engineLog),
		dbMaintenance,
		engineLog,
	)
	if err != nil {
		return fmt.Errorf("failed to create supervisor: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		// the API has nothing new to serve once the stream is over
		defer stop()
		return supervisor.Run(runCtx)
	})

	if cfg.API != nil && cfg.API.Enabled {
		readDB, err := db.NewReadOnlySQLiteDB(cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to open read-only database: %w", err)
		}
		defer readDB.Close()

		apiServer := api.NewServer(
			cfg.API,
			ledger.NewReader(readDB),
			logger.NewComponentLoggerFromConfig(common.ComponentAPI, cfg.Logging),
		)
		g.Go(func() error {
			return apiServer.Start(runCtx)
		})
	}

	log.Infow("Starting PaymentIndexor...",
		"provider", cfg.Provider.URL,
		"finality", cfg.Provider.Finality,
		"targets", len(cfg.Targets),
	)

	if err := g.Wait(); err != nil {
		return fmt.Errorf("indexer failed: %w", err)
	}

	log.Info("PaymentIndexor stopped successfully")
	return nil
}

// dialer connects a new provider client for every engine run.
func dialer(cfg pkgconfig.ProviderConfig, log *logger.Logger) engine.ClientFactory {
	return func(ctx context.Context) (pkgprovider.Client, error) {
		client, err := provider.Dial(ctx, cfg.URL, cfg.BearerToken, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// emit reports engine output as structured log records.
func emit(log *logger.Logger) engine.Handler {
	return func(_ context.Context, msg engine.Message) error {
		switch msg.Kind {
		case engine.KindPayment:
			for _, p := range msg.Payments {
				log.Infow("payment",
					"asset", p.Asset,
					"invoice_id", p.InvoiceID,
					"amount", p.Amount.Dec(),
				)
			}
		case engine.KindInvalidate:
			log.Warnw("invalidate",
				"last_valid_block", msg.LastValidBlockNumber,
				"last_valid_hash", hexutil.Encode(msg.LastValidBlockHash),
			)
		}
		return nil
	}
}
