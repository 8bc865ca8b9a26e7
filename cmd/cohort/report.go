package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cohort-retention/internal/cohort"
	"cohort-retention/internal/config"
	"cohort-retention/internal/ingestion"
	"cohort-retention/internal/observability"
	"cohort-retention/internal/pipeline"
	chstore "cohort-retention/internal/storage/clickhouse"
	"cohort-retention/internal/storage/migrations"
	mysqlstore "cohort-retention/internal/storage/mysql"
	pgstore "cohort-retention/internal/storage/postgres"
)

func newReportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Build one retention report",
		Long: `Build one retention report and write cohort_retention.csv and COHORT_REPORT.md
into the output directory. Cells are also stored in PostgreSQL and ClickHouse
when their DSNs are given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := runReport(cmd.Context(), a.cfg, a.logger, nil, time.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s: %d customers in %d cohorts\n",
				res.RunID, res.Report.DataSummary.Customers, res.Report.DataSummary.Cohorts)
			fmt.Fprintf(out, "  %s\n  %s\n", res.CSVPath, res.MarkdownPath)
			return nil
		},
	}
}

// runReport wires sources and stores from cfg and runs the pipeline once.
func runReport(ctx context.Context, cfg *config.Config, logger *logrus.Logger, metrics *observability.Metrics, now time.Time) (*pipeline.Result, error) {
	window, err := reportWindow(cfg, now)
	if err != nil {
		return nil, err
	}

	env, err := openEnvironment(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer env.close()

	opts := append(env.options,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(metrics),
	)
	return pipeline.New(window, cfg.OutputDir, opts...).Run(ctx, env.customers, env.orders)
}

// reportWindow anchors the fixtures at their own recent date unless one is given.
func reportWindow(cfg *config.Config, now time.Time) (*cohort.Window, error) {
	if cfg.Source == config.SourceFixtures && cfg.RecentDate == "" {
		now = pipeline.FixtureAnchor()
	}
	return cfg.Window(now)
}

// environment holds the sources and stores of one run.
type environment struct {
	customers []ingestion.CustomerSource
	orders    []ingestion.OrderSource
	options   []pipeline.Option
	closers   []func()
}

func (e *environment) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// openEnvironment connects the configured input source and report stores.
// The postgres DSN serves both as a report store and, with source=postgres,
// as the input.
func openEnvironment(ctx context.Context, cfg *config.Config) (*environment, error) {
	env := &environment{}

	var pool *pgstore.Pool
	if cfg.PostgresDSN != "" {
		var err error
		pool, err = pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		env.closers = append(env.closers, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			env.close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		env.options = append(env.options,
			pipeline.WithStore("postgres", pgstore.NewRetentionStore(pool)),
			pipeline.WithRunStore(pgstore.NewRunStore(pool)),
		)
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			env.close()
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		env.closers = append(env.closers, func() { conn.Close() })
		env.options = append(env.options, pipeline.WithStore("clickhouse", chstore.NewRetentionStore(conn)))
	}

	if cfg.Verify {
		env.options = append(env.options, pipeline.WithVerify())
	}

	if err := env.openSources(ctx, cfg, pool); err != nil {
		env.close()
		return nil, err
	}
	return env, nil
}

func (e *environment) openSources(ctx context.Context, cfg *config.Config, pool *pgstore.Pool) error {
	switch cfg.Source {
	case config.SourceFixtures:
		e.customers = append(e.customers, ingestion.NewMemoryCustomerSource("fixtures", pipeline.FixtureCustomers()))
		e.orders = append(e.orders, ingestion.NewMemoryOrderSource("fixtures", pipeline.FixtureOrders()))

	case config.SourceCSV:
		var progress io.Writer
		if cfg.Progress {
			progress = os.Stderr
		}
		opts := ingestion.CSVOptions{Progress: progress}
		for _, path := range cfg.Customers {
			e.customers = append(e.customers, ingestion.NewCSVCustomerSource(path, opts))
		}
		for _, path := range cfg.Orders {
			e.orders = append(e.orders, ingestion.NewCSVOrderSource(path, opts))
		}

	case config.SourcePostgres:
		customers, err := pgstore.NewCustomerSource(pool, cfg.CustomersTable)
		if err != nil {
			return err
		}
		orders, err := pgstore.NewOrderSource(pool, cfg.OrdersTable)
		if err != nil {
			return err
		}
		e.customers = append(e.customers, customers)
		e.orders = append(e.orders, orders)

	case config.SourceMySQL:
		db, err := mysqlstore.Open(ctx, cfg.MySQLDSN)
		if err != nil {
			return fmt.Errorf("connect to mysql: %w", err)
		}
		e.closers = append(e.closers, func() { db.Close() })

		customers, err := mysqlstore.NewCustomerSource(db, cfg.CustomersTable)
		if err != nil {
			return err
		}
		orders, err := mysqlstore.NewOrderSource(db, cfg.OrdersTable)
		if err != nil {
			return err
		}
		e.customers = append(e.customers, customers)
		e.orders = append(e.orders, orders)

	default:
		return fmt.Errorf("%w: unknown source %q", config.ErrInvalid, cfg.Source)
	}
	return nil
}
