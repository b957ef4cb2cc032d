package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"

	"github.com/localpulse/jobs/internal/app"
	"github.com/localpulse/jobs/internal/config"
	"github.com/localpulse/jobs/pkg/database/pool"
	"github.com/localpulse/jobs/pkg/handlers/health"
	"github.com/localpulse/jobs/pkg/jobs"
	"github.com/localpulse/jobs/pkg/logger"
	"github.com/localpulse/jobs/pkg/server"
	"github.com/localpulse/jobs/pkg/store"
)

func main() {
	logger.SetupLogger()
	log := logger.New("cron")

	if err := newRootCommand(log).Execute(); err != nil {
		log.Error().
			Str("action", "command_failed").
			Str("stack", fmt.Sprintf("%+v", err)).
			Msg(err.Error())
		os.Exit(1)
	}
}

func newRootCommand(log *logger.Logger) *cobra.Command {
	var daemon bool

	root := &cobra.Command{
		Use:   "cron",
		Short: "Run the jobs that are due",
		Long: `Runs every enabled job whose next run time has passed, one at a time,
and records each run in the job config store.

Without flags a single batch runs and the process exits; failed jobs do not
change the exit code. With --daemon the batch repeats every POLL_INTERVAL and
a status server is exposed on STATUS_ADDR.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if daemon {
				return runDaemon(cmd.Context(), log)
			}
			return runOnce(cmd.Context(), log)
		},
	}
	root.Flags().BoolVar(&daemon, "daemon", false, "keep running and poll every POLL_INTERVAL")

	root.AddCommand(
		newMigrateCommand(),
		newSeedCommand(log),
		newEnableCommand(true),
		newEnableCommand(false),
		newIntervalCommand(),
		newShowCommand(),
	)
	return root
}

func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, app.Options{})
}

func runOnce(ctx context.Context, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.Runner.RunBatch(ctx)
	if err != nil {
		return err
	}

	if url := a.Config.Scheduler.PushgatewayURL; url != "" {
		if err := push.New(url, "localpulse_jobs").Gatherer(a.Prometheus).Push(); err != nil {
			log.Warn().
				Err(err).
				Str("action", "metrics_push_failed").
				Msg("Failed to push metrics")
		}
	}

	log.Info().
		Str("action", "batch_done").
		Str("batch_id", summary.BatchID).
		Int("attempted", summary.Attempted).
		Int("failed", summary.Failed).
		Msg("Batch run finished")
	return nil
}

func runDaemon(ctx context.Context, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := jobs.NewScheduler(a.Runner, a.Config.Scheduler.PollInterval)
	if err != nil {
		return err
	}

	healthHandler := health.NewHandler(log, a.Registry, a.Runner, a.Pool.Ping).
		WithPoolStats(func() pool.Stats { return pool.GetStats(a.Pool) })
	for name, client := range a.Clients {
		healthHandler.WithBreaker(name, client)
	}

	srv := server.New(a.Config.Scheduler.StatusAddr, logger.New("status-server"), healthHandler, a.Prometheus)
	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start() }()

	sched.Start()

	select {
	case <-ctx.Done():
	case err = <-serverErr:
	}

	log.Info().
		Str("action", "shutdown").
		Msg("Shutting down cron service...")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn().Err(shutdownErr).Str("action", "server_shutdown_failed").Msg("Status server did not stop cleanly")
	}
	return err
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the job config, alert and tenant tables if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := store.Migrate(cmd.Context(), a.Pool, a.Config.Scheduler.JobsTable); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newSeedCommand(log *logger.Logger) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create or refresh job configs from a YAML file",
		Long: `Creates missing job config rows and refreshes interval and parameters
of existing ones. The enabled flag and run timestamps of existing rows are kept.`,
		Example: "  cron seed --file jobs.yaml",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if file == "" {
				file = a.Config.Scheduler.SeedFile
			}
			if file == "" {
				return errors.New("no seed file: pass --file or set SEED_FILE")
			}
			configs, err := store.LoadSeedFile(file)
			if err != nil {
				return err
			}

			for _, c := range configs {
				if _, ok := a.Registry.Resolve(c.JobName); !ok {
					log.Warn().
						Str("action", "seed_unregistered_job").
						Str("job_name", c.JobName).
						Msg("Seeding a job this binary cannot run")
				}
			}

			if err := store.Seed(cmd.Context(), a.Store, configs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d jobs\n", len(configs))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file (defaults to SEED_FILE)")
	return cmd
}

func newEnableCommand(enabled bool) *cobra.Command {
	use, short := "enable <job-name>", "Enable a job"
	if !enabled {
		use, short = "disable <job-name>", "Disable a job"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Store.SetEnabled(cmd.Context(), args[0], enabled); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s enabled=%t\n", args[0], enabled)
			return nil
		},
	}
}

func newIntervalCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "interval <job-name> <minutes>",
		Short: "Change how often a job runs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Wrapf(err, "invalid minutes %q", args[1])
			}

			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Store.SetInterval(cmd.Context(), args[0], minutes); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s interval=%dm\n", args[0], minutes)
			return nil
		},
	}
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-name>",
		Short: "Print a job's config row as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			cfg, err := a.Store.GetConfig(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	}
}
