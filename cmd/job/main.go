package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/localpulse/jobs/internal/app"
	"github.com/localpulse/jobs/internal/config"
	"github.com/localpulse/jobs/pkg/jobs"
	"github.com/localpulse/jobs/pkg/logger"
)

func main() {
	logger.SetupLogger()
	log := logger.New("job")

	code := jobs.ExitOK
	cmd := &cobra.Command{
		Use:   "job <job-name>",
		Short: "Run one job now, without touching its schedule",
		Long: `Runs a single registered job once for diagnosis. The job's last and next
run times are not updated.

Exit codes: 0 success, 1 the job failed, 2 missing or unknown job name.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// A bad invocation lists the available jobs and exits 2 before
		// any config or database setup can fail.
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := jobs.NameArg(args); !ok {
				jobs.PrintUsage(cmd.OutOrStdout(), app.ModuleNames())
				code = jobs.ExitUsage
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := app.New(ctx, cfg, app.Options{Manual: true})
			if err != nil {
				return err
			}
			defer a.Close()

			code = jobs.RunOne(ctx, a.Registry, args, cmd.OutOrStdout(), log, cfg.Scheduler.JobTimeout)
			return nil
		},
	}

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Str("action", "job_setup_failed").Msg("Could not start job runner")
		os.Exit(jobs.ExitError)
	}
	os.Exit(code)
}
