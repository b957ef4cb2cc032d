package jobs

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/localpulse/jobs/pkg/logger"
)

const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// RunOne runs a single job by name for manual diagnosis. It never touches
// the config store. args are the positional arguments after the program
// name; exactly one is expected.
func RunOne(ctx context.Context, registry *Registry, args []string, out io.Writer, log *logger.Logger, timeout time.Duration) int {
	name, ok := NameArg(args)
	if !ok {
		PrintUsage(out, registry.Names())
		return ExitUsage
	}

	fn, err := registry.Lookup(name)
	if err != nil {
		log.Warn().
			Err(err).
			Str("action", "job_unknown").
			Str("job_name", name).
			Msg("Requested job is not registered")
		fmt.Fprintln(out, err.Error())
		printAvailable(out, registry.Names())
		return ExitUsage
	}

	jobLog := log.WithJob(name, "manual")
	jobLog.LogJobStart()

	start := time.Now()
	res, err := Invoke(jobLog.ToContext(ctx), name, fn, timeout)
	duration := time.Since(start)

	if err != nil {
		jobLog.Error().
			Str("action", "job_failed").
			Str("stack", fmt.Sprintf("%+v", err)).
			Dur("duration", duration).
			Msg(err.Error())
		fmt.Fprintf(out, "job %s failed: %v\n", name, err)
		return ExitError
	}

	processed, failed := 0, 0
	if res != nil {
		processed, failed = res.Processed, res.Failed
	}
	jobLog.LogJobComplete(duration, processed, failed)
	fmt.Fprintf(out, "job %s completed in %s\n", name, duration.Round(time.Millisecond))
	return ExitOK
}

// NameArg returns the job name when args hold exactly one non-blank entry
func NameArg(args []string) (string, bool) {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return "", false
	}
	return args[0], true
}

// PrintUsage writes the usage line followed by names
func PrintUsage(out io.Writer, names []string) {
	fmt.Fprintln(out, "usage: job <job-name>")
	printAvailable(out, names)
}

func printAvailable(out io.Writer, names []string) {
	fmt.Fprintln(out, "available jobs:")
	for _, name := range names {
		fmt.Fprintf(out, "  %s\n", name)
	}
}
