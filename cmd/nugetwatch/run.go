package main

import (
	"context"
	"fmt"

	"github.com/obentoo/nugetwatch/internal/common/output"
	"github.com/obentoo/nugetwatch/internal/watch"
	"github.com/spf13/cobra"
)

// runNotifyOnFirstSeen overrides the configured first-observation policy
var runNotifyOnFirstSeen bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check the package once",
	Long: `Look the package up once, compare it with the recorded version and notify
when it changed. Intended for external schedulers such as cron or systemd timers.

Examples:
  nugetwatch run
  nugetwatch run --notify-on-first-seen
  NUGETWATCH_PACKAGE_ID=Polly nugetwatch run`,
	RunE: runOnce,
}

func init() {
	runCmd.Flags().BoolVar(&runNotifyOnFirstSeen, "notify-on-first-seen", false, "Notify when the first version is recorded")
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var opts []watch.Option
	if cmd.Flags().Changed("notify-on-first-seen") {
		opts = append(opts, watch.WithNotifyOnFirstSeen(runNotifyOnFirstSeen))
	}

	w, store, err := newWatcher(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := w.Run(ctx)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

// printResult writes a one-line colored summary of an invocation
func printResult(r *watch.Result) {
	outcome := r.Outcome.String()
	line := fmt.Sprintf("%s %s", output.FormatOutcome(outcome), output.Package.Sprint(r.PackageID))
	switch r.Outcome {
	case watch.OutcomeChanged:
		line += " " + output.FormatTransition(r.PreviousVersion, r.FetchedVersion)
	case watch.OutcomeBaseline, watch.OutcomeUnchanged:
		line += " " + output.FormatTransition("", r.FetchedVersion)
	}
	fmt.Println(line)

	switch {
	case r.NotifyErr != nil:
		output.PrintWarning("notification failed: %v", r.NotifyErr)
	case r.Notified:
		output.PrintSuccess("notification sent")
	}
}
