package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/telhawk-reporting/internal/dispatch"
	"github.com/telhawk-systems/telhawk-reporting/internal/models"
	"github.com/telhawk-systems/telhawk-reporting/pkg/output"
)

var (
	runBasePath string
	runPeriod   string
	runMode     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one report for a period",
	Long: `Run executes the pipeline once for a reporting period: fetch the
period's records, aggregate them into interval buckets, render the report
artifact, store it under the period folder, and hand the composed mail to
the mailer for the chosen mode.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runBasePath, "base-path", "", "storage base path (default from config)")
	runCmd.Flags().StringVarP(&runPeriod, "period", "p", "", "reporting period as YYYY-MM (default: current month)")
	runCmd.Flags().StringVarP(&runMode, "mode", "m", "", "delivery mode: preview or send")
	runCmd.MarkFlagRequired("mode")
}

func runReport(cmd *cobra.Command, args []string) error {
	mode, err := dispatch.ParseMode(runMode)
	if err != nil {
		return err
	}

	basePath := cfg.Storage.BasePath
	if cmd.Flags().Changed("base-path") {
		basePath = runBasePath
	}

	periodKey := runPeriod
	if periodKey == "" {
		periodKey = models.PeriodOf(time.Now()).Key()
	}

	d, cleanup, err := buildDispatcher(cmd.Context())
	if err != nil {
		cleanup()
		return err
	}
	defer cleanup()

	res, err := d.Run(cmd.Context(), dispatch.RunRequest{
		BasePath:  basePath,
		PeriodKey: periodKey,
		Mode:      mode,
	})
	if err != nil {
		return err
	}

	output.Success("Report for %s stored at %s", res.Period, res.Artifact.FullPath)

	table := output.NewTable([]string{"PERIOD", "MODE", "RECORDS", "BUCKETS", "DEFECTS", "TO", "CC", "BCC"})
	table.AddRow([]string{
		res.Period,
		res.Mode,
		fmt.Sprintf("%d", res.Records),
		fmt.Sprintf("%d", res.Buckets),
		fmt.Sprintf("%d", res.Defects),
		fmt.Sprintf("%d", len(res.Recipients.To)),
		fmt.Sprintf("%d", len(res.Recipients.CC)),
		fmt.Sprintf("%d", len(res.Recipients.BCC)),
	})
	table.Render()

	return nil
}
