package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/telhawk-reporting/internal/dispatch"
	"github.com/telhawk-systems/telhawk-reporting/internal/schedule"
)

var (
	scheduleInterval string
	scheduleMode     string
	scheduleBasePath string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Rerun the current period's report on an interval",
	Long: `Schedule keeps the current period's report fresh: it runs the pipeline
immediately, then again every interval, always for the period containing
the current time. Each run overwrites the period's stored artifact in
place, so the archive holds exactly one file per period.

The loop runs until interrupted (SIGINT/SIGTERM).`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&scheduleInterval, "interval", "", "run interval, e.g. 30m, 6h, 1d (default from config)")
	scheduleCmd.Flags().StringVarP(&scheduleMode, "mode", "m", "", "delivery mode: preview or send (default from config)")
	scheduleCmd.Flags().StringVar(&scheduleBasePath, "base-path", "", "storage base path (default from config)")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	interval := cfg.Schedule.Interval
	if cmd.Flags().Changed("interval") {
		parsed, err := parseDuration(scheduleInterval)
		if err != nil {
			return fmt.Errorf("invalid interval: %w", err)
		}
		interval = parsed
	}

	modeStr := cfg.Schedule.Mode
	if cmd.Flags().Changed("mode") {
		modeStr = scheduleMode
	}
	mode, err := dispatch.ParseMode(modeStr)
	if err != nil {
		return err
	}

	basePath := cfg.Storage.BasePath
	if cmd.Flags().Changed("base-path") {
		basePath = scheduleBasePath
	}

	d, cleanup, err := buildDispatcher(cmd.Context())
	if err != nil {
		cleanup()
		return err
	}
	defer cleanup()

	s := schedule.NewScheduler(d, basePath, mode, interval, logger)
	go s.Start(cmd.Context())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	s.Stop()
	return nil
}

// parseDuration parses duration strings like "30m", "6h", "1d"
func parseDuration(s string) (time.Duration, error) {
	// Handle day suffix
	if strings.HasSuffix(s, "d") {
		days := strings.TrimSuffix(s, "d")
		var d int
		if _, err := fmt.Sscanf(days, "%d", &d); err != nil {
			return 0, err
		}
		return time.Duration(d) * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}
