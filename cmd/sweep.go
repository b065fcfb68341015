package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Alnumo/therapy-engine/app"
	"github.com/Alnumo/therapy-engine/config"
	"github.com/Alnumo/therapy-engine/infra/logger"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a single capacity alert sweep and print the result",
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("sweep-command").Errorf("service close: %v", err)
		}
	}()

	res, err := svc.Monitor.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	fmt.Printf("therapists=%d alerts=%d mean_utilization=%.1f%% stddev=%.1f\n",
		res.Therapists, len(res.Alerts), res.MeanUtilization, res.StdDev)
	for _, a := range res.Alerts {
		fmt.Printf("  [%s] therapist %s at %.1f%%: %s\n",
			a.Severity, a.TherapistID, a.Utilization, a.Message.En)
	}
	return nil
}
