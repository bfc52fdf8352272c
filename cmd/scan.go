package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one presence scan cycle",
	Long: `Sample a handful of camera frames, aggregate which enrolled employees
were recognized anywhere in the window, and apply the result to the presence
tracker. Employees missed repeatedly are marked absent or checked out
automatically; run this from cron for periodic presence sweeps.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().String("dir", "", "Read frames from a directory of images instead of the camera")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	src, err := app.openSource(mustGetString(cmd, "dir"))
	if err != nil {
		return err
	}
	defer src.Close()

	summary, err := app.scanner.Run(ctx, src)
	if err != nil {
		return fmt.Errorf("presence scan failed: %w", err)
	}

	fmt.Printf("Scan %s: %d frame(s), %d face(s)\n", summary.RunID, summary.Frames, summary.Faces)
	for _, res := range summary.Results {
		marker := "missed"
		if res.Detected {
			marker = "seen"
		}
		fmt.Printf("  %-10s %-25s %-6s %s (misses: %d)\n",
			res.EmployeeKey, res.Name, marker, res.State, res.MissCount)
	}
	return nil
}
