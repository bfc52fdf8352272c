package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/matcher"
)

// settingsRefreshInterval bounds how stale the match thresholds read from the
// settings table may get during a long watch run.
const settingsRefreshInterval = time.Minute

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the live recognition loop against the camera",
	Long: `Watch the camera stream and record attendance continuously.
Every Nth frame is decoded and matched against the enrolled face gallery;
recognized employees are checked in or out through the attendance state
machine, subject to the per-employee cooldown. When the loop is stopped,
attendance records left open by automatic checkouts are closed.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("dir", "", "Read frames from a directory of images instead of the camera")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nStopping watch loop...")
		cancel()
	}()

	fmt.Println("Watching for faces. Press Ctrl+C to stop")
	if err := watchLoop(ctx, app, src); err != nil {
		return err
	}

	// Records closed by the presence tracker mid-run keep their automatic
	// checkout; here we only sweep up records the stop itself left open.
	closed, err := app.service.CloseOpenAutoRecords(context.Background())
	if err != nil {
		return fmt.Errorf("closing open attendance records: %w", err)
	}
	if closed > 0 {
		fmt.Printf("Closed %d open attendance record(s)\n", closed)
	}
	return nil
}

func watchLoop(ctx context.Context, app *app, src camera.Source) error {
	stride := app.cfg.Camera.FrameStride
	if stride < 1 {
		stride = 1
	}

	set, err := app.service.Settings(ctx)
	if err != nil {
		return err
	}
	thresholds := matcher.Thresholds{Accept: set.AcceptThreshold, Reject: set.RejectThreshold}
	refreshed := time.Now()

	frame := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		img, err := src.Next(ctx)
		if errors.Is(err, camera.ErrSourceDrained) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Printf("Frame error: %s\n", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(2 * time.Second):
			}
			continue
		}

		frame++
		if frame%stride != 0 {
			continue
		}

		if time.Since(refreshed) > settingsRefreshInterval {
			if set, err = app.service.Settings(ctx); err != nil {
				return err
			}
			thresholds = matcher.Thresholds{Accept: set.AcceptThreshold, Reject: set.RejectThreshold}
			refreshed = time.Now()
		}

		detections, err := app.codec.ExtractImage(img)
		if err != nil {
			fmt.Printf("Recognition error: %s\n", err)
			continue
		}

		snap := app.gallery.Snapshot()
		for _, det := range detections {
			result, err := matcher.Match(det.Descriptor, snap, thresholds)
			if errors.Is(err, matcher.ErrGalleryEmpty) {
				fmt.Println("No enrolled faces yet, waiting...")
				break
			}
			if err != nil {
				return err
			}
			if result.Verdict != matcher.VerdictRecognized {
				continue
			}

			ev, err := app.service.RecordRecognition(ctx, result.EmployeeKey)
			if err != nil {
				fmt.Printf("Attendance error for %s: %s\n", result.EmployeeKey, err)
				continue
			}
			if ev.Action != attendance.ActionNone {
				fmt.Printf("%s: %s (distance %.1f, confidence %.0f%%)\n",
					ev.EmployeeKey, ev.Action, result.Distance, result.Confidence*100)
			}
		}
	}
}
