package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/recognizer"
	"github.com/kozaktomas/face-attendance/internal/store"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll [image files...]",
	Short: "Enroll face encodings for an employee",
	Long: `Compute face descriptors from image files and store them as encodings
for an employee. The largest face in each image is used; images without a
detectable face are skipped. The first stored encoding becomes the primary
one unless the employee already has encodings.

Select the employee with --employee (key) or --name; pass --create together
with --employee and --name to register a new employee first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("employee", "", "Employee key (e.g. EMP001)")
	enrollCmd.Flags().String("name", "", "Employee name, used for lookup or with --create")
	enrollCmd.Flags().String("department", "", "Department, used with --create")
	enrollCmd.Flags().Bool("create", false, "Create the employee before enrolling")
	enrollCmd.Flags().Bool("primary", false, "Mark the first stored encoding as primary")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	emp, err := resolveEnrollee(ctx, cmd, app)
	if err != nil {
		return err
	}
	fmt.Printf("Enrolling %s (%s), %d existing encoding(s)\n", emp.Name, emp.Key, emp.EncodingCount)

	bar := progressbar.NewOptions(len(args),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	markPrimary := mustGetBool(cmd, "primary") || emp.EncodingCount == 0
	stored := 0
	skipped := 0

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("could not read %s: %w", path, err)
		}

		det, err := app.codec.ExtractLargest(data)
		if errors.Is(err, recognizer.ErrNoFace) {
			skipped++
			_ = bar.Add(1)
			continue
		}
		if err != nil {
			return fmt.Errorf("could not process %s: %w", path, err)
		}

		enc := &store.FaceEncoding{
			EmployeeKey: emp.Key,
			Descriptor:  det.Descriptor,
			SourceImage: fmt.Sprintf("enroll-%s%s", uuid.New().String(), filepath.Ext(path)),
			IsPrimary:   markPrimary && stored == 0,
		}
		if err := app.encodings.Save(ctx, enc); err != nil {
			return fmt.Errorf("could not store encoding from %s: %w", path, err)
		}
		stored++
		_ = bar.Add(1)
	}
	fmt.Println()

	if skipped > 0 {
		fmt.Printf("Skipped %d image(s) with no detectable face\n", skipped)
	}
	fmt.Printf("Stored %d encoding(s) for %s\n", stored, emp.Key)

	if stored > 0 {
		count, err := app.gallery.Reload(ctx)
		if err != nil {
			return fmt.Errorf("could not reload gallery: %w", err)
		}
		fmt.Printf("Gallery reloaded, %d encodings active\n", count)
	}
	return nil
}

// resolveEnrollee finds the target employee by key or name, creating it
// first when --create is set.
func resolveEnrollee(ctx context.Context, cmd *cobra.Command, app *app) (*store.Employee, error) {
	key := mustGetString(cmd, "employee")
	name := mustGetString(cmd, "name")

	if mustGetBool(cmd, "create") {
		if key == "" || name == "" {
			return nil, errors.New("--create requires both --employee and --name")
		}
		emp := &store.Employee{
			Key:        key,
			Name:       name,
			Department: mustGetString(cmd, "department"),
			Active:     true,
		}
		if err := app.employees.Create(ctx, emp); err != nil {
			return nil, fmt.Errorf("could not create employee: %w", err)
		}
		fmt.Printf("Created employee %s (%s)\n", emp.Name, emp.Key)
		return emp, nil
	}

	switch {
	case key != "":
		// Resolved through ListActive so EncodingCount is populated and
		// inactive employees cannot be enrolled.
		employees, err := app.employees.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		for i := range employees {
			if employees[i].Key == key {
				return &employees[i], nil
			}
		}
		return nil, fmt.Errorf("could not find active employee %s: %w", key, store.ErrNotFound)
	case name != "":
		emp, err := app.employees.FindByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("could not find employee named %q: %w", name, err)
		}
		return emp, nil
	default:
		return nil, errors.New("pass --employee or --name to select the employee")
	}
}
