package main

import (
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

// newTestCmd implements `conduit test --json-report-file <path>
// [--batch-results]`: delegates to `go test`, the underlying test runner
// spec.md §6 refers to, remapping its exit status onto the process (0
// success, 1 test failures, 5 no tests; anything else surfaces as a CLI
// error rather than being silently swallowed).
func newTestCmd() *cobra.Command {
	var reportFile string
	var batchResults bool
	cmd := &cobra.Command{
		Use:   "test",
		Short: "run the module's test suite and report machine-readable results",
		RunE: func(cmd *cobra.Command, args []string) error {
			testArgs := []string{"test", "./..."}
			if reportFile != "" {
				testArgs = append(testArgs, "-json")
			}
			if batchResults {
				testArgs = append(testArgs, "-count=1")
			}

			goCmd := exec.CommandContext(cmd.Context(), "go", testArgs...)
			goCmd.Stderr = os.Stderr

			if reportFile == "" {
				goCmd.Stdout = os.Stdout
				return mapExitCode(goCmd.Run())
			}

			out, err := os.Create(reportFile)
			if err != nil {
				return err
			}
			defer out.Close()

			goCmd.Stdout = io.MultiWriter(os.Stdout, out)
			return mapExitCode(goCmd.Run())
		},
	}
	cmd.Flags().StringVar(&reportFile, "json-report-file", "", "write go test's -json stream to this file")
	cmd.Flags().BoolVar(&batchResults, "batch-results", false, "disable test result caching across the batch")
	return cmd
}

// mapExitCode surfaces go test's own exit status (0 success, 1 failures,
// 5 no tests matched) as the CLI's own exit code rather than wrapping it
// in a generic cobra error, per spec.md §6. Any other exit status is
// returned as an error.
func mapExitCode(err error) error {
	if err == nil {
		return nil
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return err
	}
	switch exitErr.ExitCode() {
	case 1, 5:
		os.Exit(exitErr.ExitCode())
	}
	return err
}
