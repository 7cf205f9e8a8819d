// Package main implements the threadcheck CLI tool.
//
// threadcheck runs the conformance scenarios of the thread primitives
// against the current platform and reports which passed:
//
//	threadcheck run                 # run every scenario
//	threadcheck run barrier fork    # run selected scenarios
//	threadcheck stack-size 0x100000 # try a stack size
//	threadcheck version             # show version and platform support
//
// The binary is also its own child process for the fork scenario, so
// InitChild is the first call in main.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kolkov/gothread/thread"
)

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration
	parallel   int

	cfg thread.Config
)

func init() {
	thread.RegisterChild(readyChild, func(w io.Writer) int {
		if _, err := io.WriteString(w, "OK"); err != nil {
			return 1
		}
		return 0
	})
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "threadcheck",
	Short: "Conformance checks for low-level thread primitives",
	Long: `threadcheck exercises locks, thread spawning and counting, stack sizes,
the two-lock barrier, process duplication from a thread and failure
reporting, and prints one line per scenario.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := thread.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if verbose {
			loaded.Debug = true
		}
		// Settle detection before any command takes a bookkeeping lock.
		loaded.ApplyDeadlockOptions()
		cfg = loaded
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run [scenario...]",
	Short: "Run conformance scenarios (all by default)",
	Long: `Runs the named scenarios, or all of them, each against its own runtime.

Scenarios:
` + scenarioHelp(),
	RunE: runScenarios,
}

var stackSizeCmd = &cobra.Command{
	Use:   "stack-size [size]",
	Short: "Show the stack size limits or try setting a size",
	Args:  cobra.MaximumNArgs(1),
	RunE:  stackSize,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		info := thread.GetInfo()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "threadcheck version %s (%s, %s)\n", info.Version, info.GoVersion, info.Platform)
		fmt.Fprintf(out, "stack size supported: %t\n", info.StackSizeSupported)
		fmt.Fprintf(out, "fork supported: %t\n", info.ForkSupported)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print task progress and debug logs")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default $GOTHREAD_CONFIG)")

	runCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-scenario timeout")
	runCmd.Flags().IntVar(&parallel, "parallel", 0, "Maximum scenarios run at once (0 = no limit)")

	rootCmd.AddCommand(runCmd, stackSizeCmd, versionCmd)
}

func main() {
	if thread.InitChild() {
		return
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
