package main

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "memstress",
	Short: "Stress the stack, frame and pool allocators",
	Long: `memstress runs a number of workers, each with its own stack and
frame allocators, that churn a quadtree and scratch allocations frame by
frame. When every worker is done it prints the allocator metrics.

Example:
  memstress --workers 8 --iterations 500
  memstress --json`,
	Version:      "0.1.0",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStress(cmd.Context(), stressOpts)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")

	f := rootCmd.Flags()
	f.IntVarP(&stressOpts.Workers, "workers", "w", 4, "Number of concurrent workers")
	f.IntVarP(&stressOpts.Iterations, "iterations", "n", 200, "Frames per worker")
	f.IntVar(&stressOpts.Elements, "elements", 256, "Quadtree elements added per frame")
	f.IntVar(&stressOpts.BlockSize, "block-size", 64<<10, "Stack and frame block size in bytes")
	f.BoolVar(&stressOpts.Mmap, "mmap", false, "Map blocks directly from the OS")
	f.BoolVar(&stressOpts.Debug, "debug-checks", false, "Enable allocator contract checks")
	f.Int64Var(&stressOpts.Seed, "seed", 1, "Workload seed")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printJSON outputs data as indented JSON.
func printJSON(v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}
