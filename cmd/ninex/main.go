package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose    bool
	configPath string
	dataDir    string
	worldID    string
	seedFlag   int64
	iterations int

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ninex",
	Short: "ninex - genome-driven digital organisms on a toroidal grid",
	Long: `ninex runs a grid of organisms whose bit genomes are interpreted as
gene tables and an expression automaton. Every iteration each organism moves,
meets its neighborhood and appends one genome bit to its bit history.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured number of iterations headless",
	Long: `Runs the world as fast as possible, writing the tick log, snapshots,
the index database and, when enabled, JPEG frames and a PNG poster.`,
	RunE: runHeadless,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the world at tick_rate_hz and serve the live observer",
	RunE:  runServe,
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-run from a snapshot and verify the recorded tick digests",
	RunE:  runReplay,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <snapshot>",
	Short: "Print a snapshot summary or decode one organism",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs/ninex.yaml", "Path to ninex.yaml")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "./data", "Runtime data directory")
	rootCmd.PersistentFlags().StringVar(&worldID, "world", "", "World id (overrides config)")
	rootCmd.PersistentFlags().Int64Var(&seedFlag, "seed", 0, "World seed (overrides config when set)")
	rootCmd.PersistentFlags().IntVar(&iterations, "iterations", 0, "Iteration count (overrides config when set)")

	runCmd.Flags().BoolVar(&resume, "resume", false, "Resume from the latest snapshot in the data dir")
	runCmd.Flags().BoolVar(&disableDB, "disable-db", false, "Disable the sqlite index")

	serveCmd.Flags().StringVar(&listenAddr, "addr", "127.0.0.1:8080", "HTTP listen address")
	serveCmd.Flags().BoolVar(&resume, "resume", true, "Resume from the latest snapshot in the data dir")
	serveCmd.Flags().BoolVar(&disableDB, "disable-db", false, "Disable the sqlite index")
	serveCmd.Flags().BoolVar(&allowRemote, "allow-remote", false, "Serve admin and observer endpoints to non-loopback clients")

	replayCmd.Flags().StringVar(&replaySnapshot, "snapshot", "", "Snapshot to start from (default: earliest in the data dir)")
	replayCmd.Flags().Uint64Var(&replayToTick, "to-tick", 0, "Stop after this tick (inclusive)")

	inspectCmd.Flags().IntVar(&inspectX, "x", -1, "Organism column to decode")
	inspectCmd.Flags().IntVar(&inspectY, "y", -1, "Organism row to decode")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
