package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hackmate/hackmate/pkg/config"
	"github.com/hackmate/hackmate/pkg/providers"
	"github.com/hackmate/hackmate/pkg/replay"
	"github.com/hackmate/hackmate/pkg/report"
	"github.com/hackmate/hackmate/pkg/runtime"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

var (
	verbose      bool
	workspaceDir string
	replayFile   string

	// cfg and logger are resolved once in PersistentPreRunE.
	cfg    *config.Config
	logger *slog.Logger

	// executor spawns tool processes; nil means real processes.
	executor providers.CommandExecutor
)

func main() {
	loadDotEnv() // load .env file if present (gitignored)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, report.DescribeError(err))
		os.Exit(1)
	}
}

// loadDotEnv reads a .env file from the working directory and sets
// any variables that aren't already set in the environment.
// Lines are KEY=VALUE (or KEY="VALUE"). Comments (#) and blanks are skipped.
func loadDotEnv() {
	f, err := os.Open(".env")
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:   "hackmate",
	Short: "Safety-gated reconnaissance workflow runner",
	Long: "hackmate runs reconnaissance and scanning tools one step at a time against a target,\n" +
		"behind a safety gate that requires explicit scope and execution confirmation.\n" +
		"Only run it against targets you are authorized to test.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// setup resolves configuration and logging for every subcommand.
func setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	c, err := config.Load()
	if err != nil {
		return err
	}
	if workspaceDir != "" {
		c.WorkspaceDir = workspaceDir
	}
	cfg = c
	logger.Debug("config loaded", slog.String("workspace_dir", cfg.WorkspaceDir), slog.Bool("enforce_scope", cfg.Safety.EnforceScope))
	return nil
}

func newEngine() (*runtime.Engine, error) {
	exe := executor
	if replayFile != "" {
		sc, err := replay.LoadScenario(replayFile)
		if err != nil {
			return nil, err
		}
		if sc.WorkspaceDir == "" {
			sc.WorkspaceDir = cfg.WorkspaceDir
		}
		logger.Debug("replaying recorded tool output", slog.String("scenario", replayFile), slog.Int("commands", len(sc.Commands)))
		exe = replay.NewReplayExecutor(sc)
	}
	return runtime.NewFromConfig(cfg, exe, logger)
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hackmate %s (commit %s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().StringVar(&workspaceDir, "workspace-dir", "", "Override the workspace root directory")
	rootCmd.PersistentFlags().StringVar(&replayFile, "replay", "", "Answer tool invocations from a scenario file instead of spawning processes")

	rootCmd.AddCommand(flowCmd)
	rootCmd.AddCommand(stepCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(stepsCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}
