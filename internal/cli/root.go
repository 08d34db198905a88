package cli

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	cfgPath  string
	modeFlag string
	noColor  bool

	// exitCode carries the outcome-derived process exit status: 0 healthy,
	// 1 warnings present, 2 critical.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "agentwatch",
	Short: "agentwatch - health and security monitoring for AI coding agents",
	Long: `agentwatch evaluates an AI coding agent's action stream against a battery
of pattern detectors, surfacing health problems (loops, thrashing, stalls,
context loss) and security threats (credential access, injection,
exfiltration) as they happen.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		color.NoColor = noColor || !term.IsTerminal(int(os.Stdout.Fd()))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config YAML file (default: ~/.agentwatch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "Detector mode: health, security, or all (default from config)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return exitCode
}
