package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gzhole/agentwatch/internal/action"
	"github.com/gzhole/agentwatch/internal/config"
	"github.com/gzhole/agentwatch/internal/detect"
	"github.com/gzhole/agentwatch/internal/health"
	"github.com/gzhole/agentwatch/internal/logging"
	"github.com/gzhole/agentwatch/internal/source"
)

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:   "check <session.jsonl>",
	Short: "Evaluate a complete session log once",
	Long: `Check reads a finished session log, replays it through the detector
engine, and prints every warning with a health report. "-" reads from
stdin.

Exit codes: 0 healthy, 1 warnings present, 2 critical.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Emit the result as JSON")
	rootCmd.AddCommand(checkCmd)
}

// checkResult is the JSON shape of a one-shot evaluation.
type checkResult struct {
	Warnings []detect.Warning `json:"warnings"`
	Outcome  string           `json:"outcome"`
	ExitCode int              `json:"exit_code"`
	Report   health.Report    `json:"report"`
	Skipped  int              `json:"skipped_lines,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var in io.Reader
	if args[0] == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open session log: %w", err)
		}
		defer f.Close()
		in = f
	}

	buf, err := action.NewBuffer(cfg.Buffer.Capacity, cfg.Buffer.Span.Std())
	if err != nil {
		return err
	}
	reg, err := detect.NewRegistry(detect.Mode(cfg.Mode), cfg.Thresholds, log)
	if err != nil {
		return err
	}

	src := source.NewReaderSource(in)
	ctx := cmd.Context()
	for {
		a, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read session log: %w", err)
		}
		buf.Append(a)
	}

	snap := buf.Snapshot()
	warnings := reg.CheckAll(snap)
	for _, d := range reg.Diagnostics() {
		log.Warn("detector fault", zap.String("detector", d.Detector), zap.Error(d.Err))
	}

	outcome := detect.Aggregate(warnings)
	report := health.Calculate(warnings, snap, cfg.Thresholds.ContextCapacity)
	exitCode = outcome.ExitCode()

	if checkJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(checkResult{
			Warnings: warnings,
			Outcome:  outcome.String(),
			ExitCode: exitCode,
			Report:   report,
			Skipped:  src.Skipped(),
		})
	}

	printReport(warnings, outcome, report, src.Skipped())
	return nil
}

// loadConfig layers the --config and --mode flags over the file and
// defaults, and builds the diagnostic logger.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if modeFlag != "" {
		cfg.Mode = modeFlag
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	log := logging.New(logging.Options{
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
	})
	return cfg, log, nil
}
