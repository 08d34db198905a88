package cli

import (
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gzhole/agentwatch/internal/action"
	"github.com/gzhole/agentwatch/internal/config"
	"github.com/gzhole/agentwatch/internal/detect"
	"github.com/gzhole/agentwatch/internal/enrich"
	"github.com/gzhole/agentwatch/internal/evaluate"
	"github.com/gzhole/agentwatch/internal/logger"
	"github.com/gzhole/agentwatch/internal/source"
)

var (
	watchJSON      bool
	watchFromStart bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <session.jsonl>",
	Short: "Follow a growing session log and warn in real time",
	Long: `Watch tails a session log as the agent writes it, evaluating detectors
on every new action. Each signal fires once per session unless a dedup
cooldown is configured. Ctrl-C stops cleanly.

The exit code reflects the most severe warning seen during the run.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "Emit warnings as JSON lines")
	watchCmd.Flags().BoolVar(&watchFromStart, "from-start", false, "Replay the existing log before following")
	rootCmd.AddCommand(watchCmd)
}

// watchSink prints results as they fire and tracks the worst outcome.
type watchSink struct {
	jsonOut bool
	audit   *logger.AuditLogger
	log     *zap.Logger
	worst   detect.Outcome
}

func (s *watchSink) Emit(r evaluate.Result) {
	if r.Outcome > s.worst {
		s.worst = r.Outcome
	}

	if s.jsonOut {
		if err := json.NewEncoder(os.Stdout).Encode(r); err != nil {
			s.log.Warn("emit failed", zap.Error(err))
		}
	} else {
		for _, w := range r.Warnings {
			printWarning(w)
		}
		if r.Assessment != nil {
			dimColor.Printf("         assessment: confirmed=%t confidence=%.2f %s\n",
				r.Assessment.Confirmed, r.Assessment.Confidence, r.Assessment.Reasoning)
		}
	}

	if s.audit != nil {
		for _, w := range r.Warnings {
			if err := s.audit.Log(r.Session, w, r.Degraded); err != nil {
				s.log.Warn("audit write failed", zap.Error(err))
			}
		}
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	buf, err := action.NewBuffer(cfg.Buffer.Capacity, cfg.Buffer.Span.Std())
	if err != nil {
		return err
	}
	reg, err := detect.NewRegistry(detect.Mode(cfg.Mode), cfg.Thresholds, log)
	if err != nil {
		return err
	}

	src, err := source.NewTailSource(args[0], watchFromStart, log)
	if err != nil {
		return err
	}
	defer src.Close()

	sink := &watchSink{jsonOut: watchJSON, log: log}
	if audit, err := openAudit(cfg); err != nil {
		log.Warn("audit log unavailable", zap.Error(err))
	} else if audit != nil {
		sink.audit = audit
		defer func() { _ = audit.Close() }()
	}

	var enricher enrich.Enricher
	if cfg.Enrichment.Enabled {
		enricher = enrich.NewAnthropic(cfg.Enrichment.Model)
	}

	ev := evaluate.New(buf, reg, src, sink, evaluate.Options{
		Cooldown:      cfg.Dedup.Cooldown.Std(),
		MaxRate:       cfg.MaxRate,
		Enricher:      enricher,
		EnrichTimeout: cfg.Enrichment.Timeout.Std(),
		Logger:        log,
	})

	if !watchJSON {
		dimColor.Printf("watching %s (session %s, mode %s)\n", args[0], ev.Session(), cfg.Mode)
	}

	if err := ev.Run(ctx); err != nil {
		return err
	}

	if skipped := src.Skipped(); skipped > 0 && !watchJSON {
		dimColor.Printf("%d malformed log lines skipped\n", skipped)
	}
	exitCode = sink.worst.ExitCode()
	return nil
}

// openAudit resolves the warning audit trail destination. An empty setting
// uses the per-user default; "off" disables it.
func openAudit(cfg *config.Config) (*logger.AuditLogger, error) {
	path := cfg.Log.AuditFile
	switch path {
	case "off":
		return nil, nil
	case "":
		dir, err := config.EnsureConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, config.DefaultAuditFile)
	}
	return logger.New(path)
}
