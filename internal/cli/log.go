package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gzhole/agentwatch/internal/config"
	"github.com/gzhole/agentwatch/internal/logger"
)

var (
	logFilterSignal   string
	logFilterSeverity string
	logLast           int
	logSummary        bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View and filter the warning audit trail",
	Long: `View warnings recorded by previous watch sessions.

Examples:
  agentwatch log                       # Show all recorded warnings
  agentwatch log --last 20             # Show last 20 warnings
  agentwatch log --signal loop         # Show only loop warnings
  agentwatch log --severity critical   # Show only critical warnings
  agentwatch log --summary             # Show summary statistics`,
	RunE: logCommand,
}

func init() {
	logCmd.Flags().StringVar(&logFilterSignal, "signal", "", "Filter by signal name")
	logCmd.Flags().StringVar(&logFilterSeverity, "severity", "", "Filter by severity (info, warning, critical)")
	logCmd.Flags().IntVar(&logLast, "last", 0, "Show last N warnings")
	logCmd.Flags().BoolVar(&logSummary, "summary", false, "Show summary statistics")
	rootCmd.AddCommand(logCmd)
}

func logCommand(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	path := cfg.Log.AuditFile
	if path == "" || path == "off" {
		dir, err := config.EnsureConfigDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, config.DefaultAuditFile)
	}

	records, err := readAuditTrail(path)
	if err != nil {
		return fmt.Errorf("read audit trail: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No recorded warnings.")
		return nil
	}

	filtered := filterRecords(records)
	if logLast > 0 && logLast < len(filtered) {
		filtered = filtered[len(filtered)-logLast:]
	}

	if logSummary {
		printAuditSummary(filtered)
		return nil
	}
	for _, r := range filtered {
		printAuditRecord(r)
	}
	return nil
}

func readAuditTrail(path string) ([]logger.AuditRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var records []logger.AuditRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec logger.AuditRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue // skip malformed lines
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

func filterRecords(records []logger.AuditRecord) []logger.AuditRecord {
	if logFilterSignal == "" && logFilterSeverity == "" {
		return records
	}
	var out []logger.AuditRecord
	for _, r := range records {
		if logFilterSignal != "" && r.Signal != logFilterSignal {
			continue
		}
		if logFilterSeverity != "" && !strings.EqualFold(r.Severity, logFilterSeverity) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func printAuditRecord(r logger.AuditRecord) {
	fmt.Printf("%s  %-8s [%s] %s\n", formatTimestamp(r.Timestamp), strings.ToUpper(r.Severity), r.Signal, r.Message)
	if len(r.Evidence) > 0 {
		dimColor.Printf("%21s evidence: actions %v (session %s)\n", "", r.Evidence, r.Session)
	}
}

func printAuditSummary(records []logger.AuditRecord) {
	bySeverity := map[string]int{}
	bySignal := map[string]int{}
	sessions := map[string]bool{}
	for _, r := range records {
		bySeverity[r.Severity]++
		bySignal[r.Signal]++
		sessions[r.Session] = true
	}

	fmt.Printf("Total warnings:  %d across %d sessions\n", len(records), len(sessions))
	fmt.Printf("  critical: %d\n", bySeverity["critical"])
	fmt.Printf("  warning:  %d\n", bySeverity["warning"])
	fmt.Printf("  info:     %d\n", bySeverity["info"])
	fmt.Println("By signal:")
	for signal, count := range bySignal {
		fmt.Printf("  %-20s %d\n", signal, count)
	}
	if len(records) > 0 {
		fmt.Printf("First: %s\nLast:  %s\n",
			formatTimestamp(records[0].Timestamp),
			formatTimestamp(records[len(records)-1].Timestamp))
	}
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
