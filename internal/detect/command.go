package detect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gzhole/agentwatch/internal/action"
)

// ---------------------------------------------------------------------------
// privilege_escalation: the agent is trying to gain elevated rights
// ---------------------------------------------------------------------------

var escalationExecutables = map[string]string{
	"sudo":   "sudo invocation",
	"su":     "user switch",
	"doas":   "doas invocation",
	"pkexec": "polkit escalation",
}

// setuid/setgid bit grants via chmod.
var setuidChmodPattern = regexp.MustCompile(`^[ugo]*\+[rwxst]*s|^[0-7]?[4267][0-7]{3}$`)

type privilegeEscalationDetector struct{}

func (d *privilegeEscalationDetector) Name() string       { return "privilege_escalation" }
func (d *privilegeEscalationDetector) Category() Category { return CategorySecurity }

// Check parses command actions and fires on elevation executables, setuid
// bit grants, or sudoers edits.
func (d *privilegeEscalationDetector) Check(snap action.Snapshot) *Warning {
	for _, a := range snap.All() {
		if a.Kind != action.KindCommand {
			continue
		}
		if reason := escalationReason(a.Target); reason != "" {
			return &Warning{
				Category:   CategorySecurity,
				Severity:   SeverityCritical,
				Signal:     "privilege_escalation",
				Message:    fmt.Sprintf("%s in command %q", reason, truncate(a.Target, 100)),
				Evidence:   []int{a.Sequence},
				DetectedAt: a.Sequence,
			}
		}
	}
	return nil
}

func escalationReason(command string) string {
	pc := parseCommand(command)
	for _, seg := range pc.Segments {
		if reason, ok := escalationExecutables[seg.Executable]; ok {
			return reason
		}
		if seg.Executable == "chmod" {
			for _, arg := range seg.Args {
				if setuidChmodPattern.MatchString(arg) {
					return "setuid/setgid bit grant"
				}
			}
		}
		if seg.Executable == "visudo" {
			return "sudoers edit"
		}
		for _, arg := range seg.Args {
			if strings.Contains(arg, "/etc/sudoers") {
				return "sudoers modification"
			}
		}
		for _, r := range seg.Redirects {
			if strings.Contains(r.Path, "/etc/sudoers") {
				return "sudoers modification"
			}
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// dangerous_command: destructive or system-hostile commands
// ---------------------------------------------------------------------------

var forkBombPattern = regexp.MustCompile(`:\s*\(\s*\)\s*\{.*:\s*\|\s*:.*\}\s*;?\s*:`)

var destructiveRootTargets = []string{
	"/", "/*", "/etc", "/usr", "/var", "/boot", "/home", "~", "$HOME",
}

type dangerousCommandDetector struct{}

func (d *dangerousCommandDetector) Name() string       { return "dangerous_command" }
func (d *dangerousCommandDetector) Category() Category { return CategorySecurity }

// Check fires on recursive root deletion, fork-bomb shapes, raw device
// writes, and filesystem reformatting.
func (d *dangerousCommandDetector) Check(snap action.Snapshot) *Warning {
	for _, a := range snap.All() {
		if a.Kind != action.KindCommand {
			continue
		}
		if reason := destructiveReason(a.Target); reason != "" {
			return &Warning{
				Category:   CategorySecurity,
				Severity:   SeverityCritical,
				Signal:     "dangerous_command",
				Message:    fmt.Sprintf("%s: %q", reason, truncate(a.Target, 100)),
				Evidence:   []int{a.Sequence},
				DetectedAt: a.Sequence,
			}
		}
	}
	return nil
}

func destructiveReason(command string) string {
	if forkBombPattern.MatchString(command) {
		return "fork bomb"
	}

	pc := parseCommand(command)
	for _, seg := range pc.Segments {
		switch seg.Executable {
		case "rm":
			if !seg.hasFlag("r", "R", "recursive") {
				continue
			}
			for _, arg := range seg.Args {
				for _, root := range destructiveRootTargets {
					if arg == root {
						return "recursive deletion of " + arg
					}
				}
			}

		case "dd":
			for _, arg := range seg.Args {
				if strings.HasPrefix(arg, "of=/dev/") && !strings.HasPrefix(arg, "of=/dev/null") {
					return "raw device write via dd"
				}
			}

		case "mkfs", "mkfs.ext4", "mkfs.xfs", "mkfs.btrfs", "mkfs.vfat":
			return "filesystem format"

		case "shred", "wipefs":
			for _, arg := range seg.Args {
				if strings.HasPrefix(arg, "/dev/") {
					return "raw device wipe"
				}
			}
		}

		// Redirect straight onto a block device.
		for _, r := range seg.Redirects {
			if (r.Op == ">" || r.Op == ">>") &&
				strings.HasPrefix(r.Path, "/dev/") && r.Path != "/dev/null" {
				return "redirect onto raw device"
			}
		}
	}
	for _, r := range pc.Redirects {
		if (r.Op == ">" || r.Op == ">>") &&
			strings.HasPrefix(r.Path, "/dev/") && r.Path != "/dev/null" {
			return "redirect onto raw device"
		}
	}
	return ""
}
