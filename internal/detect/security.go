package detect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gzhole/agentwatch/internal/action"
	"github.com/gzhole/agentwatch/internal/redact"
	"github.com/gzhole/agentwatch/internal/scan"
)

// ---------------------------------------------------------------------------
// credential_access: reading or writing credential material
// ---------------------------------------------------------------------------

type credentialAccessDetector struct {
	sensitive *sensitiveMatcher
}

func (d *credentialAccessDetector) Name() string       { return "credential_access" }
func (d *credentialAccessDetector) Category() Category { return CategorySecurity }

// Check fires on the first file-kind action (read, write, edit) whose
// target matches the sensitive-path set.
func (d *credentialAccessDetector) Check(snap action.Snapshot) *Warning {
	for _, a := range snap.All() {
		if !a.IsFileKind() {
			continue
		}
		if !d.sensitive.Match(a.Target) {
			continue
		}
		return &Warning{
			Category:   CategorySecurity,
			Severity:   SeverityCritical,
			Signal:     "credential_access",
			Message:    fmt.Sprintf("agent performed %s on credential path %q", a.Kind, a.Target),
			Evidence:   []int{a.Sequence},
			DetectedAt: a.Sequence,
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// secret_in_output: a token or key shape appeared in action content
// ---------------------------------------------------------------------------

type secretInOutputDetector struct{}

func (d *secretInOutputDetector) Name() string       { return "secret_in_output" }
func (d *secretInOutputDetector) Category() Category { return CategorySecurity }

// Check fires on the first content payload containing a secret-shaped
// substring. The matched value never reaches the warning message; only the
// redacted form does.
func (d *secretInOutputDetector) Check(snap action.Snapshot) *Warning {
	for _, a := range snap.All() {
		if a.Content == "" {
			continue
		}
		match, ok := redact.FindSecret(a.Content)
		if !ok {
			continue
		}
		return &Warning{
			Category: CategorySecurity,
			Severity: SeverityCritical,
			Signal:   "secret_in_output",
			Message: fmt.Sprintf("%s secret exposed in %s output: %s",
				match.Kind, a.Kind, match.Redacted),
			Evidence:   []int{a.Sequence},
			DetectedAt: a.Sequence,
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// prompt_injection: incoming text tries to steer the agent
// ---------------------------------------------------------------------------

// Imperative override phrasing. Matched case-insensitively against message
// and read content.
var injectionPhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier)\s+(instructions?|prompts?|rules?|context)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|your)\s+(instructions?|training|guidelines?)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|in)\b`),
	regexp.MustCompile(`(?i)new\s+(system\s+)?instructions?\s*:`),
	regexp.MustCompile(`(?i)\bsystem\s*prompt\s*:`),
	regexp.MustCompile(`(?i)do\s+not\s+(tell|inform|alert|mention\s+this\s+to)\s+the\s+user`),
	regexp.MustCompile(`(?i)(reveal|print|repeat|output)\s+(your\s+)?(system\s+prompt|initial\s+instructions)`),
	regexp.MustCompile(`(?i)pretend\s+(that\s+)?(you|the)\s`),
	regexp.MustCompile(`(?i)act\s+as\s+(if|though)\s+you\s+have\s+no\s+(restrictions|rules|guidelines)`),
	regexp.MustCompile(`(?i)this\s+is\s+(a\s+)?(higher|highest)\s+priority\s+instruction`),
	regexp.MustCompile(`(?i)IMPORTANT\s*:\s*(you\s+must|always|never)\s`),
}

type promptInjectionDetector struct{}

func (d *promptInjectionDetector) Name() string       { return "prompt_injection" }
func (d *promptInjectionDetector) Category() Category { return CategorySecurity }

// Check fires when message or read content matches the imperative-override
// phrase list. Read content counts because injections routinely arrive
// through files and web pages the agent reads, not just direct messages.
func (d *promptInjectionDetector) Check(snap action.Snapshot) *Warning {
	for _, a := range snap.All() {
		if a.Kind != action.KindMessage && a.Kind != action.KindRead {
			continue
		}
		if a.Content == "" {
			continue
		}
		for _, re := range injectionPhrases {
			loc := re.FindString(a.Content)
			if loc == "" {
				continue
			}
			return &Warning{
				Category: CategorySecurity,
				Severity: SeverityCritical,
				Signal:   "prompt_injection",
				Message: fmt.Sprintf("override phrasing in %s content: %q",
					a.Kind, truncate(strings.TrimSpace(loc), 80)),
				Evidence:   []int{a.Sequence},
				DetectedAt: a.Sequence,
			}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// hidden_instruction: invisible or smuggled text in content
// ---------------------------------------------------------------------------

type hiddenInstructionDetector struct{}

func (d *hiddenInstructionDetector) Name() string       { return "hidden_instruction" }
func (d *hiddenInstructionDetector) Category() Category { return CategorySecurity }

// Check fires on zero-width or bidi-override code points, Unicode tag
// characters, or suspiciously dense encoded payloads in any content field.
func (d *hiddenInstructionDetector) Check(snap action.Snapshot) *Warning {
	for _, a := range snap.All() {
		if a.Content == "" {
			continue
		}
		result := scan.Content(a.Content)
		if result.Clean {
			continue
		}
		first := result.Findings[0]
		return &Warning{
			Category: CategorySecurity,
			Severity: SeverityCritical,
			Signal:   "hidden_instruction",
			Message: fmt.Sprintf("%s in %s content at byte %d (%s)",
				first.Description, a.Kind, first.Position, first.Codepoint),
			Evidence:   []int{a.Sequence},
			DetectedAt: a.Sequence,
		}
	}
	return nil
}
