package detect

import (
	"fmt"
	"net"
	"strings"

	"github.com/gzhole/agentwatch/internal/action"
)

// ---------------------------------------------------------------------------
// network_anomaly: talking to places agents should not talk to
// ---------------------------------------------------------------------------

// Known paste sites and webhook relays used for quick data drops.
var suspiciousHostFragments = []string{
	"pastebin.com",
	"paste.ee",
	"hastebin.com",
	"dpaste.org",
	"ghostbin.com",
	"rentry.co",
	"webhook.site",
	"requestbin.com",
	"pipedream.net",
	"ngrok.io",
	"ngrok-free.app",
	"transfer.sh",
	"file.io",
	"0x0.st",
	"interact.sh",
	"oastify.com",
	"burpcollaborator.net",
}

// Ports with no business in a coding session.
var unusualPorts = map[string]string{
	"4444": "common reverse-shell port",
	"1337": "common backdoor port",
	"6667": "IRC",
	"6697": "IRC over TLS",
	"9001": "Tor ORPort",
	"23":   "telnet",
}

type networkAnomalyDetector struct {
	approved *hostSet
}

func (d *networkAnomalyDetector) Name() string       { return "network_anomaly" }
func (d *networkAnomalyDetector) Category() Category { return CategorySecurity }

// Check fires on network actions to paste/webhook relays, raw IP literals,
// or unusual ports, unless the destination is approved.
func (d *networkAnomalyDetector) Check(snap action.Snapshot) *Warning {
	for _, a := range snap.ByKind(action.KindNetwork) {
		host := hostOf(a.Target)
		if host == "" || d.approved.Contains(host) {
			continue
		}
		if reason := anomalousDestination(host, portOf(a.Target)); reason != "" {
			return &Warning{
				Category:   CategorySecurity,
				Severity:   SeverityWarning,
				Signal:     "network_anomaly",
				Message:    fmt.Sprintf("network action to %s (%s)", host, reason),
				Evidence:   []int{a.Sequence},
				DetectedAt: a.Sequence,
			}
		}
	}
	return nil
}

func anomalousDestination(host, port string) string {
	lower := strings.ToLower(host)
	for _, frag := range suspiciousHostFragments {
		if lower == frag || strings.HasSuffix(lower, "."+frag) {
			return "known paste/relay service"
		}
	}
	if ip := net.ParseIP(host); ip != nil && !ip.IsLoopback() && !ip.IsPrivate() {
		return "raw IP literal"
	}
	if reason, ok := unusualPorts[port]; ok {
		return reason
	}
	return ""
}

// ---------------------------------------------------------------------------
// data_exfiltration: sensitive read followed by an outbound network action
// ---------------------------------------------------------------------------

type dataExfiltrationDetector struct {
	th        Thresholds
	sensitive *sensitiveMatcher
	approved  *hostSet
}

func (d *dataExfiltrationDetector) Name() string       { return "data_exfiltration" }
func (d *dataExfiltrationDetector) Category() Category { return CategorySecurity }

// Check correlates a read of a sensitive path with a later network action
// to a non-approved destination within ExfilLookahead actions. Ordering is
// mandatory: the network action's sequence number must exceed the read's.
// Shell pipelines that read credentials into a network command inside one
// command action count as well.
func (d *dataExfiltrationDetector) Check(snap action.Snapshot) *Warning {
	all := snap.All()

	for i, a := range all {
		switch a.Kind {
		case action.KindRead:
			if !d.sensitive.Match(a.Target) {
				continue
			}
			limit := i + d.th.ExfilLookahead
			for j := i + 1; j < len(all) && j <= limit; j++ {
				b := all[j]
				if b.Kind != action.KindNetwork {
					continue
				}
				host := hostOf(b.Target)
				if host == "" || d.approved.Contains(host) {
					continue
				}
				return &Warning{
					Category: CategorySecurity,
					Severity: SeverityCritical,
					Signal:   "data_exfiltration",
					Message: fmt.Sprintf("read of %q followed by network action to %s",
						a.Target, host),
					Evidence:   []int{a.Sequence, b.Sequence},
					DetectedAt: b.Sequence,
				}
			}

		case action.KindCommand:
			if src, sink := d.pipeExfil(a.Target); sink != "" {
				return &Warning{
					Category: CategorySecurity,
					Severity: SeverityCritical,
					Signal:   "data_exfiltration",
					Message: fmt.Sprintf("command pipes %q into network tool %s",
						src, sink),
					Evidence:   []int{a.Sequence},
					DetectedAt: a.Sequence,
				}
			}
		}
	}
	return nil
}

var networkExecutables = map[string]bool{
	"curl": true, "wget": true, "nc": true, "ncat": true, "netcat": true,
	"scp": true, "rsync": true, "ftp": true, "sftp": true, "ssh": true,
}

// pipeExfil finds a sensitive-path argument in one pipeline segment with a
// network executable in a later segment of the same command.
func (d *dataExfiltrationDetector) pipeExfil(command string) (source, sink string) {
	pc := parseCommand(command)
	sourceIdx := -1
	for i, seg := range pc.Segments {
		for _, arg := range seg.Args {
			if d.sensitive.Match(arg) {
				sourceIdx = i
				source = arg
				break
			}
		}
		if sourceIdx >= 0 {
			break
		}
	}
	if sourceIdx < 0 {
		return "", ""
	}
	for _, seg := range pc.Segments[sourceIdx+1:] {
		if networkExecutables[seg.Executable] {
			return source, seg.Executable
		}
	}
	return "", ""
}

// ---------------------------------------------------------------------------
// malicious_skill: an invoked skill touches credentials
// ---------------------------------------------------------------------------

type maliciousSkillDetector struct {
	sensitive *sensitiveMatcher
}

func (d *maliciousSkillDetector) Name() string       { return "malicious_skill" }
func (d *maliciousSkillDetector) Category() Category { return CategorySecurity }

// Check fires when a skill_invoke action is followed, within that skill's
// active scope, by a credential-path file action attributed to it. A
// skill's scope runs until the next skill_invoke; an explicit "skill"
// metadata attribution also binds an action to the skill.
func (d *maliciousSkillDetector) Check(snap action.Snapshot) *Warning {
	all := snap.All()

	activeSkill := ""
	activeSeq := -1
	for _, a := range all {
		if a.Kind == action.KindSkillInvoke {
			activeSkill = a.Target
			activeSeq = a.Sequence
			continue
		}
		if activeSkill == "" {
			continue
		}
		if !a.IsFileKind() {
			continue
		}
		if !d.sensitive.Match(a.Target) {
			continue
		}
		if attr := a.Meta("skill"); attr != "" && attr != activeSkill {
			continue
		}
		return &Warning{
			Category: CategorySecurity,
			Severity: SeverityCritical,
			Signal:   "malicious_skill",
			Message: fmt.Sprintf("skill %q accessed credential path %q",
				activeSkill, a.Target),
			Evidence:   []int{activeSeq, a.Sequence},
			DetectedAt: a.Sequence,
		}
	}
	return nil
}
