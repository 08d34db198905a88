package evaluate

import (
	"time"

	"github.com/gzhole/agentwatch/internal/detect"
)

// dedup remembers which signals already fired this session. With a zero
// cooldown a signal fires at most once per run; a positive cooldown re-arms
// the signal after it elapses.
type dedup struct {
	cooldown time.Duration
	fired    map[string]time.Time
}

func newDedup(cooldown time.Duration) *dedup {
	return &dedup{
		cooldown: cooldown,
		fired:    make(map[string]time.Time),
	}
}

// filter returns the warnings whose signal is armed, marking each returned
// signal as fired at now. Order is preserved.
func (d *dedup) filter(warnings []detect.Warning, now time.Time) []detect.Warning {
	var out []detect.Warning
	for _, w := range warnings {
		last, seen := d.fired[w.Signal]
		if seen && (d.cooldown == 0 || now.Sub(last) < d.cooldown) {
			continue
		}
		d.fired[w.Signal] = now
		out = append(out, w)
	}
	return out
}
