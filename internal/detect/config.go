package detect

// Thresholds enumerates every tunable the detectors recognize, with
// documented defaults. A zero value means "use the default"; Validate
// rejects values that cannot work at all.
type Thresholds struct {
	// LoopRepeats is how many times the same action fingerprint must
	// repeat, uninterrupted, before the loop detector fires. Default 5.
	LoopRepeats int `yaml:"loop_repeats"`

	// ThrashCycles is how many consecutive edit→failing-test pairs fire
	// the thrash detector. Default 3.
	ThrashCycles int `yaml:"thrash_cycles"`

	// RereadCount is how many reads of the same unchanged target fire the
	// reread detector. An edit to the target resets its counter. Default 3.
	RereadCount int `yaml:"reread_count"`

	// StallWindow is the trailing sub-window the stall detector inspects.
	// Default 20.
	StallWindow int `yaml:"stall_window"`

	// StallRatio is the read+message to write+edit+command ratio above
	// which the stall detector fires. Default 4.0.
	StallRatio float64 `yaml:"stall_ratio"`

	// StallMinActions is the minimum elapsed action count before the
	// stall detector may fire, avoiding false positives early in a
	// session. Default 10.
	StallMinActions int `yaml:"stall_min_actions"`

	// ErrorSpiralRun is the trailing run of consecutive failures that
	// fires the error_spiral detector. Default 5.
	ErrorSpiralRun int `yaml:"error_spiral_run"`

	// ContextRotEarlyFraction is the leading fraction of the buffer in
	// which a file read marks it as early context. Default 0.25.
	ContextRotEarlyFraction float64 `yaml:"context_rot_early_fraction"`

	// ContextRotStaleActions is how many actions may elapse since the
	// last read of a target before an edit to it is considered stale.
	// Default 50.
	ContextRotStaleActions int `yaml:"context_rot_stale_actions"`

	// ContextCapacity is the estimated context size the monitored agent
	// operates within, in tokens. Default 200000.
	ContextCapacity int `yaml:"context_capacity"`

	// ContextPressureFraction of ContextCapacity at which the
	// context_pressure detector fires. Default 0.8.
	ContextPressureFraction float64 `yaml:"context_pressure_fraction"`

	// ExfilLookahead bounds how far past a sensitive read the
	// data_exfiltration detector scans for a network action. Default 50.
	ExfilLookahead int `yaml:"exfil_lookahead"`

	// SensitivePaths are extra glob patterns treated as credential
	// material, joined with the built-in set.
	SensitivePaths []string `yaml:"sensitive_paths"`

	// ApprovedHosts are network destinations exempt from the
	// network_anomaly and data_exfiltration detectors.
	ApprovedHosts []string `yaml:"approved_hosts"`
}

// DefaultThresholds returns the documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LoopRepeats:             5,
		ThrashCycles:            3,
		RereadCount:             3,
		StallWindow:             20,
		StallRatio:              4.0,
		StallMinActions:         10,
		ErrorSpiralRun:          5,
		ContextRotEarlyFraction: 0.25,
		ContextRotStaleActions:  50,
		ContextCapacity:         200_000,
		ContextPressureFraction: 0.8,
		ExfilLookahead:          50,
	}
}

// withDefaults fills zero values from the defaults.
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.LoopRepeats == 0 {
		t.LoopRepeats = d.LoopRepeats
	}
	if t.ThrashCycles == 0 {
		t.ThrashCycles = d.ThrashCycles
	}
	if t.RereadCount == 0 {
		t.RereadCount = d.RereadCount
	}
	if t.StallWindow == 0 {
		t.StallWindow = d.StallWindow
	}
	if t.StallRatio == 0 {
		t.StallRatio = d.StallRatio
	}
	if t.StallMinActions == 0 {
		t.StallMinActions = d.StallMinActions
	}
	if t.ErrorSpiralRun == 0 {
		t.ErrorSpiralRun = d.ErrorSpiralRun
	}
	if t.ContextRotEarlyFraction == 0 {
		t.ContextRotEarlyFraction = d.ContextRotEarlyFraction
	}
	if t.ContextRotStaleActions == 0 {
		t.ContextRotStaleActions = d.ContextRotStaleActions
	}
	if t.ContextCapacity == 0 {
		t.ContextCapacity = d.ContextCapacity
	}
	if t.ContextPressureFraction == 0 {
		t.ContextPressureFraction = d.ContextPressureFraction
	}
	if t.ExfilLookahead == 0 {
		t.ExfilLookahead = d.ExfilLookahead
	}
	return t
}

// Validate rejects values no detector can operate with.
func (t Thresholds) Validate() error {
	if t.LoopRepeats < 2 {
		return &ConfigurationError{Field: "loop_repeats", Reason: "must be at least 2"}
	}
	if t.ThrashCycles < 1 {
		return &ConfigurationError{Field: "thrash_cycles", Reason: "must be at least 1"}
	}
	if t.RereadCount < 2 {
		return &ConfigurationError{Field: "reread_count", Reason: "must be at least 2"}
	}
	if t.StallWindow < 1 {
		return &ConfigurationError{Field: "stall_window", Reason: "must be at least 1"}
	}
	if t.StallRatio <= 0 {
		return &ConfigurationError{Field: "stall_ratio", Reason: "must be positive"}
	}
	if t.ErrorSpiralRun < 2 {
		return &ConfigurationError{Field: "error_spiral_run", Reason: "must be at least 2"}
	}
	if t.ContextRotEarlyFraction <= 0 || t.ContextRotEarlyFraction > 1 {
		return &ConfigurationError{Field: "context_rot_early_fraction", Reason: "must be in (0, 1]"}
	}
	if t.ContextPressureFraction <= 0 || t.ContextPressureFraction > 1 {
		return &ConfigurationError{Field: "context_pressure_fraction", Reason: "must be in (0, 1]"}
	}
	if t.ContextCapacity < 1 {
		return &ConfigurationError{Field: "context_capacity", Reason: "must be positive"}
	}
	if t.ExfilLookahead < 1 {
		return &ConfigurationError{Field: "exfil_lookahead", Reason: "must be at least 1"}
	}
	return nil
}
