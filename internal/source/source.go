// Package source adapts session logs into canonical actions. The canonical
// form is line-delimited JSON, one record per action; vendor-specific log
// formats are converted outside this system.
package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gzhole/agentwatch/internal/action"
)

// record is the wire shape of one session-log line.
type record struct {
	TS      time.Time         `json:"ts"`
	Kind    string            `json:"kind"`
	Target  string            `json:"target"`
	Content string            `json:"content,omitempty"`
	Outcome string            `json:"outcome,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

var validKinds = map[action.Kind]bool{
	action.KindRead:        true,
	action.KindWrite:       true,
	action.KindEdit:        true,
	action.KindTest:        true,
	action.KindCommand:     true,
	action.KindNetwork:     true,
	action.KindMessage:     true,
	action.KindSkillInvoke: true,
}

// decodeLine parses one JSONL line into an Action. Sequence numbers are
// left unset; the buffer assigns them on insertion.
func decodeLine(line string) (action.Action, error) {
	var r record
	if err := json.Unmarshal([]byte(line), &r); err != nil {
		return action.Action{}, fmt.Errorf("malformed record: %w", err)
	}

	kind := action.Kind(r.Kind)
	if !validKinds[kind] {
		return action.Action{}, fmt.Errorf("unknown action kind %q", r.Kind)
	}

	outcome := action.Outcome(r.Outcome)
	switch outcome {
	case action.OutcomeSuccess, action.OutcomeFailure, action.OutcomeUnknown:
	case "":
		outcome = action.OutcomeUnknown
	default:
		return action.Action{}, fmt.Errorf("unknown outcome %q", r.Outcome)
	}

	return action.Action{
		Timestamp: r.TS,
		Kind:      kind,
		Target:    r.Target,
		Content:   r.Content,
		Outcome:   outcome,
		Metadata:  r.Meta,
	}, nil
}

// SliceSource serves a fixed set of actions, then io.EOF.
type SliceSource struct {
	actions []action.Action
	next    int
}

func NewSliceSource(actions ...action.Action) *SliceSource {
	return &SliceSource{actions: actions}
}

func (s *SliceSource) Next(ctx context.Context) (action.Action, error) {
	if err := ctx.Err(); err != nil {
		return action.Action{}, err
	}
	if s.next >= len(s.actions) {
		return action.Action{}, io.EOF
	}
	a := s.actions[s.next]
	s.next++
	return a, nil
}

// ReaderSource decodes a complete JSONL stream, for one-shot evaluation of
// a finished log. Malformed lines are skipped and counted, never surfaced
// as warnings.
type ReaderSource struct {
	scanner *bufio.Scanner
	skipped int
}

func NewReaderSource(r io.Reader) *ReaderSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), action.MaxContentBytes+64*1024)
	return &ReaderSource{scanner: sc}
}

// Skipped returns the number of malformed lines dropped so far.
func (s *ReaderSource) Skipped() int { return s.skipped }

func (s *ReaderSource) Next(ctx context.Context) (action.Action, error) {
	for {
		if err := ctx.Err(); err != nil {
			return action.Action{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return action.Action{}, err
			}
			return action.Action{}, io.EOF
		}
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		a, err := decodeLine(line)
		if err != nil {
			s.skipped++
			continue
		}
		return a, nil
	}
}
