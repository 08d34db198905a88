package source

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hpcloud/tail"
	"go.uber.org/zap"

	"github.com/gzhole/agentwatch/internal/action"
)

// TailSource follows a growing session log. The tailer delivers only
// complete lines; a partial trailing line stays unread until its newline
// arrives, so a record is never decoded half-written.
type TailSource struct {
	tailer  *tail.Tail
	log     *zap.Logger
	mu      sync.Mutex
	skipped int
	stop    sync.Once
}

// NewTailSource opens path for following. With fromStart the whole existing
// file is replayed first; otherwise only lines appended after open are
// delivered. The file is reopened transparently across rotation.
func NewTailSource(path string, fromStart bool, logger *zap.Logger) (*TailSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	}
	if !fromStart {
		cfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}

	t, err := tail.TailFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("tail %s: %w", path, err)
	}
	return &TailSource{tailer: t, log: logger}, nil
}

// Skipped returns the number of malformed lines dropped so far.
func (s *TailSource) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

// Next blocks until the next complete, well-formed record arrives, the
// file stops being followed (io.EOF), or ctx is done.
func (s *TailSource) Next(ctx context.Context) (action.Action, error) {
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return action.Action{}, ctx.Err()

		case line, ok := <-s.tailer.Lines:
			if !ok {
				return action.Action{}, io.EOF
			}
			if line.Err != nil {
				s.log.Warn("session log read error", zap.Error(line.Err))
				continue
			}
			text := strings.TrimSpace(line.Text)
			if text == "" {
				continue
			}
			a, err := decodeLine(text)
			if err != nil {
				s.mu.Lock()
				s.skipped++
				s.mu.Unlock()
				s.log.Debug("skipping malformed session record", zap.Error(err))
				continue
			}
			return a, nil
		}
	}
}

// Close stops following the file. Safe to call more than once.
func (s *TailSource) Close() {
	s.stop.Do(func() {
		_ = s.tailer.Stop()
		s.tailer.Cleanup()
	})
}
