package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/tutumagi/soul/config"
	"github.com/tutumagi/soul/logger"
	"github.com/tutumagi/soul/metrics"
	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// ErrSinkClosed append after Close
	ErrSinkClosed = errors.New("memory: sink closed")
	// ErrSinkFull the async buffer is full, the entry was dropped
	ErrSinkFull = errors.New("memory: sink buffer full")
	// ErrUnknownSink the configured sink name is not supported
	ErrUnknownSink = errors.New("memory: unknown sink")
)

// Sink durably stores observation entries, one record per Record call.
type Sink interface {
	Append(agent string, e Entry) error
	Close() error
}

// NopSink discards everything
type NopSink struct{}

// Append does nothing
func (NopSink) Append(string, Entry) error { return nil }

// Close does nothing
func (NopSink) Close() error { return nil }

type record struct {
	Agent string `json:"agent"`
	Entry
}

type asyncMsg struct {
	agent string
	line  []byte
}

// FileSink appends JSON lines to one rotated file per agent. Writes happen on
// a single goroutine fed by a buffered channel.
type FileSink struct {
	dir        string
	maxSize    int
	maxBackups int
	reporters  metrics.Reporters

	mu     sync.RWMutex
	closed bool
	files  map[string]*lumberjack.Logger
	msgs   chan asyncMsg
	done   chan struct{}
}

// NewFileSink starts the writer goroutine
func NewFileSink(cfg config.MemoryConfig, reporters ...metrics.Reporter) (*FileSink, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("memory: create sink dir: %w", err)
	}
	buffer := cfg.Buffer
	if buffer <= 0 {
		buffer = 1024
	}
	s := &FileSink{
		dir:        cfg.Dir,
		maxSize:    cfg.MaxSize,
		maxBackups: cfg.MaxBackups,
		reporters:  reporters,
		files:      map[string]*lumberjack.Logger{},
		msgs:       make(chan asyncMsg, buffer),
		done:       make(chan struct{}),
	}
	go s.start()
	return s, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Path of the file holding the entries of agent
func (s *FileSink) Path(agent string) string {
	return filepath.Join(s.dir, unsafeName.ReplaceAllString(agent, "_")+".jsonl")
}

// Append queues e, it never blocks the tick.
func (s *FileSink) Append(agent string, e Entry) error {
	line, err := json.Marshal(record{Agent: agent, Entry: e})
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.msgs <- asyncMsg{agent: agent, line: line}:
		return nil
	default:
		s.reporters.Count(metrics.MemorySinkErrors, map[string]string{"sink": "file"}, 1)
		return ErrSinkFull
	}
}

func (s *FileSink) start() {
	defer close(s.done)
	for msg := range s.msgs {
		w, ok := s.files[msg.agent]
		if !ok {
			w = &lumberjack.Logger{
				Filename:   s.Path(msg.agent),
				MaxSize:    s.maxSize,
				MaxBackups: s.maxBackups,
				LocalTime:  true,
			}
			s.files[msg.agent] = w
		}
		if _, err := w.Write(msg.line); err != nil {
			s.reporters.Count(metrics.MemorySinkErrors, map[string]string{"sink": "file"}, 1)
			logger.Error("write memory file failed", zap.String("agent", msg.agent), zap.Error(err))
		}
	}
}

// Close drains pending entries and closes every file
func (s *FileSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.msgs)
	s.mu.Unlock()

	<-s.done
	var firstErr error
	for _, w := range s.files {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewSink builds the sink named by cfg.Sink: "file", "redis" or "none".
func NewSink(cfg config.MemoryConfig, reporters ...metrics.Reporter) (Sink, error) {
	switch cfg.Sink {
	case "", "none":
		return NopSink{}, nil
	case "file":
		return NewFileSink(cfg, reporters...)
	case "redis":
		return NewRedisSink(cfg, reporters...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSink, cfg.Sink)
	}
}
