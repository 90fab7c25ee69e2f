package events

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"draftflow/pkg/proto"
)

// Sink receives flushed event records. The production sink forwards to the
// remote generation service; FileSink appends to local JSONL logs for
// offline analysis and replay.
type Sink interface {
	Emit(event *proto.EditEvent) error
}

// FileSink writes event records to daily rotated JSONL files.
type FileSink struct {
	logDir      string
	currentFile *os.File
	currentDate string
	mu          sync.Mutex
}

// NewFileSink creates a file sink writing under the given directory.
func NewFileSink(logDir string) (*FileSink, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create event log directory: %w", err)
	}

	sink := &FileSink{logDir: logDir}
	if err := sink.rotateIfNeeded(); err != nil {
		return nil, fmt.Errorf("failed to initialize event log file: %w", err)
	}
	return sink, nil
}

// Emit appends one event record as a JSON line, rotating on date change.
func (s *FileSink) Emit(event *proto.EditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rotateIfNeeded(); err != nil {
		return fmt.Errorf("failed to rotate event log: %w", err)
	}

	data, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	if _, err := s.currentFile.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if _, err := s.currentFile.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := s.currentFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync event log: %w", err)
	}
	return nil
}

func (s *FileSink) rotateIfNeeded() error {
	newDate := time.Now().Format("2006-01-02")
	if s.currentFile != nil && s.currentDate == newDate {
		return nil
	}
	return s.rotate(newDate)
}

func (s *FileSink) rotate(newDate string) error {
	if s.currentFile != nil {
		if err := s.currentFile.Close(); err != nil {
			return fmt.Errorf("failed to close current event log: %w", err)
		}
	}

	path := filepath.Join(s.logDir, fmt.Sprintf("events-%s.jsonl", newDate))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open event log %s: %w", path, err)
	}

	s.currentFile = file
	s.currentDate = newDate
	return nil
}

// CurrentLogFile returns the path of the active log file.
func (s *FileSink) CurrentLogFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentFile == nil {
		return ""
	}
	return filepath.Join(s.logDir, fmt.Sprintf("events-%s.jsonl", s.currentDate))
}

// Close closes the current log file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentFile != nil {
		err := s.currentFile.Close()
		s.currentFile = nil
		if err != nil {
			return fmt.Errorf("failed to close event log: %w", err)
		}
	}
	return nil
}

// ReadEvents reads and parses event records from a JSONL log file.
func ReadEvents(path string) ([]*proto.EditEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer func() { _ = file.Close() }()

	var events []*proto.EditEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		event, err := proto.EventFromJSON(line)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event record: %w", err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	return events, nil
}

// ListLogFiles returns all event log files in the directory.
func ListLogFiles(logDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(logDir, "events-*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("failed to list event logs: %w", err)
	}
	return files, nil
}

// CollectorSink retains emitted events in memory. Used by tests and by the
// UI layer's local preview of pending signal.
type CollectorSink struct {
	mu     sync.Mutex
	events []*proto.EditEvent
	// FailEmits forces Emit to fail, for exercising the drop path.
	FailEmits bool
}

// NewCollectorSink creates an empty collector.
func NewCollectorSink() *CollectorSink {
	return &CollectorSink{}
}

// Emit records the event in memory.
func (c *CollectorSink) Emit(event *proto.EditEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailEmits {
		return fmt.Errorf("simulated sink failure")
	}
	c.events = append(c.events, event)
	return nil
}

// Events returns a copy of the collected events.
func (c *CollectorSink) Events() []*proto.EditEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*proto.EditEvent{}, c.events...)
}

// Reset clears the collected events.
func (c *CollectorSink) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
