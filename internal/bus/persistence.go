package bus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/equipfind/equipfind/internal/pkg/errors"
)

// maxLineSize bounds a single logged event when reading the log back.
const maxLineSize = 1024 * 1024

// LoggedEvent is one line of the event log.
type LoggedEvent struct {
	Event     Event     `json:"event"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

// EventLogger appends events to a JSON lines file. A disabled logger
// accepts writes and discards them.
type EventLogger struct {
	logPath string
	enabled bool

	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	now     func() time.Time
}

// NewEventLogger opens (or creates) the log file at logPath in append mode.
func NewEventLogger(logPath string, enabled bool) (*EventLogger, error) {
	l := &EventLogger{
		logPath: logPath,
		enabled: enabled,
		now:     time.Now,
	}
	if !enabled {
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	l.file = file
	l.encoder = json.NewEncoder(file)
	return l, nil
}

// Log appends one event.
func (l *EventLogger) Log(topic string, event Event) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.New(errors.CodeBusError, "event log is closed")
	}

	if err := l.encoder.Encode(LoggedEvent{Event: event, Topic: topic, Timestamp: l.now()}); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return nil
}

// Close closes the log file.
func (l *EventLogger) Close() error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.encoder = nil
	if err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

// IsEnabled reports whether events are written.
func (l *EventLogger) IsEnabled() bool {
	return l.enabled
}

// EventFilter selects events read back from a log.
type EventFilter struct {
	// Since keeps events logged strictly after it.
	Since time.Time
	// Topic keeps a single topic when set.
	Topic string
	// Limit caps the number of events when positive.
	Limit int
}

// ReadEvents reads the log at path in chronological order. Malformed lines
// are skipped and a missing file yields no events.
func ReadEvents(path string, f EventFilter) ([]LoggedEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []LoggedEvent{}, nil
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	events := []LoggedEvent{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		var le LoggedEvent
		if err := json.Unmarshal(scanner.Bytes(), &le); err != nil {
			continue
		}
		if !le.Timestamp.After(f.Since) {
			continue
		}
		if f.Topic != "" && le.Topic != f.Topic {
			continue
		}
		events = append(events, le)
		if f.Limit > 0 && len(events) >= f.Limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan log file: %w", err)
	}
	return events, nil
}
