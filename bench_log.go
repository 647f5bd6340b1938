package mosaic

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// MeasurementResult captures one timed run: a transfer or a kernel launch.
type MeasurementResult struct {
	Name      string        `json:"name"`
	Bytes     int64         `json:"bytes,omitempty"`
	Duration  time.Duration `json:"duration"`
	GBPerSec  float64       `json:"gb_per_sec,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// MeasurementLogger accumulates measurement results and writes them to a
// timestamped JSON session file, so bandwidth and kernel timings can be
// compared across runs.
type MeasurementLogger struct {
	mu          sync.Mutex
	results     []MeasurementResult
	logDir      string
	sessionFile string
}

// NewMeasurementLogger starts a session under logDir, creating the
// directory if needed.
func NewMeasurementLogger(logDir, sessionName string) (*MeasurementLogger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	l := &MeasurementLogger{
		logDir:      logDir,
		sessionFile: filepath.Join(logDir, fmt.Sprintf("%s_%s.json", sessionName, timestamp)),
	}
	return l, l.flush()
}

// Record appends a result and rewrites the session file.
func (l *MeasurementLogger) Record(r MeasurementResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	if r.Bytes > 0 && r.Duration > 0 && r.GBPerSec == 0 {
		r.GBPerSec = float64(r.Bytes) / r.Duration.Seconds() / 1e9
	}
	l.results = append(l.results, r)
	return l.flush()
}

// SessionFile returns the path of the session's JSON file.
func (l *MeasurementLogger) SessionFile() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionFile
}

func (l *MeasurementLogger) flush() error {
	data, err := json.MarshalIndent(l.results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(l.sessionFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
