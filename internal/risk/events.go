package risk

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tradeforge/simsession/internal/id"
	"github.com/tradeforge/simsession/internal/observ"
)

// Severity levels for session events.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Event types emitted by the autopilot.
const (
	EventOrderExecuted = "ORDER_EXECUTED"
	EventIntentOnly    = "INTENT_ONLY"
	EventRiskReject    = "RISK_REJECT"
	EventFillAnomaly   = "FILL_ANOMALY"
	EventPostmortem    = "POSTMORTEM"
)

// Event is one record of the append-only session event log. CRITICAL
// POSTMORTEM events carry the breach metrics and an evidence pointer naming
// the order-log line that caused the breach.
type Event struct {
	EventID       string             `json:"event_id"`
	EventType     string             `json:"event_type"`
	Severity      Severity           `json:"severity"`
	Message       string             `json:"message"`
	TsUTC         string             `json:"ts_utc"`
	CorrelationID string             `json:"correlation_id,omitempty"`
	Symbol        string             `json:"symbol,omitempty"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
	Evidence      string             `json:"evidence,omitempty"`
}

// Stamped returns a copy with the event id and timestamp filled in when
// missing. The stateless replay path stamps events without persisting them.
func (e Event) Stamped() Event {
	if e.EventID == "" {
		e.EventID = id.New()
	}
	if e.TsUTC == "" {
		e.TsUTC = time.Now().UTC().Format(time.RFC3339Nano)
	}
	return e
}

// EventWriter appends events to a line-delimited JSON log. Records are never
// mutated in place; the log is the audit trail for every refusal and breach.
type EventWriter struct {
	path string
}

func NewEventWriter(path string) (*EventWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create event log dir: %w", err)
	}
	return &EventWriter{path: path}, nil
}

func (w *EventWriter) Path() string { return w.path }

// Append stamps and persists one event, returning the stamped copy.
func (w *EventWriter) Append(ev Event) (Event, error) {
	ev = ev.Stamped()

	b, err := json.Marshal(ev)
	if err != nil {
		return ev, fmt.Errorf("marshal event: %w", err)
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return ev, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s\n", b); err != nil {
		return ev, fmt.Errorf("write event: %w", err)
	}

	observ.IncCounter("session_events_total", map[string]string{
		"event_type": ev.EventType,
		"severity":   string(ev.Severity),
	})
	return ev, nil
}

// ReadEvents loads every event from a log file. Malformed lines are skipped;
// the log is append-only and a torn final line must not poison a resume.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	return events, nil
}
