package orders

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tradeforge/simsession/internal/friction"
	"github.com/tradeforge/simsession/internal/id"
	"github.com/tradeforge/simsession/internal/market"
	"github.com/tradeforge/simsession/internal/observ"
)

// ErrAppend marks a failed log write. The caller decides whether a session
// can continue; an order that executed but could not be recorded must not.
var ErrAppend = errors.New("order log append failed")

// Record is one line of the append-only order log. Every intent that reached
// the execution stage gets a record, whether or not it filled; refusals are
// audited in the event log instead.
type Record struct {
	OrderID  string               `json:"order_id"`
	TsUTC    string               `json:"ts_utc"`
	Symbol   string               `json:"symbol"`
	Side     market.Side          `json:"side"`
	Qty      float64              `json:"qty"`
	Price    float64              `json:"price"`
	Decision string               `json:"decision"`
	Reason   string               `json:"reason,omitempty"`
	SimFill  *friction.FillResult `json:"sim_fill,omitempty"`
}

// Log is a line-numbered JSONL order log. Line numbers are 1-based and
// stable across restarts: Open counts the existing lines so a resumed run
// keeps numbering where the interrupted one stopped.
type Log struct {
	path  string
	lines int
}

// Open prepares the log at path, creating parent directories and counting
// any lines a previous run left behind.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create order log dir: %w", err)
	}
	lines, err := countLines(path)
	if err != nil {
		return nil, err
	}
	return &Log{path: path, lines: lines}, nil
}

func (l *Log) Path() string { return l.path }

// Lines returns the number of records written so far.
func (l *Log) Lines() int { return l.lines }

// Append stamps and writes one record, returning its 1-based line number.
// The line number is the evidence pointer for postmortems.
func (l *Log) Append(rec Record) (int, error) {
	if rec.OrderID == "" {
		rec.OrderID = id.New()
	}
	if rec.TsUTC == "" {
		rec.TsUTC = time.Now().UTC().Format(time.RFC3339Nano)
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("%w: marshal: %v", ErrAppend, err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("%w: open: %v", ErrAppend, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s\n", b); err != nil {
		return 0, fmt.Errorf("%w: write: %v", ErrAppend, err)
	}

	l.lines++
	observ.IncCounter("orders_recorded_total", map[string]string{"decision": rec.Decision})
	return l.lines, nil
}

// Read loads every record from the log, in order.
func Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open order log: %w", err)
	}
	defer f.Close()

	var recs []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("order log corrupt: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read order log: %w", err)
	}
	return recs, nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open order log: %w", err)
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			n++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("count order log lines: %w", err)
	}
	return n, nil
}
