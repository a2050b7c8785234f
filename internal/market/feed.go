package market

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadQuotes reads a quote series from a .jsonl or .csv file, dispatching on
// the extension. Snapshots are returned in file order; callers replay them
// sequentially.
func LoadQuotes(path string) ([]Snapshot, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return LoadQuotesJSONL(path)
	case ".csv":
		return LoadQuotesCSV(path)
	default:
		return nil, fmt.Errorf("unsupported quote file %q: want .jsonl or .csv", path)
	}
}

// LoadQuotesJSONL reads one Snapshot JSON object per line.
func LoadQuotesJSONL(path string) ([]Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open quotes: %w", err)
	}
	defer f.Close()

	var snaps []Snapshot
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var s Snapshot
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			return nil, fmt.Errorf("quotes line %d: %w", lineNum, err)
		}
		if s.Symbol == "" || s.Price <= 0 {
			return nil, fmt.Errorf("quotes line %d: missing symbol or price", lineNum)
		}
		snaps = append(snaps, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read quotes: %w", err)
	}
	return snaps, nil
}

// LoadQuotesCSV reads a header-first CSV with ts,symbol,price columns.
func LoadQuotesCSV(path string) ([]Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open quotes: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"ts", "symbol", "price"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("csv header missing %q column", required)
		}
	}

	var snaps []Snapshot
	lineNum := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", lineNum+1, err)
		}
		lineNum++
		ts, err := strconv.ParseFloat(rec[col["ts"]], 64)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: bad ts: %w", lineNum, err)
		}
		price, err := strconv.ParseFloat(rec[col["price"]], 64)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: bad price: %w", lineNum, err)
		}
		if price <= 0 {
			return nil, fmt.Errorf("csv line %d: non-positive price", lineNum)
		}
		snaps = append(snaps, Snapshot{
			Symbol: strings.ToUpper(strings.TrimSpace(rec[col["symbol"]])),
			Price:  price,
			TS:     ts,
		})
	}
	return snaps, nil
}

// FillPrevPrices sets PrevPrice on each snapshot from the previous observation
// of the same symbol, leaving the first observation untouched.
func FillPrevPrices(snaps []Snapshot) []Snapshot {
	last := map[string]float64{}
	for i := range snaps {
		if prev, ok := last[snaps[i].Symbol]; ok && snaps[i].PrevPrice == 0 {
			snaps[i].PrevPrice = prev
		}
		last[snaps[i].Symbol] = snaps[i].Price
	}
	return snaps
}
