package market

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBadStatusFlags(t *testing.T) {
	tests := []struct {
		name   string
		status map[string]any
		want   []string
	}{
		{"nil status", nil, nil},
		{"healthy", map[string]any{"data_status": "ok"}, nil},
		{"top level stale", map[string]any{"data_status": "stale"}, []string{"stale"}},
		{
			"nested under quotes.health",
			map[string]any{"quotes": map[string]any{"health": map[string]any{"feed": "suspect"}}},
			[]string{"suspect"},
		},
		{
			"flag list",
			map[string]any{"data_flags": []any{"ok", "missing", "flat"}},
			[]string{"missing", "flat"},
		},
		{
			"irrelevant keys ignored",
			map[string]any{"note": "stale coffee", "price": "flat"},
			nil,
		},
		{
			"case and whitespace normalized",
			map[string]any{"state": " STALE "},
			[]string{"stale"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BadStatusFlags(tt.status)
			sort.Strings(got)
			want := append([]string(nil), tt.want...)
			sort.Strings(want)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("BadStatusFlags=%v, want %v", got, want)
			}
		})
	}
}

func TestLoadQuotesJSONL(t *testing.T) {
	path := writeFile(t, "quotes.jsonl", `
{"symbol":"AAPL","price":100.5,"ts":1700000000}
{"symbol":"AAPL","price":101.1,"ts":1700000001,"status":{"data_status":"ok"}}
`)
	snaps, err := LoadQuotes(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 || snaps[1].Price != 101.1 {
		t.Fatalf("snaps=%+v", snaps)
	}
}

func TestLoadQuotesJSONLRejectsBadLines(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"symbol":`},
		{"missing price", `{"symbol":"AAPL"}`},
		{"missing symbol", `{"price":100}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadQuotesJSONL(writeFile(t, "q.jsonl", tt.body)); err == nil {
				t.Fatal("want error, got nil")
			}
		})
	}
}

func TestLoadQuotesCSV(t *testing.T) {
	path := writeFile(t, "quotes.csv", "ts,symbol,price\n1700000000,aapl,100.5\n1700000001,AAPL,101.1\n")
	snaps, err := LoadQuotes(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 2 {
		t.Fatalf("len=%d, want 2", len(snaps))
	}
	if snaps[0].Symbol != "AAPL" {
		t.Errorf("symbol=%q, want normalized AAPL", snaps[0].Symbol)
	}
	if snaps[1].TS != 1700000001 {
		t.Errorf("ts=%v", snaps[1].TS)
	}
}

func TestLoadQuotesUnknownExtension(t *testing.T) {
	if _, err := LoadQuotes(writeFile(t, "quotes.txt", "x")); err == nil {
		t.Fatal("want error for unsupported extension")
	}
}

func TestFillPrevPrices(t *testing.T) {
	snaps := FillPrevPrices([]Snapshot{
		{Symbol: "AAPL", Price: 100},
		{Symbol: "MSFT", Price: 400},
		{Symbol: "AAPL", Price: 101},
		{Symbol: "MSFT", Price: 398},
	})
	if snaps[0].PrevPrice != 0 || snaps[1].PrevPrice != 0 {
		t.Error("first observations must keep zero prev price")
	}
	if snaps[2].PrevPrice != 100 || snaps[3].PrevPrice != 400 {
		t.Errorf("prev prices tracked per symbol: %+v", snaps)
	}
}

func TestGeneratorDeterministic(t *testing.T) {
	gen := Generator{Symbol: "SYN", StartPrice: 100, VolatilityPct: 0.8, Seed: 7, StartTS: 1700000000}

	a, b := gen.Series(50), gen.Series(50)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same seed must generate identical series")
	}
	if a[0].PrevPrice != 0 || a[1].PrevPrice != a[0].Price {
		t.Error("prev price chains the series")
	}
	for i, s := range a {
		if s.Price <= 0 {
			t.Fatalf("tick %d: non-positive price", i)
		}
	}

	gen.Seed = 8
	if reflect.DeepEqual(gen.Series(50), a) {
		t.Error("different seeds must diverge")
	}
}
