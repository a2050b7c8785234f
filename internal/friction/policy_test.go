package friction

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "friction.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadPolicyDefaultsAndOverrides(t *testing.T) {
	path := writePolicy(t, `{"schema_version":1,"fee_per_trade":0.25,"spread_bps":5}`)

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	require.Equal(t, 0.25, p.FeePerTrade)
	require.Equal(t, 5.0, p.SpreadBps)
	// untouched fields keep documented defaults
	require.Equal(t, DefaultPolicy().FeePerShare, p.FeePerShare)
	require.Equal(t, 1.0, p.MaxFillFraction)
}

func TestLoadPolicyRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed_json", `{"schema_version":`},
		{"wrong_schema", `{"schema_version":9}`},
		{"negative_fee", `{"schema_version":1,"fee_per_trade":-1}`},
		{"prob_out_of_range", `{"schema_version":1,"reject_prob":1.5}`},
		{"zero_fill_fraction", `{"schema_version":1,"max_fill_fraction":0}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadPolicy(writePolicy(t, tc.body))
			require.Error(t, err)
		})
	}
}

func TestLoadPolicyMissingFileIsFatal(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
