package autopilot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tradeforge/simsession/internal/friction"
	"github.com/tradeforge/simsession/internal/market"
	"github.com/tradeforge/simsession/internal/risk"
)

func stepConfig() StepConfig {
	return StepConfig{
		RiskPolicy:           risk.Policy{Mode: risk.ModeNormal, MaxDailyLoss: 500, DegradeOnLoss: true},
		Friction:             friction.DefaultPolicy(),
		MomentumThresholdPct: 0.5,
		StartEquity:          10000,
	}
}

func TestRunStepBuildsUpState(t *testing.T) {
	cfg := stepConfig()

	ext, events, err := RunStep(market.Snapshot{Symbol: "AAPL", Price: 100, TS: 1700000000}, ExternalState{}, cfg)
	require.NoError(t, err)
	require.Empty(t, events, "first observation only seeds the price memory")
	require.NotEmpty(t, ext.RiskState)

	ext, events, err = RunStep(market.Snapshot{Symbol: "AAPL", Price: 100.6, TS: 1700000001}, ext, cfg)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, risk.EventOrderExecuted, events[0].EventType)
	require.InDelta(t, 1.0, ext.Ledger.Position("AAPL").Qty, 1e-9)

	state, err := risk.UnmarshalState(ext.RiskState)
	require.NoError(t, err)
	require.Greater(t, state.LastExecTS, 0.0)
}

func TestRunStepNeverRetainsCallerState(t *testing.T) {
	cfg := stepConfig()
	seed, _, err := RunStep(market.Snapshot{Symbol: "AAPL", Price: 100, TS: 1700000000}, ExternalState{}, cfg)
	require.NoError(t, err)

	// Two calls from the same starting state diverge independently.
	a, _, err := RunStep(market.Snapshot{Symbol: "AAPL", Price: 100.6, TS: 1700000001}, seed, cfg)
	require.NoError(t, err)
	b, _, err := RunStep(market.Snapshot{Symbol: "AAPL", Price: 99.0, TS: 1700000001}, seed, cfg)
	require.NoError(t, err)

	require.InDelta(t, 1.0, a.Ledger.Position("AAPL").Qty, 1e-9)
	require.Zero(t, b.Ledger.Position("AAPL").Qty)
	require.Nil(t, seed.Ledger, "input state is untouched")
	require.InDelta(t, 100.0, seed.LastPrices["AAPL"], 1e-9)
}

func TestRunStepSellsOnDrop(t *testing.T) {
	cfg := stepConfig()
	quotes := []market.Snapshot{
		{Symbol: "AAPL", Price: 100, TS: 1700000000},
		{Symbol: "AAPL", Price: 100.6, TS: 1700000001}, // buy 1
		{Symbol: "AAPL", Price: 99.9, TS: 1700000002},  // -0.7%: close the long
	}
	ext := ExternalState{}
	var last []risk.Event
	for _, q := range quotes {
		var err error
		ext, last, err = RunStep(q, ext, cfg)
		require.NoError(t, err)
	}
	require.Len(t, last, 1)
	require.Equal(t, risk.EventOrderExecuted, last[0].EventType)
	require.Zero(t, ext.Ledger.Position("AAPL").Qty, "position flattened")
	require.Negative(t, last[0].Metrics["realized"], "sold below the entry fill price")
}

func TestRunStepDeterministicUnderSeed(t *testing.T) {
	cfg := stepConfig()
	cfg.Seed = 42
	cfg.Friction.PartialFillProb = 0.5
	cfg.Friction.MaxFillFraction = 0.5

	run := func() ExternalState {
		ext := ExternalState{}
		for i, px := range []float64{100, 100.6, 101.3, 102.0, 102.7} {
			var err error
			ext, _, err = RunStep(market.Snapshot{Symbol: "AAPL", Price: px, TS: float64(1700000000 + i)}, ext, cfg)
			require.NoError(t, err)
		}
		return ext
	}

	a, b := run(), run()
	require.Equal(t, string(a.RiskState), string(b.RiskState))
	require.Equal(t, a.Ledger, b.Ledger)
	require.Equal(t, a.FillCount, b.FillCount)
}
