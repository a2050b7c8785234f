package friction

import (
	"math"

	"github.com/tradeforge/simsession/internal/market"
)

// FillStatus is the terminal outcome of a simulated execution.
type FillStatus string

const (
	StatusFilled   FillStatus = "FILLED"
	StatusRejected FillStatus = "REJECTED"
	StatusFailed   FillStatus = "FAILED"
)

// FillResult describes one simulated fill.
// Invariants: 0 <= |FillQty| <= |intent.Qty| and FillFraction in [0,1].
type FillResult struct {
	FillQty      float64    `json:"fill_qty"`
	FillPrice    float64    `json:"fill_price"`
	FeeUSD       float64    `json:"fee_usd"`
	SlippageBps  float64    `json:"slippage_bps"`
	SpreadBps    float64    `json:"spread_bps"`
	LatencySec   float64    `json:"latency_sec"`
	FillFraction float64    `json:"fill_fraction"`
	PartialFill  bool       `json:"partial_fill"`
	FillStatus   FillStatus `json:"fill_status"`
	RejectReason string     `json:"reject_reason,omitempty"`
	GapBps       float64    `json:"gap_bps,omitempty"`
	GapPct       float64    `json:"gap_pct,omitempty"`
}

// Executed reports whether the fill moved any quantity.
func (f FillResult) Executed() bool {
	return f.FillStatus == StatusFilled && f.FillQty != 0
}

// Apply simulates executing an intent against a snapshot under a policy.
// Pure: no state beyond the injected RngSource is touched.
//
// With a nil rng no sampling happens at all: fills are full, and the
// reject/fail outcomes only trigger when their probability is 1 (so
// deterministic stress configs still behave without a seed). Latency is
// surfaced as information only; the replay loop does not sleep on it.
func Apply(intent market.Intent, snap market.Snapshot, pol Policy, rng *RngSource) FillResult {
	side := intent.ResolvedSide()

	res := FillResult{
		SlippageBps: pol.SlippageBps,
		SpreadBps:   pol.SpreadBps,
		LatencySec:  pol.LatencyMs / 1000.0,
		FillStatus:  StatusFilled,
	}

	var draw *struct{ reject, fail, partial float64 }
	if rng != nil {
		r := rng.Next()
		draw = &struct{ reject, fail, partial float64 }{r.Float64(), r.Float64(), r.Float64()}
	}

	if rejected(pol.RejectProb, draw != nil, func() float64 { return draw.reject }) {
		res.FillStatus = StatusRejected
		res.RejectReason = "sim reject"
		res.FeeUSD = pol.FeePerTrade // exchanges charge the attempt
		return res
	}
	if rejected(pol.FailProb, draw != nil, func() float64 { return draw.fail }) {
		res.FillStatus = StatusFailed
		res.RejectReason = "sim failure"
		return res
	}

	// Gap detection: a jump from the previous observation beyond the
	// threshold adds the configured gap penalty to the execution cost.
	costBps := pol.SpreadBps + pol.SlippageBps
	if snap.PrevPrice > 0 && pol.GapThresholdPct > 0 {
		gapPct := math.Abs(snap.Price-snap.PrevPrice) / snap.PrevPrice * 100
		if gapPct > pol.GapThresholdPct {
			res.GapPct = gapPct
			res.GapBps = pol.GapBps
			costBps += pol.GapBps
		}
	}

	// Costs always move the price against the taker.
	cost := costBps / 10_000
	price := intent.Price
	if price == 0 {
		price = snap.Price
	}
	if side == market.Buy {
		res.FillPrice = price * (1 + cost)
	} else {
		res.FillPrice = price * (1 - cost)
	}

	res.FillFraction = 1.0
	if draw != nil && pol.PartialFillProb > 0 && pol.MaxFillFraction < 1 {
		if draw.partial < pol.PartialFillProb {
			res.FillFraction = pol.MaxFillFraction
			res.PartialFill = true
		}
	}

	res.FillQty = intent.Qty * res.FillFraction
	res.FeeUSD = pol.FeePerTrade + pol.FeePerShare*math.Abs(res.FillQty)
	return res
}

// rejected decides a probabilistic outcome: sampled when a draw exists,
// otherwise triggered only by certainty.
func rejected(prob float64, sampled bool, draw func() float64) bool {
	if prob >= 1 {
		return true
	}
	if prob <= 0 || !sampled {
		return false
	}
	return draw() < prob
}
