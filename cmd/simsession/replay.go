package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/tradeforge/simsession/internal/autopilot"
	"github.com/tradeforge/simsession/internal/config"
	"github.com/tradeforge/simsession/internal/market"
)

var (
	replayPace      float64
	replaySynthetic int
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Step through a quote file with the stateless replay API",
	Long: `replay drives the quote series tick by tick through the stateless
step entry point: the risk state lives only in its serialized form between
ticks. With --pace it throttles to a tick rate slow enough to watch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		var quotes []market.Snapshot
		if replaySynthetic > 0 {
			quotes = market.Generator{
				Symbol:        "SYN",
				StartPrice:    100,
				VolatilityPct: 0.8,
				Seed:          cfg.Session.Seed,
				StartTS:       float64(1_700_000_000),
			}.Series(replaySynthetic)
		} else {
			quotes, err = market.LoadQuotes(cfg.Session.QuotesPath)
			if err != nil {
				return err
			}
			quotes = market.FillPrevPrices(quotes)
		}

		step := autopilot.StepConfig{
			RiskPolicy:           *cfg.Risk,
			Safety:               cfg.Safety,
			Friction:             cfg.Friction,
			MomentumThresholdPct: cfg.Session.MomentumThresholdPct,
			Seed:                 cfg.Session.Seed,
			StartEquity:          cfg.Session.StartEquityUSD,
		}

		var limiter *rate.Limiter
		if replayPace > 0 {
			limiter = rate.NewLimiter(rate.Limit(replayPace), 1)
		}

		ext := autopilot.ExternalState{}
		for _, snap := range quotes {
			if limiter != nil {
				if err := limiter.Wait(cmd.Context()); err != nil {
					return err
				}
			}
			next, evs, err := autopilot.RunStep(snap, ext, step)
			if err != nil {
				return err
			}
			ext = next
			for _, ev := range evs {
				line, err := json.Marshal(ev)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(line))
			}
		}

		out, err := json.MarshalIndent(ext.Ledger, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	replayCmd.Flags().Float64Var(&replayPace, "pace", 0, "throttle to this many ticks per second (0 = unpaced)")
	replayCmd.Flags().IntVar(&replaySynthetic, "synthetic", 0, "generate this many random-walk ticks instead of reading the quote file")
}
