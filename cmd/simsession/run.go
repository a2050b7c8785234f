package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tradeforge/simsession/internal/autopilot"
	"github.com/tradeforge/simsession/internal/config"
	"github.com/tradeforge/simsession/internal/market"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay one session over a quote file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		quotes, err := market.LoadQuotes(cfg.Session.QuotesPath)
		if err != nil {
			return err
		}
		quotes = market.FillPrevPrices(quotes)

		ap, err := autopilot.New(autopilot.Config{
			RiskPolicy:  *cfg.Risk,
			Safety:      cfg.Safety,
			Friction:    cfg.Friction,
			Seed:        cfg.Session.Seed,
			StartEquity: cfg.Session.StartEquityUSD,
		}, cfg.Session.RunDir)
		if err != nil {
			return err
		}

		sess := autopilot.NewSession(ap, cfg.Session.StartEquityUSD, cfg.Session.MomentumThresholdPct)
		stats, err := sess.Run(quotes)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}
