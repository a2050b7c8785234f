package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tradeforge/simsession/internal/config"
	"github.com/tradeforge/simsession/internal/market"
	"github.com/tradeforge/simsession/internal/tournament"
)

var tournamentCmd = &cobra.Command{
	Use:   "tournament",
	Short: "Replay every configured variant and rank the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if len(cfg.Tournament.Variants) == 0 {
			return fmt.Errorf("config %s: no tournament variants", cfgPath)
		}
		windows := cfg.Tournament.Windows
		if len(windows) == 0 {
			windows = []tournament.Window{{ID: "full"}}
		}
		quotes, err := market.LoadQuotes(cfg.Session.QuotesPath)
		if err != nil {
			return err
		}

		runner := &tournament.Runner{
			Variants:    cfg.Tournament.Variants,
			Windows:     windows,
			Friction:    cfg.Friction,
			Safety:      cfg.Safety,
			Quotes:      market.FillPrevPrices(quotes),
			StartEquity: cfg.Session.StartEquityUSD,
			Workers:     cfg.Tournament.Workers,
			WorkDir:     cfg.Tournament.WorkDir,
		}

		entries, err := runner.Run()
		if err != nil {
			return err
		}
		ranked := tournament.Rank(entries)

		var sens *tournament.SensitivityReport
		if cfg.Tournament.Sensitivity {
			rep, err := runner.Sensitivity(ranked)
			if err != nil {
				return err
			}
			sens = &rep
		}

		artifact := tournament.NewArtifact(ranked, sens)
		if err := artifact.Write(cfg.Tournament.ArtifactPath); err != nil {
			return err
		}

		for i, e := range ranked {
			fmt.Fprintf(cmd.OutOrStdout(), "%2d. %-16s %-10s score=%9.2f equity=%10.2f dd=%5.2f%% orders=%d rejects=%d postmortems=%d\n",
				i+1, e.Variant, e.Window, e.Score, e.Metrics.FinalEquityUSD,
				e.Metrics.MaxDrawdownPct, e.Metrics.NumOrders, e.Metrics.NumRiskRejects, e.Metrics.NumPostmortems)
		}
		if artifact.BestCandidate != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "best candidate: %s (%s)\n",
				artifact.BestCandidate.CandidateID, artifact.BestCandidate.Window)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "best candidate: none qualified")
		}
		if sens != nil && sens.Unstable {
			fmt.Fprintf(cmd.OutOrStdout(), "WARNING: ranking unstable under doubled friction (displacement %d)\n",
				sens.TotalDisplacement)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "artifact: %s\n", cfg.Tournament.ArtifactPath)
		return nil
	},
}
