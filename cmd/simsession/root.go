package main

import (
	"github.com/spf13/cobra"

	"github.com/tradeforge/simsession/internal/observ"
)

var (
	cfgPath string
	pretty  bool
)

var rootCmd = &cobra.Command{
	Use:   "simsession",
	Short: "Simulation-only trading session runner",
	Long: `simsession replays quote series through a risk-gated fill simulator.
It never routes a live order: sessions, tournaments and replays all run
against historical or synthetic quotes with simulated execution friction.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		observ.Init(pretty)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "path to the root config file")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable console logs instead of JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tournamentCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(versionCmd)
}
