package main

import (
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&RebuildCommand)
}

var RebuildCommand = cobra.Command{
	Use:   "rebuild [wallet-id]",
	Short: "Rebuild wallet projections from the event log",
	Long:  "Rebuild wallet projections from the event log. Without an argument, every wallet is rebuilt.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closeAll, err := openStack()
		defer closeAll()
		if err != nil {
			return err
		}

		if len(args) > 0 {
			logger.Print("rebuilding wallet", args[0])
			return s.sync.Rebuild(args[0])
		}

		logger.Print("rebuilding all wallets")
		return s.sync.RebuildAll()
	},
}
