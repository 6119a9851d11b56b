package main

import (
	"github.com/spf13/cobra"
)

const defaultConfigPath = "./data/config.yaml"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "daoguard",
		Short: "DAO replay mitigation collector",
		Long: `DAOGuard receives DAO advertisements, rejects replayed and stale ones per sender,
and reports how many were accepted and rejected.`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newStatsCmd(),
		newSimulateCmd(),
	)
	return root
}
