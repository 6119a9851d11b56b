package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ghalamif/DAOGuard"
)

func newRunCmd() *cobra.Command {
	var (
		cfgPath string
		strict  bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the collector using the provided config",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []daoguard.FlowOption
			if strict {
				opts = append(opts, daoguard.WithStrictSequence())
			}
			opts = append(opts, daoguard.WithFlowOptions(daoguard.WithReportWriter(cmd.OutOrStdout())))

			flow, err := daoguard.Conf(cfgPath, opts...)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return flow.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "Path to configuration file")
	cmd.Flags().BoolVar(&strict, "strict-sequence", false, "Reject reused sequence numbers even with a newer origin time")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a config file without starting the collector",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := daoguard.LoadConfig(cfgPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config %s looks good\n", cfgPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "Path to configuration file to validate")
	return cmd
}
