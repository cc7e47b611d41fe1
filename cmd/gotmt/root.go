package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/gotmt"
	"github.com/ZaguanLabs/gotmt/config"
	"github.com/ZaguanLabs/gotmt/logging"
)

// rootState is shared by every subcommand.
type rootState struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	st := &rootState{}

	cmd := &cobra.Command{
		Use:          gotmt.Name,
		Short:        gotmt.Description,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(st.configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cmd.ErrOrStderr(), logging.Options{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
				Color:  cfg.LogColor,
			})
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			st.cfg, st.logger = cfg, logger
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&st.configPath, "config", "c", "", "YAML config file; environment variables take precedence")

	cmd.AddCommand(
		serveCmd(st),
		exportCmd(st),
		languagesCmd(st),
		versionCmd(),
	)
	return cmd
}

// open wires the components for a command that needs the service.
func (st *rootState) open(ctx context.Context) (*app, error) {
	return newApp(ctx, st.cfg, st.logger)
}
