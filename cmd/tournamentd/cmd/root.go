// Package cmd wires the tournamentd binary's command-line surface: a small
// cobra tree bound to viper-managed config, the same pairing the teacher's
// apps/cosmos/cmd/ocpd daemon uses, scaled down to what a single ABCI
// application with no keeper/module scaffold actually needs.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"

	"tournamentchain/internal/app"
)

const envPrefix = "TOURNAMENTD"

// NewRootCmd builds the tournamentd root command: persistent flags for
// --home, --addr, --transport, and --log-level, each readable from the
// TOURNAMENTD_* environment and from <home>/config.yaml via viper.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "tournamentd",
		Short:         "tournament-lifecycle ABCI chain daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindConfig(cmd, v)
		},
	}

	root.PersistentFlags().String("home", defaultHome(), "app home directory (state under <home>/app)")
	root.PersistentFlags().String("addr", "tcp://127.0.0.1:26658", "ABCI listen address")
	root.PersistentFlags().String("transport", "socket", "ABCI transport (socket|grpc)")
	root.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")

	root.AddCommand(newStartCmd(v))
	root.AddCommand(newQueryCmd(v))

	return root
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tournamentd"
	}
	return home + "/.tournamentd"
}

// bindConfig loads <home>/config.yaml (if present) and binds the
// TOURNAMENTD_* environment, giving explicit flags the final say — viper's
// usual precedence order, the same one the teacher's client.Context/viper
// wiring relies on.
func bindConfig(cmd *cobra.Command, v *viper.Viper) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	for c := cmd.Parent(); c != nil; c = c.Parent() {
		if err := v.BindPFlags(c.PersistentFlags()); err != nil {
			return err
		}
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	home := v.GetString("home")
	if home != "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(home)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return fmt.Errorf("read config: %w", err)
			}
		}
	}
	return nil
}

func newLogger(v *viper.Viper) log.Logger {
	level, err := zerolog.ParseLevel(v.GetString("log-level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return log.NewLogger(os.Stderr, log.LevelOption(level))
}

func newApp(v *viper.Viper) (*app.TournamentApp, error) {
	return app.New(v.GetString("home"), newLogger(v))
}
