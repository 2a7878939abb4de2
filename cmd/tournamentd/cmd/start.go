package cmd

import (
	"os"
	"os/signal"
	"syscall"

	abciserver "github.com/cometbft/cometbft/abci/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStartCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "run the tournamentd ABCI application, serving CometBFT over --addr",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(v)

			a, err := newApp(v)
			if err != nil {
				return err
			}

			srv, err := abciserver.NewServer(v.GetString("addr"), v.GetString("transport"), a)
			if err != nil {
				return err
			}
			srv.SetLogger(cmtLoggerAdapter{logger})
			if err := srv.Start(); err != nil {
				return err
			}
			defer func() { _ = srv.Stop() }()

			logger.Info("tournamentd started", "addr", v.GetString("addr"), "transport", v.GetString("transport"))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			logger.Info("tournamentd shutting down")
			return nil
		},
	}
}
