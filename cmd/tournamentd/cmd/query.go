package cmd

import (
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newQueryCmd runs a single Query against the local app state loaded from
// --home, without starting an ABCI server: a quick way to inspect state
// between blocks (e.g. in a test harness or offline debugging session).
func newQueryCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "query [path]",
		Short: "query tournamentd state directly from --home (e.g. /tournament/1, /account/alice, /notifications)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v)
			if err != nil {
				return err
			}
			resp, err := a.Query(cmd.Context(), &abci.QueryRequest{Path: args[0]})
			if err != nil {
				return err
			}
			if resp.Code != 0 {
				return fmt.Errorf("query failed: %s", resp.Log)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(resp.Value))
			return nil
		},
	}
}
