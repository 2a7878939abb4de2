package main

import (
	"fmt"
	"os"

	"tournamentchain/cmd/tournamentd/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
