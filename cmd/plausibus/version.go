package main

import (
	"fmt"

	"github.com/spf13/cobra"

	plausibus "github.com/megadur/plausibus"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("plausibus v%s\n", plausibus.Version)
		},
	}
}
