package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/termfx/regolith/parse"
)

func parseCommand() *cobra.Command {
	var v1 bool
	var asQuery bool
	cmd := &cobra.Command{
		Use:   "parse [flags] <file-or-query>",
		Short: "Dump the parse tree of a module file or query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := parse.New(v1)
			if asQuery {
				tree, err := parser.Query(args[0])
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), tree.String())
				return nil
			}
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			tree, err := parser.Module(args[0], string(source))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tree.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&v1, "v1", false, "v1 syntax compatibility")
	cmd.Flags().BoolVarP(&asQuery, "query", "q", false, "treat the argument as query text instead of a file")
	return cmd
}
