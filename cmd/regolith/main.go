// Command regolith evaluates policy queries against modules, data
// documents, and input from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// REGOLITH_* defaults may come from a local env file
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "regolith",
		Short:         "Policy-language interpreter",
		Long:          "regolith compiles declarative policy modules and evaluates queries against structured input and data documents.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(evalCommand())
	root.AddCommand(parseCommand())
	root.AddCommand(historyCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}
