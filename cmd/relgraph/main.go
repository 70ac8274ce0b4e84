// Command relgraph inspects SQL dialects, prints the statements the query
// compiler generates and runs ad-hoc statements against a configured
// database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Version is set by the build.
var Version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "relgraph",
		Short:         "Entity graph SQL toolkit",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newDialectsCommand(), newCompileCommand(), newExecCommand())
	return root
}
