package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/syssam/relgraph/dialect"
)

func newDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the supported SQL dialects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tQUOTE\tPARAM\tCONCAT\tIDENTITY\tBATCHED\tPAGING")
			for _, name := range dialect.Names() {
				d, err := dialect.Get(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\t%t\n",
					d.Name(), d.QuoteToken("name"), d.Placeholder(0), d.Concat("a", "b"),
					d.IdentityRetrievalText(), d.SupportsBatchedIdentity(), d.SupportsWindowPaging())
			}
			return w.Flush()
		},
	}
}
