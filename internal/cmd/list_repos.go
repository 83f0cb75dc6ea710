package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListReposCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list-repos",
		Short: "Listing accessible repositories",
		Long: `List every repository the token can access, one owner/name slug per line.

Examples:
  labelord list-repos
  labelord -c labelord.cfg list-repos`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := o.labelStore()
			if err != nil {
				return err
			}

			repos, err := store.ListRepositories(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, repo := range repos {
				fmt.Fprintln(out, repo)
			}
			return nil
		},
	}
}
