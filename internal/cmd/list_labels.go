package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListLabelsCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list-labels <repository>",
		Short: "Listing labels of desired repository",
		Long: `List the labels of one repository as "#color name" lines.

Examples:
  labelord list-labels octocat/hello-world`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := o.labelStore()
			if err != nil {
				return err
			}

			set, err := store.ListLabels(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, label := range set.Labels() {
				fmt.Fprintf(out, "#%s %s\n", label.Color, label.Name)
			}
			return nil
		},
	}
}
