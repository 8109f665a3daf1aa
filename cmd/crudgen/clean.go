package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clean [entity...]",
		Short: "Remove generated files",
		Long: `Remove the generated files of the named entities and drop them from the
registries. Without names every generated entity is removed together with
the registries.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to remove generated files without --yes")
			}
			c, err := a.compiler()
			if err != nil {
				return err
			}
			removed, err := c.Clean(args...)
			for _, p := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", p)
			}
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the removal")
	return cmd
}
