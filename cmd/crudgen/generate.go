package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/syssam/crudgen/compiler"
)

func newGenerateCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "generate [schema-file | --all [dir]]",
		Short: "Generate the API of one schema or of every schema in a directory",
		Example: `  crudgen generate schemas/product.schema.json
  crudgen generate --all
  crudgen generate --all api/schemas`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.MaximumNArgs(1)(cmd, args)
			}
			if len(args) != 1 {
				return errors.New("expected a schema file, or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.compiler()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !all {
				res := c.GenerateFile(cmd.Context(), args[0])
				report(out, res)
				return res.Err
			}
			dir := a.cfg.SchemasDir
			if len(args) == 1 {
				dir = args[0]
			}
			results, err := c.GenerateDir(cmd.Context(), dir)
			for _, res := range results {
				report(out, res)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "generate every schema of the directory (default schemas_dir)")
	return cmd
}

// report prints the outcome of one schema.
func report(w io.Writer, res *compiler.Result) {
	if res.Err != nil {
		fmt.Fprintf(w, "FAIL %s: %v\n", res.Entity, res.Err)
		if res.Debug != "" {
			fmt.Fprintf(w, "     unformatted source written to %s\n", res.Debug)
		}
		return
	}
	fmt.Fprintf(w, "ok   %s (%d files)\n", res.Entity, len(res.Files))
}
