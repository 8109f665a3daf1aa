package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syssam/crudgen/docstore"
	"github.com/syssam/crudgen/docstore/memory"
	"github.com/syssam/crudgen/docstore/mongo"
	"github.com/syssam/crudgen/docstore/sqlite"
	"github.com/syssam/crudgen/internal/config"
)

func newDBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the collections of the document store",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Create the collections recorded in config/collections.json",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withCollections(cmd, func(ctx context.Context, s docstore.Store, c *docstore.Collections) error {
					if err := docstore.Bootstrap(ctx, s, c); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "initialized %d document and %d edge collections\n",
						len(c.DocumentCollections), len(c.EdgeCollections))
					return nil
				})
			},
		},
		newDropCmd(a),
	)
	return cmd
}

func newDropCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop the collections recorded in config/collections.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to drop collections without --yes")
			}
			return a.withCollections(cmd, func(ctx context.Context, s docstore.Store, c *docstore.Collections) error {
				if err := docstore.Teardown(ctx, s, c); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "dropped %d collections\n",
					len(c.DocumentCollections)+len(c.EdgeCollections))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm dropping every collection")
	return cmd
}

// withCollections opens the configured store and calls fn with the
// collection inventory of the target.
func (a *app) withCollections(cmd *cobra.Command, fn func(context.Context, docstore.Store, *docstore.Collections) error) error {
	ctx := cmd.Context()
	colls, err := docstore.LoadCollections(a.collectionsPath())
	if err != nil {
		return err
	}
	if len(colls.DocumentCollections)+len(colls.EdgeCollections) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no collections recorded in %s\n", a.collectionsPath())
		return nil
	}
	s, err := openStore(ctx, a.cfg.Store, a.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(context.WithoutCancel(ctx)); err != nil {
			a.log.Warn("close store", zap.Error(err))
		}
	}()
	return fn(ctx, s, colls)
}

// openStore opens the document store selected by sc.
func openStore(ctx context.Context, sc config.StoreConfig, log *zap.Logger) (docstore.Store, error) {
	keys, ok := docstore.KeyGenerator(sc.Keys)
	if !ok {
		return nil, fmt.Errorf("unknown key generator %q", sc.Keys)
	}
	switch sc.Driver {
	case "memory":
		return memory.New(memory.WithKeyFunc(keys)), nil
	case "sqlite":
		return sqlite.Open(ctx, sc.DSN, sqlite.WithKeyFunc(keys), sqlite.WithSlowQueryLog(log, 0))
	case "mongo":
		return mongo.Open(ctx, sc.DSN, sc.Database, mongo.WithKeyFunc(keys), mongo.WithLogger(log))
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}
