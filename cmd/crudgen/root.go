package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/syssam/crudgen/compiler"
	"github.com/syssam/crudgen/compiler/gen"
	"github.com/syssam/crudgen/internal/config"
	"github.com/syssam/crudgen/internal/logx"
)

// app carries the state shared by the commands of one invocation.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	log        *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New(), log: zap.NewNop()}
	root := &cobra.Command{
		Use:   "crudgen",
		Short: "Generate a CRUD API from JSON Schema entity descriptions",
		Long: `crudgen reads JSON Schema documents describing data entities and generates
validation models, data-access services and gin route handlers for each of
them, keeping the route registry, the model index and the collection
inventory of the target up to date.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "configuration file (default ./"+config.FileName+")")
	flags.String("schemas-dir", "", "directory holding the *.schema.json files")
	flags.StringP("target", "o", "", "root directory of the generated code")
	flags.StringP("package", "p", "", "import path of the target directory")
	flags.String("templates-dir", "", "directory holding the custom endpoint templates")
	flags.String("route-prefix", "", "path prefix of every entity route group")
	flags.String("store-driver", "", "document store driver: memory, sqlite or mongo")
	flags.String("store-dsn", "", "SQLite data source or MongoDB URI")
	flags.String("store-database", "", "MongoDB database name")
	flags.String("log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newGenerateCmd(a),
		newWatchCmd(a),
		newCleanCmd(a),
		newDBCmd(a),
	)
	return root
}

// setup loads the configuration and installs the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}
	if err := config.Read(a.v, a.configFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logx.Init("crudgen", cfg.Log)
	return nil
}

// compiler returns a compiler for the configured target.
func (a *app) compiler() (*compiler.Compiler, error) {
	return newCompiler(a.cfg, a.log)
}

func newCompiler(cfg *config.Config, log *zap.Logger) (*compiler.Compiler, error) {
	gc, err := gen.NewConfig(cfg.GenOptions()...)
	if err != nil {
		return nil, err
	}
	return compiler.New(gc, compiler.WithLogger(log)), nil
}

// collectionsPath returns the collection inventory of the target.
func (a *app) collectionsPath() string {
	return filepath.Join(a.cfg.Target, "config", gen.CollectionsFile)
}
