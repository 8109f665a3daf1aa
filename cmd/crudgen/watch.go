package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syssam/crudgen/compiler"
	"github.com/syssam/crudgen/compiler/gen"
	"github.com/syssam/crudgen/compiler/load"
	"github.com/syssam/crudgen/internal/config"
	"github.com/syssam/crudgen/internal/logx"
)

// debounce is how long the watcher waits for a burst of file events to
// settle before regenerating.
const debounce = 250 * time.Millisecond

func newWatchCmd(a *app) *cobra.Command {
	var initial bool
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Regenerate schemas as they change",
		Long: `Watch the schema directory and regenerate every schema written to it.
Removing a schema removes its generated files. When a configuration file is
in use, edits to it are picked up without restarting.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.SchemasDir
			if len(args) == 1 {
				dir = args[0]
			}
			c, err := a.compiler()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if initial {
				results, err := c.GenerateDir(ctx, dir)
				for _, res := range results {
					report(cmd.OutOrStdout(), res)
				}
				if err != nil && !errors.Is(err, compiler.ErrNoSchemas) {
					a.log.Warn("initial generation incomplete", zap.Error(err))
				}
			}

			w, err := newWatcher(dir)
			if err != nil {
				return err
			}
			defer w.Close()

			s := &session{compiler: c, out: cmd.OutOrStdout(), log: a.log, debounce: debounce}
			if a.v.ConfigFileUsed() != "" {
				s.reload = make(chan *config.Config, 1)
				config.Watch(a.v, func(cfg *config.Config) {
					select {
					case s.reload <- cfg:
					default:
					}
				}, func(err error) {
					a.log.Warn("configuration reload rejected", zap.Error(err))
				})
			}
			a.log.Info("watching schemas", zap.String("dir", dir))
			return s.run(ctx, w)
		},
	}
	cmd.Flags().BoolVar(&initial, "initial", false, "generate every schema before watching")
	return cmd
}

// newWatcher returns a watcher on dir.
func newWatcher(dir string) (*fsnotify.Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch: %s is not a directory", dir)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return w, nil
}

// session regenerates the schemas reported by a watcher.
type session struct {
	compiler *compiler.Compiler
	out      io.Writer
	log      *zap.Logger
	debounce time.Duration
	// reload receives the configuration after the file changed. Nil when
	// no configuration file is in use.
	reload chan *config.Config
}

// run consumes the events of w until ctx is done or w is closed.
func (s *session) run(ctx context.Context, w *fsnotify.Watcher) error {
	pending := make(map[string]struct{})
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, load.Extension) || ev.Op == fsnotify.Chmod {
				continue
			}
			pending[ev.Name] = struct{}{}
			fire = time.After(s.debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("watch error", zap.Error(err))
		case cfg := <-s.reload:
			s.apply(cfg)
		case <-fire:
			fire = nil
			paths := slices.Sorted(maps.Keys(pending))
			clear(pending)
			s.flush(ctx, paths)
		}
	}
}

// flush regenerates the existing schemas of paths and cleans the removed
// ones.
func (s *session) flush(ctx context.Context, paths []string) {
	for _, path := range paths {
		_, err := os.Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			name := load.EntityName(path)
			if _, err := s.compiler.Clean(name); err != nil {
				s.log.Error("clean removed schema", zap.String("entity", name), zap.Error(err))
				continue
			}
			fmt.Fprintf(s.out, "removed %s\n", name)
		case err != nil:
			s.log.Error("stat schema", zap.String("schema", path), zap.Error(err))
		default:
			report(s.out, s.compiler.GenerateFile(ctx, path))
		}
	}
}

// apply swaps in the compiler and logger of a reloaded configuration.
func (s *session) apply(cfg *config.Config) {
	gc, err := gen.NewConfig(cfg.GenOptions()...)
	if err != nil {
		s.log.Warn("configuration reload rejected", zap.Error(err))
		return
	}
	s.log = logx.Init("crudgen", cfg.Log)
	s.compiler = compiler.New(gc, compiler.WithLogger(s.log))
	s.log.Info("configuration reloaded", zap.String("target", filepath.Clean(cfg.Target)))
}
