// Command meshbench renders a generated field of polygons through the
// triangle pipeline on the noop backend and reports batching statistics.
//
// Usage:
//
//	meshbench [-scene scene.yaml] [-watch] [-v]
//
// The scene file may be YAML (.yaml, .yml) or TOML (.toml). With -watch the
// benchmark reruns whenever the scene file is saved.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/trimesh"
)

func main() {
	var (
		scenePath = flag.String("scene", "", "scene file (.yaml, .yml or .toml)")
		watch     = flag.Bool("watch", false, "rerun when the scene file changes")
		verbose   = flag.Bool("v", false, "log pipeline debug output")
	)
	flag.Parse()

	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "meshbench",
	})
	if *verbose {
		handler.SetLevel(log.DebugLevel)
	}
	logger := slog.New(handler)
	trimesh.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *watch && *scenePath == "" {
		logger.Error("-watch needs -scene")
		os.Exit(2)
	}

	if err := runOnce(ctx, *scenePath, logger); err != nil && !*watch {
		logger.Error("benchmark failed", "err", err)
		os.Exit(1)
	}
	if !*watch {
		return
	}
	if err := watchScene(ctx, *scenePath, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("watch failed", "err", err)
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, path string, logger *slog.Logger) error {
	s := DefaultScene()
	if path != "" {
		var err error
		if s, err = LoadScene(path); err != nil {
			logger.Error("load scene", "err", err)
			return err
		}
	}
	r, err := Run(ctx, s, logger)
	if err != nil {
		logger.Error("run", "err", err)
		return err
	}
	logger.Info("done",
		"frames", r.Frames,
		"items", r.Items,
		"draw_calls", r.DrawCalls,
		"vertices", r.Vertices,
		"indices", r.Indices,
		"copies", r.Copies,
		"staged_bytes", r.Staged,
		"growths", r.Growths,
		"per_frame", r.PerFrame())
	return nil
}

// watchScene reruns the benchmark each time path is written. The parent
// directory is watched so editors that replace the file are still seen.
func watchScene(ctx context.Context, path string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	logger.Info("watching", "scene", abs)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !sceneChanged(e, abs) {
				continue
			}
			logger.Info("scene changed", "op", e.Op.String())
			_ = runOnce(ctx, abs, logger)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher", "err", err)
		}
	}
}

func sceneChanged(e fsnotify.Event, path string) bool {
	name, err := filepath.Abs(e.Name)
	if err != nil || name != path {
		return false
	}
	return e.Op&(fsnotify.Write|fsnotify.Create) != 0
}
