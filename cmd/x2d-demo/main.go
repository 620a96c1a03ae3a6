package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"

	"x2d/internal/app"
	"x2d/internal/config"
	"x2d/internal/graphics/opengl"
	"x2d/internal/graphics/prepare"
	"x2d/internal/logging"
	"x2d/internal/profiling"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/xlab/closer"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	closer.Bind(func() {
		cancel()
		<-done
	})

	err := run(ctx, *configPath)
	close(done)
	if err != nil {
		fmt.Fprintln(os.Stderr, "x2d-demo:", err)
		closer.Exit(1)
	}
	closer.Close()
}

func run(ctx context.Context, configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}
	logger, err := logging.New(os.Stderr, cfg.Log.Level)
	if err != nil {
		return err
	}
	logging.SetLogger(logger)

	disabled, err := cfg.DisabledFeatures()
	if err != nil {
		return err
	}

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("init glfw: %w", err)
	}
	defer glfw.Terminate()

	window, err := setupWindow(cfg.Window)
	if err != nil {
		return err
	}
	defer window.Destroy()

	profiler := profiling.New()
	width, height := window.GetFramebufferSize()
	dev, err := opengl.New(opengl.Options{
		Width:            width,
		Height:           height,
		DisabledFeatures: disabled,
		Profiler:         profiler,
	})
	if err != nil {
		return err
	}
	defer dev.Release()

	pool := prepare.NewPool(cfg.Demo.Workers, cfg.Demo.Workers*2)
	defer pool.Shutdown()

	a, err := app.New(ctx, window, dev, app.Options{
		Config:   cfg,
		Profiler: profiler,
		Pool:     pool,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	a.Run(ctx)
	return nil
}
