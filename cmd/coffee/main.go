package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"coffee-scene/config"
	"coffee-scene/core"
	"coffee-scene/experience"
	"coffee-scene/input"
	"coffee-scene/loader"
	"coffee-scene/renderer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "coffee:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "TOML config file layered over the defaults")
	assets := flag.String("assets", "", "asset root directory (overrides assets.root)")
	watch := flag.String("watch-shaders", "", "directory of shader sources to hot reload")
	level := flag.String("log-level", "", "debug, info, warn or error (overrides log.level)")
	printConfig := flag.Bool("print-config", false, "print the effective config and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *assets != "" {
		cfg.Assets.Root = *assets
	}
	if *watch != "" {
		cfg.Dev.ShaderDir = *watch
	}
	if *level != "" {
		cfg.Log.Level = *level
	}

	if *printConfig {
		out, err := config.Encode(cfg)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	tm, err := renderer.ParseToneMapping(cfg.Renderer.ToneMapping)
	if err != nil {
		return err
	}

	window, err := core.NewWindow(core.WindowConfig{
		Width:     cfg.Window.Width,
		Height:    cfg.Window.Height,
		Title:     cfg.Window.Title,
		Resizable: true,
		VSync:     cfg.Window.VSync,
	})
	if err != nil {
		return err
	}
	defer window.Destroy()

	engine, err := renderer.NewRenderEngine(window, renderer.Options{
		ToneMapping:   tm,
		Exposure:      cfg.Renderer.Exposure,
		MaxPixelRatio: cfg.Renderer.MaxPixelRatio,
		Samples:       cfg.Window.Samples,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer engine.Destroy()

	if dir := cfg.Dev.ShaderDir; dir != "" {
		if err := engine.WatchShaders(dir); err != nil {
			return fmt.Errorf("watch shaders: %w", err)
		}
		logger.Info("watching shaders", "dir", dir)
	}

	assetLoader := loader.NewManager(os.DirFS(cfg.Assets.Root),
		loader.WithLogger(logger),
		loader.WithTimeout(cfg.Loading.Timeout.Std()),
		loader.WithWorkers(cfg.Loading.Workers))
	defer assetLoader.Close()

	exp, err := experience.New(experience.Options{
		Config:   cfg,
		Renderer: engine,
		Loader:   assetLoader,
		Input:    input.NewManager(window),
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	window.OnResize(exp.Resize)
	exp.Resize(window.Width, window.Height, window.PixelRatio())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting", "assets", cfg.Assets.Root, "size", fmt.Sprintf("%dx%d", cfg.Window.Width, cfg.Window.Height))
	err = experience.NewDriver(exp, window, nil).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
