package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/codefionn/spacecycle/internal/aerospace"
	"github.com/codefionn/spacecycle/internal/config"
	"github.com/codefionn/spacecycle/internal/debounce"
	"github.com/codefionn/spacecycle/internal/logger"
	"github.com/codefionn/spacecycle/internal/navigator"
	"github.com/codefionn/spacecycle/internal/order"
	"github.com/codefionn/spacecycle/internal/tui"
	"github.com/codefionn/spacecycle/internal/watch"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	configPath := flag.String("config", config.GetConfigPath(), "path to the config file")
	check := flag.Bool("check", false, "verify the aerospace CLI is usable and exit")
	noTUI := flag.Bool("no-tui", false, "run headless without the workspace strip")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("spacecycle " + version)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Environment overrides for logging, handy when debugging a running TUI.
	if envLevel := strings.TrimSpace(os.Getenv("SPACECYCLE_LOG_LEVEL")); envLevel != "" {
		cfg.LogLevel = envLevel
	}
	if envPath := strings.TrimSpace(os.Getenv("SPACECYCLE_LOG_PATH")); envPath != "" {
		cfg.LogPath = envPath
	}

	var loggerInitialized bool
	defer func() {
		if !loggerInitialized {
			return
		}
		if err != nil {
			logger.Error("Fatal error: %v", err)
		}
		if closeErr := logger.Global().Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
		}
	}()

	if initErr := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); initErr != nil {
		return fmt.Errorf("failed to initialize logger: %w", initErr)
	}
	loggerInitialized = true
	logger.Info("spacecycle %s starting", version)

	client := aerospace.New(cfg.AerospaceBin,
		aerospace.WithTimeout(time.Duration(cfg.QueryTimeoutSeconds)*time.Second))

	// The tool cannot function without the window manager, so a missing or
	// unresponsive aerospace is the one failure that blocks startup.
	if enableErr := client.EnsureEnabled(); enableErr != nil {
		switch {
		case errors.Is(enableErr, aerospace.ErrNotInstalled):
			return fmt.Errorf("the aerospace CLI was not found in PATH; install AeroSpace and make sure `aerospace` is callable")
		case errors.Is(enableErr, aerospace.ErrNotRunning):
			return fmt.Errorf("aerospace is installed but not responding; start AeroSpace and try again (%v)", enableErr)
		default:
			return fmt.Errorf("cannot talk to aerospace: %w", enableErr)
		}
	}

	if *check {
		fmt.Println("aerospace is installed and responding")
		return nil
	}

	store := order.NewStore(cfg.OrderPath)

	updates := make(chan navigator.State, 8)
	engine := navigator.NewEngine(client, store,
		navigator.WithToggleSettle(time.Duration(cfg.ToggleSettleMs)*time.Millisecond),
		navigator.WithNotify(func(s navigator.State) {
			// Drop when the UI is behind; the next update carries the
			// full snapshot anyway.
			select {
			case updates <- s:
			default:
			}
		}))

	dispatcher := debounce.NewDispatcher(16)
	defer dispatcher.Close()
	debouncer := debounce.New(time.Duration(cfg.DebounceMs)*time.Millisecond, dispatcher)

	trigger := func(action string) {
		debouncer.Trigger(action, func() {
			switch action {
			case config.ActionBack:
				engine.Navigate(navigator.Backward, nil)
			case config.ActionForward:
				engine.Navigate(navigator.Forward, nil)
			case config.ActionToggle:
				engine.Toggle(nil)
			case config.ActionRefresh:
				engine.Refresh()
			}
		})
	}

	// Out-of-band edits to the order or config file surface as a refresh.
	watcher, watchErr := watch.New([]string{cfg.OrderPath, *configPath}, func(path string) {
		logger.Debug("%s changed on disk", path)
		dispatcher.Enqueue(engine.Refresh)
	})
	if watchErr != nil {
		logger.Warn("file watching disabled: %v", watchErr)
	} else {
		defer watcher.Close()
	}

	// Pre-warm the cache before the first trigger arrives.
	engine.RefreshCache()

	stopTicker := make(chan struct{})
	defer close(stopTicker)
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.RefreshIntervalMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopTicker:
				return
			case <-ticker.C:
				dispatcher.Enqueue(engine.Refresh)
			}
		}
	}()

	defer func() {
		engine.Wait()
		store.Flush()
	}()

	if *noTUI || !term.IsTerminal(int(os.Stdout.Fd())) {
		return runHeadless()
	}

	model := tui.New(updates, cfg.Keybindings, trigger, engine.SetOrder, client)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, runErr := program.Run(); runErr != nil {
		return fmt.Errorf("TUI error: %w", runErr)
	}
	return nil
}

// runHeadless keeps the engine alive without a terminal UI; the periodic
// refresh ticker and file watcher keep the cache and order file current.
func runHeadless() error {
	logger.Info("running headless")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")
	return nil
}
