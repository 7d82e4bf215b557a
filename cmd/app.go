package cmd

import (
	"fmt"
	"os"

	"github.com/workclock/workclock/internal/config"
	"github.com/workclock/workclock/internal/ledger"
	"github.com/workclock/workclock/internal/observer"
	"github.com/workclock/workclock/internal/settings"
	"github.com/workclock/workclock/internal/storage"
	"github.com/workclock/workclock/internal/timerd"
)

// app bundles what every command needs: the launch config, the shared
// store, and an observer talking to the daemon.
type app struct {
	cfg      config.Config
	store    *storage.Store
	ledger   *ledger.Ledger
	client   *timerd.Client
	observer *observer.Observer
	settings *settings.Service
}

// openApp loads the launch config and opens the shared database.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	st, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	client := timerd.NewClient(cfg.ListenAddr)
	led := ledger.New(st)
	return &app{
		cfg:      cfg,
		store:    st,
		ledger:   led,
		client:   client,
		observer: observer.New(client, st, led),
		settings: settings.New(st, client),
	}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
}

// warnCorrective flags a transition that bypassed an unreachable daemon.
func warnCorrective() {
	fmt.Fprintln(os.Stderr, "Warning: timer daemon unreachable; state written directly. Start it with: workclock daemon")
}
