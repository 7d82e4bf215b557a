package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/workclock/workclock/internal/config"
	"github.com/workclock/workclock/internal/storage"
	"github.com/workclock/workclock/internal/timer"
	"github.com/workclock/workclock/internal/timerd"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the timer daemon",
	Long: `daemon owns the timer: it keeps the clock, persists a snapshot every
second while running, and serves the loopback API the other commands use.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	st, err := storage.Open(cfg.Database)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer st.Close()

	authority := timer.New(st, timer.Config{TickInterval: cfg.TickInterval})
	authority.Run()
	defer authority.Stop()

	// One log line per state change or settings broadcast. The channel is
	// closed by Stop, which also ends this goroutine.
	_, events, err := authority.Subscribe(cmd.Context(), 16)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	go func() {
		for ev := range events {
			switch ev.Type {
			case timer.EventStateChange:
				log.Printf("daemon: timer %s, elapsed %s", ev.State, ev.Snapshot.Elapsed())
			case timer.EventSettingsUpdated:
				log.Printf("daemon: settings updated, %d work types", len(ev.Settings.WorkTypes))
			}
		}
	}()

	server := timerd.NewServer(cfg.ListenAddr, authority)
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	log.Printf("daemon: listening on %s", cfg.ListenAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
	case s := <-sig:
		log.Printf("daemon: received %s, shutting down", s)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("daemon: shutdown: %v", err)
		}
	}
	return nil
}
