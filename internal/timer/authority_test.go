package timer_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/workclock/workclock/internal/model"
	"github.com/workclock/workclock/internal/storage"
	"github.com/workclock/workclock/internal/timer"
)

// fakeClock is a manually advanced clock shared between the test and the
// authority goroutine.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	st, err := storage.Open(filepath.Join(t.TempDir(), "workclock.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// startTestAuthority runs an authority with a long tick interval so only
// explicit messages drive it.
func startTestAuthority(t *testing.T, st *storage.Store, clock *fakeClock) *timer.Authority {
	t.Helper()
	a := timer.New(st, timer.Config{TickInterval: time.Hour, Now: clock.Now})
	a.Run()
	t.Cleanup(a.Stop)
	return a
}

func TestStartPauseFreezesElapsed(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2026, 3, 2, 9, 52, 0, 0, time.UTC))
	st := openTestStore(t)
	a := startTestAuthority(t, st, clock)

	if err := a.Start(ctx, timer.StartRequest{}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	clock.Advance(18 * time.Minute)
	if err := a.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	reply, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if reply.Running {
		t.Error("paused timer reports Running")
	}
	if reply.ElapsedTime != (18 * time.Minute).Milliseconds() {
		t.Errorf("elapsed = %dms, want %dms", reply.ElapsedTime, (18 * time.Minute).Milliseconds())
	}

	// Frozen: more wall time must not move the elapsed value.
	clock.Advance(5 * time.Minute)
	reply, err = a.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if reply.ElapsedTime != (18 * time.Minute).Milliseconds() {
		t.Errorf("elapsed after idle gap = %dms, want %dms", reply.ElapsedTime, (18 * time.Minute).Milliseconds())
	}
}

func TestResumeSeedKeepsContinuity(t *testing.T) {
	// Start 09:52, pause 10:10 (18m), resume, stop check at 11:53: the
	// session must read 121 minutes with the original start preserved.
	ctx := context.Background()
	startAt := time.Date(2026, 3, 2, 9, 52, 0, 0, time.UTC)
	clock := newFakeClock(startAt)
	st := openTestStore(t)
	a := startTestAuthority(t, st, clock)

	if err := a.Start(ctx, timer.StartRequest{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	clock.Advance(18 * time.Minute)
	if err := a.Pause(ctx); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	seed := (18 * time.Minute).Milliseconds()
	if err := a.Start(ctx, timer.StartRequest{ElapsedTime: &seed}); err != nil {
		t.Fatalf("Start (resume): %v", err)
	}

	clock.Advance(103 * time.Minute)
	reply, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !reply.Running {
		t.Fatal("resumed timer not Running")
	}
	if reply.ElapsedTime != (121 * time.Minute).Milliseconds() {
		t.Errorf("elapsed = %dms, want %dms", reply.ElapsedTime, (121 * time.Minute).Milliseconds())
	}
	if reply.StartTime != startAt.UnixMilli() {
		t.Errorf("startTime = %d, want %d (rebase must preserve the original start)", reply.StartTime, startAt.UnixMilli())
	}
}

func TestStartExplicitStartTimeWins(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	clock := newFakeClock(now)
	st := openTestStore(t)
	a := startTestAuthority(t, st, clock)

	announced := now.Add(-40 * time.Minute).UnixMilli()
	seed := (5 * time.Minute).Milliseconds()
	if err := a.Start(ctx, timer.StartRequest{StartTime: &announced, ElapsedTime: &seed}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	reply, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if reply.StartTime != announced {
		t.Errorf("startTime = %d, want announced %d", reply.StartTime, announced)
	}
	if reply.ElapsedTime != (40 * time.Minute).Milliseconds() {
		t.Errorf("elapsed = %dms, want %dms", reply.ElapsedTime, (40 * time.Minute).Milliseconds())
	}
}

func TestStartReannounceWhileRunningIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2026, 3, 2, 9, 52, 0, 0, time.UTC))
	st := openTestStore(t)
	a := startTestAuthority(t, st, clock)

	_, events, err := a.Subscribe(ctx, 4)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := a.Start(ctx, timer.StartRequest{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-events

	clock.Advance(25 * time.Minute)
	snap, err := st.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	// An observer that found the persisted snapshot announces it back.
	if err := a.Start(ctx, timer.StartRequest{StartTime: &snap.StartTime, ElapsedTime: &snap.ElapsedTime}); err != nil {
		t.Fatalf("Start (re-announce): %v", err)
	}

	// The loop replies only after handling the message, so any event it
	// emitted is already buffered here.
	select {
	case ev := <-events:
		t.Errorf("re-announcement emitted %+v, want no event", ev)
	default:
	}

	reply, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if reply.StartTime != snap.StartTime {
		t.Errorf("startTime = %d, want unchanged %d", reply.StartTime, snap.StartTime)
	}
	if reply.ElapsedTime != (25 * time.Minute).Milliseconds() {
		t.Errorf("elapsed = %dms, want %dms", reply.ElapsedTime, (25 * time.Minute).Milliseconds())
	}
}

func TestClearRemovesSnapshot(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	st := openTestStore(t)
	a := startTestAuthority(t, st, clock)

	if err := a.Start(ctx, timer.StartRequest{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := st.Snapshot(); err != nil {
		t.Fatalf("Snapshot after start: %v", err)
	}

	if err := a.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := st.Snapshot(); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Snapshot after clear = %v, want ErrNotFound", err)
	}

	reply, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if reply.Running || reply.StartTime != 0 || reply.ElapsedTime != 0 {
		t.Errorf("status after clear = %+v, want zero snapshot", reply.TimerSnapshot)
	}
}

func TestPauseWhenIdleIsNoop(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	st := openTestStore(t)
	a := startTestAuthority(t, st, clock)

	if err := a.Pause(ctx); err != nil {
		t.Fatalf("Pause on idle: %v", err)
	}
	reply, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if reply.Running || reply.StartTime != 0 {
		t.Errorf("status = %+v, want untouched idle", reply.TimerSnapshot)
	}
}

func TestRehydrateRunning(t *testing.T) {
	ctx := context.Background()
	startAt := time.Date(2026, 3, 2, 9, 52, 0, 0, time.UTC)
	st := openTestStore(t)

	snap := model.TimerSnapshot{Running: true, StartTime: startAt.UnixMilli(), ElapsedTime: 0}
	if err := st.SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	// The daemon comes up 25 minutes into the session.
	clock := newFakeClock(startAt.Add(25 * time.Minute))
	a := startTestAuthority(t, st, clock)

	reply, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !reply.Running {
		t.Fatal("rehydrated timer not Running")
	}
	if reply.StartTime != startAt.UnixMilli() {
		t.Errorf("startTime = %d, want %d", reply.StartTime, startAt.UnixMilli())
	}
	if reply.ElapsedTime != (25 * time.Minute).Milliseconds() {
		t.Errorf("elapsed = %dms, want %dms (continuous across restart)", reply.ElapsedTime, (25 * time.Minute).Milliseconds())
	}
}

func TestRehydratePaused(t *testing.T) {
	ctx := context.Background()
	startAt := time.Date(2026, 3, 2, 9, 52, 0, 0, time.UTC)
	st := openTestStore(t)

	snap := model.TimerSnapshot{Running: false, StartTime: startAt.UnixMilli(), ElapsedTime: (18 * time.Minute).Milliseconds()}
	if err := st.SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	clock := newFakeClock(startAt.Add(2 * time.Hour))
	a := startTestAuthority(t, st, clock)

	reply, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if reply.Running {
		t.Error("rehydrated paused timer reports Running")
	}
	if reply.ElapsedTime != (18 * time.Minute).Milliseconds() {
		t.Errorf("elapsed = %dms, want frozen %dms", reply.ElapsedTime, (18 * time.Minute).Milliseconds())
	}
}

func TestTickPersistsSnapshot(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	a := timer.New(st, timer.Config{TickInterval: 10 * time.Millisecond})
	a.Run()
	t.Cleanup(a.Stop)

	if err := a.Start(ctx, timer.StartRequest{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Wipe the transition write so only a tick can restore it.
	if err := st.RemoveSnapshot(); err != nil {
		t.Fatalf("RemoveSnapshot: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		snap, err := st.Snapshot()
		if err == nil && snap.Running {
			return
		}
		select {
		case <-deadline:
			t.Fatal("tick did not persist a running snapshot within 2s")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSettingsUpdatedBumpsRevAndBroadcasts(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	st := openTestStore(t)
	a := startTestAuthority(t, st, clock)

	_, events, err := a.Subscribe(ctx, 4)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	next := model.DefaultSettings()
	next.WorkTypes = append(next.WorkTypes, "开会")
	if err := a.SettingsUpdated(ctx, next); err != nil {
		t.Fatalf("SettingsUpdated: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Type != timer.EventSettingsUpdated {
			t.Errorf("event type = %q, want %q", ev.Type, timer.EventSettingsUpdated)
		}
		if len(ev.Settings.WorkTypes) != 4 {
			t.Errorf("event work types = %v, want 4 entries", ev.Settings.WorkTypes)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no settings event within 2s")
	}

	reply, err := a.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if reply.SettingsRev != 1 {
		t.Errorf("settingsRev = %d, want 1", reply.SettingsRev)
	}
}

func TestSubscribeSeesTransitions(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	st := openTestStore(t)
	a := startTestAuthority(t, st, clock)

	id, events, err := a.Subscribe(ctx, 4)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := a.Start(ctx, timer.StartRequest{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case ev := <-events:
		if ev.Type != timer.EventStateChange || ev.State != timer.StateRunning {
			t.Errorf("event = %+v, want running state change", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no start event within 2s")
	}

	if err := a.Unsubscribe(ctx, id); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if _, open := <-events; open {
		t.Error("events channel still open after Unsubscribe")
	}
}

func TestUnavailableAfterStop(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	st := openTestStore(t)
	a := timer.New(st, timer.Config{TickInterval: time.Hour, Now: clock.Now})
	a.Run()
	a.Stop()

	err := a.Start(context.Background(), timer.StartRequest{})
	if !errors.Is(err, timer.ErrUnavailable) {
		t.Errorf("Start after Stop = %v, want ErrUnavailable", err)
	}
}
