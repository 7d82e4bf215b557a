package observer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/workclock/workclock/internal/ledger"
	"github.com/workclock/workclock/internal/model"
	"github.com/workclock/workclock/internal/storage"
	"github.com/workclock/workclock/internal/timer"
)

// stubAuthority scripts the authority side of the protocol.
type stubAuthority struct {
	statusReply timer.StatusReply
	statusErr   error
	startErr    error
	pauseErr    error
	clearErr    error

	startReqs []timer.StartRequest
	pauses    int
	clears    int
}

func (s *stubAuthority) Start(_ context.Context, req timer.StartRequest) error {
	s.startReqs = append(s.startReqs, req)
	return s.startErr
}

func (s *stubAuthority) Pause(_ context.Context) error {
	s.pauses++
	return s.pauseErr
}

func (s *stubAuthority) Clear(_ context.Context) error {
	s.clears++
	return s.clearErr
}

func (s *stubAuthority) Status(_ context.Context) (timer.StatusReply, error) {
	return s.statusReply, s.statusErr
}

func (s *stubAuthority) SettingsUpdated(_ context.Context, _ model.Settings) error {
	return nil
}

// unreachable scripts every call to fail the way a dead daemon does.
func unreachable() *stubAuthority {
	err := timer.ErrUnavailable
	return &stubAuthority{statusErr: err, startErr: err, pauseErr: err, clearErr: err}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestObserver(t *testing.T, authority Authority) (*Observer, *storage.Store, *clock) {
	t.Helper()
	st, err := storage.Open(filepath.Join(t.TempDir(), "observer.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	c := &clock{now: time.Date(2025, 3, 14, 9, 52, 0, 0, time.Local)}
	o := New(authority, st, ledger.New(st))
	o.now = c.Now
	return o, st, c
}

func TestAttachPrefersAuthority(t *testing.T) {
	auth := &stubAuthority{statusReply: timer.StatusReply{
		TimerSnapshot: model.TimerSnapshot{Running: true, StartTime: 12345, ElapsedTime: 6000},
		SettingsRev:   3,
	}}
	o, st, _ := newTestObserver(t, auth)

	// A stale persisted snapshot must not leak into the view.
	stale := model.TimerSnapshot{Running: false, StartTime: 999, ElapsedTime: 1}
	if err := st.SaveSnapshot(stale); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	view, err := o.Attach(context.Background())
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if !view.Authoritative {
		t.Error("Attach: view not marked authoritative")
	}
	if view.Snapshot != auth.statusReply.TimerSnapshot {
		t.Errorf("Attach snapshot = %+v, want %+v", view.Snapshot, auth.statusReply.TimerSnapshot)
	}
	if view.SettingsRev != 3 {
		t.Errorf("Attach settings rev = %d, want 3", view.SettingsRev)
	}
}

func TestAttachFallsBackAndRepairs(t *testing.T) {
	auth := unreachable()
	o, st, c := newTestObserver(t, auth)

	start := c.Now()
	if err := st.SaveSnapshot(model.TimerSnapshot{Running: true, StartTime: start.UnixMilli()}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	c.Advance(25 * time.Minute)

	view, err := o.Attach(context.Background())
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if view.Authoritative {
		t.Error("Attach: fallback view marked authoritative")
	}
	if !view.Snapshot.Running {
		t.Fatal("Attach: fallback view not running")
	}
	if got, want := view.Snapshot.Elapsed(), 25*time.Minute; got != want {
		t.Errorf("Attach elapsed = %v, want %v", got, want)
	}

	if len(auth.startReqs) != 1 {
		t.Fatalf("Attach sent %d start requests, want 1 re-announcement", len(auth.startReqs))
	}
	req := auth.startReqs[0]
	if req.StartTime == nil || *req.StartTime != start.UnixMilli() {
		t.Errorf("re-announced StartTime = %v, want %d", req.StartTime, start.UnixMilli())
	}
	if req.ElapsedTime == nil || *req.ElapsedTime != (25*time.Minute).Milliseconds() {
		t.Errorf("re-announced ElapsedTime = %v, want %d", req.ElapsedTime, (25*time.Minute).Milliseconds())
	}
}

func TestAttachIdleWhenNothingStored(t *testing.T) {
	o, _, _ := newTestObserver(t, unreachable())

	view, err := o.Attach(context.Background())
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if view.Snapshot.Running || view.Snapshot.StartTime != 0 || view.Snapshot.ElapsedTime != 0 {
		t.Errorf("Attach snapshot = %+v, want idle", view.Snapshot)
	}
	if len(view.Settings.WorkTypes) == 0 {
		t.Error("Attach: settings missing defaults")
	}
}

func TestStartCorrectiveWrite(t *testing.T) {
	o, st, c := newTestObserver(t, unreachable())

	corrective, err := o.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !corrective {
		t.Error("Start: corrective path not reported")
	}

	snap, err := st.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	want := model.TimerSnapshot{Running: true, StartTime: c.Now().UnixMilli()}
	if snap != want {
		t.Errorf("corrective snapshot = %+v, want %+v", snap, want)
	}
}

func TestPauseCorrectiveFreezesElapsed(t *testing.T) {
	o, st, c := newTestObserver(t, unreachable())

	start := c.Now()
	view := View{Snapshot: model.TimerSnapshot{Running: true, StartTime: start.UnixMilli()}}
	c.Advance(18 * time.Minute)

	corrective, err := o.Pause(context.Background(), view)
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if !corrective {
		t.Error("Pause: corrective path not reported")
	}

	snap, err := st.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Running {
		t.Error("corrective snapshot still running")
	}
	if got, want := snap.Elapsed(), 18*time.Minute; got != want {
		t.Errorf("frozen elapsed = %v, want %v", got, want)
	}
	if snap.StartTime != start.UnixMilli() {
		t.Errorf("StartTime = %d, want %d", snap.StartTime, start.UnixMilli())
	}
}

func TestResumeSeedsElapsed(t *testing.T) {
	auth := &stubAuthority{}
	o, _, _ := newTestObserver(t, auth)

	view := View{Snapshot: model.TimerSnapshot{
		Running:     false,
		StartTime:   time.Date(2025, 3, 14, 9, 52, 0, 0, time.Local).UnixMilli(),
		ElapsedTime: (18 * time.Minute).Milliseconds(),
	}}

	corrective, err := o.Resume(context.Background(), view)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if corrective {
		t.Error("Resume: corrective path taken with reachable authority")
	}
	if len(auth.startReqs) != 1 {
		t.Fatalf("Resume sent %d start requests, want 1", len(auth.startReqs))
	}
	req := auth.startReqs[0]
	if req.StartTime != nil {
		t.Errorf("Resume sent explicit StartTime %d, want seed only", *req.StartTime)
	}
	if req.ElapsedTime == nil || *req.ElapsedTime != view.Snapshot.ElapsedTime {
		t.Errorf("Resume seed = %v, want %d", req.ElapsedTime, view.Snapshot.ElapsedTime)
	}
}

func TestStopCommitsRecordAndClears(t *testing.T) {
	auth := &stubAuthority{}
	o, _, c := newTestObserver(t, auth)

	start := c.Now()
	view := View{
		Snapshot: model.TimerSnapshot{Running: true, StartTime: start.UnixMilli()},
		Settings: model.DefaultSettings(),
	}
	c.Advance(121 * time.Minute)

	rec, err := o.Stop(context.Background(), view, "写周报", "工作")
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if rec.ID == 0 {
		t.Error("Stop: record has no id")
	}
	if rec.Date != "2025-03-14" {
		t.Errorf("Date = %q, want %q", rec.Date, "2025-03-14")
	}
	if rec.StartTime != "09:52" || rec.EndTime != "11:53" {
		t.Errorf("clock range = %q-%q, want 09:52-11:53", rec.StartTime, rec.EndTime)
	}
	if rec.Duration != 121 {
		t.Errorf("Duration = %d, want 121", rec.Duration)
	}
	if auth.clears != 1 {
		t.Errorf("authority cleared %d times, want 1", auth.clears)
	}

	got, err := o.ledger.ByDate("2025-03-14")
	if err != nil {
		t.Fatalf("ByDate: %v", err)
	}
	if len(got) != 1 || got[0].Content != "写周报" {
		t.Errorf("ledger after stop = %+v, want the committed record", got)
	}
}

func TestStopPausedUsesFrozenElapsed(t *testing.T) {
	o, st, c := newTestObserver(t, unreachable())

	start := c.Now()
	if err := st.SaveSnapshot(model.TimerSnapshot{Running: false, StartTime: start.UnixMilli(), ElapsedTime: (18 * time.Minute).Milliseconds()}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	view := View{
		Snapshot: model.TimerSnapshot{Running: false, StartTime: start.UnixMilli(), ElapsedTime: (18 * time.Minute).Milliseconds()},
		Settings: model.DefaultSettings(),
	}
	c.Advance(3 * time.Hour)

	rec, err := o.Stop(context.Background(), view, "review", "")
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if rec.Duration != 18 {
		t.Errorf("Duration = %d, want frozen 18", rec.Duration)
	}
	if rec.Type != "工作" {
		t.Errorf("Type = %q, want default %q", rec.Type, "工作")
	}

	// The unreachable authority forces the corrective clear.
	if _, err := st.Snapshot(); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Snapshot after stop: err = %v, want ErrNotFound", err)
	}
}

func TestStopRejectsBadInput(t *testing.T) {
	o, _, _ := newTestObserver(t, &stubAuthority{})

	running := View{
		Snapshot: model.TimerSnapshot{Running: true, StartTime: time.Now().UnixMilli()},
		Settings: model.DefaultSettings(),
	}

	tests := []struct {
		name     string
		view     View
		content  string
		workType string
		want     error
	}{
		{"never started", View{Settings: model.DefaultSettings()}, "x", "", model.ErrInvalidState},
		{"empty content", running, "   ", "", model.ErrValidation},
		{"unknown type", running, "x", "摸鱼", model.ErrValidation},
	}
	for _, tt := range tests {
		if _, err := o.Stop(context.Background(), tt.view, tt.content, tt.workType); !errors.Is(err, tt.want) {
			t.Errorf("Stop(%s): err = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestClearCorrectiveRemovesSnapshot(t *testing.T) {
	o, st, c := newTestObserver(t, unreachable())

	if err := st.SaveSnapshot(model.TimerSnapshot{Running: true, StartTime: c.Now().UnixMilli()}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	corrective, err := o.Clear(context.Background())
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if !corrective {
		t.Error("Clear: corrective path not reported")
	}
	if _, err := st.Snapshot(); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Snapshot after clear: err = %v, want ErrNotFound", err)
	}
}

// A corrective snapshot must look exactly like one the authority wrote, so
// a restarting authority adopts it as its own.
func TestCorrectiveSnapshotReadopted(t *testing.T) {
	o, st, c := newTestObserver(t, unreachable())

	if _, err := o.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.Advance(40 * time.Minute)

	authority := timer.New(st, timer.Config{TickInterval: time.Hour, Now: c.Now})
	authority.Run()
	t.Cleanup(authority.Stop)

	reply, err := authority.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !reply.Running {
		t.Fatal("restarted authority did not adopt the corrective snapshot")
	}
	if got, want := reply.Elapsed(), 40*time.Minute; got != want {
		t.Errorf("adopted elapsed = %v, want %v", got, want)
	}
}
