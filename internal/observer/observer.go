package observer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/workclock/workclock/internal/ledger"
	"github.com/workclock/workclock/internal/model"
	"github.com/workclock/workclock/internal/storage"
	"github.com/workclock/workclock/internal/timecalc"
	"github.com/workclock/workclock/internal/timer"
)

// Authority is the timer authority as an observer sees it: the message
// protocol, request and response only.
type Authority interface {
	Start(ctx context.Context, req timer.StartRequest) error
	Pause(ctx context.Context) error
	Clear(ctx context.Context) error
	Status(ctx context.Context) (timer.StatusReply, error)
	SettingsUpdated(ctx context.Context, s model.Settings) error
}

// View is the reconciled picture an observer holds after Attach.
// Authoritative is false when the authority was unreachable and the view
// was rebuilt from the persisted snapshot.
type View struct {
	Snapshot      model.TimerSnapshot
	Settings      model.Settings
	SettingsRev   int64
	Authoritative bool
}

// Observer reconciles a display surface with the authority. It never owns
// the clock: when the authority is unreachable it falls back to the
// persisted snapshot, writes corrective snapshots for transitions, and
// re-announces a recovered running timer.
type Observer struct {
	authority Authority
	store     *storage.Store
	ledger    *ledger.Ledger
	now       func() time.Time
}

// New returns an observer talking to authority and reading through st.
func New(authority Authority, st *storage.Store, led *ledger.Ledger) *Observer {
	return &Observer{authority: authority, store: st, ledger: led, now: time.Now}
}

// reconcileCtx bounds one message round-trip to a reconciliation cycle.
func reconcileCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timer.DefaultTickInterval)
}

// Attach builds the observer's view. The authority's answer wins; when it
// is unreachable the persisted snapshot fills in, and a snapshot that
// claims to be running is re-announced so the authority resumes ticking
// once it returns. Storage trouble degrades to Idle, never to a crash.
func (o *Observer) Attach(ctx context.Context) (View, error) {
	settings, err := o.store.Settings()
	if err != nil {
		settings = model.DefaultSettings()
	}
	view := View{Settings: settings}

	rctx, cancel := reconcileCtx(ctx)
	reply, err := o.authority.Status(rctx)
	cancel()
	if err == nil {
		view.Snapshot = reply.TimerSnapshot
		view.SettingsRev = reply.SettingsRev
		view.Authoritative = true
		return view, nil
	}
	if !errors.Is(err, timer.ErrUnavailable) {
		return View{}, err
	}

	snap, err := o.store.Snapshot()
	if err != nil {
		// Absent or unreadable snapshot: the timer is Idle.
		return view, nil
	}
	if snap.Running {
		snap = o.repairRunning(ctx, snap)
	}
	view.Snapshot = snap
	return view, nil
}

// repairRunning recomputes the elapsed time of a recovered running
// snapshot from its start instant and re-announces it, best-effort.
func (o *Observer) repairRunning(ctx context.Context, snap model.TimerSnapshot) model.TimerSnapshot {
	elapsed := o.now().Sub(snap.StartedAt())
	if elapsed < 0 {
		elapsed = 0
	}
	snap.ElapsedTime = elapsed.Milliseconds()

	req := timer.StartRequest{StartTime: &snap.StartTime, ElapsedTime: &snap.ElapsedTime}
	rctx, cancel := reconcileCtx(ctx)
	defer cancel()
	_ = o.authority.Start(rctx, req)
	return snap
}

// Start begins a fresh session. When the authority is unreachable the
// running snapshot is written directly so the session survives until the
// authority returns; corrective reports that path was taken.
func (o *Observer) Start(ctx context.Context) (corrective bool, err error) {
	rctx, cancel := reconcileCtx(ctx)
	err = o.authority.Start(rctx, timer.StartRequest{})
	cancel()
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, timer.ErrUnavailable) {
		return false, err
	}
	now := o.now()
	snap := model.TimerSnapshot{Running: true, StartTime: now.UnixMilli(), ElapsedTime: 0}
	if err := o.store.SaveSnapshot(snap); err != nil {
		return true, err
	}
	return true, nil
}

// Pause freezes the running session. The corrective path freezes the
// elapsed time computed from the view's start instant.
func (o *Observer) Pause(ctx context.Context, view View) (corrective bool, err error) {
	rctx, cancel := reconcileCtx(ctx)
	err = o.authority.Pause(rctx)
	cancel()
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, timer.ErrUnavailable) {
		return false, err
	}
	if !view.Snapshot.Running {
		return true, nil
	}
	elapsed := o.now().Sub(view.Snapshot.StartedAt())
	if elapsed < 0 {
		elapsed = 0
	}
	snap := model.TimerSnapshot{
		Running:     false,
		StartTime:   view.Snapshot.StartTime,
		ElapsedTime: elapsed.Milliseconds(),
	}
	if err := o.store.SaveSnapshot(snap); err != nil {
		return true, err
	}
	return true, nil
}

// Resume restarts a paused session, seeding the accumulated elapsed time
// so it carries over and the effective start instant stays put.
func (o *Observer) Resume(ctx context.Context, view View) (corrective bool, err error) {
	seed := view.Snapshot.ElapsedTime
	rctx, cancel := reconcileCtx(ctx)
	err = o.authority.Start(rctx, timer.StartRequest{ElapsedTime: &seed})
	cancel()
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, timer.ErrUnavailable) {
		return false, err
	}
	snap := model.TimerSnapshot{
		Running:     true,
		StartTime:   o.now().Add(-view.Snapshot.Elapsed()).UnixMilli(),
		ElapsedTime: seed,
	}
	if err := o.store.SaveSnapshot(snap); err != nil {
		return true, err
	}
	return true, nil
}

// Clear abandons the session without recording anything.
func (o *Observer) Clear(ctx context.Context) (corrective bool, err error) {
	rctx, cancel := reconcileCtx(ctx)
	err = o.authority.Clear(rctx)
	cancel()
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, timer.ErrUnavailable) {
		return false, err
	}
	if err := o.store.RemoveSnapshot(); err != nil {
		return true, err
	}
	return true, nil
}

// Stop ends the session in view and commits a work record: duration is
// the elapsed time rounded to whole minutes, the date is the calendar day
// of the stop instant, and an empty workType falls back to the first
// configured category. The record commits before the timer is cleared.
func (o *Observer) Stop(ctx context.Context, view View, content, workType string) (model.WorkRecord, error) {
	if view.Snapshot.StartTime == 0 {
		return model.WorkRecord{}, fmt.Errorf("no started timer to stop: %w", model.ErrInvalidState)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return model.WorkRecord{}, fmt.Errorf("content must not be empty: %w", model.ErrValidation)
	}
	if workType == "" && len(view.Settings.WorkTypes) > 0 {
		workType = view.Settings.WorkTypes[0]
	}
	if !view.Settings.HasWorkType(workType) {
		return model.WorkRecord{}, fmt.Errorf("unknown work type %q: %w", workType, model.ErrValidation)
	}

	now := o.now()
	var elapsed time.Duration
	if view.Snapshot.Running {
		elapsed = now.Sub(view.Snapshot.StartedAt())
	} else {
		elapsed = view.Snapshot.Elapsed()
	}
	if elapsed < 0 {
		elapsed = 0
	}

	rec := model.WorkRecord{
		Date:      timecalc.DayString(now),
		StartTime: timecalc.FormatClock(view.Snapshot.StartedAt()),
		EndTime:   timecalc.FormatClock(now),
		Duration:  model.Minutes(timecalc.RoundMinutes(elapsed)),
		Content:   content,
		Type:      workType,
	}
	rec, err := o.ledger.Add(rec)
	if err != nil {
		return model.WorkRecord{}, err
	}

	rctx, cancel := reconcileCtx(ctx)
	err = o.authority.Clear(rctx)
	cancel()
	if errors.Is(err, timer.ErrUnavailable) {
		err = o.store.RemoveSnapshot()
	}
	if err != nil {
		return rec, fmt.Errorf("record %d saved, but clearing the timer failed: %w", rec.ID, err)
	}
	return rec, nil
}
