package timer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/workclock/workclock/internal/model"
	"github.com/workclock/workclock/internal/storage"
)

// DefaultTickInterval is the persistence heartbeat. It doubles as the
// reconciliation cycle: observers that get no answer within one interval
// treat the authority as unreachable.
const DefaultTickInterval = time.Second

// ErrUnavailable is returned when the authority cannot be reached or does
// not answer within one reconciliation cycle.
var ErrUnavailable = errors.New("timer authority unavailable")

// StartRequest carries the optional fields of a start message. An explicit
// StartTime (a re-announcement of a recovered timer) wins over an
// ElapsedTime seed (a resume); with neither the timer starts fresh.
type StartRequest struct {
	StartTime   *int64 `json:"startTime,omitempty"`
	ElapsedTime *int64 `json:"elapsedTime,omitempty"`
}

// StatusReply is the live snapshot extended with the settings revision
// pollers use to refresh their settings cache.
type StatusReply struct {
	model.TimerSnapshot
	SettingsRev int64 `json:"settingsRev"`
}

// Config carries the authority's tunables. Zero values select defaults.
type Config struct {
	TickInterval time.Duration
	Now          func() time.Time
}

type msgKind int

const (
	msgStart msgKind = iota
	msgPause
	msgClear
	msgStatus
	msgSettings
	msgSubscribe
	msgUnsubscribe
)

type request struct {
	kind     msgKind
	start    StartRequest
	settings model.Settings
	buffer   int
	subID    uuid.UUID
	reply    chan response
}

type response struct {
	status StatusReply
	events <-chan Event
	subID  uuid.UUID
	err    error
}

// Authority owns the timer state machine. All state lives in a single
// goroutine; callers talk to it through messages processed in arrival
// order, so transitions never interleave and no second tick source can
// exist.
type Authority struct {
	store *storage.Store
	cfg   Config

	requests chan request
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// Loop-owned state. Only the run goroutine touches these.
	state    State
	startAt  time.Time
	elapsed  time.Duration
	settings model.Settings
	rev      int64
	subs     map[uuid.UUID]chan Event
}

// New returns an authority persisting through st. Call Run to start it.
func New(st *storage.Store, cfg Config) *Authority {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Authority{
		store:    st,
		cfg:      cfg,
		requests: make(chan request),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		state:    StateIdle,
		subs:     make(map[uuid.UUID]chan Event),
	}
}

// Run starts the authority goroutine. It rehydrates from the persisted
// snapshot before serving the first request.
func (a *Authority) Run() {
	go a.loop()
}

// Stop terminates the authority and closes all subscriber channels. It
// must only be called after Run.
func (a *Authority) Stop() {
	a.stopOnce.Do(func() { close(a.quit) })
	<-a.done
}

// Start begins or rebases the timer and acknowledges.
func (a *Authority) Start(ctx context.Context, req StartRequest) error {
	_, err := a.send(ctx, request{kind: msgStart, start: req})
	return err
}

// Pause freezes a running timer. Outside Running it acknowledges without
// effect.
func (a *Authority) Pause(ctx context.Context) error {
	_, err := a.send(ctx, request{kind: msgPause})
	return err
}

// Clear drops the timer state and the persisted snapshot.
func (a *Authority) Clear(ctx context.Context) error {
	_, err := a.send(ctx, request{kind: msgClear})
	return err
}

// Status returns the live snapshot. Elapsed time is recomputed at reply
// time while Running.
func (a *Authority) Status(ctx context.Context) (StatusReply, error) {
	resp, err := a.send(ctx, request{kind: msgStatus})
	if err != nil {
		return StatusReply{}, err
	}
	return resp.status, nil
}

// SettingsUpdated announces new settings: subscribers get a broadcast and
// the settings revision moves so pollers refresh.
func (a *Authority) SettingsUpdated(ctx context.Context, s model.Settings) error {
	_, err := a.send(ctx, request{kind: msgSettings, settings: s})
	return err
}

// Subscribe registers an event channel with the given buffer (a sensible
// default applies when buffer is not positive). Events that would overrun
// the buffer are dropped for that subscriber.
func (a *Authority) Subscribe(ctx context.Context, buffer int) (uuid.UUID, <-chan Event, error) {
	if buffer <= 0 {
		buffer = 16
	}
	resp, err := a.send(ctx, request{kind: msgSubscribe, buffer: buffer})
	if err != nil {
		return uuid.Nil, nil, err
	}
	return resp.subID, resp.events, nil
}

// Unsubscribe closes and removes a subscription.
func (a *Authority) Unsubscribe(ctx context.Context, id uuid.UUID) error {
	_, err := a.send(ctx, request{kind: msgUnsubscribe, subID: id})
	return err
}

// send delivers one request to the loop and waits for the reply. A context
// deadline or a stopped loop both read as the authority being unreachable.
func (a *Authority) send(ctx context.Context, req request) (response, error) {
	req.reply = make(chan response, 1)
	select {
	case a.requests <- req:
	case <-a.done:
		return response{}, ErrUnavailable
	case <-ctx.Done():
		return response{}, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
	select {
	case resp := <-req.reply:
		return resp, resp.err
	case <-a.done:
		return response{}, ErrUnavailable
	case <-ctx.Done():
		return response{}, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}

func (a *Authority) loop() {
	defer close(a.done)
	a.rehydrate()
	ticker := time.NewTicker(a.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.quit:
			for id, ch := range a.subs {
				close(ch)
				delete(a.subs, id)
			}
			return
		case <-ticker.C:
			a.tick()
		case req := <-a.requests:
			a.handle(req)
		}
	}
}

// rehydrate restores state from the persisted snapshot: a running snapshot
// resumes with continuous elapsed time, a non-running one lands in Paused,
// anything absent or unreadable degrades to Idle.
func (a *Authority) rehydrate() {
	snap, err := a.store.Snapshot()
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		log.Printf("timer: rehydrate: %v", err)
		return
	}
	switch {
	case snap.Running && snap.StartTime != 0:
		a.state = StateRunning
		a.startAt = snap.StartedAt()
		a.elapsed = a.cfg.Now().Sub(a.startAt)
	case snap.StartTime != 0 || snap.ElapsedTime > 0:
		a.state = StatePaused
		a.startAt = snap.StartedAt()
		a.elapsed = snap.Elapsed()
	}
}

// tick persists the live snapshot once per interval while Running. Tick
// failures are logged, never fatal; the next tick retries.
func (a *Authority) tick() {
	if a.state != StateRunning {
		return
	}
	snap := a.snapshot()
	a.elapsed = snap.Elapsed()
	if err := a.store.SaveSnapshot(snap); err != nil {
		log.Printf("timer: persist snapshot: %v", err)
	}
}

func (a *Authority) handle(req request) {
	var resp response
	switch req.kind {
	case msgStart:
		resp.err = a.startTimer(req.start)
	case msgPause:
		resp.err = a.pauseTimer()
	case msgClear:
		resp.err = a.clearTimer()
	case msgStatus:
		resp.status = StatusReply{TimerSnapshot: a.snapshot(), SettingsRev: a.rev}
	case msgSettings:
		a.settings = req.settings.Clone()
		a.rev++
		a.emit(Event{
			Type:     EventSettingsUpdated,
			State:    a.state,
			Snapshot: a.snapshot(),
			Settings: a.settings.Clone(),
			At:       a.cfg.Now(),
		})
	case msgSubscribe:
		id := uuid.New()
		ch := make(chan Event, req.buffer)
		a.subs[id] = ch
		resp.subID = id
		resp.events = ch
	case msgUnsubscribe:
		if ch, ok := a.subs[req.subID]; ok {
			close(ch)
			delete(a.subs, req.subID)
		}
	}
	req.reply <- resp
}

// startTimer enters Running. The snapshot is persisted before the state
// commits, so a refused write aborts the transition cleanly.
func (a *Authority) startTimer(req StartRequest) error {
	now := a.cfg.Now()
	var startAt time.Time
	switch {
	case req.StartTime != nil:
		startAt = time.UnixMilli(*req.StartTime)
	case req.ElapsedTime != nil:
		startAt = now.Add(-time.Duration(*req.ElapsedTime) * time.Millisecond)
	default:
		startAt = now
	}
	if startAt.After(now) {
		startAt = now
	}
	// A re-announcement of the timer already running from the same instant
	// changes nothing and emits nothing.
	if a.state == StateRunning && a.startAt.UnixMilli() == startAt.UnixMilli() {
		return nil
	}
	elapsed := now.Sub(startAt)
	snap := model.TimerSnapshot{
		Running:     true,
		StartTime:   startAt.UnixMilli(),
		ElapsedTime: elapsed.Milliseconds(),
	}
	if err := a.store.SaveSnapshot(snap); err != nil {
		return err
	}
	a.state = StateRunning
	a.startAt = startAt
	a.elapsed = elapsed
	a.emit(Event{Type: EventStateChange, State: a.state, Snapshot: snap, At: now})
	return nil
}

// pauseTimer freezes the elapsed time.
func (a *Authority) pauseTimer() error {
	if a.state != StateRunning {
		return nil
	}
	now := a.cfg.Now()
	elapsed := now.Sub(a.startAt)
	if elapsed < 0 {
		elapsed = 0
	}
	snap := model.TimerSnapshot{
		Running:     false,
		StartTime:   a.startAt.UnixMilli(),
		ElapsedTime: elapsed.Milliseconds(),
	}
	if err := a.store.SaveSnapshot(snap); err != nil {
		return err
	}
	a.state = StatePaused
	a.elapsed = elapsed
	a.emit(Event{Type: EventStateChange, State: a.state, Snapshot: snap, At: now})
	return nil
}

// clearTimer drops all timer state. The persisted snapshot goes first so a
// refused remove leaves state and store consistent with each other.
func (a *Authority) clearTimer() error {
	if err := a.store.RemoveSnapshot(); err != nil {
		return err
	}
	a.state = StateIdle
	a.startAt = time.Time{}
	a.elapsed = 0
	a.emit(Event{Type: EventStateChange, State: StateIdle, Snapshot: model.TimerSnapshot{}, At: a.cfg.Now()})
	return nil
}

// snapshot renders the loop state in the persisted wire form.
func (a *Authority) snapshot() model.TimerSnapshot {
	switch a.state {
	case StateRunning:
		elapsed := a.cfg.Now().Sub(a.startAt)
		if elapsed < 0 {
			elapsed = 0
		}
		return model.TimerSnapshot{
			Running:     true,
			StartTime:   a.startAt.UnixMilli(),
			ElapsedTime: elapsed.Milliseconds(),
		}
	case StatePaused:
		return model.TimerSnapshot{
			Running:     false,
			StartTime:   a.startAt.UnixMilli(),
			ElapsedTime: a.elapsed.Milliseconds(),
		}
	default:
		return model.TimerSnapshot{}
	}
}

// emit delivers ev to every subscriber without blocking; a full buffer
// drops the event for that subscriber.
func (a *Authority) emit(ev Event) {
	for _, ch := range a.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
