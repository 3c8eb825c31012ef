// internal/shift/supervisor.go
package shift

import (
	"context"
	"sync"
	"time"

	"github.com/juju/clock"
)

type EventType string

const (
	EventStarted EventType = "started"
	EventWarning EventType = "warning"
	EventEnded   EventType = "ended"
	EventExpired EventType = "expired"
)

// Event is delivered to subscribers of a cashier's shift.
type Event struct {
	Type      EventType `json:"type"`
	UserID    int64     `json:"userId"`
	StartTime time.Time `json:"startTime"`
	Deadline  time.Time `json:"deadline"`
	Remaining int64     `json:"remainingSeconds"`
	At        time.Time `json:"at"`
}

type SupervisorConfig struct {
	Clock      clock.Clock
	Duration   time.Duration
	Thresholds []time.Duration
	// OnWarning is called from the timer goroutine for every warning.
	OnWarning func(userID int64, remaining time.Duration)
	// OnExpire is called from the timer goroutine once a shift runs out.
	OnExpire func(ctx context.Context, userID int64)
}

type watch struct {
	timer *Timer
	done  chan struct{}
}

// Supervisor runs one deadline timer per active cashier shift on the server.
type Supervisor struct {
	cfg    SupervisorConfig
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	watches map[int64]*watch
	subs    map[int64]map[chan Event]struct{}
}

func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.Thresholds == nil {
		cfg.Thresholds = DefaultThresholds
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		watches: make(map[int64]*watch),
		subs:    make(map[int64]map[chan Event]struct{}),
	}
}

func (s *Supervisor) Duration() time.Duration { return s.cfg.Duration }

// Watch supervises the shift of userID that began at start, replacing any
// previous one.
func (s *Supervisor) Watch(userID int64, start time.Time) {
	n := &supervisedNotifier{sup: s, userID: userID}
	t := NewTimer(s.cfg.Clock, start, s.cfg.Duration, s.cfg.Thresholds, n)
	n.timer = t
	w := &watch{timer: t, done: make(chan struct{})}

	s.mu.Lock()
	if old, ok := s.watches[userID]; ok {
		old.timer.Stop()
	}
	s.watches[userID] = w
	s.mu.Unlock()

	s.publish(userID, t.Status(), EventStarted)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(w.done)
		if err := t.Run(s.ctx); err != nil && err != context.Canceled {
			logger.Warningf("shift timer for user %d stopped: %v", userID, err)
		}
	}()
}

// Stop ends supervision of userID's shift without expiring it.
func (s *Supervisor) Stop(userID int64) {
	s.release(userID, EventEnded)
}

// Expire ends supervision of userID's shift as expired, for deadlines noticed
// before the timer fired. Nothing is published when the timer already did.
func (s *Supervisor) Expire(userID int64) {
	s.release(userID, EventExpired)
}

func (s *Supervisor) release(userID int64, typ EventType) {
	s.mu.Lock()
	w, ok := s.watches[userID]
	if ok {
		delete(s.watches, userID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	w.timer.Stop()
	s.publish(userID, w.timer.Status(), typ)
}

func (s *Supervisor) Status(userID int64) (Status, bool) {
	s.mu.Lock()
	w, ok := s.watches[userID]
	s.mu.Unlock()
	if !ok {
		return Status{}, false
	}
	return w.timer.Status(), true
}

func (s *Supervisor) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watches)
}

// Subscribe returns a channel of events for userID and a func releasing it.
func (s *Supervisor) Subscribe(userID int64) (<-chan Event, func()) {
	ch := make(chan Event, 8)
	s.mu.Lock()
	if s.subs[userID] == nil {
		s.subs[userID] = make(map[chan Event]struct{})
	}
	s.subs[userID][ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[userID], ch)
			if len(s.subs[userID]) == 0 {
				delete(s.subs, userID)
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Supervisor) publish(userID int64, st Status, typ EventType) {
	ev := Event{
		Type:      typ,
		UserID:    userID,
		StartTime: st.StartTime,
		Deadline:  st.Deadline,
		Remaining: st.RemainingSeconds(),
		At:        s.cfg.Clock.Now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs[userID] {
		select {
		case ch <- ev:
		default:
			logger.Debugf("dropping %s event for slow subscriber of user %d", typ, userID)
		}
	}
}

// Close stops every timer and waits for their goroutines.
func (s *Supervisor) Close() {
	s.cancel()
	s.wg.Wait()
}

type supervisedNotifier struct {
	sup    *Supervisor
	userID int64
	timer  *Timer
}

func (n *supervisedNotifier) Warn(remaining time.Duration) {
	st := n.timer.Status()
	st.Remaining = remaining
	n.sup.publish(n.userID, st, EventWarning)
	if n.sup.cfg.OnWarning != nil {
		n.sup.cfg.OnWarning(n.userID, remaining)
	}
}

func (n *supervisedNotifier) Expired() {
	n.sup.mu.Lock()
	if w, ok := n.sup.watches[n.userID]; ok && w.timer == n.timer {
		delete(n.sup.watches, n.userID)
	}
	n.sup.mu.Unlock()
	n.sup.publish(n.userID, n.timer.Status(), EventExpired)
	if n.sup.cfg.OnExpire != nil {
		n.sup.cfg.OnExpire(n.sup.ctx, n.userID)
	}
}
