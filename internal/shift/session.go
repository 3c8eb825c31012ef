// internal/shift/session.go
package shift

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
)

var logger = loggo.GetLogger("pos.shift")

// Store is the local key/value storage a session persists to.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(key string) error
}

// Record is the persisted form of an active shift.
type Record struct {
	StartTime time.Time `json:"startTime"`
	IsActive  bool      `json:"isActive"`
}

// Key is the storage key of the shift record for userID.
func Key(userID int64) string {
	return fmt.Sprintf("shift-%d", userID)
}

type SessionConfig struct {
	User       *domain.User
	Store      Store
	Clock      clock.Clock
	Duration   time.Duration
	Thresholds []time.Duration
	Notifier   Notifier
}

// Session is a cashier's work shift as seen by a single client. It survives
// restarts through Store and forces logout through Notifier.Expired.
type Session struct {
	user       *domain.User
	store      Store
	clock      clock.Clock
	duration   time.Duration
	thresholds []time.Duration
	notifier   Notifier

	mu    sync.Mutex
	timer *Timer
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.Thresholds == nil {
		cfg.Thresholds = DefaultThresholds
	}
	return &Session{
		user:       cfg.User,
		store:      cfg.Store,
		clock:      cfg.Clock,
		duration:   cfg.Duration,
		thresholds: cfg.Thresholds,
		notifier:   cfg.Notifier,
	}
}

func (s *Session) forbidden() error {
	return errors.NewForbidden(nil, "only cashiers can hold a work shift")
}

// Start begins a shift now. A running shift is left untouched.
func (s *Session) Start() error {
	if !s.user.IsCashier() {
		return s.forbidden()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		return nil
	}
	return s.begin(s.clock.Now())
}

// StartAt begins a shift from a start time known elsewhere, such as the server.
func (s *Session) StartAt(start time.Time) error {
	if !s.user.IsCashier() {
		return s.forbidden()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		if s.timer.Start().Equal(start) {
			return nil
		}
		s.timer.Stop()
		s.timer = nil
	}
	return s.begin(start)
}

func (s *Session) begin(start time.Time) error {
	raw, err := json.Marshal(Record{StartTime: start.UTC(), IsActive: true})
	if err != nil {
		return errors.Trace(err)
	}
	if err := s.store.Set(Key(s.user.ID), string(raw)); err != nil {
		return errors.Annotate(err, "persisting shift")
	}
	s.timer = NewTimer(s.clock, start, s.duration, s.thresholds, &sessionNotifier{s})
	return nil
}

// End stops the running shift and removes its record.
func (s *Session) End() error {
	if !s.user.IsCashier() {
		return s.forbidden()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clear()
}

func (s *Session) clear() error {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return errors.Trace(s.store.Remove(Key(s.user.ID)))
}

// Load restores a persisted shift. Malformed or inactive records are
// discarded. A record older than the shift duration is removed and
// Notifier.Expired is called.
func (s *Session) Load() error {
	if !s.user.IsCashier() {
		return nil
	}
	key := Key(s.user.ID)
	raw, ok := s.store.Get(key)
	if !ok {
		return nil
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.StartTime.IsZero() {
		logger.Debugf("discarding malformed shift record for user %d", s.user.ID)
		_ = s.store.Remove(key)
		return nil
	}
	if !rec.IsActive {
		_ = s.store.Remove(key)
		return nil
	}

	s.mu.Lock()
	elapsed := s.clock.Now().Sub(rec.StartTime)
	if elapsed >= s.duration {
		err := s.clear()
		s.mu.Unlock()
		if s.notifier != nil {
			s.notifier.Expired()
		}
		return err
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = NewTimer(s.clock, rec.StartTime, s.duration, s.thresholds, &sessionNotifier{s})
	s.mu.Unlock()
	return nil
}

// Tick re-evaluates the countdown now.
func (s *Session) Tick() {
	s.mu.Lock()
	t := s.timer
	s.mu.Unlock()
	if t != nil {
		t.Check()
	}
}

// Run drives the active shift until it expires, ends or ctx is done.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	t := s.timer
	s.mu.Unlock()
	if t == nil {
		return nil
	}
	return t.Run(ctx)
}

func (s *Session) Snapshot() Status {
	s.mu.Lock()
	t := s.timer
	s.mu.Unlock()
	if t == nil {
		return Status{Remaining: s.duration}
	}
	return t.Status()
}

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

type sessionNotifier struct {
	s *Session
}

func (n *sessionNotifier) Warn(remaining time.Duration) {
	if n.s.notifier != nil {
		n.s.notifier.Warn(remaining)
	}
}

func (n *sessionNotifier) Expired() {
	n.s.mu.Lock()
	if err := n.s.clear(); err != nil {
		logger.Warningf("clearing expired shift for user %d: %v", n.s.user.ID, err)
	}
	n.s.mu.Unlock()
	if n.s.notifier != nil {
		n.s.notifier.Expired()
	}
}
