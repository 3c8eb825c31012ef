// internal/application/shift_service.go
package application

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/ports"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/shift"
)

// ShiftState is the countdown view of a cashier's shift.
type ShiftState struct {
	Active           bool          `json:"isActive"`
	Shift            *domain.Shift `json:"shift,omitempty"`
	StartTime        *time.Time    `json:"startTime,omitempty"`
	Deadline         *time.Time    `json:"deadline,omitempty"`
	DurationSeconds  int64         `json:"durationSeconds"`
	ElapsedSeconds   int64         `json:"elapsedSeconds"`
	RemainingSeconds int64         `json:"remainingSeconds"`
	Remaining        string        `json:"remaining"`
}

// shiftRecord is the cached form of a cashier's shift under shift.Key. It
// keeps the startTime/isActive shape clients persist locally.
type shiftRecord struct {
	ShiftID   int64     `json:"shiftId,omitempty"`
	StartTime time.Time `json:"startTime"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsActive  bool      `json:"isActive"`
}

type shiftEvent struct {
	ShiftID   int64     `json:"shiftId"`
	CashierID int64     `json:"cashierId"`
	StartTime time.Time `json:"startTime"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ShiftConfig struct {
	Clock      clock.Clock
	Duration   time.Duration
	Thresholds []time.Duration
	// TokenTTL bounds how long a forced logout has to be remembered.
	TokenTTL time.Duration
}

// ShiftService keeps shifts in Postgres, caches the active one per cashier
// and supervises every running shift so it ends with a forced logout.
type ShiftService struct {
	shifts   ports.ShiftRepository
	cache    ports.CachePort
	sessions ports.SessionStore
	events   ports.EventPublisher
	observer Observer
	clock    clock.Clock
	duration time.Duration
	tokenTTL time.Duration
	sup      *shift.Supervisor
}

func NewShiftService(shifts ports.ShiftRepository, cache ports.CachePort, sessions ports.SessionStore, events ports.EventPublisher, observer Observer, cfg ShiftConfig) *ShiftService {
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Duration <= 0 {
		cfg.Duration = shift.DefaultDuration
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	s := &ShiftService{
		shifts:   shifts,
		cache:    cache,
		sessions: sessions,
		events:   events,
		observer: observerOrNop(observer),
		clock:    cfg.Clock,
		duration: cfg.Duration,
		tokenTTL: cfg.TokenTTL,
	}
	s.sup = shift.NewSupervisor(shift.SupervisorConfig{
		Clock:      cfg.Clock,
		Duration:   cfg.Duration,
		Thresholds: cfg.Thresholds,
		OnWarning: func(userID int64, remaining time.Duration) {
			logger.Infof("shift of cashier %d ends in %s", userID, shift.FormatDuration(remaining))
			s.observer.ShiftWarning(remaining)
		},
		OnExpire: func(ctx context.Context, userID int64) {
			if err := s.Expire(ctx, userID); err != nil {
				logger.Errorf("expiring shift of cashier %d: %v", userID, errors.ErrorStack(err))
			}
		},
	})
	return s
}

// Supervisor exposes the running timers, e.g. for event streaming.
func (s *ShiftService) Supervisor() *shift.Supervisor { return s.sup }

func (s *ShiftService) Duration() time.Duration { return s.duration }

// Close stops supervising shifts. Shifts stay active in the database and
// are picked up again by Restore.
func (s *ShiftService) Close() { s.sup.Close() }

func (s *ShiftService) state(sh *domain.Shift) *ShiftState {
	st := &ShiftState{
		DurationSeconds:  int64(s.duration / time.Second),
		RemainingSeconds: int64(s.duration / time.Second),
		Remaining:        shift.FormatDuration(s.duration),
	}
	if !sh.Active() {
		return st
	}
	now := s.clock.Now()
	start, deadline := sh.StartTime, sh.ExpiresAt
	remaining := deadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	st.Active = true
	st.Shift = sh
	st.StartTime = &start
	st.Deadline = &deadline
	st.DurationSeconds = int64(deadline.Sub(start) / time.Second)
	st.ElapsedSeconds = int64(elapsed / time.Second)
	st.RemainingSeconds = int64(remaining / time.Second)
	st.Remaining = shift.FormatDuration(remaining)
	return st
}

// active finds the cashier's active shift, reading through the cache.
func (s *ShiftService) active(ctx context.Context, userID int64) (*domain.Shift, error) {
	key := shift.Key(userID)
	var rec shiftRecord
	if cacheGet(ctx, s.cache, key, &rec) {
		if !rec.IsActive {
			return nil, nil
		}
		if rec.ShiftID != 0 && !rec.StartTime.IsZero() && rec.ExpiresAt.After(rec.StartTime) {
			return &domain.Shift{
				ID:        rec.ShiftID,
				CashierID: userID,
				StartTime: rec.StartTime,
				ExpiresAt: rec.ExpiresAt,
				Status:    domain.ShiftActive,
			}, nil
		}
		logger.Warningf("dropping inconsistent shift record %s", key)
		cacheDelete(ctx, s.cache, key)
	}

	sh, err := s.shifts.ActiveShift(ctx, userID)
	if errors.Is(err, errors.NotFound) {
		cacheSet(ctx, s.cache, key, shiftRecord{IsActive: false}, s.duration)
		return nil, nil
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	s.remember(ctx, sh)
	return sh, nil
}

func (s *ShiftService) remember(ctx context.Context, sh *domain.Shift) {
	ttl := sh.ExpiresAt.Sub(s.clock.Now())
	if ttl <= 0 {
		return
	}
	cacheSet(ctx, s.cache, shift.Key(sh.CashierID), shiftRecord{
		ShiftID:   sh.ID,
		StartTime: sh.StartTime,
		ExpiresAt: sh.ExpiresAt,
		IsActive:  true,
	}, ttl)
}

// Current reports the user's shift. A shift found past its deadline is
// expired on the spot, which logs the user out.
func (s *ShiftService) Current(ctx context.Context, user *domain.User) (*ShiftState, error) {
	if !user.IsCashier() {
		return s.state(nil), nil
	}
	sh, err := s.active(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return s.state(nil), nil
	}
	if !s.clock.Now().Before(sh.ExpiresAt) {
		if err := s.Expire(ctx, user.ID); err != nil {
			return nil, err
		}
		return nil, errors.NewUnauthorized(nil, "Shift has ended, please log in again")
	}
	if _, watched := s.sup.Status(user.ID); !watched {
		s.sup.Watch(user.ID, sh.StartTime)
	}
	return s.state(sh), nil
}

// ClockIn starts a shift for a cashier. Clocking in during an active shift
// returns that shift unchanged.
func (s *ShiftService) ClockIn(ctx context.Context, user *domain.User) (*ShiftState, error) {
	if !user.IsCashier() {
		return nil, errors.NewForbidden(nil, "Only cashiers can start a shift")
	}
	sh, err := s.active(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if sh != nil && s.clock.Now().Before(sh.ExpiresAt) {
		return s.state(sh), nil
	}
	if sh != nil {
		if err := s.Expire(ctx, user.ID); err != nil {
			return nil, err
		}
		return nil, errors.NewUnauthorized(nil, "Shift has ended, please log in again")
	}

	now := s.clock.Now()
	sh = &domain.Shift{
		CashierID:   user.ID,
		CashierName: user.Name,
		StartTime:   now,
		ExpiresAt:   now.Add(s.duration),
		Status:      domain.ShiftActive,
	}
	if err := s.shifts.CreateShift(ctx, sh); err != nil {
		if !errors.Is(err, errors.AlreadyExists) {
			return nil, err
		}
		// another request clocked in first
		existing, findErr := s.shifts.ActiveShift(ctx, user.ID)
		if findErr != nil {
			return nil, findErr
		}
		sh = existing
	}
	s.remember(ctx, sh)
	s.sup.Watch(user.ID, sh.StartTime)
	s.observer.SetActiveShifts(s.sup.ActiveCount())
	logger.Infof("cashier %d clocked in, shift %d ends at %s", user.ID, sh.ID, sh.ExpiresAt.Format(time.RFC3339))
	publish(ctx, s.events, "shift.started", now, newShiftEvent(sh))
	return s.state(sh), nil
}

// ClockOut ends the cashier's active shift and clears its cached state.
func (s *ShiftService) ClockOut(ctx context.Context, user *domain.User) (*domain.Shift, error) {
	if !user.IsCashier() {
		return nil, errors.NewForbidden(nil, "Only cashiers can end a shift")
	}
	key := shift.Key(user.ID)
	sh, err := s.shifts.ActiveShift(ctx, user.ID)
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			cacheDelete(ctx, s.cache, key)
			s.sup.Stop(user.ID)
		}
		return nil, err
	}
	now := s.clock.Now()
	if err := s.shifts.EndShift(ctx, sh.ID, domain.ShiftEnded, now); err != nil {
		return nil, err
	}
	sh.Status = domain.ShiftEnded
	sh.EndTime = &now

	s.sup.Stop(user.ID)
	cacheDelete(ctx, s.cache, key)
	s.observer.SetActiveShifts(s.sup.ActiveCount())
	logger.Infof("cashier %d clocked out of shift %d after %s", user.ID, sh.ID, shift.FormatDuration(now.Sub(sh.StartTime)))
	publish(ctx, s.events, "shift.ended", now, newShiftEvent(sh))
	return sh, nil
}

// Expire ends the cashier's shift as expired and logs them out everywhere.
func (s *ShiftService) Expire(ctx context.Context, userID int64) error {
	now := s.clock.Now()
	sh, err := s.shifts.ActiveShift(ctx, userID)
	switch {
	case errors.Is(err, errors.NotFound):
		sh = nil
	case err != nil:
		return errors.Trace(err)
	}
	if sh != nil {
		end := now
		if sh.ExpiresAt.Before(now) {
			end = sh.ExpiresAt
		}
		if err := s.shifts.EndShift(ctx, sh.ID, domain.ShiftExpired, end); err != nil && !errors.Is(err, errors.NotFound) {
			return errors.Trace(err)
		}
		sh.Status = domain.ShiftExpired
		sh.EndTime = &end
	}

	s.sup.Expire(userID)
	cacheDelete(ctx, s.cache, shift.Key(userID))
	if err := forceLogout(ctx, s.sessions, userID, now, s.tokenTTL); err != nil {
		return err
	}
	s.observer.ShiftExpired()
	s.observer.SetActiveShifts(s.sup.ActiveCount())
	if sh != nil {
		logger.Infof("shift %d of cashier %d expired, user logged out", sh.ID, userID)
		publish(ctx, s.events, "shift.expired", now, newShiftEvent(sh))
	}
	return nil
}

// Restore resumes supervision of every active shift, expiring those whose
// deadline passed while nobody was watching.
func (s *ShiftService) Restore(ctx context.Context) error {
	active, err := s.shifts.ActiveShifts(ctx)
	if err != nil {
		return errors.Annotate(err, "loading active shifts")
	}
	now := s.clock.Now()
	var resumed, expired int
	for _, sh := range active {
		if !now.Before(sh.ExpiresAt) {
			if err := s.Expire(ctx, sh.CashierID); err != nil {
				logger.Errorf("expiring overdue shift %d: %v", sh.ID, err)
				continue
			}
			expired++
			continue
		}
		s.sup.Watch(sh.CashierID, sh.StartTime)
		s.remember(ctx, sh)
		resumed++
	}
	s.observer.SetActiveShifts(s.sup.ActiveCount())
	logger.Infof("restored %d active shifts, expired %d overdue", resumed, expired)
	return nil
}

func (s *ShiftService) List(ctx context.Context, viewer *domain.User, filter domain.ShiftFilter) ([]*domain.Shift, domain.Pagination, error) {
	if viewer == nil {
		return nil, domain.Pagination{}, errors.NewUnauthorized(nil, "Not authenticated")
	}
	if !viewer.IsAdmin() {
		filter.CashierID = viewer.ID
	}
	shifts, total, err := s.shifts.ListShifts(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, errors.Trace(err)
	}
	if shifts == nil {
		shifts = []*domain.Shift{}
	}
	return shifts, domain.NewPagination(filter.Page, total), nil
}

func (s *ShiftService) Stats(ctx context.Context) (*domain.ShiftStats, error) {
	return s.shifts.ShiftStats(ctx, startOfDay(s.clock.Now()))
}

func newShiftEvent(sh *domain.Shift) shiftEvent {
	return shiftEvent{ShiftID: sh.ID, CashierID: sh.CashierID, StartTime: sh.StartTime, ExpiresAt: sh.ExpiresAt}
}
