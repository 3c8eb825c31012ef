// internal/application/shift_service_test.go
package application

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/juju/clock/testclock"
	"github.com/juju/errors"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/ports"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/shift"
)

type shiftFixture struct {
	svc      *ShiftService
	shifts   *ports.MockShiftRepository
	sessions *ports.MockSessionStore
	events   *ports.MockEventPublisher
	cache    *memCache
	obs      *recordingObserver
	clock    *testclock.Clock
}

func newShiftFixture(t *testing.T, ctrl *gomock.Controller, now time.Time, thresholds []time.Duration) *shiftFixture {
	f := &shiftFixture{
		shifts:   ports.NewMockShiftRepository(ctrl),
		sessions: ports.NewMockSessionStore(ctrl),
		events:   ports.NewMockEventPublisher(ctrl),
		cache:    newMemCache(),
		obs:      &recordingObserver{},
		clock:    testclock.NewClock(now),
	}
	f.svc = NewShiftService(f.shifts, f.cache, f.sessions, f.events, f.obs, ShiftConfig{
		Clock:      f.clock,
		Thresholds: thresholds,
		TokenTTL:   24 * time.Hour,
	})
	t.Cleanup(f.svc.Close)
	return f
}

func runningShift(id, cashierID int64, start time.Time) *domain.Shift {
	return &domain.Shift{
		ID:        id,
		CashierID: cashierID,
		StartTime: start,
		ExpiresAt: start.Add(shift.DefaultDuration),
		Status:    domain.ShiftActive,
	}
}

func TestShiftService_ClockInStartsFullShift(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newShiftFixture(t, ctrl, testNow, nil)

	f.shifts.EXPECT().ActiveShift(gomock.Any(), cashier.ID).Return(nil, errors.NewNotFound(nil, "No active shift"))
	f.shifts.EXPECT().CreateShift(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, sh *domain.Shift) error {
			if !sh.StartTime.Equal(testNow) || !sh.ExpiresAt.Equal(testNow.Add(8*time.Hour)) {
				t.Errorf("CreateShift() got %+v", sh)
			}
			sh.ID = 1
			return nil
		})
	f.events.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, e ports.Event) error {
			if e.Type != "shift.started" {
				t.Errorf("event type = %s", e.Type)
			}
			return nil
		})

	st, err := f.svc.ClockIn(context.Background(), cashier)
	if err != nil {
		t.Fatalf("ClockIn() error = %v", err)
	}
	if !st.Active || st.RemainingSeconds != 28800 || st.ElapsedSeconds != 0 || st.Remaining != "08:00:00" {
		t.Errorf("ClockIn() state = %+v", st)
	}
	if _, ok := f.cache.raw(shift.Key(cashier.ID)); !ok {
		t.Errorf("shift record not cached")
	}
	if _, watched := f.svc.Supervisor().Status(cashier.ID); !watched {
		t.Errorf("shift not supervised")
	}
	if f.obs.active != 1 {
		t.Errorf("observer active shifts = %d, want 1", f.obs.active)
	}
}

func TestShiftService_ResumeFromCachedStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newShiftFixture(t, ctrl, testNow.Add(time.Hour), nil)

	if err := f.cache.Set(context.Background(), shift.Key(cashier.ID), shiftRecord{
		ShiftID:   1,
		StartTime: testNow,
		ExpiresAt: testNow.Add(8 * time.Hour),
		IsActive:  true,
	}); err != nil {
		t.Fatal(err)
	}

	st, err := f.svc.Current(context.Background(), cashier)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if st.ElapsedSeconds != 3600 || st.RemainingSeconds != 25200 || st.DurationSeconds != 28800 {
		t.Errorf("Current() state = %+v", st)
	}

	// clocking in again keeps the running shift
	again, err := f.svc.ClockIn(context.Background(), cashier)
	if err != nil {
		t.Fatalf("ClockIn() error = %v", err)
	}
	if again.Shift.ID != 1 || again.RemainingSeconds != 25200 {
		t.Errorf("ClockIn() during shift = %+v", again)
	}
}

func TestShiftService_OverdueShiftLogsOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newShiftFixture(t, ctrl, testNow.Add(9*time.Hour), nil)
	sh := runningShift(1, cashier.ID, testNow)

	f.shifts.EXPECT().ActiveShift(gomock.Any(), cashier.ID).DoAndReturn(
		func(context.Context, int64) (*domain.Shift, error) {
			cp := *sh
			return &cp, nil
		}).Times(2)
	f.shifts.EXPECT().EndShift(gomock.Any(), int64(1), domain.ShiftExpired, gomock.Any()).DoAndReturn(
		func(ctx context.Context, id int64, status domain.ShiftStatus, at time.Time) error {
			if !at.Equal(testNow.Add(8 * time.Hour)) {
				t.Errorf("shift ended at %v, want the deadline", at)
			}
			return nil
		})
	f.sessions.EXPECT().RevokeUserBefore(gomock.Any(), cashier.ID, gomock.Any(), 24*time.Hour).Return(nil)
	f.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	_, err := f.svc.Current(context.Background(), cashier)
	if err == nil || err.Error() != "Shift has ended, please log in again" {
		t.Fatalf("Current() error = %v", err)
	}
	if !errors.Is(err, errors.Unauthorized) {
		t.Errorf("Current() error should be Unauthorized")
	}
	if f.obs.expiredCount() != 1 {
		t.Errorf("expiry not observed")
	}
	if _, ok := f.cache.raw(shift.Key(cashier.ID)); ok {
		t.Errorf("shift record still cached")
	}
}

func TestShiftService_MalformedCacheEntryDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newShiftFixture(t, ctrl, testNow, nil)

	for _, raw := range []string{`garbage`, `{"isActive":true}`} {
		f.cache.put(shift.Key(cashier.ID), raw)
		f.shifts.EXPECT().ActiveShift(gomock.Any(), cashier.ID).Return(nil, errors.NewNotFound(nil, "No active shift"))

		st, err := f.svc.Current(context.Background(), cashier)
		if err != nil {
			t.Fatalf("Current() with %s error = %v", raw, err)
		}
		if st.Active || st.RemainingSeconds != 28800 {
			t.Errorf("Current() with %s = %+v", raw, st)
		}
		if got, _ := f.cache.raw(shift.Key(cashier.ID)); got == raw {
			t.Errorf("entry %s was kept", raw)
		}
	}

	// the negative record now answers without the database
	if st, err := f.svc.Current(context.Background(), cashier); err != nil || st.Active {
		t.Errorf("Current() from negative record = %+v, %v", st, err)
	}
}

func TestShiftService_NonCashier(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newShiftFixture(t, ctrl, testNow, nil)
	ctx := context.Background()

	st, err := f.svc.Current(ctx, admin)
	if err != nil || st.Active {
		t.Errorf("Current() for admin = %+v, %v", st, err)
	}
	if _, err := f.svc.ClockIn(ctx, admin); err == nil || err.Error() != "Only cashiers can start a shift" {
		t.Errorf("ClockIn() for admin error = %v", err)
	}
	if _, err := f.svc.ClockOut(ctx, admin); !errors.Is(err, errors.Forbidden) {
		t.Errorf("ClockOut() for admin error = %v", err)
	}
}

func TestShiftService_OverdueShiftPublishesExpired(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newShiftFixture(t, ctrl, testNow.Add(9*time.Hour), nil)
	sh := runningShift(1, cashier.ID, testNow)

	// the supervisor still believes in a running shift when the stored one
	// is already past its deadline
	events, release := f.svc.Supervisor().Subscribe(cashier.ID)
	defer release()
	f.svc.Supervisor().Watch(cashier.ID, testNow.Add(8*time.Hour))
	if ev := <-events; ev.Type != shift.EventStarted {
		t.Fatalf("first event = %+v", ev)
	}

	f.shifts.EXPECT().ActiveShift(gomock.Any(), cashier.ID).DoAndReturn(
		func(context.Context, int64) (*domain.Shift, error) {
			cp := *sh
			return &cp, nil
		}).Times(2)
	f.shifts.EXPECT().EndShift(gomock.Any(), int64(1), domain.ShiftExpired, sh.ExpiresAt).Return(nil)
	f.sessions.EXPECT().RevokeUserBefore(gomock.Any(), cashier.ID, gomock.Any(), gomock.Any()).Return(nil)
	f.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	if _, err := f.svc.Current(context.Background(), cashier); !errors.Is(err, errors.Unauthorized) {
		t.Fatalf("Current() error = %v", err)
	}
	select {
	case ev := <-events:
		if ev.Type != shift.EventExpired {
			t.Errorf("event = %+v, want expired", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no expiry event")
	}
}

func TestShiftService_ClockOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newShiftFixture(t, ctrl, testNow.Add(2*time.Hour), nil)
	ctx := context.Background()
	key := shift.Key(cashier.ID)

	f.cache.put(key, `{"shiftId":1}`)
	f.shifts.EXPECT().ActiveShift(gomock.Any(), cashier.ID).Return(runningShift(1, cashier.ID, testNow), nil)
	f.shifts.EXPECT().EndShift(gomock.Any(), int64(1), domain.ShiftEnded, gomock.Any()).Return(nil)
	f.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	sh, err := f.svc.ClockOut(ctx, cashier)
	if err != nil {
		t.Fatalf("ClockOut() error = %v", err)
	}
	if sh.Status != domain.ShiftEnded || sh.EndTime == nil || sh.EndTime.Sub(sh.StartTime) != 2*time.Hour {
		t.Errorf("ClockOut() = %+v", sh)
	}
	if _, ok := f.cache.raw(key); ok {
		t.Errorf("shift record still cached")
	}

	f.cache.put(key, `{"shiftId":1}`)
	f.shifts.EXPECT().ActiveShift(gomock.Any(), cashier.ID).Return(nil, errors.NewNotFound(nil, "No active shift"))
	if _, err := f.svc.ClockOut(ctx, cashier); err == nil || err.Error() != "No active shift" {
		t.Errorf("ClockOut() without shift error = %v", err)
	}
	if _, ok := f.cache.raw(key); ok {
		t.Errorf("stale record kept after failed clock out")
	}
}

func TestShiftService_Restore(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newShiftFixture(t, ctrl, testNow, nil)

	live := runningShift(1, cashier.ID, testNow.Add(-time.Hour))
	overdue := runningShift(2, cashier2.ID, testNow.Add(-9*time.Hour))
	f.shifts.EXPECT().ActiveShifts(gomock.Any()).Return([]*domain.Shift{live, overdue}, nil)
	f.shifts.EXPECT().ActiveShift(gomock.Any(), cashier2.ID).Return(overdue, nil)
	f.shifts.EXPECT().EndShift(gomock.Any(), int64(2), domain.ShiftExpired, overdue.ExpiresAt).Return(nil)
	f.sessions.EXPECT().RevokeUserBefore(gomock.Any(), cashier2.ID, gomock.Any(), gomock.Any()).Return(nil)
	f.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)

	if err := f.svc.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	st, watched := f.svc.Supervisor().Status(cashier.ID)
	if !watched || st.RemainingSeconds() != 7*3600 {
		t.Errorf("live shift status = %+v, %v", st, watched)
	}
	if _, watched := f.svc.Supervisor().Status(cashier2.ID); watched {
		t.Errorf("overdue shift still supervised")
	}
	if f.obs.active != 1 || f.obs.expiredCount() != 1 {
		t.Errorf("observer = %+v", f.obs)
	}
}

func TestShiftService_SupervisorExpiresShift(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newShiftFixture(t, ctrl, testNow, []time.Duration{})

	var current *domain.Shift
	f.shifts.EXPECT().ActiveShift(gomock.Any(), cashier.ID).Return(nil, errors.NewNotFound(nil, "No active shift"))
	f.shifts.EXPECT().CreateShift(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, sh *domain.Shift) error {
			sh.ID = 1
			cp := *sh
			current = &cp
			return nil
		})
	f.events.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	events, release := f.svc.Supervisor().Subscribe(cashier.ID)
	defer release()
	if _, err := f.svc.ClockIn(context.Background(), cashier); err != nil {
		t.Fatalf("ClockIn() error = %v", err)
	}
	<-events // started

	f.shifts.EXPECT().ActiveShift(gomock.Any(), cashier.ID).DoAndReturn(
		func(context.Context, int64) (*domain.Shift, error) { return current, nil })
	f.shifts.EXPECT().EndShift(gomock.Any(), int64(1), domain.ShiftExpired, gomock.Any()).Return(nil)
	f.sessions.EXPECT().RevokeUserBefore(gomock.Any(), cashier.ID, gomock.Any(), gomock.Any()).Return(nil)

	if err := f.clock.WaitAdvance(8*time.Hour, time.Second, 1); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-events:
		if ev.Type != shift.EventExpired || ev.Remaining != 0 {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no expiry event")
	}

	deadline := time.Now().Add(5 * time.Second)
	for f.obs.expiredCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("shift was not expired")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if f.svc.Supervisor().ActiveCount() != 0 {
		t.Errorf("shift still supervised after expiry")
	}
}

func TestShiftService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newShiftFixture(t, ctrl, testNow, nil)

	f.shifts.EXPECT().ListShifts(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, filter domain.ShiftFilter) ([]*domain.Shift, int64, error) {
			if filter.CashierID != cashier.ID {
				t.Errorf("cashier listing not scoped: %+v", filter)
			}
			return nil, 0, nil
		})
	shifts, _, err := f.svc.List(context.Background(), cashier, domain.ShiftFilter{})
	if err != nil || shifts == nil {
		t.Errorf("List() = %v, %v", shifts, err)
	}
}
