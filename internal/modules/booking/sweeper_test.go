package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"restobook/internal/clients"
	"restobook/internal/domain"
	"restobook/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSweeper_ExpiresOverdueBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.confirmed(t, "B01")
	f.clock.Advance(5 * time.Minute)
	fresh := f.confirmed(t, "B02")

	notifier := new(MockNotifier)
	notifier.On("RecordExpired", mock.Anything, mock.MatchedBy(func(r clients.ExpiredRequest) bool {
		return r.BookingID == b.ID && r.Amount == 400000
	})).Return(nil).Once()

	sw := NewSweeper(f.svc, notifier, SweeperConfig{Interval: time.Second})

	res, err := sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Expired, "nothing is due yet")

	f.clock.Advance(10 * time.Minute)
	res, err = sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, res.Expired, "the deadline itself counts as expired")
	notifier.AssertExpectations(t)

	still, err := f.svc.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPendingPayment, still.Status)

	expired, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, expired.Status)
	assert.Equal(t, domain.PaymentExpired, expired.PaymentStatus)
	assert.Equal(t, 1, f.publisher.count(events.BookingExpired))

	_, err = f.svc.Create(ctx, q1Request("B01"))
	assert.NoError(t, err, "expired bookings release their tables")
}

func TestSweeper_NotificationFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.confirmed(t, "B01")
	notifier := new(MockNotifier)
	notifier.On("RecordExpired", mock.Anything, mock.Anything).Return(errors.New("payment down")).Once()

	sw := NewSweeper(f.svc, notifier, SweeperConfig{})
	f.clock.Advance(16 * time.Minute)

	res, err := sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, res.Expired)

	res, err = sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Expired, "an expired booking is never expired twice")
	notifier.AssertExpectations(t)
}

func TestSweeper_GraceWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.confirmed(t, "B01")
	sw := NewSweeper(f.svc, nil, SweeperConfig{Grace: 2 * time.Minute})

	f.clock.Advance(16 * time.Minute)
	res, err := sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Expired)

	// still inside the grace window, so a late payment lands
	paid, _, err := f.svc.MarkPaid(ctx, b.ID, "pay-1", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPaid, paid.Status)

	f.clock.Advance(10 * time.Minute)
	res, err = sw.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Expired)
}

func TestSweeper_PayAfterExpiryIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.confirmed(t, "B01")
	sw := NewSweeper(f.svc, nil, SweeperConfig{})
	f.clock.Advance(20 * time.Minute)

	_, err := sw.SweepOnce(ctx)
	require.NoError(t, err)

	_, _, err = f.svc.MarkPaid(ctx, b.ID, "pay-1", 0)
	assert.ErrorIs(t, err, ErrBookingCancelled)
}

func TestSweeper_PayAndExpireResolveOnce(t *testing.T) {
	for round := 0; round < 5; round++ {
		t.Run(fmt.Sprintf("round %d", round), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			b := f.confirmed(t, "B01")

			notifier := new(MockNotifier)
			notifier.On("RecordExpired", mock.Anything, mock.Anything).Return(nil).Maybe()
			sw := NewSweeper(f.svc, notifier, SweeperConfig{})
			f.clock.Advance(15 * time.Minute)

			var wg sync.WaitGroup
			var payErr error
			var res SweepResult
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, _, payErr = f.svc.MarkPaid(ctx, b.ID, "pay-1", 0)
			}()
			go func() {
				defer wg.Done()
				res, _ = sw.SweepOnce(ctx)
			}()
			wg.Wait()

			final, err := f.svc.Get(ctx, b.ID)
			require.NoError(t, err)

			switch final.Status {
			case domain.BookingPaid:
				assert.NoError(t, payErr)
				assert.Empty(t, res.Expired)
				notifier.AssertNotCalled(t, "RecordExpired", mock.Anything, mock.Anything)
			case domain.BookingCancelled:
				assert.ErrorIs(t, payErr, ErrBookingCancelled)
				assert.Equal(t, []string{b.ID}, res.Expired)
				notifier.AssertNumberOfCalls(t, "RecordExpired", 1)
			default:
				t.Fatalf("unexpected final status %s", final.Status)
			}
		})
	}
}

func TestSweeper_StartStops(t *testing.T) {
	f := newFixture(t)
	sw := NewSweeper(f.svc, nil, SweeperConfig{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := sw.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	close(stop)
}
