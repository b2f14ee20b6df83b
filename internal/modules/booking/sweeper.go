package booking

import (
	"context"
	"log"
	"time"

	"restobook/internal/clients"
	"restobook/internal/events"
)

type SweeperConfig struct {
	Interval time.Duration
	// Grace delays reclamation past the deadline.
	Grace   time.Duration
	Now     func() time.Time
	Loggerf func(format string, args ...interface{})
}

// SweepResult lists what a single tick did.
type SweepResult struct {
	Expired []string
	Skipped []string
	Failed  []string
}

// Sweeper reclaims tables held by bookings whose payment window ran out.
type Sweeper struct {
	svc      *Service
	notifier ExpiryNotifier
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
	loggerf  func(format string, args ...interface{})
}

func NewSweeper(svc *Service, notifier ExpiryNotifier, cfg SweeperConfig) *Sweeper {
	sw := &Sweeper{
		svc:      svc,
		notifier: notifier,
		interval: cfg.Interval,
		grace:    cfg.Grace,
		now:      cfg.Now,
		loggerf:  cfg.Loggerf,
	}
	if sw.interval <= 0 {
		sw.interval = time.Minute
	}
	if sw.grace < 0 {
		sw.grace = 0
	}
	if sw.now == nil {
		sw.now = svc.now
	}
	if sw.loggerf == nil {
		sw.loggerf = svc.loggerf
	}
	return sw
}

// SweepOnce expires every overdue booking. Each booking is moved with a
// conditional update first; the payment side is only told about bookings
// this tick actually expired.
func (sw *Sweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	deadline := sw.now().Add(-sw.grace).UTC()

	overdue, err := sw.svc.bookings.ListExpired(ctx, deadline)
	if err != nil {
		return res, err
	}

	for i := range overdue {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		id := overdue[i].ID

		b, changed, err := sw.svc.bookings.Expire(ctx, id, deadline)
		if err != nil {
			sw.loggerf("level=error msg=\"expire failed\" booking_id=%s err=%v", id, err)
			res.Failed = append(res.Failed, id)
			continue
		}
		if !changed {
			sw.loggerf("level=info msg=\"expire skipped\" booking_id=%s status=%s", id, b.Status)
			res.Skipped = append(res.Skipped, id)
			continue
		}

		res.Expired = append(res.Expired, id)
		sw.loggerf("level=info msg=\"booking expired\" booking_id=%s tables=%v amount=%d", id, b.TableCodes(), b.AmountDue())

		if sw.notifier != nil {
			err := sw.notifier.RecordExpired(ctx, clients.ExpiredRequest{
				BookingID: b.ID,
				UserID:    b.UserID,
				Amount:    b.AmountDue(),
			})
			if err != nil {
				sw.loggerf("level=warn msg=\"expiry notification failed\" booking_id=%s err=%v", id, err)
			}
		}
		sw.svc.emit(ctx, events.BookingExpired, b)
	}

	if len(overdue) > 0 {
		sw.loggerf("level=info msg=\"sweep done\" expired=%d skipped=%d failed=%d", len(res.Expired), len(res.Skipped), len(res.Failed))
	}
	return res, nil
}

// Start runs SweepOnce on every tick until ctx ends or the returned channel
// is closed.
func (sw *Sweeper) Start(ctx context.Context) chan struct{} {
	stopCh := make(chan struct{})

	go func() {
		ticker := time.NewTicker(sw.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := sw.SweepOnce(ctx); err != nil && ctx.Err() == nil {
					log.Printf("expiry sweep error: %v", err)
				}
			case <-stopCh:
				log.Println("expiry sweeper stopped")
				return
			case <-ctx.Done():
				log.Println("expiry sweeper stopped (context done)")
				return
			}
		}
	}()

	log.Printf("expiry sweeper started interval=%s grace=%s", sw.interval, sw.grace)
	return stopCh
}
