package scheduler

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"go_signals_project/config"
	"go_signals_project/models"
	"go_signals_project/services"

	"github.com/go-co-op/gocron"
	"github.com/shopspring/decimal"
)

// PriceSource answers current-price lookups for the delivery tasks
type PriceSource interface {
	GetPrice(ctx context.Context, ativo string) (decimal.Decimal, error)
}

// Notifier delivers announcements to the audience channel, best-effort
type Notifier interface {
	AnnounceEntry(text string)
	AnnounceOutcome(outcome models.Outcome)
	AnnounceDiagnostic(text string)
}

// EventPublisher receives signal lifecycle events for the live feed
type EventPublisher interface {
	Publish(event models.SignalEvent)
}

// Dispatcher runs the two dispatch loops: the manual loop polling pending
// schedule entries once per minute, and the automatic loop planning random
// signals at the top of each active hour. Both run as singleton gocron jobs,
// so a pass that is still waiting on its delivery tasks suppresses the next
// tick instead of overlapping it.
type Dispatcher struct {
	cron     *gocron.Scheduler
	store    services.SignalStore
	prices   PriceSource
	notifier Notifier
	events   EventPublisher
	profile  config.DispatchProfile
	loc      *time.Location

	// Automatic-signal cooldown state, owned here rather than package-global
	// so it can be reset and tested in isolation
	cooldownMu     sync.Mutex
	lastAutoSignal time.Time

	// Seams for tests: real time and real sleeping in production. rng is
	// shared between planning passes and guarded by rngMu.
	now   func() time.Time
	sleep func(d time.Duration)
	rngMu sync.Mutex
	rng   *rand.Rand
}

// randIntn draws from the shared rng under its lock
func (d *Dispatcher) randIntn(n int) int {
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return d.rng.Intn(n)
}

// NewDispatcher creates a dispatcher; call Start to launch the loops
func NewDispatcher(store services.SignalStore, prices PriceSource, notifier Notifier, events EventPublisher, profile config.DispatchProfile, loc *time.Location) *Dispatcher {
	return &Dispatcher{
		cron:     gocron.NewScheduler(loc),
		store:    store,
		prices:   prices,
		notifier: notifier,
		events:   events,
		profile:  profile,
		loc:      loc,
		now:      time.Now,
		sleep:    time.Sleep,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start schedules both loops and runs an immediate automatic planning pass so
// a process started mid-window participates in the current hour
func (d *Dispatcher) Start() {
	log.Println("Starting signal dispatcher...")

	// Manual dispatch loop: poll-and-prune pending entries each minute
	if _, err := d.cron.Every(1).Minute().SingletonMode().Do(d.runManualPass); err != nil {
		log.Printf("Error scheduling manual dispatch loop: %v", err)
	}

	// Automatic signal loop: one planning pass at the top of each hour, plus
	// an immediate pass on start. Running the startup pass through the same
	// singleton job keeps planning passes from ever overlapping, even when a
	// pass outlives its hour waiting on a rolled-over slot.
	if _, err := d.cron.Cron("0 * * * *").SingletonMode().StartImmediately().Do(d.runAutoPass); err != nil {
		log.Printf("Error scheduling automatic signal loop: %v", err)
	}

	d.cron.StartAsync()
	log.Println("Signal dispatcher started")
}

// Stop halts both loops. In-flight delivery tasks run to completion; there is
// no cancellation for a task that has passed its fire-time check.
func (d *Dispatcher) Stop() {
	d.cron.Stop()
	log.Println("Signal dispatcher stopped")
}

// acceptAutoSignal applies the cooldown invariant at fire time. The timestamp
// advances only when a signal is accepted, under the same lock as the check,
// so two slots planned close together suppress one another.
func (d *Dispatcher) acceptAutoSignal(at time.Time) bool {
	d.cooldownMu.Lock()
	defer d.cooldownMu.Unlock()

	if !d.lastAutoSignal.IsZero() && at.Sub(d.lastAutoSignal) < d.profile.Cooldown() {
		return false
	}
	d.lastAutoSignal = at
	return true
}

// inActiveWindow reports whether automatic signals may fire at t
func (d *Dispatcher) inActiveWindow(t time.Time) bool {
	hour := t.Hour()
	return hour >= d.profile.ActiveWindowStartHour && hour < d.profile.ActiveWindowEndHour
}
