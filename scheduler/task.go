package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"go_signals_project/models"
	"go_signals_project/services"

	"github.com/shopspring/decimal"
)

// TaskState is a delivery task's lifecycle state
type TaskState string

const (
	StatePendingEntry TaskState = "pending_entry"
	StateAwaitingExit TaskState = "awaiting_exit"
	StateResolved     TaskState = "resolved"
	StateAborted      TaskState = "aborted"
)

// DeliveryTask owns one signal's full lifecycle: wait to the fire time,
// confirm the entry price, announce the entry, wait through the holding
// window, fetch the exit price, resolve and announce the outcome. Tasks are
// independent; a failure in one never affects another. A price lookup
// failure is terminal for the task's remaining steps, never retried, so no
// outcome is ever announced against a stale or estimated price.
type DeliveryTask struct {
	d      *Dispatcher
	signal models.DeliverySignal
	state  TaskState
}

func (d *Dispatcher) newTask(signal models.DeliverySignal) *DeliveryTask {
	return &DeliveryTask{d: d, signal: signal, state: StatePendingEntry}
}

// State returns the task's current lifecycle state
func (t *DeliveryTask) State() TaskState {
	return t.state
}

// Run drives the task to a terminal state and returns it
func (t *DeliveryTask) Run() TaskState {
	now := t.d.now().In(t.d.loc)
	fireAt := t.signal.FireAt

	// Never fire late: a fire time already elapsed at creation aborts
	// without side effects
	if !fireAt.After(now) {
		log.Printf("Task %s: fire time %s already elapsed, aborting", t.signal.ID, fireAt.Format(models.HorarioLayout))
		t.state = StateAborted
		return t.state
	}

	// Manual entries keep a minimum lead to the entry announcement; an entry
	// inside that offset is pushed to now + lead
	if t.signal.Source == models.SourceManual && fireAt.Sub(now) < t.d.profile.EntryLead() {
		fireAt = now.Add(t.d.profile.EntryLead())
	}

	t.d.sleep(fireAt.Sub(t.d.now().In(t.d.loc)))

	// Automatic signals re-check the cooldown at fire time, after the wait
	if t.signal.Source == models.SourceAutomatic && !t.d.acceptAutoSignal(t.d.now().In(t.d.loc)) {
		log.Printf("Task %s: %s suppressed by cooldown", t.signal.ID, t.signal.Ativo)
		t.state = StateAborted
		return t.state
	}

	entryPrice, err := t.d.prices.GetPrice(context.Background(), t.signal.Ativo)
	if err != nil {
		t.abort("entry", err)
		return t.state
	}

	if t.signal.Entry != nil {
		if err := t.d.store.RecordEntryPrice(*t.signal.Entry, entryPrice); err != nil {
			// Non-fatal: the in-memory price still drives the outcome
			log.Printf("Task %s: error recording entry price: %v", t.signal.ID, err)
		}
	}

	t.d.notifier.AnnounceEntry(t.entryMessage(fireAt, entryPrice))
	t.publish("signal_entry", entryPrice.String(), "", "")
	t.state = StateAwaitingExit

	t.d.sleep(t.d.profile.HoldingWindow())

	exitPrice, err := t.d.prices.GetPrice(context.Background(), t.signal.Ativo)
	if err != nil {
		t.abort("exit", err)
		return t.state
	}

	outcome := services.ResolveOutcome(entryPrice, exitPrice, t.signal.Direcao)
	t.d.notifier.AnnounceOutcome(outcome)
	t.publish("signal_outcome", exitPrice.String(), outcome, "")
	t.state = StateResolved

	log.Printf("Task %s: %s %s resolved %s (entry %s, exit %s)",
		t.signal.ID, t.signal.Ativo, t.signal.Direcao, outcome, entryPrice, exitPrice)
	return t.state
}

// abort terminates the task after a failed price lookup, announcing a
// diagnostic instead of guessing an outcome
func (t *DeliveryTask) abort(edge string, err error) {
	log.Printf("Task %s: %s price lookup failed: %v", t.signal.ID, edge, err)
	t.d.notifier.AnnounceDiagnostic(fmt.Sprintf("⚠️ Could not verify the %s price for %s. No result for this signal.", edge, t.signal.Ativo))
	t.publish("signal_aborted", "", "", fmt.Sprintf("%s price unavailable", edge))
	t.state = StateAborted
}

func (t *DeliveryTask) entryMessage(fireAt time.Time, entryPrice decimal.Decimal) string {
	direction := "🟢 BUY"
	if t.signal.Direcao == models.DirectionSell {
		direction = "🔴 SELL"
	}

	return fmt.Sprintf(`📊 *SIGNAL CONFIRMED*

🥇 *Asset* = %s
💵 *Price* = %s
⏰ *Expiry* = 1 minute
📌 *Entry* = %s

%s

⚠️ *Protection 1:* %s
⚠️ *Protection 2:* %s`,
		t.signal.Ativo,
		entryPrice.String(),
		fireAt.Format(models.HorarioLayout),
		direction,
		fireAt.Add(1*time.Minute).Format(models.HorarioLayout),
		fireAt.Add(2*time.Minute).Format(models.HorarioLayout),
	)
}

func (t *DeliveryTask) publish(eventType, price string, outcome models.Outcome, message string) {
	if t.d.events == nil {
		return
	}
	t.d.events.Publish(models.SignalEvent{
		Type:     eventType,
		SignalID: t.signal.ID,
		Ativo:    t.signal.Ativo,
		Direcao:  t.signal.Direcao,
		Source:   t.signal.Source,
		Price:    price,
		Outcome:  outcome,
		Message:  message,
		Time:     t.d.now().In(t.d.loc).Format(time.RFC3339),
	})
}
