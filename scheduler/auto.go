package scheduler

import (
	"log"
	"sort"
	"sync"
	"time"

	"go_signals_project/models"

	"github.com/google/uuid"
)

// runAutoPass executes one planning pass of the automatic signal loop. It
// draws a random number of fire slots within the current hour, rolls slots
// whose minute has already elapsed into the next hour, and launches a
// delivery task per slot. The cooldown invariant is checked by each task at
// fire time, not here, so close slots can still suppress one another.
func (d *Dispatcher) runAutoPass() {
	now := d.now().In(d.loc)

	if !d.inActiveWindow(now) {
		return
	}

	assets, err := d.store.ListAssets()
	if err != nil {
		log.Printf("Auto pass: error reading assets: %v", err)
		return
	}
	if len(assets) == 0 {
		log.Println("Auto pass: no assets configured, skipping hour")
		return
	}

	attempts := d.profile.AutoSignalsMin
	if spread := d.profile.AutoSignalsMax - d.profile.AutoSignalsMin; spread > 0 {
		attempts += d.randIntn(spread + 1)
	}

	fireTimes := d.planAutoSlots(now, attempts)
	log.Printf("Auto pass: planned %d signal slots for hour %02d:00", len(fireTimes), now.Hour())

	var wg sync.WaitGroup
	for _, fireAt := range fireTimes {
		direcao := models.DirectionBuy
		if d.randIntn(2) == 1 {
			direcao = models.DirectionSell
		}

		signal := models.DeliverySignal{
			ID:      uuid.NewString(),
			Ativo:   assets[d.randIntn(len(assets))],
			Direcao: direcao,
			FireAt:  fireAt,
			Source:  models.SourceAutomatic,
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			d.newTask(signal).Run()
		}()
	}

	wg.Wait()
}

// planAutoSlots draws attempt fire times at random minutes of now's hour,
// rolling elapsed minutes into the next hour, sorted ascending
func (d *Dispatcher) planAutoSlots(now time.Time, attempts int) []time.Time {
	hourStart := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location())

	slots := make([]time.Time, 0, attempts)
	for i := 0; i < attempts; i++ {
		fireAt := hourStart.Add(time.Duration(d.randIntn(60)) * time.Minute)
		if !fireAt.After(now) {
			fireAt = fireAt.Add(time.Hour)
		}
		slots = append(slots, fireAt)
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return slots
}
