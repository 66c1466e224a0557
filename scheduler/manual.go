package scheduler

import (
	"log"
	"sync"

	"go_signals_project/models"

	"github.com/google/uuid"
)

// runManualPass executes one poll-and-prune pass of the manual dispatch loop.
// Partitioning and persisting happen in a single store operation under the
// store lock, so an entry submitted while the pass runs lands either before
// the prune (and is considered) or after it (and stays pending for the next
// pass), never inside the cycle where a stale snapshot could erase it. The
// pass then waits for its tasks, so an entry is handed to at most one task.
func (d *Dispatcher) runManualPass() {
	now := d.now().In(d.loc)

	retained, err := d.store.PrunePendingEntries(func(entry models.ScheduleEntry) bool {
		fireAt, err := entry.FireTimeToday(now)
		if err != nil {
			log.Printf("Manual pass: dropping unparsable entry %s: %v", entry.Key(), err)
			return false
		}
		// Fired or missed today, prune
		return fireAt.After(now)
	})
	if err != nil {
		log.Printf("Manual pass: error pruning pending entries: %v", err)
		return
	}

	var wg sync.WaitGroup
	for _, entry := range retained {
		fireAt, err := entry.FireTimeToday(now)
		if err != nil {
			continue
		}

		originating := entry
		signal := models.DeliverySignal{
			ID:      uuid.NewString(),
			Ativo:   entry.Ativo,
			Direcao: entry.Direcao,
			FireAt:  fireAt,
			Source:  models.SourceManual,
			Entry:   &originating,
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			d.newTask(signal).Run()
		}()
	}

	if len(retained) > 0 {
		log.Printf("Manual pass: dispatched %d pending entries", len(retained))
	}

	wg.Wait()
}
