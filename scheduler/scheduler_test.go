package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go_signals_project/config"
	"go_signals_project/models"

	"github.com/shopspring/decimal"
)

// fakeClock drives the dispatcher's now/sleep seams so tasks run instantly
// while the observed time still advances through waits
type fakeClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *fakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.cur = c.cur.Add(d)
	c.mu.Unlock()
}

type priceResult struct {
	price decimal.Decimal
	err   error
}

// fakePrices answers GetPrice from a queue of canned results
type fakePrices struct {
	mu      sync.Mutex
	results []priceResult
	calls   int
}

func (p *fakePrices) GetPrice(ctx context.Context, ativo string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if len(p.results) == 0 {
		return decimal.Zero, nil
	}
	res := p.results[0]
	p.results = p.results[1:]
	return res.price, res.err
}

func (p *fakePrices) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeNotifier records every announcement
type fakeNotifier struct {
	mu          sync.Mutex
	entries     []string
	outcomes    []models.Outcome
	diagnostics []string
}

func (n *fakeNotifier) AnnounceEntry(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, text)
}

func (n *fakeNotifier) AnnounceOutcome(outcome models.Outcome) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outcomes = append(n.outcomes, outcome)
}

func (n *fakeNotifier) AnnounceDiagnostic(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.diagnostics = append(n.diagnostics, text)
}

// fakeStore is an in-memory SignalStore
type fakeStore struct {
	mu       sync.Mutex
	assets   []string
	entries  []models.ScheduleEntry
	recorded map[string]decimal.Decimal
}

func newFakeStore(assets []string, entries []models.ScheduleEntry) *fakeStore {
	return &fakeStore{assets: assets, entries: entries, recorded: make(map[string]decimal.Decimal)}
}

func (s *fakeStore) ListAssets() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.assets...), nil
}

func (s *fakeStore) AddAsset(ativo string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets = append(s.assets, ativo)
	return s.assets, nil
}

func (s *fakeStore) ListPendingEntries() ([]models.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ScheduleEntry{}, s.entries...), nil
}

func (s *fakeStore) AddEntry(entry models.ScheduleEntry) ([]models.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return s.entries, nil
}

func (s *fakeStore) PrunePendingEntries(keep func(models.ScheduleEntry) bool) ([]models.ScheduleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]models.ScheduleEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if keep(entry) {
			kept = append(kept, entry)
		}
	}
	s.entries = kept
	return append([]models.ScheduleEntry{}, kept...), nil
}

func (s *fakeStore) RecordEntryPrice(entry models.ScheduleEntry, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded[entry.Key()] = price
	return nil
}

func (s *fakeStore) pending() []models.ScheduleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ScheduleEntry{}, s.entries...)
}

func testProfile() config.DispatchProfile {
	profile := config.DefaultProfile()
	profile.HoldingWindowMinutes = 6
	return profile
}

// newTestDispatcher wires a dispatcher onto fakes and a fake clock starting
// at start
func newTestDispatcher(start time.Time, profile config.DispatchProfile, store *fakeStore, prices *fakePrices, notifier *fakeNotifier) (*Dispatcher, *fakeClock) {
	clock := &fakeClock{cur: start}
	d := NewDispatcher(store, prices, notifier, nil, profile, time.UTC)
	d.now = clock.Now
	d.sleep = clock.Sleep
	d.rng = rand.New(rand.NewSource(1))
	return d, clock
}
