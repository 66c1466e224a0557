package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is a predicted price direction for a signal
type Direction string

const (
	DirectionBuy  Direction = "COMPRA"
	DirectionSell Direction = "VENDA"
)

// Outcome is the resolved result of a signal
type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
)

// SignalSource identifies which dispatch loop produced a signal
type SignalSource string

const (
	SourceManual    SignalSource = "manual"
	SourceAutomatic SignalSource = "automatic"
)

// HorarioLayout is the clock-time layout used by schedule entries
const HorarioLayout = "15:04"

// ScheduleEntry is a user-submitted signal scheduled for a clock time today.
// The (horario, ativo, direcao) triple is unique among pending entries.
// EntryPrice is the decimal string recorded at fire time; it is kept as a
// string so the persisted document stays readable in both JSON and BSON.
type ScheduleEntry struct {
	Horario    string    `json:"horario" bson:"horario"`
	Ativo      string    `json:"ativo" bson:"ativo"`
	Direcao    Direction `json:"direcao" bson:"direcao"`
	EntryPrice *string   `json:"preco_entrada,omitempty" bson:"preco_entrada,omitempty"`
}

// SetEntryPrice records the price captured at fire time
func (e *ScheduleEntry) SetEntryPrice(price decimal.Decimal) {
	s := price.String()
	e.EntryPrice = &s
}

// Key returns the identity triple for duplicate detection
func (e ScheduleEntry) Key() string {
	return e.Horario + "|" + e.Ativo + "|" + string(e.Direcao)
}

// FireTimeToday resolves the entry's HH:MM into an instant on now's date,
// in now's location
func (e ScheduleEntry) FireTimeToday(now time.Time) (time.Time, error) {
	t, err := time.Parse(HorarioLayout, e.Horario)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid horario %q: %w", e.Horario, err)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), nil
}

// Validate checks that all fields are present and well-formed
func (e ScheduleEntry) Validate() error {
	if e.Horario == "" || e.Ativo == "" || e.Direcao == "" {
		return fmt.Errorf("horario, ativo and direcao are required")
	}
	if _, err := time.Parse(HorarioLayout, e.Horario); err != nil {
		return fmt.Errorf("horario must be HH:MM, got %q", e.Horario)
	}
	if e.Direcao != DirectionBuy && e.Direcao != DirectionSell {
		return fmt.Errorf("direcao must be %s or %s, got %q", DirectionBuy, DirectionSell, e.Direcao)
	}
	if err := ValidateAsset(e.Ativo); err != nil {
		return err
	}
	return nil
}

// ValidateAsset checks that an asset identifier maps to a usable feed symbol
func ValidateAsset(ativo string) error {
	if strings.TrimSpace(ativo) == "" {
		return fmt.Errorf("ativo is required")
	}
	if FeedSymbol(ativo) == "" {
		return fmt.Errorf("ativo %q has no usable price-feed symbol", ativo)
	}
	return nil
}

// FeedSymbol maps an asset identifier (e.g. "BTC/USD") to the external
// price-feed symbol (e.g. "BTCUSD")
func FeedSymbol(ativo string) string {
	s := strings.ToUpper(strings.TrimSpace(ativo))
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// DeliverySignal is the in-memory unit of work handed to a delivery task.
// It lives only for the duration of one task and is never persisted.
type DeliverySignal struct {
	ID      string
	Ativo   string
	Direcao Direction
	FireAt  time.Time
	Source  SignalSource

	// Entry is the originating schedule entry for manual signals, nil for
	// automatic ones. Used to record the entry price back onto the store.
	Entry *ScheduleEntry
}

// SignalEvent is broadcast to live-feed subscribers at each lifecycle step
type SignalEvent struct {
	Type     string       `json:"type"` // signal_entry, signal_outcome, signal_aborted
	SignalID string       `json:"signal_id"`
	Ativo    string       `json:"ativo"`
	Direcao  Direction    `json:"direcao"`
	Source   SignalSource `json:"source"`
	Price    string       `json:"price,omitempty"`
	Outcome  Outcome      `json:"outcome,omitempty"`
	Message  string       `json:"message,omitempty"`
	Time     string       `json:"time"`
}
