package services

import (
	"go_signals_project/models"

	"github.com/shopspring/decimal"
)

// ResolveOutcome computes the result of a signal from its entry and exit
// prices. BUY wins when the exit price is strictly above the entry price,
// SELL wins when it is strictly below. Equal prices are a LOSS either way;
// there is no draw state.
func ResolveOutcome(entryPrice, exitPrice decimal.Decimal, direcao models.Direction) models.Outcome {
	switch direcao {
	case models.DirectionBuy:
		if exitPrice.GreaterThan(entryPrice) {
			return models.OutcomeWin
		}
	case models.DirectionSell:
		if exitPrice.LessThan(entryPrice) {
			return models.OutcomeWin
		}
	}
	return models.OutcomeLoss
}
