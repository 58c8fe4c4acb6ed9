package portfolio

import "github.com/minqi/alphahunter/internal/domain"

const (
	defaultStopLoss   = -0.05
	defaultTakeProfit = 0.10
)

// ExitRules holds the profit-ratio thresholds the evaluator checks open
// positions against. StopLoss is negative, TakeProfit positive.
type ExitRules struct {
	StopLoss   float64
	TakeProfit float64
}

// NewExitRules creates exit rules, falling back to the defaults for
// thresholds on the wrong side of zero.
func NewExitRules(stopLoss, takeProfit float64) ExitRules {
	if stopLoss >= 0 {
		stopLoss = defaultStopLoss
	}
	if takeProfit <= 0 {
		takeProfit = defaultTakeProfit
	}
	return ExitRules{StopLoss: stopLoss, TakeProfit: takeProfit}
}

// Evaluate checks one position against the current price and returns the
// resulting signal. Stop-loss takes precedence over take-profit. The
// evaluation is read-only; acting on the signal is the caller's job.
func (rules ExitRules) Evaluate(position domain.Position, currentPrice float64) domain.ExitSignal {
	if position.BuyPrice <= 0 || currentPrice <= 0 {
		return domain.ExitSignal{}
	}

	ratio := (currentPrice - position.BuyPrice) / position.BuyPrice

	switch {
	case ratio <= rules.StopLoss:
		return domain.ExitSignal{Reason: domain.ExitReasonStopLoss, Triggered: true, ProfitRatio: ratio}
	case ratio >= rules.TakeProfit:
		return domain.ExitSignal{Reason: domain.ExitReasonTakeProfit, Triggered: true, ProfitRatio: ratio}
	default:
		return domain.ExitSignal{ProfitRatio: ratio}
	}
}
