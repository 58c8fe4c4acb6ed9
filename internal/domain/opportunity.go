package domain

// OpportunityKind discriminates the strategy-specific payload carried by an
// opportunity. Exactly one payload branch is populated per kind.
type OpportunityKind string

const (
	// KindBoxBreakout - consolidation box broken on price and volume
	KindBoxBreakout OpportunityKind = "box_breakout"
	// KindMACrossover - short rolling average crossed above the long one
	KindMACrossover OpportunityKind = "ma_crossover"
)

// BreakoutDetails is the payload of a box-breakout opportunity
type BreakoutDetails struct {
	BoxHigh           float64 `json:"box_high"`
	BoxLow            float64 `json:"box_low"`
	ConsolidationDays int     `json:"consolidation_period_days"`
	AvgVolume         float64 `json:"consolidation_avg_volume"`
	BreakoutVolume    int64   `json:"breakout_volume"`
}

// CrossoverDetails is the payload of a moving-average crossover opportunity
type CrossoverDetails struct {
	ShortWindow int     `json:"short_window"`
	LongWindow  int     `json:"long_window"`
	ShortMA     float64 `json:"short_ma"`
	LongMA      float64 `json:"long_ma"`
}

// Opportunity is one strategy's signal for one ticker on one session.
//
// The common header identifies the signal; the kind selects which payload
// branch is set, so downstream consumers can handle each strategy's shape
// exhaustively. The evaluated history rides along for report generation but
// is never serialized.
//
// Opportunities are created fresh each scan cycle and never mutated. The
// strategy name is always one of the registered detectors; the signal date
// is the most recent bar's date in the evaluated window.
type Opportunity struct {
	Ticker      string          `json:"ticker"`
	Strategy    string          `json:"strategy_name"`
	Kind        OpportunityKind `json:"kind"`
	SignalDate  string          `json:"signal_date"`
	Description string          `json:"description"`
	SignalPrice float64         `json:"signal_price"`

	Breakout  *BreakoutDetails  `json:"breakout,omitempty"`
	Crossover *CrossoverDetails `json:"crossover,omitempty"`

	// History is the full evaluated window, for downstream report
	// generation only. A raw history is not JSON-safe at results scale,
	// so it is excluded from serialization.
	History *TickerHistory `json:"-"`
}
