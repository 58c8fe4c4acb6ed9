// Package domain provides core domain models and types.
package domain

import (
	"sort"
	"time"
)

// TradeStatusTradable is the trade-status flag of a bar that belongs to a
// live trading session. Bars with any other status (suspension, halt) are
// excluded from all scans.
const TradeStatusTradable = 1

// PriceBar represents one trading session for one ticker.
// Bars are immutable once fetched.
type PriceBar struct {
	Date        string   `json:"date"` // Calendar date, YYYY-MM-DD
	Open        float64  `json:"open"`
	High        float64  `json:"high"`
	Low         float64  `json:"low"`
	Close       float64  `json:"close"`
	Preclose    float64  `json:"preclose"`
	Volume      int64    `json:"volume"` // Shares
	Amount      float64  `json:"amount"` // Turnover in currency
	Turn        float64  `json:"turn"`   // Turnover rate percent
	PctChg      float64  `json:"pct_chg"`
	TradeStatus int      `json:"trade_status"`
	PETTM       *float64 `json:"pe_ttm,omitempty"`
	PBMRQ       *float64 `json:"pb_mrq,omitempty"`
	PSTTM       *float64 `json:"ps_ttm,omitempty"`
	PCFNcfTTM   *float64 `json:"pcf_ncf_ttm,omitempty"`
}

// Tradable reports whether the bar belongs to a live trading session
func (b PriceBar) Tradable() bool {
	return b.TradeStatus == TradeStatusTradable
}

// TickerHistory is a chronologically ordered sequence of price bars for one
// ticker, unique by (ticker, date). Scans operate on the trailing N bars.
type TickerHistory struct {
	Ticker string     `json:"ticker"`
	Bars   []PriceBar `json:"bars"`
}

// Len returns the number of bars in the history
func (h TickerHistory) Len() int {
	return len(h.Bars)
}

// Last returns the most recent bar, or nil for an empty history
func (h TickerHistory) Last() *PriceBar {
	if len(h.Bars) == 0 {
		return nil
	}
	return &h.Bars[len(h.Bars)-1]
}

// Tail returns a history holding the trailing n bars (all bars when the
// history is shorter than n)
func (h TickerHistory) Tail(n int) TickerHistory {
	if n >= len(h.Bars) {
		return h
	}
	return TickerHistory{Ticker: h.Ticker, Bars: h.Bars[len(h.Bars)-n:]}
}

// Tradable returns a history holding only bars from live trading sessions
func (h TickerHistory) Tradable() TickerHistory {
	bars := make([]PriceBar, 0, len(h.Bars))
	for _, b := range h.Bars {
		if b.Tradable() {
			bars = append(bars, b)
		}
	}
	return TickerHistory{Ticker: h.Ticker, Bars: bars}
}

// Closes returns the closing prices in chronological order
func (h TickerHistory) Closes() []float64 {
	out := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = b.Close
	}
	return out
}

// Volumes returns the session volumes in chronological order
func (h TickerHistory) Volumes() []float64 {
	out := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = float64(b.Volume)
	}
	return out
}

// SnapshotRow is one ticker's line in the present-moment market snapshot.
// Open, High and Low track the running session so the row can stand in for
// the day's bar while the session is live.
type SnapshotRow struct {
	Ticker    string  `json:"ticker"`
	Name      string  `json:"name"`
	Date      string  `json:"date"` // Session date, YYYY-MM-DD
	Price     float64 `json:"price"`
	Preclose  float64 `json:"preclose"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	ChangePct float64 `json:"change_pct"`
	Amount    float64 `json:"amount"`
	Volume    int64   `json:"volume"`
}

// Bar converts the row into the current session's price bar
func (r SnapshotRow) Bar() PriceBar {
	return PriceBar{
		Date:        r.Date,
		Open:        r.Open,
		High:        r.High,
		Low:         r.Low,
		Close:       r.Price,
		Preclose:    r.Preclose,
		Volume:      r.Volume,
		Amount:      r.Amount,
		PctChg:      r.ChangePct,
		TradeStatus: TradeStatusTradable,
	}
}

// MarketSnapshot is the present-moment price table for the eligible ticker
// universe, keyed to the session it was taken in.
type MarketSnapshot struct {
	TakenAt  time.Time     `json:"taken_at"`
	Date     string        `json:"date"`      // Current session date
	PrevDate string        `json:"prev_date"` // Prior session date
	Rows     []SnapshotRow `json:"rows"`
}

// Empty reports whether the snapshot carries no price rows
func (s MarketSnapshot) Empty() bool {
	return len(s.Rows) == 0
}

// Row returns the snapshot line for one ticker
func (s MarketSnapshot) Row(ticker string) (SnapshotRow, bool) {
	for _, r := range s.Rows {
		if r.Ticker == ticker {
			return r, true
		}
	}
	return SnapshotRow{}, false
}

// TopMovers returns up to n rows ordered by percent change, strongest first.
// Ties keep the snapshot's own ordering.
func (s MarketSnapshot) TopMovers(n int) []SnapshotRow {
	movers := make([]SnapshotRow, len(s.Rows))
	copy(movers, s.Rows)
	sort.SliceStable(movers, func(i, j int) bool {
		return movers[i].ChangePct > movers[j].ChangePct
	})
	if n > 0 && n < len(movers) {
		movers = movers[:n]
	}
	return movers
}

// PositionStatus represents the lifecycle state of a position
type PositionStatus string

const (
	// PositionOpen - the position is held and subject to exit-rule checks
	PositionOpen PositionStatus = "OPEN"
	// PositionClosed - terminal state, never reopened
	PositionClosed PositionStatus = "CLOSED"
)

// Position represents a recorded holding in the ledger.
// Status transitions OPEN to CLOSED only, via the portfolio service or
// manual intervention; the exit evaluator itself never writes.
type Position struct {
	CreatedAt time.Time      `json:"created_at"`
	ClosedAt  *time.Time     `json:"closed_at,omitempty"`
	Ticker    string         `json:"ticker"`
	Status    PositionStatus `json:"status"`
	ID        int64          `json:"id"`
	Shares    int64          `json:"shares"`
	BuyPrice  float64        `json:"buy_price"`
}

// ExitReason identifies which exit rule fired
type ExitReason string

const (
	ExitReasonNone       ExitReason = ""
	ExitReasonStopLoss   ExitReason = "stop-loss"
	ExitReasonTakeProfit ExitReason = "take-profit"
)

// ExitSignal is the transient decision record of one exit-rule evaluation.
// It is immediately converted into a close plus an alert, never persisted.
type ExitSignal struct {
	Reason      ExitReason `json:"reason"`
	Triggered   bool       `json:"triggered"`
	ProfitRatio float64    `json:"profit_ratio"`
}

// SellAlert is the alert payload emitted when an exit rule fires
type SellAlert struct {
	Ticker    string     `json:"ticker"`
	Reason    ExitReason `json:"reason"`
	BuyPrice  float64    `json:"buy_price"`
	SellPrice float64    `json:"sell_price"`
	ProfitPct float64    `json:"profit_pct"`
}
