package domain

import "time"

// CompanyProfile holds basic listing facts about a company.
// Values are raw strings from the upstream source; "" means unavailable.
type CompanyProfile struct {
	Industry             string `json:"industry"`
	TotalMarketCap       string `json:"total_market_cap"`
	CirculatingMarketCap string `json:"circulating_market_cap"`
}

// ValuationSnapshot holds the latest valuation multiples when available
type ValuationSnapshot struct {
	PERatio string `json:"pe_ratio"`
	PBRatio string `json:"pb_ratio"`
	ROE     string `json:"roe"`
}

// FundFlow holds the most recent session's money-flow figures
type FundFlow struct {
	MainNetInflow       string `json:"main_net_inflow"`
	SuperLargeNetInflow string `json:"super_large_net_inflow"`
}

// Enrichment aggregates the best-effort secondary-source lookups for one
// ticker. Each block defaults to its zero value when its lookup fails;
// nothing is ever fabricated.
type Enrichment struct {
	CompanyProfile CompanyProfile    `json:"company_profile"`
	Valuation      ValuationSnapshot `json:"financial_indicators"`
	RecentNews     []string          `json:"recent_news"`
	FundFlow       FundFlow          `json:"fund_flow"`
}

// AnalyzedOpportunity is an opportunity after enrichment and AI commentary,
// the unit persisted into the results document and pushed to the dashboard
type AnalyzedOpportunity struct {
	Opportunity
	Enrichment *Enrichment `json:"enrichment,omitempty"`
	AIAnalysis string      `json:"ai_analysis"`
}

// ScanResult is the persisted artifact of one scan cycle. CycleID ties the
// document to the cycle's log lines.
type ScanResult struct {
	CycleID          string                `json:"cycle_id"`
	GeneratedAt      time.Time             `json:"generated_at"`
	NewOpportunities []AnalyzedOpportunity `json:"new_opportunities"`
	SellAlerts       []SellAlert           `json:"sell_alerts"`
}
