package eastmoney

// Listing is one row of the exchange listing scan.
type Listing struct {
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

// Quote is one ticker's live quote. Price and Preclose are zero when the
// upstream reports the name as suspended or otherwise priceless, and Volume
// is the session's cumulative traded shares. Open, High and Low track the
// running session so a quote can stand in for the day's bar mid-session.
type Quote struct {
	Ticker   string  `json:"ticker"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Preclose float64 `json:"preclose"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Amount   float64 `json:"amount"`
	Volume   int64   `json:"volume"`
}

// CompanyFacts holds the single-stock profile and valuation fields. Zero
// values mean the upstream did not report the field.
type CompanyFacts struct {
	Name     string  `json:"name"`
	Industry string  `json:"industry"`
	TotalCap float64 `json:"total_cap"`
	FloatCap float64 `json:"float_cap"`
	PETTM    float64 `json:"pe_ttm"`
	PB       float64 `json:"pb"`
	ROE      float64 `json:"roe"`
}

// FundFlowStat holds the most recent session's money-flow figures in yuan.
type FundFlowStat struct {
	MainNetInflow       float64 `json:"main_net_inflow"`
	SuperLargeNetInflow float64 `json:"super_large_net_inflow"`
}
