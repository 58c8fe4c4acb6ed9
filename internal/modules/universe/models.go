// Package universe maintains the known set of listed securities and their
// daily bar history.
package universe

import (
	"strings"
	"time"
)

// Board identifies the listing board a ticker trades on.
type Board string

const (
	// BoardShanghaiMain - Shanghai main board, sh.60xxxx
	BoardShanghaiMain Board = "sh_main"
	// BoardShenzhenMain - Shenzhen main board, sz.00xxxx
	BoardShenzhenMain Board = "sz_main"
	// BoardChiNext - Shenzhen growth board, sz.30xxxx
	BoardChiNext Board = "chinext"
	// BoardOther - everything else (STAR market, B shares, funds, indices)
	BoardOther Board = ""
)

// Security is one listed name in the universe. Rows outside the scannable
// boards and ST names are stored too, flagged, so lookups by ticker always
// resolve.
type Security struct {
	UpdatedAt time.Time `json:"updated_at"`
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	Board     Board     `json:"board"`
	IsST      bool      `json:"is_st"`
}

// BoardOf classifies a ticker of the form "sh.600519" / "sz.300750".
func BoardOf(ticker string) Board {
	switch {
	case strings.HasPrefix(ticker, "sh.60"):
		return BoardShanghaiMain
	case strings.HasPrefix(ticker, "sz.00"):
		return BoardShenzhenMain
	case strings.HasPrefix(ticker, "sz.30"):
		return BoardChiNext
	default:
		return BoardOther
	}
}

// Eligible reports whether the ticker belongs to a scannable board.
func Eligible(ticker string) bool {
	return BoardOf(ticker) != BoardOther
}

// IsSpecialTreatment reports whether a listed name carries an ST risk
// warning or a delisting marker.
func IsSpecialTreatment(name string) bool {
	return strings.Contains(name, "ST") || strings.Contains(name, "退")
}

// NewSecurity builds a classified security row for the given ticker and
// listed name.
func NewSecurity(ticker, name string) Security {
	return Security{
		Ticker:    ticker,
		Name:      name,
		Board:     BoardOf(ticker),
		IsST:      IsSpecialTreatment(name),
		UpdatedAt: time.Now().UTC(),
	}
}
