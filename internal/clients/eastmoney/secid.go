package eastmoney

import (
	"fmt"
	"strings"
)

// SecID converts a prefixed ticker ("sh.600519", "sz.000001") into the
// upstream security id ("1.600519", "0.000001"). Market 1 is Shanghai,
// market 0 is Shenzhen.
func SecID(ticker string) (string, error) {
	ticker = strings.TrimSpace(ticker)
	switch {
	case strings.HasPrefix(ticker, "sh."):
		return "1." + ticker[3:], nil
	case strings.HasPrefix(ticker, "sz."):
		return "0." + ticker[3:], nil
	default:
		return "", fmt.Errorf("unrecognized ticker format: %q", ticker)
	}
}

// SecIDs converts a batch of tickers, dropping any that fail to convert.
func SecIDs(tickers []string) []string {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		secid, err := SecID(t)
		if err != nil {
			continue
		}
		out = append(out, secid)
	}
	return out
}

// Ticker builds the prefixed ticker form from an upstream market id and bare
// code.
func Ticker(market int64, code string) string {
	if market == 1 {
		return "sh." + code
	}
	return "sz." + code
}

// compactDate strips the dashes from a YYYY-MM-DD date for kline range
// parameters.
func compactDate(date string) string {
	return strings.ReplaceAll(date, "-", "")
}
