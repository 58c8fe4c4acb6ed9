package eastmoney

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

const (
	companyFactsFields = "f57,f58,f116,f117,f127,f162,f167,f173"
	fundFlowFields     = "f12,f13,f62,f66"
)

// CompanyFactsFor fetches the single-stock profile and valuation fields:
// industry, total and floating market cap, PE (TTM), PB, ROE.
func (c *Client) CompanyFactsFor(ctx context.Context, ticker string) (CompanyFacts, error) {
	secid, err := SecID(ticker)
	if err != nil {
		return CompanyFacts{}, err
	}

	url := fmt.Sprintf("%s?secid=%s&fltt=2&invt=2&fields=%s", c.stockURL, secid, companyFactsFields)

	body, err := c.get(ctx, url)
	if err != nil {
		return CompanyFacts{}, fmt.Errorf("failed to fetch company facts for %s: %w", ticker, err)
	}

	return parseCompanyFacts(body)
}

// FundFlowFor fetches the current session's main-force and super-large-order
// net inflows for one ticker.
func (c *Client) FundFlowFor(ctx context.Context, ticker string) (FundFlowStat, error) {
	secid, err := SecID(ticker)
	if err != nil {
		return FundFlowStat{}, err
	}

	url := fmt.Sprintf("%s?secids=%s&fields=%s&fltt=2", c.quoteURL, secid, fundFlowFields)

	body, err := c.get(ctx, url)
	if err != nil {
		return FundFlowStat{}, fmt.Errorf("failed to fetch fund flow for %s: %w", ticker, err)
	}

	return parseFundFlow(body)
}

// NewsTitlesFor fetches up to limit recent news headlines for one ticker.
func (c *Client) NewsTitlesFor(ctx context.Context, ticker string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	secid, err := SecID(ticker)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s?client=web&type=1&mTypeAndCode=%s&pageSize=%d&pageIndex=1",
		c.newsURL, secid, limit)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news for %s: %w", ticker, err)
	}

	return parseNewsTitles(body, limit)
}

func parseCompanyFacts(body []byte) (CompanyFacts, error) {
	data := gjson.GetBytes(body, "data")
	if !data.IsObject() {
		return CompanyFacts{}, fmt.Errorf("company facts response missing data")
	}

	return CompanyFacts{
		Name:     data.Get("f58").String(),
		Industry: data.Get("f127").String(),
		TotalCap: data.Get("f116").Float(),
		FloatCap: data.Get("f117").Float(),
		PETTM:    data.Get("f162").Float(),
		PB:       data.Get("f167").Float(),
		ROE:      data.Get("f173").Float(),
	}, nil
}

func parseFundFlow(body []byte) (FundFlowStat, error) {
	diff := gjson.GetBytes(body, "data.diff")
	if !diff.Exists() {
		return FundFlowStat{}, fmt.Errorf("fund flow response missing data.diff")
	}

	var stat FundFlowStat
	found := false
	diff.ForEach(func(_, v gjson.Result) bool {
		stat.MainNetInflow = v.Get("f62").Float()
		stat.SuperLargeNetInflow = v.Get("f66").Float()
		found = true
		return false // Single ticker, first row only
	})

	if !found {
		return FundFlowStat{}, fmt.Errorf("fund flow response contained no rows")
	}
	return stat, nil
}

func parseNewsTitles(body []byte, limit int) ([]string, error) {
	list := gjson.GetBytes(body, "data.list")
	if !list.Exists() {
		return nil, fmt.Errorf("news response missing data.list")
	}

	var titles []string
	list.ForEach(func(_, v gjson.Result) bool {
		title := v.Get("Art_Title").String()
		if title != "" {
			titles = append(titles, title)
		}
		return len(titles) < limit
	})

	return titles, nil
}
