package eastmoney

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/minqi/alphahunter/internal/domain"
)

const (
	// shanghaiIndexSecID anchors the trading calendar; the exchange index
	// has a bar for every session since listing.
	shanghaiIndexSecID = "1.000001"

	// listFS selects the four A-share groups: Shenzhen main, ChiNext,
	// Shanghai main, STAR.
	listFS = "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23"

	listPageSize  = 500
	maxQuoteBatch = 100

	// sharesPerHand scales upstream volumes, which arrive in hands.
	sharesPerHand = 100

	// klineEndCap keeps range requests open-ended on the right.
	klineEndCap = "20500101"
)

// klineFields2 yields comma-joined rows of
// date,open,close,high,low,volume,amount,amplitude,pctchg,change,turnover.
const klineFields2 = "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61"

// quoteFields covers price, session OHLC, volume, amount, identity and the
// previous close.
const quoteFields = "f2,f5,f6,f12,f13,f14,f15,f16,f17,f18"

// TradingDates returns the most recent count trading dates in chronological
// order, derived from the exchange index's daily bars.
func (c *Client) TradingDates(ctx context.Context, count int) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("invalid trading date count: %d", count)
	}

	url := fmt.Sprintf(
		"%s?secid=%s&klt=101&fqt=0&lmt=%d&end=%s&fields1=f1,f2,f3,f4,f5,f6&fields2=f51",
		c.klineURL, shanghaiIndexSecID, count, klineEndCap)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trading calendar: %w", err)
	}

	return parseTradingDates(body)
}

// ListSecurities scans the full A-share listing, page by page.
func (c *Client) ListSecurities(ctx context.Context) ([]Listing, error) {
	var all []Listing
	page := 1
	for {
		url := fmt.Sprintf("%s?pn=%d&pz=%d&po=0&np=1&fltt=2&invt=2&fid=f12&fs=%s&fields=f12,f13,f14",
			c.listURL, page, listPageSize, listFS)

		body, err := c.get(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch listing page %d: %w", page, err)
		}

		listings, total, err := parseListings(body)
		if err != nil {
			return nil, err
		}
		if len(listings) == 0 {
			break
		}

		all = append(all, listings...)
		if len(all) >= total || len(listings) < listPageSize {
			break
		}
		page++
	}

	c.log.Debug().Int("count", len(all)).Msg("Listed securities")
	return all, nil
}

// QuoteBatch fetches live quotes for up to 100 tickers in one request.
// Tickers the upstream does not echo back are simply absent from the result.
func (c *Client) QuoteBatch(ctx context.Context, tickers []string) ([]Quote, error) {
	if len(tickers) == 0 {
		return nil, nil
	}
	if len(tickers) > maxQuoteBatch {
		return nil, fmt.Errorf("quote batch of %d exceeds the %d ticker limit", len(tickers), maxQuoteBatch)
	}

	secids := SecIDs(tickers)
	if len(secids) == 0 {
		return nil, fmt.Errorf("no valid tickers in batch")
	}

	url := fmt.Sprintf("%s?secids=%s&fields=%s&fltt=2&invt=2",
		c.quoteURL, strings.Join(secids, ","), quoteFields)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes: %w", err)
	}

	return parseQuotes(body)
}

// DailyBars fetches forward-adjusted daily bars for one ticker. beg and end
// are YYYY-MM-DD dates; an empty end leaves the range open-ended.
func (c *Client) DailyBars(ctx context.Context, ticker, beg, end string) ([]domain.PriceBar, error) {
	secid, err := SecID(ticker)
	if err != nil {
		return nil, err
	}

	endParam := klineEndCap
	if end != "" {
		endParam = compactDate(end)
	}
	url := fmt.Sprintf(
		"%s?secid=%s&klt=101&fqt=1&beg=%s&end=%s&fields1=f1,f2,f3,f4,f5,f6&fields2=%s",
		c.klineURL, secid, compactDate(beg), endParam, klineFields2)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily bars for %s: %w", ticker, err)
	}

	return parseKlines(body, ticker)
}

func parseTradingDates(body []byte) ([]string, error) {
	klines := gjson.GetBytes(body, "data.klines")
	if !klines.Exists() {
		return nil, fmt.Errorf("calendar response missing data.klines")
	}

	var dates []string
	klines.ForEach(func(_, v gjson.Result) bool {
		// Rows may carry extra columns; the date is always first
		date := strings.SplitN(v.String(), ",", 2)[0]
		if date != "" {
			dates = append(dates, date)
		}
		return true
	})

	if len(dates) == 0 {
		return nil, fmt.Errorf("calendar response contained no dates")
	}
	return dates, nil
}

func parseListings(body []byte) ([]Listing, int, error) {
	data := gjson.GetBytes(body, "data")
	if !data.Exists() {
		return nil, 0, fmt.Errorf("listing response missing data")
	}

	total := int(data.Get("total").Int())

	var listings []Listing
	// diff arrives as an array or as an object keyed "0","1",... depending
	// on the upstream's mood; ForEach walks both
	data.Get("diff").ForEach(func(_, v gjson.Result) bool {
		code := v.Get("f12").String()
		if code == "" {
			return true
		}
		listings = append(listings, Listing{
			Ticker: Ticker(v.Get("f13").Int(), code),
			Name:   v.Get("f14").String(),
		})
		return true
	})

	return listings, total, nil
}

func parseQuotes(body []byte) ([]Quote, error) {
	diff := gjson.GetBytes(body, "data.diff")
	if !diff.Exists() {
		return nil, fmt.Errorf("quote response missing data.diff")
	}

	var quotes []Quote
	diff.ForEach(func(_, v gjson.Result) bool {
		code := v.Get("f12").String()
		if code == "" {
			return true
		}
		quotes = append(quotes, Quote{
			Ticker:   Ticker(v.Get("f13").Int(), code),
			Name:     v.Get("f14").String(),
			Price:    v.Get("f2").Float(),
			Preclose: v.Get("f18").Float(),
			Open:     v.Get("f17").Float(),
			High:     v.Get("f15").Float(),
			Low:      v.Get("f16").Float(),
			Amount:   v.Get("f6").Float(),
			Volume:   v.Get("f5").Int() * sharesPerHand,
		})
		return true
	})

	return quotes, nil
}

func parseKlines(body []byte, ticker string) ([]domain.PriceBar, error) {
	klines := gjson.GetBytes(body, "data.klines")
	if !klines.Exists() {
		return nil, fmt.Errorf("kline response for %s missing data.klines", ticker)
	}

	var bars []domain.PriceBar
	klines.ForEach(func(_, v gjson.Result) bool {
		parts := strings.Split(strings.TrimSpace(v.String()), ",")
		if len(parts) < 11 {
			return true
		}

		open, _ := strconv.ParseFloat(parts[1], 64)
		closeVal, _ := strconv.ParseFloat(parts[2], 64)
		high, _ := strconv.ParseFloat(parts[3], 64)
		low, _ := strconv.ParseFloat(parts[4], 64)
		volume, _ := strconv.ParseInt(parts[5], 10, 64)
		amount, _ := strconv.ParseFloat(parts[6], 64)
		pctChg, _ := strconv.ParseFloat(parts[8], 64)
		change, _ := strconv.ParseFloat(parts[9], 64)
		turn, _ := strconv.ParseFloat(parts[10], 64)

		bars = append(bars, domain.PriceBar{
			Date:        parts[0],
			Open:        open,
			High:        high,
			Low:         low,
			Close:       closeVal,
			Preclose:    closeVal - change,
			Volume:      volume * sharesPerHand,
			Amount:      amount,
			Turn:        turn,
			PctChg:      pctChg,
			TradeStatus: domain.TradeStatusTradable,
		})
		return true
	})

	if len(bars) == 0 {
		return nil, fmt.Errorf("no daily bars for %s", ticker)
	}
	return bars, nil
}
