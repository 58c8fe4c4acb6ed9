package eastmoney

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKlines(t *testing.T) {
	body := []byte(`{"data":{"code":"600519","klines":[
		"2024-01-02,10.00,10.50,10.80,9.90,23456,24690000.00,9.00,5.00,0.50,1.23",
		"2024-01-03,10.50,10.20,10.60,10.10,12000,12500000.00,4.76,-2.86,-0.30,0.65"
	]}}`)

	bars, err := parseKlines(body, "sh.600519")
	require.NoError(t, err)
	require.Len(t, bars, 2)

	first := bars[0]
	assert.Equal(t, "2024-01-02", first.Date)
	assert.Equal(t, 10.00, first.Open)
	assert.Equal(t, 10.50, first.Close)
	assert.Equal(t, 10.80, first.High)
	assert.Equal(t, 9.90, first.Low)
	assert.Equal(t, int64(2345600), first.Volume) // Hands scaled to shares
	assert.Equal(t, 24690000.00, first.Amount)
	assert.Equal(t, 5.00, first.PctChg)
	assert.InDelta(t, 10.00, first.Preclose, 1e-9) // close minus change
	assert.Equal(t, 1.23, first.Turn)
	assert.True(t, first.Tradable())

	assert.InDelta(t, 10.50, bars[1].Preclose, 1e-9)
}

func TestParseKlines_Errors(t *testing.T) {
	_, err := parseKlines([]byte(`{"data":null}`), "sh.600519")
	require.Error(t, err)

	_, err = parseKlines([]byte(`{"data":{"klines":[]}}`), "sh.600519")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no daily bars")
}

func TestParseQuotes(t *testing.T) {
	body := []byte(`{"data":{"diff":[
		{"f2":11.52,"f5":12345,"f6":142179840.0,"f12":"600519","f13":1,"f14":"贵州茅台",
		 "f15":11.60,"f16":11.18,"f17":11.25,"f18":11.20},
		{"f2":"-","f5":0,"f12":"000001","f13":0,"f14":"平安银行","f18":10.00}
	]}}`)

	quotes, err := parseQuotes(body)
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	assert.Equal(t, "sh.600519", quotes[0].Ticker)
	assert.Equal(t, "贵州茅台", quotes[0].Name)
	assert.Equal(t, 11.52, quotes[0].Price)
	assert.Equal(t, 11.20, quotes[0].Preclose)
	assert.Equal(t, 11.60, quotes[0].High)
	assert.Equal(t, 11.18, quotes[0].Low)
	assert.Equal(t, 11.25, quotes[0].Open)
	assert.Equal(t, 142179840.0, quotes[0].Amount)
	assert.Equal(t, int64(1234500), quotes[0].Volume)

	// Suspended names come back with a dash price; it parses to zero and
	// the caller filters it out
	assert.Equal(t, "sz.000001", quotes[1].Ticker)
	assert.Equal(t, 0.0, quotes[1].Price)
}

func TestParseQuotes_DiffAsObject(t *testing.T) {
	body := []byte(`{"data":{"diff":{
		"0":{"f2":10.10,"f5":500,"f12":"000001","f13":0,"f14":"平安银行","f18":10.00}
	}}}`)

	quotes, err := parseQuotes(body)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "sz.000001", quotes[0].Ticker)
	assert.Equal(t, int64(50000), quotes[0].Volume)
}

func TestParseListings(t *testing.T) {
	body := []byte(`{"data":{"total":3,"diff":[
		{"f12":"600519","f13":1,"f14":"贵州茅台"},
		{"f12":"300750","f13":0,"f14":"宁德时代"},
		{"f12":"","f13":0,"f14":"ghost"}
	]}}`)

	listings, total, err := parseListings(body)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, listings, 2)
	assert.Equal(t, Listing{Ticker: "sh.600519", Name: "贵州茅台"}, listings[0])
	assert.Equal(t, Listing{Ticker: "sz.300750", Name: "宁德时代"}, listings[1])
}

func TestParseTradingDates(t *testing.T) {
	body := []byte(`{"data":{"klines":["2024-01-02","2024-01-03","2024-01-04"]}}`)

	dates, err := parseTradingDates(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-02", "2024-01-03", "2024-01-04"}, dates)

	_, err = parseTradingDates([]byte(`{"data":{"klines":[]}}`))
	require.Error(t, err)
}

func TestParseCompanyFacts(t *testing.T) {
	body := []byte(`{"data":{"f57":"600519","f58":"贵州茅台","f116":2167800000000.0,
		"f117":2167700000000.0,"f127":"酿酒行业","f162":28.5,"f167":8.9,"f173":32.1}}`)

	facts, err := parseCompanyFacts(body)
	require.NoError(t, err)
	assert.Equal(t, "贵州茅台", facts.Name)
	assert.Equal(t, "酿酒行业", facts.Industry)
	assert.Equal(t, 2167800000000.0, facts.TotalCap)
	assert.Equal(t, 2167700000000.0, facts.FloatCap)
	assert.Equal(t, 28.5, facts.PETTM)
	assert.Equal(t, 8.9, facts.PB)
	assert.Equal(t, 32.1, facts.ROE)

	_, err = parseCompanyFacts([]byte(`{"data":null}`))
	require.Error(t, err)
}

func TestParseFundFlow(t *testing.T) {
	body := []byte(`{"data":{"diff":[{"f12":"600519","f62":123456789.0,"f66":98765432.0}]}}`)

	stat, err := parseFundFlow(body)
	require.NoError(t, err)
	assert.Equal(t, 123456789.0, stat.MainNetInflow)
	assert.Equal(t, 98765432.0, stat.SuperLargeNetInflow)

	_, err = parseFundFlow([]byte(`{"data":{"diff":[]}}`))
	require.Error(t, err)
}

func TestParseNewsTitles(t *testing.T) {
	body := []byte(`{"data":{"list":[
		{"Art_Title":"标题一"},{"Art_Title":"标题二"},{"Art_Title":"标题三"},{"Art_Title":"标题四"}
	]}}`)

	titles, err := parseNewsTitles(body, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"标题一", "标题二", "标题三"}, titles)
}
