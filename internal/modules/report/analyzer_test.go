package report

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"

	"github.com/minqi/alphahunter/internal/config"
	"github.com/minqi/alphahunter/internal/domain"
)

func breakoutOpportunity(ticker string) domain.Opportunity {
	return domain.Opportunity{
		Ticker:      ticker,
		Strategy:    "box_breakout",
		Kind:        domain.KindBoxBreakout,
		SignalDate:  "2025-01-06",
		SignalPrice: 1734.56,
		Description: "放量突破60日箱体",
	}
}

func TestAnalyzerTemplateReport(t *testing.T) {
	analyzer := NewAnalyzer(config.AIConfig{}, zerolog.Nop())

	tests := []struct {
		name   string
		ticker string
		focus  string
	}{
		{"shanghai main board", "sh.600519", "主力资金动向和板块轮动效应"},
		{"shenzhen main board", "sz.000001", "主力资金动向和板块轮动效应"},
		{"chinext", "sz.300750", "成长性、赛道前景和技术突破可能性"},
		{"star market", "sh.688981", "市场情绪和短期技术形态"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := breakoutOpportunity(tt.ticker)

			text := analyzer.Analyze(context.Background(), opp, domain.Enrichment{})

			assert.Contains(t, text, tt.focus)
			assert.Contains(t, text, tt.ticker)
			assert.Contains(t, text, "1734.56")
			assert.Contains(t, text, "放量突破60日箱体")
			assert.Contains(t, text, "风险提示")
		})
	}
}

func TestAnalyzerTemplateIsDeterministic(t *testing.T) {
	analyzer := NewAnalyzer(config.AIConfig{}, zerolog.Nop())
	opp := breakoutOpportunity("sh.600519")

	first := analyzer.Analyze(context.Background(), opp, domain.Enrichment{})
	second := analyzer.Analyze(context.Background(), opp, domain.Enrichment{})

	assert.Equal(t, first, second)
}

func TestAnalyzerCallsModelEndpoint(t *testing.T) {
	var gotAuth, gotModel, gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		gotModel = gjson.GetBytes(body, "model").String()
		gotPrompt = gjson.GetBytes(body, "messages.1.content").String()

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"短线突破有效，关注量能的持续性。"}}]}`)
	}))
	defer srv.Close()

	analyzer := NewAnalyzer(config.AIConfig{APIKey: "sk-test", Model: "qwen-plus"}, zerolog.Nop())
	analyzer.baseURL = srv.URL

	enr := domain.Enrichment{
		CompanyProfile: domain.CompanyProfile{Industry: "酿酒行业"},
		FundFlow:       domain.FundFlow{MainNetInflow: "-3500.00万"},
		RecentNews:     []string{"茅台发布年报"},
	}

	text := analyzer.Analyze(context.Background(), breakoutOpportunity("sh.600519"), enr)

	assert.Equal(t, "短线突破有效，关注量能的持续性。", text)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "qwen-plus", gotModel)
	assert.Contains(t, gotPrompt, "sh.600519")
	assert.Contains(t, gotPrompt, "酿酒行业")
	assert.Contains(t, gotPrompt, "茅台发布年报")
}

func TestAnalyzerDegradesToPlaceholder(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"choices":[]}`)
			},
		},
		{
			name: "empty completion",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"  "}}]}`)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `not json`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			analyzer := NewAnalyzer(config.AIConfig{APIKey: "sk-test"}, zerolog.Nop())
			analyzer.baseURL = srv.URL

			text := analyzer.Analyze(context.Background(), breakoutOpportunity("sh.600519"), domain.Enrichment{})

			assert.Equal(t, analysisUnavailable, text)
		})
	}
}

func TestAnalyzerUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	analyzer := NewAnalyzer(config.AIConfig{APIKey: "sk-test"}, zerolog.Nop())
	analyzer.baseURL = srv.URL

	text := analyzer.Analyze(context.Background(), breakoutOpportunity("sh.600519"), domain.Enrichment{})

	assert.Equal(t, analysisUnavailable, text)
}
