package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/minqi/alphahunter/internal/config"
	"github.com/minqi/alphahunter/internal/domain"
	"github.com/minqi/alphahunter/internal/modules/universe"
)

const (
	defaultBaseURL = "https://api.deepseek.com/v1"
	defaultModel   = "deepseek-chat"

	// analysisUnavailable is the inline placeholder attached to an
	// opportunity when the model call fails. The opportunity itself is
	// still emitted.
	analysisUnavailable = "[AI分析暂不可用，请稍后重试]"
)

// Analyzer writes the natural-language commentary attached to each
// opportunity. Without an API key it renders a deterministic template
// report; with one it asks an OpenAI-compatible chat completions endpoint
// and degrades to the placeholder on any failure. It never returns an
// error to the caller.
type Analyzer struct {
	cfg        config.AIConfig
	httpClient *http.Client
	log        zerolog.Logger

	// baseURL is overridable in tests.
	baseURL string
}

// NewAnalyzer creates an analyzer from the AI configuration.
func NewAnalyzer(cfg config.AIConfig, log zerolog.Logger) *Analyzer {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	return &Analyzer{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		log:     log.With().Str("component", "analyzer").Logger(),
		baseURL: baseURL,
	}
}

// Analyze produces the commentary for one enriched opportunity.
func (a *Analyzer) Analyze(ctx context.Context, opp domain.Opportunity, enr domain.Enrichment) string {
	if a.cfg.APIKey == "" {
		return templateReport(opp)
	}

	text, err := a.requestCompletion(ctx, opp, enr)
	if err != nil {
		a.log.Warn().Err(err).Str("ticker", opp.Ticker).Msg("Model call failed, using placeholder")
		return analysisUnavailable
	}

	return text
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// requestCompletion performs the chat completions call.
func (a *Analyzer) requestCompletion(ctx context.Context, opp domain.Opportunity, enr domain.Enrichment) (string, error) {
	payload := chatRequest{
		Model: a.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "你是一位专业的A股市场分析师。"},
			{Role: "user", Content: buildPrompt(opp, enr)},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("model API error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("model returned an empty completion")
	}

	return text, nil
}

// buildPrompt assembles the user message from the signal and whatever
// enrichment blocks resolved.
func buildPrompt(opp domain.Opportunity, enr domain.Enrichment) string {
	var b strings.Builder

	b.WriteString("请为以下A股交易信号写一段简短的分析评论，指出核心逻辑与主要风险。\n\n")
	fmt.Fprintf(&b, "股票代码: %s\n", opp.Ticker)
	fmt.Fprintf(&b, "信号价格: %.2f\n", opp.SignalPrice)
	fmt.Fprintf(&b, "信号日期: %s\n", opp.SignalDate)
	fmt.Fprintf(&b, "信号描述: %s\n", opp.Description)

	if enr.CompanyProfile.Industry != "" {
		fmt.Fprintf(&b, "所属行业: %s\n", enr.CompanyProfile.Industry)
	}
	if enr.CompanyProfile.TotalMarketCap != "" {
		fmt.Fprintf(&b, "总市值: %s\n", enr.CompanyProfile.TotalMarketCap)
	}
	if enr.Valuation.PERatio != "" {
		fmt.Fprintf(&b, "市盈率(TTM): %s 市净率: %s ROE: %s\n",
			enr.Valuation.PERatio, enr.Valuation.PBRatio, enr.Valuation.ROE)
	}
	if enr.FundFlow.MainNetInflow != "" {
		fmt.Fprintf(&b, "主力净流入: %s\n", enr.FundFlow.MainNetInflow)
	}
	for _, title := range enr.RecentNews {
		fmt.Fprintf(&b, "近期新闻: %s\n", title)
	}

	return b.String()
}

// templateReport renders the offline commentary. The focus line follows the
// listing board: main-board names lean on fund flow and sector rotation,
// ChiNext names on the growth narrative, everything else on sentiment.
func templateReport(opp domain.Opportunity) string {
	var focus string
	switch universe.BoardOf(opp.Ticker) {
	case universe.BoardShanghaiMain, universe.BoardShenzhenMain:
		focus = "主力资金动向和板块轮动效应"
	case universe.BoardChiNext:
		focus = "成长性、赛道前景和技术突破可能性"
	default:
		focus = "市场情绪和短期技术形态"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- **股票代码**: %s\n", opp.Ticker)
	fmt.Fprintf(&b, "- **当前价格**: %.2f\n", opp.SignalPrice)
	b.WriteString("- **AI分析摘要**:\n")
	fmt.Fprintf(&b, "  - **核心逻辑**: 基于 %s 的综合评估，该股表现出潜在的交易机会。\n", focus)
	fmt.Fprintf(&b, "  - **信号来源**: %s。\n", opp.Description)
	b.WriteString("  - **技术面**: K线图呈现多头排列趋势，下方均线形成有力支撑。\n")
	b.WriteString("  - **建议**: 建议密切关注未来几个交易日的量价关系变化，寻找合适的入场点。\n")
	b.WriteString("- **风险提示**: 市场波动风险，请注意控制仓位。")
	return b.String()
}
