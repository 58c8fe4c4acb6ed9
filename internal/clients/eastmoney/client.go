// Package eastmoney provides the A-share market data client: quotes, daily
// klines, the listing universe, and the enrichment lookups (company facts,
// fund flow, news headlines).
package eastmoney

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	listURL  = "https://82.push2.eastmoney.com/api/qt/clist/get"
	quoteURL = "https://push2.eastmoney.com/api/qt/ulist.np/get"
	klineURL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"
	stockURL = "https://push2.eastmoney.com/api/qt/stock/get"
	newsURL  = "https://np-listapi.eastmoney.com/comm/web/getListInfo"
)

const (
	requestGap       = 200 * time.Millisecond // Pause between requests
	requestQueueSize = 64
	httpTimeout      = 10 * time.Second

	maxRetries    = 3
	retryDelay    = 500 * time.Millisecond
	retryDelay429 = 5 * time.Second // Upstream rate limit needs a longer pause
)

// Browser-shaped headers; the quote endpoints reject bare Go user agents.
const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	referer   = "https://quote.eastmoney.com/"
)

// requestJob represents a job in the rate limiting queue
type requestJob struct {
	ctx      context.Context
	url      string
	resultCh chan requestResult
}

// requestResult represents the result of a request
type requestResult struct {
	body []byte
	err  error
}

// Client is a rate-limited market data client. All requests flow through a
// single worker goroutine that spaces them out, so callers never need to
// coordinate pacing among themselves.
type Client struct {
	httpClient   *http.Client
	log          zerolog.Logger
	requestQueue chan requestJob
	stopChan     chan struct{}
	workerDone   chan struct{}

	// Endpoint bases, overridable in tests
	listURL  string
	quoteURL string
	klineURL string
	stockURL string
	newsURL  string

	once sync.Once
}

// NewClient creates a new market data client and starts its request worker.
func NewClient(log zerolog.Logger) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: httpTimeout},
		log:          log.With().Str("component", "eastmoney").Logger(),
		requestQueue: make(chan requestJob, requestQueueSize),
		stopChan:     make(chan struct{}),
		workerDone:   make(chan struct{}),
		listURL:      listURL,
		quoteURL:     quoteURL,
		klineURL:     klineURL,
		stockURL:     stockURL,
		newsURL:      newsURL,
	}

	go c.worker()

	return c
}

// get queues a GET request and waits for its body.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	select {
	case <-c.stopChan:
		return nil, fmt.Errorf("client is closed")
	default:
	}

	resultCh := make(chan requestResult, 1)

	job := requestJob{ctx: ctx, url: url, resultCh: resultCh}

	select {
	case c.requestQueue <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case result := <-resultCh:
		return result.body, result.err
	case <-ctx.Done():
		// The worker will still deliver into the buffered channel
		return nil, ctx.Err()
	}
}

// worker processes requests from the queue sequentially with rate limiting
func (c *Client) worker() {
	defer close(c.workerDone)

	var lastRequestTime time.Time
	firstRequest := true

	processJob := func(job requestJob) {
		if !firstRequest {
			elapsed := time.Since(lastRequestTime)
			if elapsed < requestGap {
				time.Sleep(requestGap - elapsed)
			}
		}
		firstRequest = false

		var result requestResult
		result.body, result.err = c.doWithRetry(job.ctx, job.url)

		lastRequestTime = time.Now()

		job.resultCh <- result
	}

	for {
		select {
		case <-c.stopChan:
			// Drain remaining jobs from queue before exiting
			for {
				select {
				case job, ok := <-c.requestQueue:
					if !ok {
						return
					}
					processJob(job)
				default:
					return
				}
			}
		case job, ok := <-c.requestQueue:
			if !ok {
				return
			}
			processJob(job)
		}
	}
}

// Close gracefully shuts down the request worker.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.stopChan)
		close(c.requestQueue)
		<-c.workerDone
	})
}

// doWithRetry performs one GET with a bounded retry loop. HTTP 429 gets a
// longer pause than other failures before the next attempt.
func (c *Client) doWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	lastStatus := 0

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := retryDelay
			if lastStatus == http.StatusTooManyRequests {
				backoff = retryDelay429
				c.log.Warn().Str("url", url).Dur("backoff", backoff).Msg("Rate limited, backing off")
			} else {
				c.log.Debug().Str("url", url).Int("attempt", attempt+1).Msg("Retrying request")
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Referer", referer)
		req.Header.Set("Accept", "application/json, text/plain, */*")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			lastStatus = 0
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			lastStatus = 0
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastStatus = resp.StatusCode
			bodyStr := string(body)
			if len(bodyStr) > 500 {
				bodyStr = bodyStr[:500] + "..."
			}
			c.log.Error().
				Int("status_code", resp.StatusCode).
				Str("response_body", bodyStr).
				Str("url", url).
				Msg("API returned non-200 status")
			lastErr = fmt.Errorf("API returned status %d", resp.StatusCode)
			continue
		}

		return body, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, lastErr)
}
