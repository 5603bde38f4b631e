package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mtf-signal-scanner/internal/service"
)

// restClient 是三个数据源共用的受限 REST 客户端：
// 令牌桶限速 -> 熔断器 -> 有界重试，超时与取消由调用方的 context 控制。
type restClient struct {
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	retry   RetryPolicy
	logger  *zap.Logger
}

func newRESTClient(name string, cfg service.ProviderConfig, logger *zap.Logger) *restClient {
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	settings := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &restClient{
		http:    &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: gobreaker.NewCircuitBreaker(settings),
		retry:   retryPolicyFrom(cfg),
		logger:  logger.With(zap.String("provider", name)),
	}
}

// getJSON 发起 GET 请求并把响应体解析进 out
func (c *restClient) getJSON(ctx context.Context, url string, out any) error {
	return c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}, out)
}

// postJSON 发起 JSON POST 请求并把响应体解析进 out
func (c *restClient) postJSON(ctx context.Context, url string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	return c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, out)
}

func (c *restClient) do(ctx context.Context, build func(context.Context) (*http.Request, error), out any) error {
	var lastErr error
	for attempt := 0; attempt < c.retry.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retry.Backoff):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		_, err := c.breaker.Execute(func() (any, error) {
			return nil, c.doOnce(ctx, build, out)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		c.logger.Warn("Request failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", c.retry.Attempts),
			zap.Error(err))
	}
	return fmt.Errorf("request failed after %d attempts: %w", c.retry.Attempts, lastErr)
}

func (c *restClient) doOnce(ctx context.Context, build func(context.Context) (*http.Request, error), out any) error {
	req, err := build(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "mtf-signal-scanner/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// 消费掉响应体以复用连接
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
