package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mtf-signal-scanner/internal/service"
)

// TelegramSender 通过 Telegram Bot API 投递扫描摘要。
// 投递失败只记录日志：推送是任务的最后一环，绝不反过来影响扫描本身。
type TelegramSender struct {
	apiURL   string // https://api.telegram.org/bot<token>，测试时可注入
	chatID   string
	client   *http.Client
	attempts int
	backoff  time.Duration
	logger   *zap.Logger
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func NewTelegramSender(cfg service.TelegramConfig, logger *zap.Logger) *TelegramSender {
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	var apiURL string
	if cfg.Token != "" {
		apiURL = "https://api.telegram.org/bot" + cfg.Token
	}
	return &TelegramSender{
		apiURL:   apiURL,
		chatID:   cfg.ChatID,
		client:   &http.Client{Timeout: 30 * time.Second},
		attempts: attempts,
		backoff:  cfg.RetryBackoff,
		logger:   logger.With(zap.String("reporter", "telegram")),
	}
}

// Configured 返回凭证是否齐全。未配置时调用方把摘要落到日志即可。
func (t *TelegramSender) Configured() bool {
	return t.apiURL != "" && t.chatID != ""
}

// Send 投递一条 Markdown 消息，带有界重试
func (t *TelegramSender) Send(ctx context.Context, text string) error {
	if !t.Configured() {
		return fmt.Errorf("telegram sender is not configured")
	}

	payload, err := json.Marshal(telegramMessage{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		return fmt.Errorf("marshal telegram message: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < t.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(t.backoff):
			}
		}

		if err := t.sendOnce(ctx, payload); err != nil {
			lastErr = err
			t.logger.Warn("Telegram delivery failed",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", t.attempts),
				zap.Error(err))
			continue
		}

		t.logger.Info("Telegram message sent")
		return nil
	}
	return fmt.Errorf("telegram delivery failed after %d attempts: %w", t.attempts, lastErr)
}

func (t *TelegramSender) sendOnce(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL+"/sendMessage", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var tgResp telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&tgResp); err != nil {
		return fmt.Errorf("decode telegram response: %w", err)
	}
	if !tgResp.OK {
		return fmt.Errorf("telegram API error: %s", tgResp.Description)
	}
	return nil
}
