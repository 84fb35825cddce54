package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// Telegram posts markdown messages to one chat through the Bot API, with up
// to three attempts per message.
type Telegram struct {
	botToken string
	chatID   string
	client   *resty.Client
}

func NewTelegram(botToken, chatID, baseURL string, timeout time.Duration) *Telegram {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultTelegramBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(3 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")
	return &Telegram{botToken: botToken, chatID: chatID, client: client}
}

func (t *Telegram) Channel() string { return "TELEGRAM" }

func (t *Telegram) SendText(ctx context.Context, text string) error {
	if t.botToken == "" || t.chatID == "" {
		return fmt.Errorf("telegram config incomplete")
	}
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"chat_id":    t.chatID,
			"text":       text,
			"parse_mode": "Markdown",
		}).
		Post("/bot" + t.botToken + "/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	// Error replies are not always labelled application/json, so read the
	// body directly instead of relying on resty's content-type decoding.
	body := resp.Body()
	desc := gjson.GetBytes(body, "description").String()
	if resp.IsError() {
		if desc != "" {
			return fmt.Errorf("telegram status=%d: %s", resp.StatusCode(), desc)
		}
		return fmt.Errorf("telegram status=%d", resp.StatusCode())
	}
	if ok := gjson.GetBytes(body, "ok"); ok.Exists() && !ok.Bool() {
		return fmt.Errorf("telegram rejected message: %s", desc)
	}
	return nil
}
