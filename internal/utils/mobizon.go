package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const mobizonSendURL = "https://api.mobizon.kz/service/message/sendsmsmessage"

type Client struct {
	ApiKey  string
	Sender  string // опционально
	DryRun  bool   // dry-run режим
	BaseURL string

	HTTP   *http.Client
	Logger *zap.Logger
}

type SendSMSResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MessageID string `json:"messageId"`
	} `json:"data"`
}

func NewClientWithOptions(apiKey, sender string, dryRun bool, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		ApiKey:  apiKey,
		Sender:  sender,
		DryRun:  dryRun,
		BaseURL: mobizonSendURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Logger:  logger.Named("mobizon"),
	}
}

// SendSMS sends text to the recipient through Mobizon, or only logs it in dry-run mode.
func (c *Client) SendSMS(ctx context.Context, to, text string) (*SendSMSResponse, error) {
	if c.DryRun || c.ApiKey == "" || c.ApiKey == "dry-run" {
		// the body carries a one-time code, keep it out of the log
		c.Logger.Info("dry-run sms", zap.String("to", to), zap.String("sender", c.Sender), zap.Int("len", len(text)))
		return &SendSMSResponse{Code: 0}, nil
	}

	form := url.Values{
		"apiKey":    {c.ApiKey},
		"recipient": {to},
		"text":      {text},
	}
	if c.Sender != "" {
		form.Set("from", c.Sender)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send SMS request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result SendSMSResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if result.Code != 0 {
		return nil, fmt.Errorf("mobizon returned error code %d: %s", result.Code, result.Message)
	}
	c.Logger.Info("sms sent", zap.String("to", to), zap.String("message_id", result.Data.MessageID))
	return &result, nil
}
