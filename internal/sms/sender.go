// AngelaMos | 2026
// sender.go

package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelamos/scribe/internal/config"
)

// ErrRejected marks a provider response that retrying will not fix.
var ErrRejected = errors.New("sms rejected by provider")

type Sender interface {
	SendOTP(ctx context.Context, mobile, code string) error
}

func New(cfg config.SMSConfig, logger *slog.Logger) Sender {
	if cfg.Driver == "http" {
		return NewHTTPSender(cfg)
	}
	return NewLogSender(logger)
}

// HTTPSender posts a form-encoded message to a gateway that answers 200
// on acceptance.
type HTTPSender struct {
	client   *http.Client
	apiURL   string
	apiKey   string
	sender   string
	template string
}

func NewHTTPSender(cfg config.SMSConfig) *HTTPSender {
	return &HTTPSender{
		client:   &http.Client{Timeout: cfg.Timeout},
		apiURL:   cfg.APIURL,
		apiKey:   cfg.APIKey,
		sender:   cfg.Sender,
		template: cfg.Template,
	}
}

func (s *HTTPSender) SendOTP(ctx context.Context, mobile, code string) error {
	form := url.Values{}
	form.Set("api_key", s.apiKey)
	form.Set("to", mobile)
	form.Set("from", s.sender)
	form.Set("message", renderMessage(s.template, code))

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.apiURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()
	//nolint:errcheck // drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 &&
		resp.StatusCode != http.StatusTooManyRequests:
		return fmt.Errorf("send sms: status %d: %w", resp.StatusCode, ErrRejected)
	default:
		return fmt.Errorf("send sms: status %d", resp.StatusCode)
	}
}

// LogSender is the development driver. The code is logged so a developer
// can complete the flow without a gateway.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendOTP(ctx context.Context, mobile, code string) error {
	s.logger.InfoContext(ctx, "sms otp",
		"mobile", MaskMobile(mobile),
		"code", code,
	)
	return nil
}

func renderMessage(template, code string) string {
	if template == "" || !strings.Contains(template, "%s") {
		return "Your verification code is " + code
	}
	return fmt.Sprintf(template, code)
}

// MaskMobile keeps the last four digits.
func MaskMobile(mobile string) string {
	if len(mobile) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(mobile)-4) + mobile[len(mobile)-4:]
}
