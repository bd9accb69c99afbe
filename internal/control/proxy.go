// Package control forwards runtime commands (pause, resume) to a bot's HTTP
// control endpoint on its allocated port.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/quikscribe/scribed/internal/model"
)

// ErrControlFailed is returned when the bot's control endpoint rejects the
// command or cannot be reached within the timeout. The bot's status is left
// unchanged; retrying is the caller's decision.
var ErrControlFailed = errors.New("control action failed")

// Proxy issues control calls against bot endpoints.
type Proxy struct {
	host   string
	client *http.Client
	logger *slog.Logger
}

// NewProxy creates a proxy that reaches bots at host:<allocated port> with
// the given per-call timeout.
func NewProxy(host string, timeout time.Duration, logger *slog.Logger) *Proxy {
	return &Proxy{
		host:   host,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Send POSTs the action to the bot's control endpoint. Anything other than a
// 200 response within the timeout is ErrControlFailed.
func (p *Proxy) Send(ctx context.Context, bot model.Bot, action string) error {
	if bot.Port == nil {
		return fmt.Errorf("bot %s has no allocated port: %w", bot.ID, ErrControlFailed)
	}

	url := fmt.Sprintf("http://%s:%d/%s/meeting/%s", p.host, *bot.Port, bot.ID, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("build control request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("control call failed", "bot_id", bot.ID, "action", action, "error", err)
		return fmt.Errorf("%s bot %s: %v: %w", action, bot.ID, err, ErrControlFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s bot %s: endpoint returned %d: %w", action, bot.ID, resp.StatusCode, ErrControlFailed)
	}
	return nil
}
