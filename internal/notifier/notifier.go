package notifier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	kit "verwatch/internal/transport"
	logx "verwatch/pkg/logx"
)

// Notifier delivers text to a single recipient.
type Notifier interface {
	Notify(ctx context.Context, recipient, text string) error
}

// Error is a failed delivery to one recipient.
type Error struct {
	Recipient string
	Err       error
}

func (e *Error) Error() string { return fmt.Sprintf("notify %s: %v", e.Recipient, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

var ErrBadRecipient = errors.New("invalid recipient")

type Config struct {
	// RatePerSec caps outbound messages across all recipients. Default 3.
	RatePerSec int
	// SendTimeout bounds one Notify call, including the rate-limit wait. Default 10s.
	SendTimeout time.Duration
	// DisablePreview turns off link previews in delivered messages.
	DisablePreview bool
}

// Telegram is a Notifier on top of a chat adapter.
type Telegram struct {
	cfg     Config
	adapter kit.Adapter
	limiter *rate.Limiter
	log     logx.Logger
}

func NewTelegram(cfg Config, adapter kit.Adapter, log logx.Logger) *Telegram {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Telegram{
		cfg:     cfg,
		adapter: adapter,
		// Token bucket: burst = rate per sec, so one broadcast to a handful of
		// recipients does not queue behind itself.
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		log:     log,
	}
}

func (t *Telegram) Notify(ctx context.Context, recipient, text string) error {
	to, err := ParseRecipient(recipient)
	if err != nil {
		return &Error{Recipient: recipient, Err: err}
	}

	cctx, cancel := context.WithTimeout(ctx, t.cfg.SendTimeout)
	defer cancel()

	if err := t.limiter.Wait(cctx); err != nil {
		return &Error{Recipient: recipient, Err: fmt.Errorf("rate limit wait: %w", err)}
	}
	start := time.Now()
	if _, err := t.adapter.SendText(cctx, to, text, &kit.SendOptions{DisablePreview: t.cfg.DisablePreview}); err != nil {
		return &Error{Recipient: recipient, Err: err}
	}
	t.log.Debug("message delivered", logx.String("recipient", recipient), logx.Duration("took", time.Since(start)))
	return nil
}

// ParseRecipient converts a configured recipient identifier into a chat target.
func ParseRecipient(raw string) (kit.ChatTarget, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return kit.ChatTarget{}, fmt.Errorf("%w: empty", ErrBadRecipient)
	}
	if strings.HasPrefix(s, "@") {
		if len(s) < 2 || strings.ContainsAny(s, " :") {
			return kit.ChatTarget{}, fmt.Errorf("%w: %q", ErrBadRecipient, raw)
		}
		return kit.ChatTarget{Username: s}, nil
	}

	chat, thread, hasThread := strings.Cut(s, ":")
	id, err := strconv.ParseInt(chat, 10, 64)
	if err != nil || id == 0 {
		return kit.ChatTarget{}, fmt.Errorf("%w: %q", ErrBadRecipient, raw)
	}
	to := kit.ChatTarget{ChatID: id}
	if hasThread {
		tid, err := strconv.Atoi(thread)
		if err != nil || tid <= 0 {
			return kit.ChatTarget{}, fmt.Errorf("%w: bad thread id in %q", ErrBadRecipient, raw)
		}
		to.ThreadID = tid
	}
	return to, nil
}

// ParseRecipients splits a delimiter-separated list (comma, semicolon or
// whitespace). Order and duplicates are kept.
func ParseRecipients(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
