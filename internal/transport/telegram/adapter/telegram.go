package adapter

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	kit "verwatch/internal/transport"
	logx "verwatch/pkg/logx"
)

type Config struct {
	Token string
	// APIURL overrides the Bot API endpoint (self-hosted bot API servers).
	APIURL string
	// HTTPTimeout bounds each Bot API call. Default 15s.
	HTTPTimeout time.Duration
}

// Adapter sends messages through the Telegram Bot API. It never polls for
// updates: verwatch only talks outbound.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  strings.TrimSpace(cfg.Token),
		URL:    strings.TrimSpace(cfg.APIURL),
		Client: &http.Client{Timeout: timeout},
		// no getMe at startup; a bad token shows up as per-recipient send errors
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log.Debug("telegram client ready", logx.Bool("custom_api", cfg.APIURL != ""))
	return &Adapter{cfg: cfg, log: log, bot: b}, nil
}

// channelName addresses a public chat by "@username".
type channelName string

func (c channelName) Recipient() string { return string(c) }

func recipientFor(to kit.ChatTarget) tele.Recipient {
	if u := strings.TrimSpace(to.Username); u != "" {
		if !strings.HasPrefix(u, "@") {
			u = "@" + u
		}
		return channelName(u)
	}
	return &tele.Chat{ID: to.ChatID}
}

const telegramTextLimit = 4000

// splitTelegramText splits long messages into chunks Telegram accepts,
// preferring newline boundaries.
func splitTelegramText(s string, limit int) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end > len(rs) {
			end = len(rs)
		}
		if end < len(rs) {
			for i := end - 1; i > start; i-- {
				// Avoid tiny chunks.
				if rs[i] == '\n' && i-start >= limit/3 {
					end = i + 1
					break
				}
			}
		}

		out = append(out, strings.TrimRight(string(rs[start:end]), "\n"))
		start = end
		for start < len(rs) && rs[start] == '\n' {
			start++
		}
	}
	return out
}

func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	rcpt := recipientFor(to)

	var first kit.MessageRef
	for i, chunk := range splitTelegramText(text, telegramTextLimit) {
		if err := ctx.Err(); err != nil {
			return first, err
		}
		msg, err := a.sendChunk(ctx, rcpt, chunk, &tele.SendOptions{
			ParseMode:             opt.ParseMode,
			DisableWebPagePreview: opt.DisablePreview,
			ThreadID:              to.ThreadID,
		})
		if err != nil {
			return first, err
		}
		if i == 0 && msg != nil {
			chatID := to.ChatID
			if msg.Chat != nil {
				chatID = msg.Chat.ID
			}
			first = kit.MessageRef{ChatID: chatID, ThreadID: to.ThreadID, MessageID: msg.ID}
		}
	}
	return first, nil
}

// sendChunk runs bot.Send so that ctx cancellation returns promptly. telebot
// has no context support; the HTTP client timeout bounds the orphaned call.
func (a *Adapter) sendChunk(ctx context.Context, to tele.Recipient, chunk string, opt *tele.SendOptions) (*tele.Message, error) {
	type result struct {
		msg *tele.Message
		err error
	}
	ch := make(chan result, 1)
	go func() {
		m, err := a.bot.Send(to, chunk, opt)
		ch <- result{msg: m, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.msg, r.err
	}
}

// FormatTarget renders a target the way recipients are written in config.
func FormatTarget(to kit.ChatTarget) string {
	if to.Username != "" {
		return to.Username
	}
	s := strconv.FormatInt(to.ChatID, 10)
	if to.ThreadID != 0 {
		s += ":" + strconv.Itoa(to.ThreadID)
	}
	return s
}
