package notifier

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	kit "verwatch/internal/transport"
	logx "verwatch/pkg/logx"
)

type fakeAdapter struct {
	mu    sync.Mutex
	sent  []kit.ChatTarget
	texts []string
	err   error
	delay time.Duration
}

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return kit.MessageRef{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return kit.MessageRef{}, f.err
	}
	f.sent = append(f.sent, to)
	f.texts = append(f.texts, text)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func TestParseRecipient(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    kit.ChatTarget
		wantErr bool
	}{
		{raw: "1116300387", want: kit.ChatTarget{ChatID: 1116300387}},
		{raw: " -1001234567 ", want: kit.ChatTarget{ChatID: -1001234567}},
		{raw: "-1001234567:42", want: kit.ChatTarget{ChatID: -1001234567, ThreadID: 42}},
		{raw: "@releases", want: kit.ChatTarget{Username: "@releases"}},
		{raw: "", wantErr: true},
		{raw: "@", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "0", wantErr: true},
		{raw: "123:x", wantErr: true},
		{raw: "123:0", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseRecipient(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseRecipient(%q) expected error", tt.raw)
			}
			if !errors.Is(err, ErrBadRecipient) {
				t.Fatalf("ParseRecipient(%q) error %v is not ErrBadRecipient", tt.raw, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseRecipient(%q) error: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseRecipient(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}

func TestParseRecipients(t *testing.T) {
	t.Parallel()
	got := ParseRecipients(" 1, 2;3\n@chan  1 ,")
	want := []string{"1", "2", "3", "@chan", "1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseRecipients = %q, want %q", got, want)
	}
	if got := ParseRecipients(" , ; "); len(got) != 0 {
		t.Fatalf("expected no recipients, got %q", got)
	}
}

func TestTelegramNotify(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	n := NewTelegram(Config{RatePerSec: 100}, ad, logx.Nop())

	if err := n.Notify(context.Background(), "-100:7", "hello"); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	if len(ad.sent) != 1 || ad.sent[0] != (kit.ChatTarget{ChatID: -100, ThreadID: 7}) || ad.texts[0] != "hello" {
		t.Fatalf("unexpected delivery: %+v %q", ad.sent, ad.texts)
	}
}

func TestTelegramNotifyErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("chat not found")
	n := NewTelegram(Config{RatePerSec: 100}, &fakeAdapter{err: boom}, logx.Nop())

	err := n.Notify(context.Background(), "42", "hi")
	var ne *Error
	if !errors.As(err, &ne) || ne.Recipient != "42" || !errors.Is(err, boom) {
		t.Fatalf("unexpected error: %v", err)
	}

	err = n.Notify(context.Background(), "not-a-chat", "hi")
	if !errors.As(err, &ne) || !errors.Is(err, ErrBadRecipient) {
		t.Fatalf("expected bad recipient error, got %v", err)
	}
}

func TestTelegramNotifyTimeout(t *testing.T) {
	t.Parallel()
	n := NewTelegram(Config{RatePerSec: 100, SendTimeout: 30 * time.Millisecond}, &fakeAdapter{delay: time.Second}, logx.Nop())
	err := n.Notify(context.Background(), "42", "hi")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
