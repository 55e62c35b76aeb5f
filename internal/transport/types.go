package transport

import "context"

// ChatTarget addresses a chat, optionally a forum topic inside it.
//
// Username is used for public channels addressed as "@name"; when it is set
// ChatID is ignored.
type ChatTarget struct {
	ChatID   int64
	ThreadID int
	Username string
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Adapter is the outbound side of a chat platform.
type Adapter interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}
