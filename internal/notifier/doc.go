// Package notifier delivers a text message to one recipient.
//
// A recipient is an opaque identifier taken verbatim from configuration.
// The Telegram implementation understands three forms:
//
//	"123456789"        private chat or group id
//	"-1001234567:42"   forum group id + topic (thread) id
//	"@channelname"     public channel
//
// # Delivery
//
// Each Notify call is independent: it is rate limited, bounded by a per-call
// timeout and either succeeds or returns an *Error for that recipient. Fan-out
// to many recipients lives in the broadcast subpackage.
package notifier
