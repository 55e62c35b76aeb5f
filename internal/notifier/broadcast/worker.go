package broadcast

import (
	"context"
	"fmt"
	"runtime/debug"

	logx "verwatch/pkg/logx"
)

func (b *Broadcaster) sendOne(ctx context.Context, kind, recipient, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic in broadcast delivery", logx.String("kind", kind), logx.String("recipient", recipient), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			err = fmt.Errorf("notify %s: panic: %v", recipient, r)
		}
	}()

	if err := b.notifier.Notify(ctx, recipient, text); err != nil {
		b.log.Warn("broadcast send failed", logx.String("kind", kind), logx.String("recipient", recipient), logx.Err(err))
		return err
	}
	return nil
}
