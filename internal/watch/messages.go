package watch

import (
	"fmt"
	"strings"
)

// Message kinds, also used as broadcast names in logs.
const (
	KindInitial   = "initial"
	KindChanged   = "changed"
	KindError     = "error"
	KindHeartbeat = "heartbeat"
)

const unknownVersion = "unknown"

// maxCauseLen keeps error summaries readable in a chat.
const maxCauseLen = 300

func initialMessage(label, version string) string {
	return fmt.Sprintf("✅ Watching %s\nCurrent Version: %s", label, version)
}

func changedMessage(label, prev, next string) string {
	return fmt.Sprintf("⚠️ %s Version Changed!\nOld Version: %s\nNew Version: %s", label, prev, next)
}

func errorMessage(label string, err error) string {
	cause := "unknown error"
	if err != nil {
		cause = strings.TrimSpace(err.Error())
	}
	if r := []rune(cause); len(r) > maxCauseLen {
		cause = string(r[:maxCauseLen]) + "…"
	}
	return fmt.Sprintf("❌ Error checking %s version\n%s", label, cause)
}

func heartbeatMessage(label, version string, ok bool, date Date) string {
	if !ok || version == "" {
		version = unknownVersion
	}
	return fmt.Sprintf("💓 %s watcher alive (%s UTC)\nVersion Now: %s", label, date, version)
}
