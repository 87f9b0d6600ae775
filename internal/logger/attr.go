package logger

import (
	"log/slog"
	"time"
)

// Attribute helpers return an empty Attr for zero input, which slog drops,
// so call sites need no nil checks.

// Error creates an attribute for err under the key "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// ClientID identifies the browser a session record belongs to.
func ClientID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("client_id", id)
}

// UserID identifies the backend user.
func UserID(id int64) slog.Attr {
	if id == 0 {
		return slog.Attr{}
	}
	return slog.Int64("user_id", id)
}

// Action names a form submission or flow step.
func Action(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("action", name)
}

// Component tags log lines with the subsystem that produced them.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
