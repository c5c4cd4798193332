package diag

import (
	"context"
	"encoding/hex"
	"log/slog"
)

// SlogAdapter writes diagnostic events to an slog.Logger.
// Useful for development when you want to see diagnostics in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger. Warnings log at Warn level,
// everything else at Debug.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("kind", event.Kind.String()),
	}

	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}

	// Add type-specific attributes
	switch {
	case event.Collision != nil:
		attrs = append(attrs,
			slog.String("table", event.Collision.Table.String()),
			slog.String("previous", event.Collision.Previous),
			slog.String("incoming", event.Collision.Incoming),
		)
		if event.Collision.Table == CollisionByFrameID {
			attrs = append(attrs, slog.Uint64("frame_id", uint64(event.Collision.FrameID)))
		} else {
			attrs = append(attrs, slog.String("name", event.Collision.Name))
		}
	case event.Skip != nil:
		attrs = append(attrs,
			slog.String("keyword", event.Skip.Keyword),
			slog.Int("line", event.Skip.Line),
		)
	case event.Frame != nil:
		attrs = append(attrs, slog.Uint64("frame_id", uint64(event.Frame.FrameID)))
		if len(event.Frame.Data) > 0 {
			attrs = append(attrs, slog.String("data", hex.EncodeToString(event.Frame.Data)))
		}
		if event.Frame.Message != "" {
			attrs = append(attrs, slog.String("message", event.Frame.Message))
		}
		if event.Frame.Unknown {
			attrs = append(attrs, slog.Bool("unknown", true))
		}
	}

	level := slog.LevelDebug
	if event.Severity == SeverityWarning {
		level = slog.LevelWarn
	}
	a.logger.LogAttrs(context.Background(), level, "candb", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
