package logging

import (
	"strings"

	"golang.org/x/exp/slog"
)

// Encoding selects the wire format used to render log records
type Encoding string

// Supported encodings
const (
	EncodingJSON   Encoding = "json"
	EncodingLogfmt Encoding = "logfmt"
	EncodingPlain  Encoding = "plain"
)

// LevelUnknown is returned by LevelFromString when the input doesn't match a known level
const LevelUnknown = slog.Level(99)

// LevelFromString parses a level name into its slog.Level equivalent, including the
// custom fatal / panic levels. Returns LevelUnknown if the name isn't recognized
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case debugLevel:
		return LevelDebug
	case infoLevel:
		return LevelInfo
	case warnLevel, "warning":
		return LevelWarn
	case errorLevel:
		return LevelError
	case fatalLevel:
		return LevelFatal
	case panicLevel:
		return LevelPanic
	default:
		return LevelUnknown
	}
}
