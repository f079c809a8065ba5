package tlog

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"time"
)

// Format is the output format of logs
type Format string

// Formats
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseFormat validates a --log-format value. The empty string selects text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatText, nil
	case FormatJSON, FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("invalid log format %q (json|text expected)", s)
	}
}

// Color tells whether text logs are colored
type Color string

// Colors. ColorAuto colors the output when stderr is a terminal.
const (
	ColorAuto Color = ""
	ColorYes  Color = "yes"
	ColorNo   Color = "no"
)

// ParseColor validates a --log-color value
func ParseColor(s string) (Color, error) {
	switch s {
	case "", "auto":
		return ColorAuto, nil
	case "yes":
		return ColorYes, nil
	case "no":
		return ColorNo, nil
	default:
		return "", fmt.Errorf("invalid log color %q (yes|no|auto expected)", s)
	}
}

// Config describes a top-level logger
type Config struct {
	Name    string // optional
	Format  Format
	Color   Color
	Verbose bool // Debug level
}

// DefaultEncoderConfig is the encoder configuration of top-level loggers.
// Times have millisecond precision, like the times of chat messages.
var DefaultEncoderConfig = func() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02T15:04:05.000Z0700"))
	}
	return ec
}()
