package message

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// Format is a wire format of chat payloads
type Format int

// Format values
const (
	FormatText Format = iota
	FormatJSON
	FormatProtobuf
)

// Formats lists all formats
var Formats = []Format{FormatText, FormatJSON, FormatProtobuf}

var formatNames = map[Format]string{
	FormatText:     "text",
	FormatJSON:     "json",
	FormatProtobuf: "protobuf",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// SupportsMutation tells whether payloads of the format can reference other
// records for replacement or deletion
func (f Format) SupportsMutation() bool {
	return f == FormatJSON || f == FormatProtobuf
}

// ParseFormat parses a format name (case-insensitive)
func ParseFormat(s string) (Format, error) {
	i := slices.IndexFunc(Formats, func(f Format) bool {
		return strings.EqualFold(s, f.String())
	})
	if i >= 0 {
		return Formats[i], nil
	}
	return 0, fmt.Errorf("unknown message format %q (text|json|protobuf expected)", s)
}

// Set implements pflag.Value
func (f *Format) Set(s string) error {
	parsed, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Type implements pflag.Value
func (f *Format) Type() string {
	return "format"
}
