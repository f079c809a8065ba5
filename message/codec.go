package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// Encode serializes a chat message, optionally referencing an earlier record
// to replace or delete
func Encode(username, text string, format Format, replaces, deleted *int64) ([]byte, error) {
	return EncodeEnvelope(Envelope{
		Message:        Message{Username: username, Text: text},
		ReplacesOffset: replaces,
		DeleteOffset:   deleted,
	}, format)
}

// EncodeEnvelope serializes an envelope. Fails with ErrUnsupportedOperation if
// the envelope carries offsets the format cannot represent.
func EncodeEnvelope(env Envelope, format Format) ([]byte, error) {
	if err := env.Validate(format); err != nil {
		return nil, err
	}
	switch format {
	case FormatText:
		return []byte(env.Username + ": " + env.Text), nil
	case FormatJSON:
		return encodeJSON(env)
	case FormatProtobuf:
		return encodeProtobuf(env), nil
	default:
		panic(fmt.Errorf("unexpected message format: %s", format))
	}
}

// Decode parses a payload for display, dropping any mutation metadata
func Decode(data []byte, format Format) (Message, error) {
	env, err := DecodeEnvelope(data, format)
	if err != nil {
		return Message{}, err
	}
	return env.Message, nil
}

// DecodeEnvelope parses a payload including its mutation metadata.
//
// Fails with *FormatError if the payload is malformed for the format.
func DecodeEnvelope(data []byte, format Format) (Envelope, error) {
	switch format {
	case FormatText:
		return decodeText(data)
	case FormatJSON:
		return decodeJSON(data)
	case FormatProtobuf:
		return decodeProtobuf(data)
	default:
		panic(fmt.Errorf("unexpected message format: %s", format))
	}
}

// Text

func decodeText(data []byte) (Envelope, error) {
	if !utf8.Valid(data) {
		return Envelope{}, formatError(FormatText, errors.New("invalid UTF-8"))
	}
	username, text, found := strings.Cut(string(data), ":")
	if !found {
		return Envelope{}, formatError(FormatText, errors.New(`no ":" separating username and text`))
	}
	return Envelope{Message: Message{
		Username: strings.TrimSpace(username),
		Text:     strings.TrimSpace(text),
	}}, nil
}

// JSON

// jsonEnvelope mirrors the JSON wire shape. The offsets are always present on
// the wire, null when unset.
type jsonEnvelope struct {
	Username       *string `json:"username"`
	Message        *string `json:"message"`
	ReplacesOffset *int64  `json:"replaces_offset"`
	DeleteOffset   *int64  `json:"delete_offset"`
}

func encodeJSON(env Envelope) ([]byte, error) {
	return json.Marshal(jsonEnvelope{
		Username:       &env.Username,
		Message:        &env.Text,
		ReplacesOffset: env.ReplacesOffset,
		DeleteOffset:   env.DeleteOffset,
	})
}

func decodeJSON(data []byte) (Envelope, error) {
	var je jsonEnvelope
	if err := json.Unmarshal(data, &je); err != nil {
		return Envelope{}, formatError(FormatJSON, err)
	}
	switch {
	case je.Username == nil:
		return Envelope{}, formatError(FormatJSON, errors.New(`missing field "username"`))
	case je.Message == nil:
		return Envelope{}, formatError(FormatJSON, errors.New(`missing field "message"`))
	}
	return Envelope{
		Message:        Message{Username: *je.Username, Text: *je.Message},
		ReplacesOffset: je.ReplacesOffset,
		DeleteOffset:   je.DeleteOffset,
	}, nil
}

// Protobuf

const (
	fieldUsername       protowire.Number = 1
	fieldMessage        protowire.Number = 2
	fieldReplacesOffset protowire.Number = 3
	fieldDeleteOffset   protowire.Number = 4
)

// encodeProtobuf follows proto3 rules: fields holding zero values are omitted
func encodeProtobuf(env Envelope) []byte {
	var b []byte
	if env.Username != "" {
		b = protowire.AppendTag(b, fieldUsername, protowire.BytesType)
		b = protowire.AppendString(b, env.Username)
	}
	if env.Text != "" {
		b = protowire.AppendTag(b, fieldMessage, protowire.BytesType)
		b = protowire.AppendString(b, env.Text)
	}
	if env.ReplacesOffset != nil && *env.ReplacesOffset != 0 {
		b = protowire.AppendTag(b, fieldReplacesOffset, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*env.ReplacesOffset))
	}
	if env.DeleteOffset != nil && *env.DeleteOffset != 0 {
		b = protowire.AppendTag(b, fieldDeleteOffset, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*env.DeleteOffset))
	}
	return b
}

func decodeProtobuf(data []byte) (Envelope, error) {
	var env Envelope
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return Envelope{}, formatError(FormatProtobuf, protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case (num == fieldUsername || num == fieldMessage) && typ == protowire.BytesType:
			var s string
			s, n = protowire.ConsumeString(data)
			if n < 0 {
				break
			}
			if !utf8.ValidString(s) {
				return Envelope{}, formatError(FormatProtobuf, fmt.Errorf("field %d: invalid UTF-8", num))
			}
			if num == fieldUsername {
				env.Username = s
			} else {
				env.Text = s
			}
		case (num == fieldReplacesOffset || num == fieldDeleteOffset) && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(data)
			if n < 0 {
				break
			}
			var offset *int64
			if v != 0 { // 0 is the proto3 default: unset
				offset = Offset(int64(v))
			}
			if num == fieldReplacesOffset {
				env.ReplacesOffset = offset
			} else {
				env.DeleteOffset = offset
			}
		case num == fieldUsername || num == fieldMessage || num == fieldReplacesOffset || num == fieldDeleteOffset:
			return Envelope{}, formatError(FormatProtobuf, fmt.Errorf("field %d: unexpected wire type %d", num, typ))
		default:
			// unknown fields are skipped for forward compatibility
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return Envelope{}, formatError(FormatProtobuf, protowire.ParseError(n))
		}
		data = data[n:]
	}
	return env, nil
}
