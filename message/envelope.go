package message

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Message is a decoded chat message
type Message struct {
	Username string
	Text     string
}

func (m Message) String() string {
	return m.Username + ": " + m.Text
}

// Envelope is a message with optional references to earlier records of the
// topic. Plain chat messages have both offsets unset; admin operations set
// exactly one.
type Envelope struct {
	Message
	ReplacesOffset *int64
	DeleteOffset   *int64
}

// Offset returns a pointer to the given offset, for filling Envelope fields
func Offset(offset int64) *int64 {
	return &offset
}

// IsMutation tells whether the envelope references another record
func (e Envelope) IsMutation() bool {
	return e.ReplacesOffset != nil || e.DeleteOffset != nil
}

// Validate checks that the envelope is representable in the format
func (e Envelope) Validate(format Format) error {
	if !e.IsMutation() {
		return nil
	}
	if !format.SupportsMutation() {
		return fmt.Errorf("%w: %s cannot reference other records", ErrUnsupportedOperation, format)
	}
	if e.ReplacesOffset != nil && e.DeleteOffset != nil {
		return ErrConflictingMutation
	}
	for _, target := range []*int64{e.ReplacesOffset, e.DeleteOffset} {
		switch {
		case target == nil:
		case *target < 0:
			return fmt.Errorf("%w: %d", ErrNegativeOffset, *target)
		case *target == 0 && format == FormatProtobuf:
			return ErrZeroOffsetTarget
		}
	}
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of Envelope with zap.Object
func (e Envelope) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("username", e.Username)
	enc.AddInt("textLength", len(e.Text))
	if e.ReplacesOffset != nil {
		enc.AddInt64("replacesOffset", *e.ReplacesOffset)
	}
	if e.DeleteOffset != nil {
		enc.AddInt64("deleteOffset", *e.DeleteOffset)
	}
	return nil
}
