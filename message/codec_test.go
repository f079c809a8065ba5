package message

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	messages := []Message{
		{Username: "alice", Text: "hi"},
		{Username: "bob", Text: "hi: there"},
		{Username: "bob", Text: "ünïcödé ✓"},
		{Username: "carol", Text: ""},
	}
	for _, format := range Formats {
		for _, m := range messages {
			data, err := Encode(m.Username, m.Text, format, nil, nil)
			require.NoError(t, err)
			decoded, err := Decode(data, format)
			require.NoError(t, err, "%s %q", format, data)
			assert.Equal(t, m, decoded, "%s", format)
		}
	}
}

func TestTextSplitsOnFirstColon(t *testing.T) {
	m, err := Decode([]byte("alice: hi: there"), FormatText)
	require.NoError(t, err)
	require.Equal(t, Message{Username: "alice", Text: "hi: there"}, m)

	m, err = Decode([]byte("  bob  :   yo  "), FormatText)
	require.NoError(t, err)
	require.Equal(t, Message{Username: "bob", Text: "yo"}, m)
}

func TestTextEncoding(t *testing.T) {
	data, err := Encode("alice", "hi", FormatText, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "alice: hi", string(data))
}

func TestTextMalformed(t *testing.T) {
	for _, payload := range [][]byte{[]byte("no colon here"), {0xff, ':', 'x'}, {}} {
		_, err := Decode(payload, FormatText)
		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr, "%q", payload)
		require.Equal(t, FormatText, formatErr.Format)
	}
}

func TestTextCannotMutate(t *testing.T) {
	_, err := Encode("admin", "new", FormatText, Offset(3), nil)
	require.ErrorIs(t, err, ErrUnsupportedOperation)
	_, err = Encode("admin", "[deleted]", FormatText, nil, Offset(3))
	require.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestMutationRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatProtobuf} {
		data, err := Encode("admin", "fixed", format, Offset(42), nil)
		require.NoError(t, err)
		env, err := DecodeEnvelope(data, format)
		require.NoError(t, err)
		require.NotNil(t, env.ReplacesOffset, "%s", format)
		require.Equal(t, int64(42), *env.ReplacesOffset)
		require.Nil(t, env.DeleteOffset)
		require.Equal(t, Message{Username: "admin", Text: "fixed"}, env.Message)

		// the plain decoder drops the reference
		m, err := Decode(data, format)
		require.NoError(t, err)
		require.Equal(t, Message{Username: "admin", Text: "fixed"}, m)

		data, err = Encode("admin", "[deleted]", format, nil, Offset(7))
		require.NoError(t, err)
		env, err = DecodeEnvelope(data, format)
		require.NoError(t, err)
		require.Nil(t, env.ReplacesOffset)
		require.NotNil(t, env.DeleteOffset, "%s", format)
		require.Equal(t, int64(7), *env.DeleteOffset)
	}
}

func TestInvalidTargets(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatProtobuf} {
		_, err := Encode("admin", "x", format, Offset(-1), nil)
		require.ErrorIs(t, err, ErrNegativeOffset)
		_, err = Encode("admin", "x", format, Offset(1), Offset(2))
		require.ErrorIs(t, err, ErrConflictingMutation)
	}
}

// Offset 0 is indistinguishable from "unset" on the protobuf wire, so it is
// rejected as a target there while JSON carries it fine
func TestZeroOffsetTarget(t *testing.T) {
	_, err := Encode("admin", "x", FormatProtobuf, Offset(0), nil)
	require.ErrorIs(t, err, ErrZeroOffsetTarget)
	_, err = Encode("admin", "x", FormatProtobuf, nil, Offset(0))
	require.ErrorIs(t, err, ErrZeroOffsetTarget)

	// a foreign producer writing 0 explicitly still reads as unset
	data := mustHex(t, "0a0161120162"+"1800")
	env, err := DecodeEnvelope(data, FormatProtobuf)
	require.NoError(t, err)
	require.Nil(t, env.ReplacesOffset)
	require.False(t, env.IsMutation())

	data, err = Encode("admin", "x", FormatJSON, Offset(0), nil)
	require.NoError(t, err)
	env, err = DecodeEnvelope(data, FormatJSON)
	require.NoError(t, err)
	require.Equal(t, Offset(0), env.ReplacesOffset)
}

func TestJSONWireShape(t *testing.T) {
	data, err := Encode("a", "b", FormatJSON, nil, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"username":"a","message":"b","replaces_offset":null,"delete_offset":null}`, string(data))

	data, err = Encode("a", "b", FormatJSON, nil, Offset(12))
	require.NoError(t, err)
	require.JSONEq(t, `{"username":"a","message":"b","replaces_offset":null,"delete_offset":12}`, string(data))

	// offsets may be omitted entirely by other producers
	env, err := DecodeEnvelope([]byte(`{"username":"a","message":"b"}`), FormatJSON)
	require.NoError(t, err)
	require.Equal(t, Envelope{Message: Message{Username: "a", Text: "b"}}, env)
}

func TestJSONMalformed(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`{"message":"b"}`,
		`{"username":"a"}`,
		`{"username":1,"message":"b"}`,
		`{"username":"a","message":"b","replaces_offset":"x"}`,
	} {
		_, err := Decode([]byte(payload), FormatJSON)
		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr, payload)
		require.Equal(t, FormatJSON, formatErr.Format)
	}
}

func TestProtobufWireShape(t *testing.T) {
	data, err := Encode("a", "b", FormatProtobuf, Offset(5), nil)
	require.NoError(t, err)
	require.Equal(t, "0a0161120162"+"1805", hex.EncodeToString(data))

	data, err = Encode("a", "b", FormatProtobuf, nil, Offset(300))
	require.NoError(t, err)
	require.Equal(t, "0a0161120162"+"20ac02", hex.EncodeToString(data))

	data, err = Encode("", "", FormatProtobuf, nil, nil)
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestProtobufSkipsUnknownFields(t *testing.T) {
	// field 9 varint 1, field 10 bytes "zz"
	data := mustHex(t, "4801"+"0a0161"+"52027a7a"+"120162")
	m, err := Decode(data, FormatProtobuf)
	require.NoError(t, err)
	require.Equal(t, Message{Username: "a", Text: "b"}, m)
}

func TestProtobufMalformed(t *testing.T) {
	for _, payload := range []string{
		"0a05616263", // truncated string
		"0a02ffff",   // invalid UTF-8
		"08",         // username as bare varint tag
		"0801",       // username as varint
		"1a0161",     // replaces offset as bytes
		"ff",         // truncated tag
	} {
		_, err := Decode(mustHex(t, payload), FormatProtobuf)
		var formatErr *FormatError
		require.ErrorAs(t, err, &formatErr, payload)
		require.Equal(t, FormatProtobuf, formatErr.Format)
	}
}

func TestParseFormat(t *testing.T) {
	for _, format := range Formats {
		parsed, err := ParseFormat(format.String())
		require.NoError(t, err)
		require.Equal(t, format, parsed)
	}

	var f Format
	require.NoError(t, f.Set("JSON"))
	require.Equal(t, FormatJSON, f)
	require.Equal(t, "format", f.Type())

	err := f.Set("xml")
	require.Error(t, err)
	require.Equal(t, FormatJSON, f)
}

func TestFormatErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := error(&FormatError{Format: FormatJSON, Err: cause})
	require.ErrorIs(t, err, cause)
	require.EqualError(t, err, "malformed json payload: boom")
}

func mustHex(t *testing.T, s string) []byte {
	data, err := hex.DecodeString(s)
	require.NoError(t, err)
	return data
}
