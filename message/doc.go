// Package message encodes and decodes chat messages in one of several
// interchangeable wire formats.
//
// Every format carries a username and a text. Json and Protobuf payloads are
// envelopes that may additionally reference an earlier offset of the same
// topic: a replacement or a deletion of that record. The log itself is
// append-only, so such envelopes are the only way to correct or remove a
// message; see package scan for how they are applied.
//
// Wire formats:
//
//	text      UTF-8 "{username}: {text}"
//	json      {"username":…,"message":…,"replaces_offset":int|null,"delete_offset":int|null}
//	protobuf  username=1 (string), message=2 (string),
//	          replaces_offset=3 (int64), delete_offset=4 (int64)
//
// Text cannot carry offsets. In Protobuf, offset 0 is indistinguishable from
// an unset field, so offset 0 cannot be a mutation target there.
package message
