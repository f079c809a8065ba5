// Package wire describes the on-disk record framing of kafka/local topic files.
package wire

import "time"

// Header comes before the record body in kafka/local files.
//
// The general format is: JSON(Header), '\n', body, '\n'.
//
// Notes on Offset:
//
//   - It is left out by kafka/local when writing because several clients can
//     append a file concurrently.
//   - It is nevertheless respected when reading, which allows sparse offsets
//     in files prepared by other tools; when it's missing, the offset of the
//     previous record is incremented.
type Header struct {
	TS      time.Time
	Offset  *int64            `json:",omitempty"`
	Key     string            `json:",omitempty"`
	Headers map[string]string `json:",omitempty"`
	Len     int
}
