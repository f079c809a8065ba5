package viewserver

import (
	"bytes"
	"compress/gzip"
	"net/http"

	"github.com/kevinpollet/nego"
	"github.com/ridge/must/v2"
)

// Listings of busy topics compress well, so don't bother below this size
const minGzipSize = 1024

// acceptsGzip tells whether the client asked for a gzip-encoded response
func acceptsGzip(r *http.Request) bool {
	// without the header nego picks the first offer, so check it first
	return r.Header.Get("Accept-Encoding") != "" && nego.NegotiateContentEncoding(r, "gzip") == "gzip"
}

func gzipBytes(body []byte) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	must.OK1(zw.Write(body)) // writes to bytes.Buffer never fail
	must.OK(zw.Close())
	return buf.Bytes()
}
