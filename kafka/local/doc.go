// Package local contains a local file-based implementation of kafka.Client.
//
// Normally, outside kafka/, you shouldn't import this package directly. Use
// kafka.FromURI with a file:/// URI instead.
package local
