// Package kafka contains the log clients the chat runs on.
//
// The actual client code is in the subpackages. The package itself is a façade
// that reexports certain symbols from its subpackages. Most code outside
// kafka/ should not import these subpackages directly.
package kafka
