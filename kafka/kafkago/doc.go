// Package kafkago contains the implementation of kafka.Client on top of
// segmentio/kafka-go that works with real Kafka and Redpanda servers.
//
// The client reads and writes partition 0 of each topic: a chat room is a
// single totally ordered log.
//
// Normally, outside kafka/, you shouldn't import this package directly. Use
// kafka.FromURI or kafka.FromBrokers instead.
package kafkago
