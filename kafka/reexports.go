package kafka

import (
	"github.com/ridge/redchat/kafka/api"
	"github.com/ridge/redchat/kafka/names"
	"github.com/ridge/redchat/kafka/uri"
)

// Client is the Kafka client interface
type Client = api.Client

// ClientBackdate is an extended interface implemented by some clients
type ClientBackdate = api.ClientBackdate

// Message is an outgoing Kafka message
type Message = api.Message

// IncomingMessage is an incoming Kafka message
type IncomingMessage = api.IncomingMessage

// ErrContinuityBroken is returned by Client.Read when the topic disappears
// while reading
var ErrContinuityBroken = api.ErrContinuityBroken

// ValidateTopicName returns an error if the given topic name is invalid
var ValidateTopicName = names.ValidateTopicName

// FromURI creates a client from an URI
var FromURI = uri.FromURI

// FromBrokers creates a client from a broker list or an URI
var FromBrokers = uri.FromBrokers
