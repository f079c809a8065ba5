// Package uri contains the FromURI and FromBrokers functions.
//
// Outside kafka/, don't import this package directly. Instead, import kafka/
// which reexports them.
package uri

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ridge/redchat/kafka/api"
	"github.com/ridge/redchat/kafka/kafkago"
	"github.com/ridge/redchat/kafka/local"
)

var brokerRE = regexp.MustCompile(`^[-.a-z0-9]+:\d+$`)

// FromURI creates a client from an URI in one of the following formats:
//
// kafka://broker1:port1,broker2:port2,...
//
//	A real Kafka (or Redpanda) client that uses the specified brokers.
//
// file:///path
//
//	Local file-based implementation using the specified directory.
func FromURI(uri string) (api.Client, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client for URI %s: %w", uri, err)
	}

	switch u.Scheme {
	case "kafka":
		if u.Path != "" {
			return nil, fmt.Errorf("failed to create Kafka client for URI %s: kafka://server1:port1,server2:port2... expected", uri)
		}
		brokers, err := parseBrokers(u.Host)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka client for URI %s: %w", uri, err)
		}
		return kafkago.New(brokers), nil

	case "file":
		if u.Path == "" { // typical mistake: file://path instead of file:///path
			return nil, fmt.Errorf("failed to create Kafka client for URI %s: file:///... expected", uri)
		}
		client, err := local.New(u.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka client for URI %s: %w", uri, err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("failed to create Kafka client for URI %s: kafka://... or file:///... expected", uri)
	}
}

// FromBrokers creates a client from a bootstrap server list in the form
// host1:port1,host2:port2. A value containing "://" is treated as an URI and
// passed to FromURI.
func FromBrokers(brokers string) (api.Client, error) {
	if strings.Contains(brokers, "://") {
		return FromURI(brokers)
	}
	list, err := parseBrokers(brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client for brokers %s: %w", brokers, err)
	}
	return kafkago.New(list), nil
}

func parseBrokers(s string) ([]string, error) {
	brokers := strings.Split(s, ",")
	for _, b := range brokers {
		if !brokerRE.MatchString(b) {
			return nil, fmt.Errorf("invalid broker %q: server1:port1,server2:port2... expected", b)
		}
	}
	return brokers, nil
}
