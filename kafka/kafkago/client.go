package kafkago

import (
	"context"
	"math/rand" // choosing a random member of Kafka replicaset - not security-sensitive
	"sync"

	"github.com/ridge/redchat/kafka/api"
	"github.com/ridge/redchat/tlog"
	"go.uber.org/zap"
)

// partition is the only partition of a chat topic the client works with
const partition = 0

type client struct {
	brokers []string
	lib     kafkaAPI

	mu      sync.Mutex
	leaders map[string]kafkaConn // by topic, used for offset queries
}

// New creates a real Kafka client that uses the specified brokers
func New(brokers []string) api.Client {
	return newClient(brokers, realKafkaAPI{})
}

func newClient(brokers []string, lib kafkaAPI) *client {
	if len(brokers) == 0 {
		panic("need at least one Kafka broker")
	}
	return &client{
		brokers: brokers,
		lib:     lib,
		leaders: map[string]kafkaConn{},
	}
}

// leaderConn returns the cached connection to the leader of the topic's
// partition. Without one, the brokers are tried in random order.
func (c *client) leaderConn(ctx context.Context, topic string) (kafkaConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conn := c.leaders[topic]; conn != nil {
		return conn, nil
	}

	logger := tlog.Get(ctx).With(zap.String("topic", topic))

	var err error
	for _, i := range rand.Perm(len(c.brokers)) {
		address := c.brokers[i]
		var conn kafkaConn
		conn, err = c.lib.DialLeader(ctx, "tcp", address, topic, partition)
		if err != nil {
			logger.Warn("Failed to connect to partition leader", zap.Error(err), zap.String("address", address))
			continue
		}
		logger.Debug("Connected to partition leader", zap.String("address", address))
		c.leaders[topic] = conn
		return conn, nil
	}
	return nil, err
}

// dropConn forgets a connection that failed, so the next query redials
func (c *client) dropConn(topic string, conn kafkaConn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.leaders[topic] == conn {
		delete(c.leaders, topic)
	}
	_ = conn.Close()
}
