package producers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/corepay-ledger/internal/config"
)

// newTopicWriter dials the cluster, makes sure the topic exists, and returns
// a writer configured for it. Both producers share this so topic provisioning
// lives in one place.
func newTopicWriter(logger *slog.Logger, cfg *config.KafkaConfig, topic string, acks kafka.RequiredAcks, async bool) (*kafka.Writer, error) {
	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka brokers %s: %w", cfg.Brokers, err)
	}
	defer conn.Close()

	if err := ensureTopic(logger, conn, cfg, topic); err != nil {
		return nil, err
	}

	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: acks,
		Async:        async,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages", "topic", topic, "error", err, "count", len(messages))
			}
		},
	}, nil
}

// ensureTopic creates the topic when the cluster does not know it yet. A
// freshly started broker can briefly refuse partition reads, so the lookup
// retries before concluding the topic is missing.
func ensureTopic(logger *slog.Logger, conn *kafka.Conn, cfg *config.KafkaConfig, topic string) error {
	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		partitions, err := conn.ReadPartitions(topic)
		if err == nil && len(partitions) > 0 {
			return nil
		}
		lastErr = err
		if err == nil {
			break // Broker answered: the topic genuinely does not exist
		}
		logger.Warn("Partition lookup failed, retrying", "topic", topic, "attempt", attempt, "error", err)
		time.Sleep(2 * time.Second)
	}

	partitions := cfg.NumPartitions
	if partitions <= 0 {
		partitions = 1
	}
	replication := cfg.ReplicationFactor
	if replication <= 0 {
		replication = 1
	}

	if err := conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replication,
	}); err != nil {
		if lastErr != nil {
			return fmt.Errorf("failed to create kafka topic %s after lookup error %v: %w", topic, lastErr, err)
		}
		return fmt.Errorf("failed to create kafka topic %s: %w", topic, err)
	}

	logger.Info("Created Kafka topic", "topic", topic, "partitions", partitions)
	return nil
}
