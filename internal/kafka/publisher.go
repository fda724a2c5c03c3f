package kafka

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/rankwatch/internal/config"
	"github.com/rankwatch/internal/domain"
)

// Publisher writes rank change events to Kafka. Events are keyed by user id
// so all changes for one player land on the same partition in order.
type Publisher struct {
	config   *config.KafkaConfig
	producer sarama.AsyncProducer
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewPublisher creates a new Kafka publisher
func NewPublisher(cfg *config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Flush.Frequency = 100 * time.Millisecond
	saramaConfig.Producer.Flush.Messages = cfg.BatchSize
	saramaConfig.Producer.Return.Successes = false
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}

	p := &Publisher{
		config:   cfg,
		producer: producer,
		logger:   logger,
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for err := range producer.Errors() {
			p.logger.Error("kafka produce error", "error", err)
		}
	}()

	return p, nil
}

// PublishRankEvent enqueues one rank change event
func (p *Publisher) PublishRankEvent(event domain.RankChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling rank event: %w", err)
	}

	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.config.Topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(event.UserID), 10)),
		Value: sarama.ByteEncoder(data),
	}
	return nil
}

// Close drains the producer and stops the error drain goroutine
func (p *Publisher) Close() error {
	p.producer.AsyncClose()
	p.wg.Wait()
	return nil
}
