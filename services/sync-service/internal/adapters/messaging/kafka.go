package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
)

// KafkaMessaging реализация MessagingPort с использованием Kafka
type KafkaMessaging struct {
	producer *kafka.Producer
	brokers  string
}

// NewKafkaMessaging создает новый экземпляр KafkaMessaging
func NewKafkaMessaging(brokers []string, clientID string) (*KafkaMessaging, error) {
	servers := strings.Join(brokers, ",")
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":            servers,
		"client.id":                    clientID,
		"acks":                         "all", // максимальная надежность
		"retries":                      5,
		"retry.backoff.ms":             500,
		"linger.ms":                    10,
		"message.max.bytes":            1000000,
		"queue.buffering.max.messages": 10000,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Kafka producer: %w", err)
	}

	return &KafkaMessaging{producer: producer, brokers: servers}, nil
}

// messageToKafkaMessage преобразует Message в kafka.Message
func messageToKafkaMessage(msg *interfaces.Message) *kafka.Message {
	kafkaHeaders := make([]kafka.Header, 0, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: k, Value: []byte(v)})
	}

	id := msg.ID
	if id == "" {
		id = uuid.New().String()
	}
	published := msg.PublishedAt
	if published.IsZero() {
		published = time.Now()
	}

	// служебные заголовки
	kafkaHeaders = append(kafkaHeaders,
		kafka.Header{Key: "message_id", Value: []byte(id)},
		kafka.Header{Key: "timestamp", Value: []byte(published.UTC().Format(time.RFC3339Nano))},
	)
	if msg.TenantID != "" {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: "tenant_id", Value: []byte(msg.TenantID)})
	}

	var keyBytes []byte
	if msg.Key != "" {
		keyBytes = []byte(msg.Key)
	}

	topic := msg.Topic
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          msg.Value,
		Key:            keyBytes,
		Headers:        kafkaHeaders,
		Timestamp:      published,
	}
}

// Publish публикует сообщение и ждёт подтверждения доставки
func (k *KafkaMessaging) Publish(ctx context.Context, msg *interfaces.Message) error {
	delivery := make(chan kafka.Event, 1)
	if err := k.producer.Produce(messageToKafkaMessage(msg), delivery); err != nil {
		return fmt.Errorf("ошибка публикации в %s: %w", msg.Topic, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-delivery:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("неожиданное событие доставки: %v", ev)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("сообщение не доставлено в %s: %w", msg.Topic, m.TopicPartition.Error)
		}
		return nil
	}
}

// EnsureTopic создаёт тему, если её ещё нет
func (k *KafkaMessaging) EnsureTopic(ctx context.Context, topic string, partitions, replicationFactor int) error {
	adminClient, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return fmt.Errorf("ошибка создания Kafka admin client: %w", err)
	}
	defer adminClient.Close()

	result, err := adminClient.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
	}}, kafka.SetAdminOperationTimeout(30*time.Second))
	if err != nil {
		return fmt.Errorf("ошибка создания топика %s: %w", topic, err)
	}

	for _, r := range result {
		code := r.Error.Code()
		if code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("ошибка создания топика %s: %s", r.Topic, r.Error.String())
		}
	}
	return nil
}

// Close закрывает соединение с системой обмена сообщениями
func (k *KafkaMessaging) Close() error {
	k.producer.Flush(15 * 1000) // ждем до 15 секунд для отправки всех сообщений
	k.producer.Close()
	return nil
}
