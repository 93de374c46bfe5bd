package kafka

import (
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// EnsureTopicsExist creates Kafka topics if they don't already exist.
func EnsureTopicsExist(brokers []string, topics []string) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", controller.Host)
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		topicConfigs := []kafka.TopicConfig{
			{
				Topic:             topic,
				NumPartitions:     1,
				ReplicationFactor: 1,
			},
		}

		err = controllerConn.CreateTopics(topicConfigs...)
		if err != nil {
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			log.Printf("Error creating topic %s: %v", topic, err)
			// Keep going so one bad topic doesn't block the rest
		}
	}

	// Give the brokers a moment to propagate metadata
	time.Sleep(1 * time.Second)
	return nil
}
