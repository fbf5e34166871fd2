package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ticketing/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestKafkaPublisher_Publish(t *testing.T) {
	t.Run("sends keyed json message", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var evt LifecycleEvent
			if err := json.Unmarshal(val, &evt); err != nil {
				return err
			}
			if evt.Type != EventOrderPaid || evt.SubjectID != "order-1" {
				return errors.New("unexpected event payload")
			}
			return nil
		})

		pub := NewKafkaPublisherWithProducer(producer, "ticketing-events", logger.NewDiscard())
		pub.Publish(context.Background(), NewLifecycleEvent(EventOrderPaid, "order-1", "user-1", time.Now(), nil))

		if err := pub.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})

	t.Run("broker failure is swallowed", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, nil)
		producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

		pub := NewKafkaPublisherWithProducer(producer, "ticketing-events", logger.NewDiscard())
		pub.Publish(context.Background(), NewLifecycleEvent(EventTicketScanned, "ticket-1", "", time.Now(), nil))

		if err := pub.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
}
