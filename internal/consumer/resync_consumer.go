package consumer

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/palmhaven/booking-api/internal/service"
	amqp "github.com/rabbitmq/amqp091-go"
)

type resyncMessage struct {
	PropertyID uint `json:"property_id"`
}

// ResyncConsumer drains calendar.resync.* messages and re-imports the
// property's external feeds. The work is best-effort: a failed feed is
// already recorded on its feed row, so per-feed errors never requeue.
type ResyncConsumer struct {
	calendarSvc service.CalendarService
	timeout     time.Duration
}

func NewResyncConsumer(calendarSvc service.CalendarService) *ResyncConsumer {
	return &ResyncConsumer{calendarSvc: calendarSvc, timeout: 2 * time.Minute}
}

func (rc *ResyncConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			rc.handleMessage(msg)
		}
		log.Println("[ResyncConsumer] channel closed, stopping consumer")
	}()
}

func (rc *ResyncConsumer) handleMessage(msg amqp.Delivery) {
	var req resyncMessage
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		log.Printf("[ResyncConsumer] failed to unmarshal: %v", err)
		msg.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), rc.timeout)
	defer cancel()

	var summary *service.SyncSummary
	var err error
	if req.PropertyID != 0 {
		summary, err = rc.calendarSvc.SyncProperty(ctx, req.PropertyID)
	} else {
		summary, err = rc.calendarSvc.SyncAll(ctx)
	}
	if err != nil {
		// Listing feeds failed outright; per-feed errors never reach here.
		log.Printf("[ResyncConsumer] resync failed for property %d: %v", req.PropertyID, err)
		msg.Nack(false, true)
		return
	}

	log.Printf("[ResyncConsumer] resynced property %d: %d new ranges across %d feeds",
		req.PropertyID, summary.Imported, len(summary.Feeds))
	msg.Ack(false)
}
