package service

import (
	"context"
	"encoding/json"
	"log"

	"ai-docchat-be/internal/websocket"
	"ai-docchat-be/pkg/events"
	pktNats "ai-docchat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IEventsConsumerService interface {
	Consume(ctx context.Context) error
}

// eventsConsumerService drains the in-process event bus and fans events out
// to websocket clients and, when configured, an external NATS stream.
type eventsConsumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	wsHub     *websocket.Hub
	natsPub   *pktNats.Publisher
}

func NewEventsConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	wsHub *websocket.Hub,
	natsPub *pktNats.Publisher,
) IEventsConsumerService {
	return &eventsConsumerService{
		pubSub:    pubSub,
		topicName: topicName,
		wsHub:     wsHub,
		natsPub:   natsPub,
	}
}

func (cs *eventsConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *eventsConsumerService) processMessage(ctx context.Context, msg *message.Message) {
	var env events.Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		log.Printf("[ERROR] Failed to unmarshal event: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	evt := env.Event()

	if cs.wsHub != nil {
		cs.wsHub.BroadcastEvent(evt)
	}

	// Forwarding is best effort; websocket delivery already happened.
	if cs.natsPub != nil {
		if err := cs.natsPub.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to forward %s event to NATS: %v", evt.EventType(), err)
		}
	}

	msg.Ack()
}
