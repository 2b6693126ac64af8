package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	"github.com/angelmondragon/bakehouse-backend/pkg/logger"
	"github.com/angelmondragon/bakehouse-backend/pkg/outbox"
	"github.com/angelmondragon/bakehouse-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/bakehouse-backend/pkg/outbox/registry"
)

const verificationMailConsumer = "payment-review-mailer"

type subscriber interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type processedGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// disposition is what happens to a message after handling. Malformed
// messages are acked since redelivery cannot fix them; transient failures
// are nacked for another attempt.
type disposition int

const (
	ack disposition = iota
	nack
)

// Consumer sends the operator a verification e-mail for every
// order_payment_submitted event on the notification subscription.
type Consumer struct {
	subscription subscriber
	guard        processedGuard
	decoders     *registry.DecoderRegistry
	composer     *Composer
	mailer       Mailer
	logg         *logger.Logger
}

func NewConsumer(subscription subscriber, guard processedGuard, composer *Composer, mailer Mailer, logg *logger.Logger) (*Consumer, error) {
	switch {
	case subscription == nil:
		return nil, errors.New("notification subscription required")
	case guard == nil:
		return nil, errors.New("idempotency manager required")
	case composer == nil:
		return nil, errors.New("mail composer required")
	case mailer == nil:
		return nil, errors.New("mailer required")
	case logg == nil:
		return nil, errors.New("logger required")
	}

	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventOrderPaymentSubmitted, 1, func(raw json.RawMessage) (interface{}, error) {
		var evt payloads.OrderPaymentSubmittedEvent
		err := json.Unmarshal(raw, &evt)
		return evt, err
	})
	return &Consumer{
		subscription: subscription,
		guard:        guard,
		decoders:     decoders,
		composer:     composer,
		mailer:       mailer,
		logg:         logg,
	}, nil
}

// Run receives until ctx is canceled or the subscription fails.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) == nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) disposition {
	eventType := msg.Attributes["event_type"]
	ctx = c.logg.WithFields(ctx, map[string]any{"message_id": msg.ID, "event_type": eventType})
	if eventType != string(enums.EventOrderPaymentSubmitted) {
		c.logg.Debug(ctx, "skipping event")
		return ack
	}

	eventID, evt, err := c.decode(msg.Data)
	if err != nil {
		c.logg.Error(ctx, "dropping undecodable message", err)
		return ack
	}
	ctx = c.logg.WithOrderID(ctx, evt.OrderID.String())

	seen, err := c.guard.CheckAndMarkProcessed(ctx, verificationMailConsumer, eventID)
	switch {
	case err != nil:
		c.logg.Error(ctx, "idempotency check failed", err)
		return nack
	case seen:
		c.logg.Info(ctx, "event already processed")
		return ack
	}

	if err := c.sendVerification(ctx, evt); err != nil {
		c.logg.Error(ctx, "verification mail failed", err)
		_ = c.guard.Delete(ctx, verificationMailConsumer, eventID)
		return nack
	}
	c.logg.Info(ctx, "verification mail sent")
	return ack
}

func (c *Consumer) decode(data []byte) (uuid.UUID, payloads.OrderPaymentSubmittedEvent, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return uuid.Nil, payloads.OrderPaymentSubmittedEvent{}, fmt.Errorf("decode envelope: %w", err)
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return uuid.Nil, payloads.OrderPaymentSubmittedEvent{}, fmt.Errorf("event id: %w", err)
	}
	decoded, err := c.decoders.Decode(enums.EventOrderPaymentSubmitted, envelope.Version, envelope.Data)
	if err != nil {
		return uuid.Nil, payloads.OrderPaymentSubmittedEvent{}, fmt.Errorf("decode payload: %w", err)
	}
	return eventID, decoded.(payloads.OrderPaymentSubmittedEvent), nil
}

func (c *Consumer) sendVerification(ctx context.Context, evt payloads.OrderPaymentSubmittedEvent) error {
	mail, err := c.composer.VerificationRequest(evt)
	if err != nil {
		return fmt.Errorf("compose: %w", err)
	}
	return c.mailer.Send(ctx, mail)
}
