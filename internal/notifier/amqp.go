package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/julianstephens/dietline/internal/constants"
	"github.com/julianstephens/dietline/internal/order"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher publishes every order event to the events topic exchange with
// routing key "order.<kind>".
type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
}

// EventMessage is the JSON body of a published event.
type EventMessage struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Kind      string    `json:"kind"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Reason    string    `json:"reason,omitempty"`
	Status    string    `json:"status"`
	Stage     string    `json:"stage,omitempty"`
	Meal      string    `json:"meal,omitempty"`
	Scheduled time.Time `json:"scheduled_at,omitzero"`
	At        time.Time `json:"at"`
}

// DialPublisher connects to the broker and declares the durable events
// exchange.
func DialPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	if err := ch.ExchangeDeclare(constants.EventsExchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", constants.EventsExchange, err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: constants.EventsExchange}, nil
}

func RoutingKey(ev order.Event) string {
	return "order." + string(ev.Transition.Kind)
}

func NewEventMessage(ev order.Event) EventMessage {
	tr := ev.Transition
	msg := EventMessage{
		ID:      tr.ID.String(),
		OrderID: tr.OrderID,
		Kind:    string(tr.Kind),
		From:    tr.From,
		To:      tr.To,
		Reason:  tr.Reason,
		Status:  string(ev.Snapshot.Status),
		Stage:   string(ev.Snapshot.Stage),
		At:      tr.At.UTC(),
	}
	if c := ev.Snapshot.Candidate; c != nil {
		msg.Meal = string(c.MealCategory)
		msg.Scheduled = c.ScheduledAt.UTC()
	}
	return msg
}

func (p *Publisher) Observe(ctx context.Context, ev order.Event) error {
	body, err := json.Marshal(NewEventMessage(ev))
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(ev), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		MessageId:    ev.Transition.ID.String(),
		Body:         body,
	})
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
