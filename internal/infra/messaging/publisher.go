// Package messaging は注文イベントをRabbitMQへ送る。
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"confectionery/internal/domain/model"

	amqp "github.com/rabbitmq/amqp091-go"
)

const OrderPlacedQueue = "order.placed"

type OrderPlacedItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
}

// 受注通知（管理者向けメール等の下流で使う）
type OrderPlaced struct {
	EventType       string            `json:"event_type"`
	OrderID         string            `json:"order_id"`
	UserID          *string           `json:"user_id"`
	Email           string            `json:"email"`
	FullName        string            `json:"full_name"`
	Phone           string            `json:"phone"`
	ShippingAddress string            `json:"shipping_address"`
	PaymentMethod   string            `json:"payment_method"`
	Total           string            `json:"total"`
	Items           []OrderPlacedItem `json:"items"`
	Timestamp       time.Time         `json:"timestamp"`
}

func NewOrderPlaced(o model.Order, items []model.OrderItem, now time.Time) OrderPlaced {
	ev := OrderPlaced{
		EventType:       "OrderPlaced",
		OrderID:         o.ID.String(),
		Email:           o.Email,
		FullName:        o.FullName,
		Phone:           o.Phone,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		Total:           o.Total.StringFixed(2),
		Items:           make([]OrderPlacedItem, 0, len(items)),
		Timestamp:       now.UTC(),
	}
	if o.UserID != nil {
		s := o.UserID.String()
		ev.UserID = &s
	}
	for _, it := range items {
		ev.Items = append(ev.Items, OrderPlacedItem{
			ProductID:   it.ProductID.String(),
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price.StringFixed(2),
		})
	}
	return ev
}

type RabbitPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitPublisher(url string) (*RabbitPublisher, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Dial: amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	p, err := newRabbitPublisher(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

func newRabbitPublisher(conn *amqp.Connection) (*RabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	// publish前にキューを用意しておく
	if _, err := ch.QueueDeclare(OrderPlacedQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare %s: %w", OrderPlacedQueue, err)
	}

	return &RabbitPublisher{conn: conn, ch: ch}, nil
}

func (p *RabbitPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}

func (p *RabbitPublisher) PublishOrderPlaced(ctx context.Context, o model.Order, items []model.OrderItem) error {
	body, err := json.Marshal(NewOrderPlaced(o, items, time.Now()))
	if err != nil {
		return fmt.Errorf("marshal OrderPlaced: %w", err)
	}
	return p.publishJSON(ctx, OrderPlacedQueue, body)
}

func (p *RabbitPublisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		"",         // default exchange
		routingKey, // queue name as routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// AMQP_URL未設定のとき
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(ctx context.Context, o model.Order, items []model.OrderItem) error {
	return nil
}
