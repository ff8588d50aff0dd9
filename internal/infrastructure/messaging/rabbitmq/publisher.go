package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "ewm.events"

	// Wait window for Return / Confirm
	publishWait = 2 * time.Second
)

var ErrNotReady = errors.New("publisher channel not ready")

// Publisher sends outbox messages to a durable topic exchange with
// mandatory routing and publisher confirms. Calls are serialized so each
// confirm is matched to its publish.
type Publisher struct {
	url      string
	exchange string
	appID    string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewPublisher(url, exchange, appID string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	p := &Publisher{
		url:      url,
		exchange: exchange,
		appID:    appID,
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}

	// enable publisher confirms
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	p.conn = conn
	p.ch = ch

	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))

	return nil
}

// reconnect replaces a closed connection. Caller holds p.mu.
func (p *Publisher) reconnect() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.closeLocked()
	return p.connect()
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *Publisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// PublishEvent publishes a JSON-encoded envelope body and waits for the
// broker's confirm. An unroutable message, a nack or a timeout is an error so
// the outbox keeps the row for a later attempt.
// messageID MUST be stable across retries (outbox.message_id).
func (p *Publisher) PublishEvent(ctx context.Context, routingKey, messageID string, body []byte) error {
	if routingKey == "" {
		return errors.New("missing routingKey")
	}
	if strings.TrimSpace(messageID) == "" {
		return errors.New("missing messageID")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.reconnect(); err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}

	// Drain stale notifications
drain:
	for {
		select {
		case <-p.returnCh:
		case <-p.confirmCh:
		default:
			break drain
		}
	}

	err := p.ch.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			MessageId:    messageID,
			AppId:        p.appID,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return err
	}

	// A Return for a mandatory message arrives before its Confirm.
	timeout := time.NewTimer(publishWait)
	defer timeout.Stop()
	var returned *amqp.Return
	for {
		select {
		case ret := <-p.returnCh:
			returned = &ret
		case conf, ok := <-p.confirmCh:
			if !ok {
				return ErrNotReady
			}
			if returned != nil {
				return fmt.Errorf("NO_ROUTE: code=%d text=%s rk=%s", returned.ReplyCode, returned.ReplyText, returned.RoutingKey)
			}
			if !conf.Ack {
				return fmt.Errorf("publish nack: delivery_tag=%d", conf.DeliveryTag)
			}
			return nil
		case <-timeout.C:
			return errors.New("confirm timeout")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
