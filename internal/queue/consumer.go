package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// StartConsumer connects to RabbitMQ, declares the registry queues and
// consumes both, appending each event to logs/registry.log in a
// single-line, human-friendly format.  It runs a reconnect loop with
// exponential backoff and keeps running across broker outages; processing
// errors are logged and the offending message is rejected without requeue
// so the server continues operating.  Intended to run in its own goroutine.
func StartConsumer(log *logrus.Logger) error {
	url := brokerURL()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("registry-consumer: failed to dial broker; retrying in %s", backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, log); err != nil {
			log.WithError(err).Warn("registry-consumer: consume loop ended; reconnecting")
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection, log *logrus.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("registry-consumer: set QoS failed")
	}

	for _, name := range []string{GiftReservedQueue, ReceiptDecidedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
	}

	reserved, err := ch.Consume(GiftReservedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", GiftReservedQueue, err)
	}
	decided, err := ch.Consume(ReceiptDecidedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", ReceiptDecidedQueue, err)
	}

	for {
		select {
		case d, ok := <-reserved:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			handle(d, log, formatReserved)
		case d, ok := <-decided:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			handle(d, log, formatDecided)
		}
	}
}

func handle(d amqp.Delivery, log *logrus.Logger, format func([]byte) (string, error)) {
	line, err := format(d.Body)
	if err != nil {
		log.WithError(err).Warn("registry-consumer: handle message failed")
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	if err := appendLog(line); err != nil {
		log.WithError(err).Warn("registry-consumer: write log failed")
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func formatReserved(body []byte) (string, error) {
	var ev GiftReservedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return "", fmt.Errorf("unmarshal: %w", err)
	}
	price := "-"
	if ev.PriceCents != nil {
		price = fmt.Sprintf("%d cents", *ev.PriceCents)
	}
	return fmt.Sprintf("[%s] Gift reserved | gift_id=%d | gift=%q | by=%q | price=%s | expires=%s\n",
		ev.ReservedAt, ev.GiftID, ev.GiftName, ev.ReservedBy, price, ev.ExpiresAt), nil
}

func formatDecided(body []byte) (string, error) {
	var ev ReceiptDecidedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return "", fmt.Errorf("unmarshal: %w", err)
	}
	return fmt.Sprintf("[%s] Receipt decided | gift_id=%d | gift=%q | guest=%q | decision=%s\n",
		ev.DecidedAt, ev.GiftID, ev.GiftName, ev.GuestName, ev.Decision), nil
}

func appendLog(line string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "registry.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
