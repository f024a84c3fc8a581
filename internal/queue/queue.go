package queue

import (
	"github.com/streadway/amqp"
)

// AMQPQueue wraps a RabbitMQ connection for durable job queues.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &AMQPQueue{conn: conn, ch: ch}, nil
}

func (q *AMQPQueue) Close() {
	if q.ch != nil {
		q.ch.Close()
	}
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *AMQPQueue) declare(name string) (amqp.Queue, error) {
	return q.ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
}

// Publish pushes a JSON body onto the named durable queue.
func (q *AMQPQueue) Publish(queueName string, body []byte) error {
	queue, err := q.declare(queueName)
	if err != nil {
		return err
	}
	return q.ch.Publish(
		"",
		queue.Name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Consume delivers queue messages to handler until the channel closes.
// Handled messages are acked; a handler error drops the message without
// requeueing, since retry policy lives outside this service.
func (q *AMQPQueue) Consume(queueName string, handler func(body []byte) error) error {
	queue, err := q.declare(queueName)
	if err != nil {
		return err
	}
	msgs, err := q.ch.Consume(
		queue.Name,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	for d := range msgs {
		if err := handler(d.Body); err != nil {
			d.Nack(false, false)
			continue
		}
		d.Ack(false)
	}
	return nil
}
