package service

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/iliyamo/exam-seating/internal/queue"
)

// AMQPPublisher publishes allocation events to a durable RabbitMQ
// queue, dialing once per publish.
type AMQPPublisher struct {
    URL   string
    Queue string
}

// NewAMQPPublisher returns a publisher for the given broker url and
// queue (AllocationQueueName when empty).
func NewAMQPPublisher(url, queue string) *AMQPPublisher {
    if queue == "" {
        queue = q.AllocationQueueName
    }
    return &AMQPPublisher{URL: url, Queue: queue}
}

// PublishAllocation sends ev as a persistent JSON message.  Errors are
// logged and returned so the caller can decide to ignore them.
func (p *AMQPPublisher) PublishAllocation(ctx context.Context, ev q.AllocationEvent) error {
    conn, err := amqp.Dial(p.URL)
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.EventID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    // default exchange, routing key = queue name
    if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }
    return nil
}
