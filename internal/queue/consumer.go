package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// ConsumerOptions configures StartAllocationConsumer.
type ConsumerOptions struct {
    URL    string // AMQP url
    Queue  string // defaults to AllocationQueueName
    LogDir string // directory holding allocation.log; defaults to "logs"
}

// StartAllocationConsumer connects to RabbitMQ, declares the allocation
// queue (durable) and appends every event to <LogDir>/allocation.log as
// one line.  It reconnects with exponential backoff and only returns
// once ctx is cancelled.  Malformed messages are rejected without
// requeue so the consumer keeps draining.
func StartAllocationConsumer(ctx context.Context, opts ConsumerOptions) error {
    if opts.Queue == "" {
        opts.Queue = AllocationQueueName
    }
    if opts.LogDir == "" {
        opts.LogDir = "logs"
    }

    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(opts.URL)
        if err != nil {
            log.Printf("allocation-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, opts)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Printf("allocation-consumer: consume loop ended: %v; reconnecting", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, opts ConsumerOptions) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Printf("allocation-consumer: set QoS failed: %v", err)
    }
    if _, err := ch.QueueDeclare(opts.Queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(opts.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(opts.LogDir, d.Body); err != nil {
                log.Printf("allocation-consumer: handle message failed: %v", err)
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func handleMessage(dir string, body []byte) error {
    var ev AllocationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.ExamID == 0 || ev.Action == "" {
        return errors.New("event without exam_id or action")
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(dir, "allocation.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(formatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func formatLine(ev AllocationEvent) string {
    line := fmt.Sprintf("[%s] Exam %s | event_id=%s | exam_id=%d", ev.OccurredAt, ev.Action, ev.EventID, ev.ExamID)
    switch ev.Action {
    case "UNASSIGNED":
        line += fmt.Sprintf(" | removed=%d", ev.Removed)
    case "REASSIGNED":
        line += fmt.Sprintf(" | seated=%d/%d | started_from_bin=%d", ev.Seated, ev.Total, ev.StartedFromBin)
    default:
        line += fmt.Sprintf(" | seated=%d/%d", ev.Seated, ev.Total)
    }
    if ev.ActorID != 0 {
        line += fmt.Sprintf(" | actor_id=%d", ev.ActorID)
    }
    if ev.RequestID != "" {
        line += " | request_id=" + ev.RequestID
    }
    return line + "\n"
}

// sleep waits for d or until ctx ends; it reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
