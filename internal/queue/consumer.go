package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/csr-service-match/internal/model"
    "github.com/iliyamo/csr-service-match/internal/repository"
)

// Completer records a completed match.  *repository.MatchRepo satisfies it.
type Completer interface {
    RecordCompletion(ctx context.Context, c model.Completion) (*model.MatchRecord, bool, error)
}

// errBadEvent marks payloads that can never be processed.
var errBadEvent = errors.New("bad request.closed event")

// retryable reports whether a failed delivery should go back on the queue.
// Malformed events and rejected input are dropped, anything else (typically
// the database being unreachable) is retried.
func retryable(err error) bool {
    return !errors.Is(err, errBadEvent) && !errors.Is(err, repository.ErrValidation)
}

// MatchWorker consumes request.closed events and writes the corresponding
// match records.
type MatchWorker struct {
    url     string
    matches Completer
    logger  *logrus.Logger
}

func NewMatchWorker(url string, matches Completer, logger *logrus.Logger) *MatchWorker {
    return &MatchWorker{url: url, matches: matches, logger: logger}
}

// Run connects to RabbitMQ, declares the request.closed queue (durable) and
// consumes until ctx is cancelled.  Lost connections are redialled with
// exponential backoff capped at 30s.  A malformed message is rejected
// without requeue so it cannot stall the queue; a message that failed for
// any other reason is requeued after a short pause.
func (w *MatchWorker) Run(ctx context.Context) error {
    log := w.logger.WithField("module", "match-worker")
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(w.url)
        if err != nil {
            log.Warnf("failed to dial broker: %v; retrying in %s", err, backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = w.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warnf("consume loop ended: %v; reconnecting", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

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

func (w *MatchWorker) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        w.logger.WithField("module", "match-worker").Warnf("set QoS failed: %v", err)
    }
    if _, err := ch.QueueDeclare(RequestClosedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(RequestClosedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }
    w.logger.WithField("module", "match-worker").Info("consuming " + RequestClosedQueue)

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := w.handleMessage(ctx, d.Body); err != nil {
                w.logger.WithFields(logrus.Fields{
                    "module":     "match-worker",
                    "message_id": d.MessageId,
                }).Errorf("handle message failed: %v", err)
                requeue := retryable(err)
                if requeue && !sleep(ctx, time.Second) {
                    _ = d.Nack(false, true)
                    return ctx.Err()
                }
                _ = d.Nack(false, requeue)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// handleMessage decodes one event and records the completion.  A request
// deleted before the event arrived is not an error: there is nothing left
// to record.
func (w *MatchWorker) handleMessage(ctx context.Context, body []byte) error {
    var ev RequestClosedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("%w: unmarshal: %v", errBadEvent, err)
    }
    if ev.RequestID == 0 || ev.CsrID == 0 {
        return fmt.Errorf("%w: missing request_id or csr_id: %s", errBadEvent, body)
    }
    closedAt := ev.ClosedAt
    if closedAt.IsZero() {
        closedAt = time.Now().UTC()
    }
    rec, created, err := w.matches.RecordCompletion(ctx, model.Completion{
        RequestID:   ev.RequestID,
        CsrID:       ev.CsrID,
        MatchedAt:   closedAt,
        CompletedAt: closedAt,
    })
    if errors.Is(err, repository.ErrNotFound) {
        w.logger.WithFields(logrus.Fields{"module": "match-worker", "request_id": ev.RequestID}).
            Warn("request gone before completion could be recorded")
        return nil
    }
    if err != nil {
        return fmt.Errorf("record completion: %w", err)
    }
    w.logger.WithFields(logrus.Fields{
        "module":     "match-worker",
        "request_id": ev.RequestID,
        "match_id":   rec.ID,
        "created":    created,
    }).Info("match recorded")
    return nil
}
