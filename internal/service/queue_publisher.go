package service

import (
    "context"
    "encoding/json"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/csr-service-match/internal/config"
    q "github.com/iliyamo/csr-service-match/internal/queue"
)

// Publisher sends domain events to RabbitMQ.  Each publish dials its own
// connection; the event rate (one per closed request) does not justify a
// pooled channel.  Errors are logged and returned so the caller can ignore
// them without interrupting the request flow.
type Publisher struct {
    url    string
    logger *logrus.Logger
}

func NewPublisher(url string, logger *logrus.Logger) *Publisher {
    return &Publisher{url: url, logger: logger}
}

// PublishRequestClosed publishes ev to the request.closed queue as a
// persistent JSON message with a fresh message id.
func (p *Publisher) PublishRequestClosed(ctx context.Context, ev q.RequestClosedEvent) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        config.LogError(p.logger, "service", "PublishRequestClosed", "dial failed", ev.RequestID, err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        config.LogError(p.logger, "service", "PublishRequestClosed", "channel open failed", ev.RequestID, err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        q.RequestClosedQueue, // name
        true,                 // durable
        false,                // autoDelete
        false,                // exclusive
        false,                // noWait
        nil,                  // args
    ); err != nil {
        config.LogError(p.logger, "service", "PublishRequestClosed", "queue declare failed", ev.RequestID, err)
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        MessageId:    uuid.NewString(),
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",                   // default exchange
        q.RequestClosedQueue, // routing key = queue name
        false,                // mandatory
        false,                // immediate
        pub,
    ); err != nil {
        config.LogError(p.logger, "service", "PublishRequestClosed", "publish failed", ev.RequestID, err)
        return err
    }
    p.logger.WithFields(logrus.Fields{
        "module":     "service",
        "request_id": ev.RequestID,
        "message_id": pub.MessageId,
    }).Debug("request.closed published")
    return nil
}
