package observability

import "context"

// Publisher sends structured events to the message broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

// EventEnvelope is the wire shape of every published event.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// BuildHeaders assembles broker headers from correlation ids, skipping
// empty values.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}

var defaultPublisher Publisher

// SetPublisher installs the process-wide event publisher.
func SetPublisher(publisher Publisher) {
	defaultPublisher = publisher
}

// PublishEvent publishes through the installed publisher; a nil publisher
// makes it a no-op.
func PublishEvent(ctx context.Context, routingKey string, event EventEnvelope, headers map[string]string) error {
	if defaultPublisher == nil {
		return nil
	}

	err := defaultPublisher.Publish(ctx, routingKey, event, headers)
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}
