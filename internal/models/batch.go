package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// EventBatch is the payload accepted by the processing endpoint.
type EventBatch struct {
	Events []*TelemetryEvent `json:"events"`
}

// ErrInvalidBody reports an unparsable request body. Anything wrapped with
// it surfaces as a 400 rather than a 500.
var ErrInvalidBody = errors.New("invalid JSON in request body")

// gatewayEnvelope is the API-gateway request shape: the real payload sits
// under "body", either inline or as an escaped JSON string. Headers are
// carried but not inspected here.
type gatewayEnvelope struct {
	Body    json.RawMessage   `json:"body"`
	Headers map[string]string `json:"headers"`
}

// DecodeBatch parses a request body into an EventBatch. Accepted forms:
//
//   - {"events": [...]}
//   - "{\"events\": [...]}"           (JSON-string body)
//   - {"body": <either of the above>, "headers": {...}}
//
// An empty or missing events list decodes to a batch with zero events.
func DecodeBatch(body []byte) (*EventBatch, error) {
	raw := bytes.TrimSpace(body)
	if len(raw) == 0 {
		return &EventBatch{}, nil
	}

	// JSON-string body: unwrap one level and retry.
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		return DecodeBatch([]byte(s))
	}

	if raw[0] != '{' {
		return nil, fmt.Errorf("%w: expected object, got %q", ErrInvalidBody, previewByte(raw))
	}

	// Envelope detection: an object with a "body" key is the gateway shape.
	var env gatewayEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Body) > 0 && !bytes.Equal(env.Body, []byte("null")) {
		return DecodeBatch(env.Body)
	}

	var batch EventBatch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}

	// A literal null in the events array decodes to a nil pointer.
	events := batch.Events[:0]
	for _, evt := range batch.Events {
		if evt != nil {
			events = append(events, evt)
		}
	}
	batch.Events = events

	return &batch, nil
}

func previewByte(raw []byte) byte {
	return raw[0]
}
