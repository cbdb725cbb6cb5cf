package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role,omitempty"`
}

// PayloadEnvelope is the JSON stored in outbox_events.payload and relayed
// verbatim as the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

var errEmptyData = errors.New("envelope data missing")

// SchemaVersion treats unversioned envelopes as v1.
func (e PayloadEnvelope) SchemaVersion() int {
	if e.Version < 1 {
		return 1
	}
	return e.Version
}

// DecodeEnvelope parses raw and rejects envelopes without a uuid event id or a data body.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, uuid.UUID, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, uuid.Nil, fmt.Errorf("decode envelope: %w", err)
	}
	id, err := uuid.Parse(env.EventID)
	if err != nil {
		return env, uuid.Nil, fmt.Errorf("envelope event id %q: %w", env.EventID, err)
	}
	if body := bytes.TrimSpace(env.Data); len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return env, id, errEmptyData
	}
	return env, id, nil
}

func encodeEnvelope(id uuid.UUID, event DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("encode %s data: %w", event.EventType, err)
	}
	return json.Marshal(PayloadEnvelope{
		Version:    event.Version,
		EventID:    id.String(),
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       data,
	})
}
