package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/artmarket-backend/pkg/enums"
	"github.com/angelmondragon/artmarket-backend/pkg/outbox/payloads"
)

// ErrNoDecoder is returned for an event type and schema version nobody registered.
var ErrNoDecoder = errors.New("no decoder registered")

// Decoder turns the data field of an envelope into a typed payload.
type Decoder func(payload json.RawMessage) (any, error)

type schemaKey struct {
	eventType enums.OutboxEventType
	version   int
}

func (k schemaKey) String() string {
	return fmt.Sprintf("%s@v%d", k.eventType, k.version)
}

// DecoderRegistry maps (event type, schema version) to a payload decoder.
// Consumers look decoders up per message, so reads take a shared lock.
type DecoderRegistry struct {
	mu       sync.RWMutex
	decoders map[schemaKey]Decoder
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: map[schemaKey]Decoder{}}
}

// NewDeliveryDecoderRegistry knows the v1 schema of every delivery event.
func NewDeliveryDecoderRegistry() *DecoderRegistry {
	reg := NewDecoderRegistry()
	reg.MustRegister(enums.EventDeliveryStatusChanged, 1, jsonDecoder[payloads.DeliveryStatusChangedEvent])
	reg.MustRegister(enums.EventDeliveryNotificationRequested, 1, jsonDecoder[payloads.DeliveryNotificationRequestedEvent])
	return reg
}

// Register adds decoder for one schema version. Registering the same version
// twice is an error.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder Decoder) error {
	key := schemaKey{eventType: eventType, version: version}
	switch {
	case decoder == nil:
		return fmt.Errorf("decoder for %s is nil", key)
	case version < 1:
		return fmt.Errorf("decoder for %s: version must be positive", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.decoders[key]; exists {
		return fmt.Errorf("decoder for %s already registered", key)
	}
	r.decoders[key] = decoder
	return nil
}

// MustRegister is Register for wiring code that cannot continue on error.
func (r *DecoderRegistry) MustRegister(eventType enums.OutboxEventType, version int, decoder Decoder) {
	if err := r.Register(eventType, version, decoder); err != nil {
		panic(err)
	}
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	key := schemaKey{eventType: eventType, version: version}
	r.mu.RLock()
	decoder, ok := r.decoders[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNoDecoder)
	}

	out, err := decoder(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

// jsonDecoder returns *T so consumers can type-switch on pointer payloads.
func jsonDecoder[T any](payload json.RawMessage) (any, error) {
	out := new(T)
	if err := json.Unmarshal(payload, out); err != nil {
		return nil, err
	}
	return out, nil
}
