package broker

import (
	"fmt"
)

// Maximum payload size for broker messages (1MB).
// This prevents resource exhaustion and aligns with the broker's own limit.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends a message to the specified topic.
//
// Delivery is at-most-once (QoS 0, fixed policy); a nil return means the
// message was handed to the network layer, not that any device received
// it. Disconnected sessions fail fast with ErrNotConnected so callers can
// fall back to another transport instead of queueing blind.
//
// Parameters:
//   - topic: The topic to publish to (the per-device command topic)
//   - payload: The message payload (JSON envelope, max 1MB)
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
//
// Example:
//
//	payload, _ := protocol.EncodeEnvelope(cmd, accountTopic, transaction)
//	err := session.Publish(dev.Topic, payload)
func (s *Session) Publish(topic string, payload []byte) error {
	// Validate inputs
	if topic == "" {
		return ErrInvalidTopic
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	// Check connection state
	if !s.IsConnected() {
		return ErrNotConnected
	}

	// Publish with timeout
	token := s.client.Publish(topic, sessionQoS, false, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}
