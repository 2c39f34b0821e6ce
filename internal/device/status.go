package device

// ConnectionStatus tracks which transports can currently reach a
// device. The two flags are independent: a device can be reachable over
// the broker, over the radio link, both, or neither. Neither flag set
// is the offline state; there is no stored "offline" flag to get out of
// sync with the others.
//
// The zero value is offline. Mutation goes through SetBroker and
// SetRadio, which report whether the observable status moved so callers
// can decide whether an update event is due.
type ConnectionStatus struct {
	broker bool
	radio  bool
}

// Broker reports reachability through the cloud broker.
func (s ConnectionStatus) Broker() bool { return s.broker }

// Radio reports reachability through the short-range link.
func (s ConnectionStatus) Radio() bool { return s.radio }

// Offline reports that neither transport can reach the device.
func (s ConnectionStatus) Offline() bool { return !s.broker && !s.radio }

// SetBroker sets or clears the broker flag. Returns true only when the
// flag actually flipped.
func (s *ConnectionStatus) SetBroker(connected bool) (changed bool) {
	changed = s.broker != connected
	s.broker = connected
	return changed
}

// SetRadio sets or clears the radio flag. Returns true only when the
// flag actually flipped.
func (s *ConnectionStatus) SetRadio(connected bool) (changed bool) {
	changed = s.radio != connected
	s.radio = connected
	return changed
}

// String renders the status for logs: "broker", "radio", "broker+radio"
// or "offline".
func (s ConnectionStatus) String() string {
	switch {
	case s.broker && s.radio:
		return "broker+radio"
	case s.broker:
		return "broker"
	case s.radio:
		return "radio"
	default:
		return "offline"
	}
}
