package device

import "testing"

func TestConnectionStatus_ZeroValue(t *testing.T) {
	var s ConnectionStatus

	if s.Broker() {
		t.Error("Broker() = true, want false for zero value")
	}
	if s.Radio() {
		t.Error("Radio() = true, want false for zero value")
	}
	if !s.Offline() {
		t.Error("Offline() = false, want true for zero value")
	}
}

func TestConnectionStatus_SetBroker(t *testing.T) {
	tests := []struct {
		name        string
		initial     bool
		set         bool
		wantChanged bool
	}{
		{"off to on", false, true, true},
		{"on to off", true, false, true},
		{"off to off", false, false, false},
		{"on to on", true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s ConnectionStatus
			s.SetBroker(tt.initial)

			changed := s.SetBroker(tt.set)
			if changed != tt.wantChanged {
				t.Errorf("SetBroker(%v) changed = %v, want %v", tt.set, changed, tt.wantChanged)
			}
			if s.Broker() != tt.set {
				t.Errorf("Broker() = %v, want %v", s.Broker(), tt.set)
			}
		})
	}
}

func TestConnectionStatus_SetRadio(t *testing.T) {
	var s ConnectionStatus

	if changed := s.SetRadio(true); !changed {
		t.Error("SetRadio(true) changed = false, want true")
	}
	if changed := s.SetRadio(true); changed {
		t.Error("second SetRadio(true) changed = true, want false")
	}
	if !s.Radio() {
		t.Error("Radio() = false, want true")
	}
}

func TestConnectionStatus_FlagsAreIndependent(t *testing.T) {
	var s ConnectionStatus
	s.SetBroker(true)
	s.SetRadio(true)

	// Dropping one transport must not disturb the other.
	s.SetBroker(false)
	if !s.Radio() {
		t.Error("Radio() = false after SetBroker(false), want true")
	}
	if s.Offline() {
		t.Error("Offline() = true while radio still connected")
	}

	// Only clearing the last flag collapses to offline.
	s.SetRadio(false)
	if !s.Offline() {
		t.Error("Offline() = false after clearing both flags, want true")
	}
}

func TestConnectionStatus_String(t *testing.T) {
	tests := []struct {
		name   string
		broker bool
		radio  bool
		want   string
	}{
		{"both transports", true, true, "broker+radio"},
		{"broker only", true, false, "broker"},
		{"radio only", false, true, "radio"},
		{"neither", false, false, "offline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s ConnectionStatus
			s.SetBroker(tt.broker)
			s.SetRadio(tt.radio)

			if got := s.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
