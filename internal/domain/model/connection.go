package model

// ConnStatus tracks the push channel lifecycle.
type ConnStatus int8

const (
	StatusDisconnected ConnStatus = iota
	StatusConnecting
	StatusConnected
)

func (s ConnStatus) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ConnectionState is published on every channel transition.
// ClientID is the server-assigned identifier, present only while connected.
type ConnectionState struct {
	Status   ConnStatus `json:"status"`
	ClientID string     `json:"clientId,omitempty"`
}

func (s ConnectionState) Connected() bool { return s.Status == StatusConnected }
