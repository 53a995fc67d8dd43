package bridge

// StreamEvent is the JSON-tagged event union on the inbound media stream.
// Unknown event types are tolerated and ignored.
type StreamEvent struct {
	Event string        `json:"event"`
	Start *StartPayload `json:"start,omitempty"`
	Media *MediaPayload `json:"media,omitempty"`
	Stop  *StopPayload  `json:"stop,omitempty"`
}

type StartPayload struct {
	StreamID string `json:"streamSid"`
	CallSID  string `json:"callSid"`
	// CustomParameters carries the durable call record id under
	// "call_id" when the dialing side provides one.
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

type MediaPayload struct {
	Payload string `json:"payload"`
}

type StopPayload struct {
	Reason string `json:"reason,omitempty"`
}

// streamState is the per-stream lifecycle: awaiting-start -> streaming
// -> stopped.
type streamState int

const (
	awaitingStart streamState = iota
	streaming
	stopped
)

func (s streamState) String() string {
	switch s {
	case awaitingStart:
		return "awaiting-start"
	case streaming:
		return "streaming"
	case stopped:
		return "stopped"
	}
	return "unknown"
}
