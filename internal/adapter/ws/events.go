package ws

// Inbound message types.
const (
	// MessageProtocol wraps one frame of the editor protocol stream.
	MessageProtocol = "protocol"
	// MessageTrigger asks whether the typed trigger character should open
	// a picker.
	MessageTrigger = "trigger"
)

// Outbound event types.
const (
	// EventProtocol wraps one frame emitted by the analysis host.
	EventProtocol = "protocol"
	// EventPicker carries a picker push command to one connection.
	EventPicker = "picker"
	// EventSpecReloaded announces that the API spec changed revision.
	EventSpecReloaded = "spec.reloaded"
	// EventError reports a per-connection failure.
	EventError = "error"
)

// Error codes carried by EventError payloads.
const (
	ErrCodeInvalid      = "invalid_request"
	ErrCodeAccessDenied = "access_denied"
	ErrCodeRateLimited  = "rate_limited"
)

// ErrorEvent is the payload of EventError messages.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SpecReloadedEvent is the payload of EventSpecReloaded messages.
type SpecReloadedEvent struct {
	Revision int `json:"revision"`
}
