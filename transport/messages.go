package transport

// Message types exchanged between the automation core and the
// background coordinator.
const (
	// MsgSettingsUpdated carries the full settings snapshot to the core.
	MsgSettingsUpdated = "settings_updated"
	// MsgAutomationToggle flips the automation loop on or off.
	MsgAutomationToggle = "automation_toggle"
	// MsgGenerationRequest asks the coordinator for reply text.
	MsgGenerationRequest = "generation_request"
	// MsgGenerationReply delivers generated (or fallback) reply text.
	MsgGenerationReply = "generation_reply"
	// MsgGenerationError reports a transport-level generation failure.
	MsgGenerationError = "generation_error"
	// MsgPing is a liveness probe; the core answers with an alive marker.
	MsgPing = "ping"
)

// AutomationToggle is the payload of MsgAutomationToggle.
type AutomationToggle struct {
	Enabled bool `json:"enabled"`
}

// GenerationRequest is the payload of MsgGenerationRequest. Prompt is
// the extracted item text; the coordinator owns the prompt template.
type GenerationRequest struct {
	ItemID string `json:"item_id"`
	Prompt string `json:"prompt"`
}

// GenerationReply is the payload of MsgGenerationReply. Fallback marks
// canned text substituted for a failed generation; the core treats it
// identically to generated text.
type GenerationReply struct {
	ItemID   string `json:"item_id"`
	Text     string `json:"text"`
	Fallback bool   `json:"fallback,omitempty"`
}

// GenerationError is the payload of MsgGenerationError.
type GenerationError struct {
	ItemID string `json:"item_id,omitempty"`
	Error  string `json:"error"`
}

// Pong is the answer to MsgPing.
type Pong struct {
	Alive bool `json:"alive"`
}
