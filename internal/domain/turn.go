package domain

// DefaultSource tags requests coming from the live chat surface.
const DefaultSource = "livesearch"

type TurnPayload struct {
	Prompt    string       `json:"prompt"`
	SessionID SessionToken `json:"session_id"`
	Source    string       `json:"source"`
	Email     string       `json:"email,omitempty"`
}

type TurnRequest struct {
	RuntimeSessionID SessionToken `json:"runtimeSessionId"`
	Payload          TurnPayload  `json:"payload"`
}
