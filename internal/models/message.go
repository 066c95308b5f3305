package models

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of caller-supplied conversation history.
// The core never persists these; continuity across turns is the caller
// re-submitting prior messages.
type ChatMessage struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}
