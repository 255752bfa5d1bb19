package core

import "github.com/google/uuid"

// Conversation role identifiers.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// ChatMessage is one entry of a chat transcript. Messages are immutable once
// appended to a transcript.
type ChatMessage struct {
	ID      string  `json:"id"`
	Content Content `json:"content"`
}

// Role returns the conversation role of the message content.
func (m ChatMessage) Role() string { return m.Content.Role }

// NewUserMessage constructs a user-authored text message with a fresh id.
func NewUserMessage(text string) ChatMessage {
	return ChatMessage{
		ID:      NewID(),
		Content: Content{Role: RoleUser, Parts: []Part{TextPart{Text: text}}},
	}
}

// NewAssistantMessage wraps assistant content produced by a generation turn.
func NewAssistantMessage(content Content) ChatMessage {
	content.Role = RoleAssistant
	return ChatMessage{ID: NewID(), Content: content}
}

// NewToolMessage wraps a batch of function responses as a tool-role message.
func NewToolMessage(responses []FunctionResponse) ChatMessage {
	parts := make([]Part, 0, len(responses))
	for _, fr := range responses {
		parts = append(parts, FunctionResponsePart{FunctionResponse: fr})
	}
	return ChatMessage{ID: NewID(), Content: Content{Role: RoleTool, Parts: parts}}
}

// MostRecentUserMessage returns the last user-authored message, or false when
// the transcript contains none.
func MostRecentUserMessage(messages []ChatMessage) (ChatMessage, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role() == RoleUser {
			return messages[i], true
		}
	}
	return ChatMessage{}, false
}

// NewID generates a new unique identifier for messages, events and tool call
// correlation.
func NewID() string { return uuid.NewString() }
