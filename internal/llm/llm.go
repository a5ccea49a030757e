package llm

import "context"

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in the ordered prompt sent to the generation
// service.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Completion is the generation result plus the token usage the service
// reported for it.
type Completion struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// Client invokes the generation service with an ordered message list.
type Client interface {
	Invoke(ctx context.Context, messages []Message) (Completion, error)
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant builds an assistant message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
