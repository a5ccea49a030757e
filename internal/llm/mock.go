package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockClient answers without a network call. It echoes the final user
// message so dev-mode transcripts stay readable.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Invoke(_ context.Context, messages []Message) (Completion, error) {
	last := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			last = messages[i].Content
			break
		}
	}

	content := fmt.Sprintf("(mock) %s", firstLine(last))
	inputTokens := 0
	for _, m := range messages {
		inputTokens += len(strings.Fields(m.Content))
	}

	return Completion{
		Content:      content,
		InputTokens:  inputTokens,
		OutputTokens: len(strings.Fields(content)),
	}, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
