package domain

// Chat roles accepted in conversation history.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn of an advice conversation.
type ChatMessage struct {
	Role    string
	Content string
}
