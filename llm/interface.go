package llm

import "context"

const (
	RoleAssistant = "assistant"
	RoleUser      = "user"
)

// Request is one relay turn: the chat's previous response and the new user text.
type Request struct {
	Prior string
	Text  string
}

type Response struct {
	Text string
}

// Message is a single role-tagged turn sent to a provider.
type Message struct {
	Role    string
	Content string
}

type Client interface {
	ID() string
	Complete(ctx context.Context, req Request) (Response, error)
}

// Turns renders a request as the provider conversation: the prior response as
// an assistant turn followed by the user text. Always exactly two turns, even
// when there is no prior response.
func Turns(req Request) []Message {
	return []Message{
		{Role: RoleAssistant, Content: req.Prior},
		{Role: RoleUser, Content: req.Text},
	}
}
