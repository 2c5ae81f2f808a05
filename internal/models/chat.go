package models

// Chat roles used by the conversation list.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is the payload accepted by the chat relay. Prompt is a pointer
// so an explicit null can be told apart from a decode failure.
type ChatRequest struct {
	Prompt      *string `json:"prompt"`
	Instruction string  `json:"instruction,omitempty"`
}

// PromptText returns the prompt or "" when it was absent or null.
func (r ChatRequest) PromptText() string {
	if r.Prompt == nil {
		return ""
	}
	return *r.Prompt
}

// ChatResponse is the reply from the server-side market analyst.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// GenerateContentRequest is the upstream generateContent body.
type GenerateContentRequest struct {
	Contents []Content `json:"contents"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text"`
}

// GenerateContentResponse is the subset of the upstream payload the client
// helper reads. The relay itself never decodes successful bodies.
type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
}

type Candidate struct {
	Content *Content `json:"content"`
}

// FirstText walks candidates[0].content.parts[0].text.
func (r *GenerateContentResponse) FirstText() (string, bool) {
	if r == nil || len(r.Candidates) == 0 {
		return "", false
	}
	content := r.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", false
	}
	return content.Parts[0].Text, true
}
