package chatclient

import (
	"sync"

	"bnbbrain-backend/internal/models"
)

// Conversation is the in-memory message list of one chat panel. It lives
// as long as its owner and is never persisted.
type Conversation struct {
	mu       sync.RWMutex
	messages []models.ChatMessage
}

func (c *Conversation) AddUser(content string) {
	c.append(models.ChatMessage{Role: models.RoleUser, Content: content})
}

func (c *Conversation) AddAssistant(content string) {
	c.append(models.ChatMessage{Role: models.RoleAssistant, Content: content})
}

func (c *Conversation) append(msg models.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// Messages returns a copy in arrival order.
func (c *Conversation) Messages() []models.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}
