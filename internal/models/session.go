package models

import (
	"time"
)

// Exchange represents one completed (query, response) pair in a conversation
type Exchange struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

// ChatSession represents a single user's conversation state.
// History and UseVectorDB are independent of the document store state:
// Clear History empties History only, Clear Database forces UseVectorDB false.
type ChatSession struct {
	ID          string     `json:"session_id"`
	History     []Exchange `json:"history"`
	UseVectorDB bool       `json:"use_vector_db"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AppendExchange records a completed query/response round trip
func (s *ChatSession) AppendExchange(query, response string) {
	s.History = append(s.History, Exchange{Query: query, Response: response})
	s.UpdatedAt = time.Now()
}

// ClearHistory empties the conversation history. The retrieval toggle and the
// document store are left untouched.
func (s *ChatSession) ClearHistory() {
	s.History = nil
	s.UpdatedAt = time.Now()
}

// Messages converts the session history plus the current query into the
// chat-completions message sequence
func (s *ChatSession) Messages(systemPrompt, query string) []ChatMessage {
	messages := make([]ChatMessage, 0, len(s.History)*2+2)
	if systemPrompt != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: systemPrompt})
	}
	for _, ex := range s.History {
		messages = append(messages,
			ChatMessage{Role: "user", Content: ex.Query},
			ChatMessage{Role: "assistant", Content: ex.Response},
		)
	}
	messages = append(messages, ChatMessage{Role: "user", Content: query})
	return messages
}

// Validate checks if the session is valid
func (s *ChatSession) Validate() error {
	if s.ID == "" {
		return &ValidationError{Field: "session_id", Message: "session ID is required"}
	}
	return nil
}
