package models

import "time"

// Message senders. Customer messages originate from the simulated client,
// service messages from the agent under test.
const (
	SenderCustomer = "customer"
	SenderService  = "service"
)

// Test modes recorded on persisted conversations.
const (
	TestModeSingleChat  = "single_chat"
	TestModeMultiClient = "multi_client"
)

// Message is one side of an exchange in a client's in-session transcript.
// Transcripts are ephemeral: they live in memory for the duration of a
// runner's lifetime and are not rebuilt from storage.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is one persisted exchange: a customer prompt paired with the
// service reply. One complete row per exchange.
type Conversation struct {
	ID              string    `json:"id"`
	ClientID        string    `json:"client_id,omitempty"`
	TestCaseID      string    `json:"test_case_id,omitempty"`
	CustomerMessage string    `json:"customer_message"`
	ServiceResponse string    `json:"service_response"`
	TestMode        string    `json:"test_mode"`
	CreatedAt       time.Time `json:"created_at"`
}

// ChatTurn is one prior turn replayed to the reply service on the
// single-chat path.
type ChatTurn struct {
	Role    string `json:"role" validate:"required,oneof=customer service"`
	Content string `json:"content" validate:"required"`
}

// ChatSendRequest is the payload for a manual single-chat exchange.
type ChatSendRequest struct {
	ClientID string     `json:"client_id,omitempty" validate:"omitempty,uuid4"`
	Message  string     `json:"message" validate:"required,min=1,max=4000"`
	History  []ChatTurn `json:"history,omitempty" validate:"dive"`
}

// ChatSendResponse carries the agent's reply for a single-chat exchange.
type ChatSendResponse struct {
	Reply     string    `json:"reply"`
	Fallback  bool      `json:"fallback"`
	Timestamp time.Time `json:"timestamp"`
}
