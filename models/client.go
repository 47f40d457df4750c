package models

import "time"

// Client represents a configured simulated AI customer persona under test.
type Client struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Category            string     `json:"category"`
	Prompt              string     `json:"prompt"`
	MaxMessages         int        `json:"max_messages"`
	UseRandomGeneration bool       `json:"use_random_generation"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	TestCases           []TestCase `json:"test_cases,omitempty"`
}

// ClientRequest is the payload for creating or updating a client.
type ClientRequest struct {
	Name                string   `json:"name" validate:"required,min=1,max=100"`
	Category            string   `json:"category" validate:"required,min=1,max=100"`
	Prompt              string   `json:"prompt" validate:"max=4000"`
	MaxMessages         int      `json:"max_messages" validate:"required,min=1,max=1000"`
	UseRandomGeneration bool     `json:"use_random_generation"`
	TestCaseIDs         []string `json:"test_case_ids,omitempty" validate:"dive,uuid4"`
}

// ClientStatus is the runtime view of a client exposed to the dashboard.
type ClientStatus struct {
	ClientID     string `json:"client_id"`
	Name         string `json:"name"`
	State        string `json:"state"`
	MessageCount int    `json:"message_count"`
	MaxMessages  int    `json:"max_messages"`
	AtLimit      bool   `json:"at_limit"`
}
