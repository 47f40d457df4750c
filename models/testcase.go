package models

import "time"

// TestCase is a stored adversarial or exploratory prompt template. The
// expected result is a human-readable rubric; nothing in the system scores
// replies against it automatically.
type TestCase struct {
	ID             string    `json:"id"`
	AttackType     string    `json:"attack_type"`
	Category       string    `json:"category"`
	TestPrompt     string    `json:"test_prompt"`
	ExpectedResult string    `json:"expected_result"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ImportResult summarizes a tabular test-case import.
type ImportResult struct {
	Parsed    int `json:"parsed"`
	Imported  int `json:"imported"`
	Duplicate int `json:"duplicate"`
	Skipped   int `json:"skipped"`
}
