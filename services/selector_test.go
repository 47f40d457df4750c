package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aiqalab/redteam-console/models"
)

func TestPromptSelectorRoundRobinOrder(t *testing.T) {
	pool := testCases("p1", "p2", "p3")
	selector := NewPromptSelector(pool, false, nil, 1)

	ctx := context.Background()
	var got []string
	for i := 0; i < 3; i++ {
		prompt, tcID := selector.Next(ctx)
		got = append(got, prompt)
		assert.NotEmpty(t, tcID)
	}

	// Insertion order, no repeats within a cycle
	assert.Equal(t, []string{"p1", "p2", "p3"}, got)
}

func TestPromptSelectorCycleRestart(t *testing.T) {
	pool := testCases("p1", "p2")
	selector := NewPromptSelector(pool, false, nil, 1)

	ctx := context.Background()
	var got []string
	for i := 0; i < 5; i++ {
		prompt, _ := selector.Next(ctx)
		got = append(got, prompt)
	}

	assert.Equal(t, []string{"p1", "p2", "p1", "p2", "p1"}, got)
}

func TestPromptSelectorEmptyPool(t *testing.T) {
	selector := NewPromptSelector(nil, false, nil, 1)

	prompt, tcID := selector.Next(context.Background())

	assert.Equal(t, DefaultGreeting, prompt)
	assert.Empty(t, tcID)
}

func TestPromptSelectorDeterministicForSeed(t *testing.T) {
	pool := testCases("p1", "p2", "p3", "p4")

	run := func(seed int64) []string {
		selector := NewPromptSelector(pool, false, nil, seed)
		var got []string
		for i := 0; i < 8; i++ {
			prompt, _ := selector.Next(context.Background())
			got = append(got, prompt)
		}
		return got
	}

	// Round-robin order does not depend on the seed at all
	assert.Equal(t, run(1), run(99))
}

func TestPromptSelectorRandomUsesParaphrase(t *testing.T) {
	pool := testCases("p1", "p2")
	replies := newMockReplyProvider()
	replies.paraFunc = func(tc models.TestCase) string {
		return "rephrased: " + tc.TestPrompt
	}
	selector := NewPromptSelector(pool, true, replies, 42)

	prompt, tcID := selector.Next(context.Background())

	assert.Contains(t, prompt, "rephrased: ")
	assert.NotEmpty(t, tcID)
}

func TestPromptSelectorRandomFallsBackToLiteral(t *testing.T) {
	pool := testCases("p1")
	replies := newMockReplyProvider()
	// Paraphrase never returns an error; on upstream failure the provider
	// hands back the literal prompt
	replies.paraFunc = func(tc models.TestCase) string {
		return tc.TestPrompt
	}
	replies.replyFunc = func(string) (string, error) {
		return "", errors.New("upstream down")
	}
	selector := NewPromptSelector(pool, true, replies, 42)

	prompt, tcID := selector.Next(context.Background())

	assert.Equal(t, "p1", prompt)
	assert.Equal(t, "tc-a", tcID)
}

func TestPromptSelectorSetPoolKeepsSurvivingHistory(t *testing.T) {
	pool := testCases("p1", "p2", "p3")
	selector := NewPromptSelector(pool, false, nil, 1)
	ctx := context.Background()

	// Consume p1 and p2
	selector.Next(ctx)
	selector.Next(ctx)

	// Drop p1 from the pool mid-cycle
	selector.SetPool(pool[1:], false)

	// p2 was already used this cycle, so p3 comes next
	prompt, _ := selector.Next(ctx)
	assert.Equal(t, "p3", prompt)
}

func TestPromptSelectorReset(t *testing.T) {
	pool := testCases("p1", "p2")
	selector := NewPromptSelector(pool, false, nil, 1)
	ctx := context.Background()

	selector.Next(ctx)
	selector.Reset()

	prompt, _ := selector.Next(ctx)
	assert.Equal(t, "p1", prompt)
}
