// Package session holds the persisted record of one coach run: the
// conversational threads it opened and the token usage they accumulated.
package session

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Usage is the token accounting for one conversational thread.
type Usage struct {
	ThreadID         string `json:"thread_id"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// NewUsage builds a Usage with the total derived from its parts.
func NewUsage(threadID string, promptTokens, completionTokens int) Usage {
	return Usage{
		ThreadID:         threadID,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
	}
}

// Record is one run of the coach. Pricing is captured at session start so
// historical cost stays correct when the configured pricing changes later.
type Record struct {
	ID                string    `json:"_id"`
	StartedAt         time.Time `json:"started_at"`
	Backend           string    `json:"backend"`
	PromptPricing     float64   `json:"prompt_pricing"`
	CompletionPricing float64   `json:"completion_pricing"`
	Threads           []string  `json:"threads"`
	Usages            []Usage   `json:"usages"`
}

// NewRecord creates a session record with a generated identifier.
func NewRecord(backend string, promptPricing, completionPricing float64) *Record {
	return &Record{
		ID:                uuid.NewString(),
		StartedAt:         time.Now(),
		Backend:           backend,
		PromptPricing:     promptPricing,
		CompletionPricing: completionPricing,
		Threads:           []string{},
		Usages:            []Usage{},
	}
}

// AddThread appends a thread identifier to the session.
func (r *Record) AddThread(threadID string) {
	r.Threads = append(r.Threads, threadID)
}

// AddUsage appends a closed thread's usage to the session.
func (r *Record) AddUsage(u Usage) {
	r.Usages = append(r.Usages, u)
}

// Cost returns the session's total cost in dollars using the pricing
// captured at session start. Each non-zero component is floored at one
// cent so trivial threads still register.
func (r *Record) Cost() float64 {
	var total float64
	for _, u := range r.Usages {
		total += r.usageCost(u)
	}
	return total
}

// usageCost prices a single thread's usage.
func (r *Record) usageCost(u Usage) float64 {
	promptCost := round2(float64(u.PromptTokens) * r.PromptPricing)
	completionCost := round2(float64(u.CompletionTokens) * r.CompletionPricing)
	if promptCost <= 0 {
		promptCost = 0.01
	}
	if completionCost <= 0 {
		completionCost = 0.01
	}
	return promptCost + completionCost
}

// TotalTokens sums token counts across all closed threads.
func (r *Record) TotalTokens() int {
	var total int
	for _, u := range r.Usages {
		total += u.TotalTokens
	}
	return total
}

// String gives a short log-friendly description.
func (r *Record) String() string {
	return fmt.Sprintf("session %s (%d threads, %d tokens)", r.ID, len(r.Threads), r.TotalTokens())
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
