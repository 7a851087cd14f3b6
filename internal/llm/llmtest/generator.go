// Package llmtest provides a scripted text generator for tests.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"github.com/guildcare/internal/llm"
)

// Reply is a scripted response for one task
type Reply struct {
	Text string
	Err  error
}

// Generator answers requests by matching the task prompt against registered
// markers. Every request is recorded.
type Generator struct {
	mu       sync.Mutex
	replies  map[string]Reply
	fallback Reply
	requests []llm.Request
}

// NewGenerator creates a generator that answers unmatched prompts with fallback
func NewGenerator(fallback Reply) *Generator {
	return &Generator{
		replies:  make(map[string]Reply),
		fallback: fallback,
	}
}

// On registers a reply for prompts containing marker
func (g *Generator) On(marker string, reply Reply) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies[marker] = reply
	return g
}

// Generate implements llm.Generator
func (g *Generator) Generate(ctx context.Context, req llm.Request) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	reply := g.fallback
	for marker, r := range g.replies {
		if strings.Contains(req.TaskPrompt, marker) {
			reply = r
			break
		}
	}
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return reply.Text, reply.Err
}

// Calls returns the number of requests received
func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// CallsMatching returns the number of requests whose prompt contains marker
func (g *Generator) CallsMatching(marker string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, r := range g.requests {
		if strings.Contains(r.TaskPrompt, marker) {
			n++
		}
	}
	return n
}
