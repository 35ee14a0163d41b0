package gen

import (
	"context"
	"strings"
	"sync"
)

// Memoization wrappers keyed by the exact input tuple. The upstream models
// are stochastic, so callers must never rely on the cache for correctness;
// it only avoids paying twice for an identical resubmitted form. Entries are
// never evicted: a session produces at most a handful of distinct tuples.

func tupleKey(parts ...string) string {
	return strings.Join(parts, "\x1f")
}

// MemoTextGenerator caches successful world-bible and turn generations.
type MemoTextGenerator struct {
	inner TextGenerator

	mu     sync.Mutex
	bibles map[string]string
	turns  map[string]string
}

func NewMemoTextGenerator(inner TextGenerator) *MemoTextGenerator {
	return &MemoTextGenerator{
		inner:  inner,
		bibles: make(map[string]string),
		turns:  make(map[string]string),
	}
}

func (m *MemoTextGenerator) GenerateWorldBible(ctx context.Context, theme, archetype, contradiction string) (string, error) {
	key := tupleKey(theme, archetype, contradiction)
	m.mu.Lock()
	cached, ok := m.bibles[key]
	m.mu.Unlock()
	if ok {
		return cached, nil
	}

	bible, err := m.inner.GenerateWorldBible(ctx, theme, archetype, contradiction)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.bibles[key] = bible
	m.mu.Unlock()
	return bible, nil
}

func (m *MemoTextGenerator) GenerateTurn(ctx context.Context, storyContext, worldBible, userChoice string) (string, error) {
	key := tupleKey(storyContext, worldBible, userChoice)
	m.mu.Lock()
	cached, ok := m.turns[key]
	m.mu.Unlock()
	if ok {
		return cached, nil
	}

	reply, err := m.inner.GenerateTurn(ctx, storyContext, worldBible, userChoice)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.turns[key] = reply
	m.mu.Unlock()
	return reply, nil
}

// MemoImageGenerator caches successful image generations by prompt. A nil
// handle from an unconfigured inner generator is not cached, so configuring
// a credential later takes effect immediately.
type MemoImageGenerator struct {
	inner ImageGenerator

	mu     sync.Mutex
	images map[string]*ImageHandle
}

func NewMemoImageGenerator(inner ImageGenerator) *MemoImageGenerator {
	return &MemoImageGenerator{
		inner:  inner,
		images: make(map[string]*ImageHandle),
	}
}

func (m *MemoImageGenerator) GenerateImage(ctx context.Context, prompt string) (*ImageHandle, error) {
	m.mu.Lock()
	cached, ok := m.images[prompt]
	m.mu.Unlock()
	if ok {
		return cached, nil
	}

	handle, err := m.inner.GenerateImage(ctx, prompt)
	if err != nil || handle == nil {
		return handle, err
	}
	m.mu.Lock()
	m.images[prompt] = handle
	m.mu.Unlock()
	return handle, nil
}
