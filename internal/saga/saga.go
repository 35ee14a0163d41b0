// Package saga holds the session-scoped story state: the world bible, the
// ordered chapter transcript, the pending choices and the current stage,
// together with the transition rules between stages. One Saga exists per
// session and is owned by the presentation layer, never by package-level
// state. All methods are safe for concurrent use: the render loop reads
// while a command goroutine commits a turn.
package saga

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"storyteller/internal/gen"
)

// Stage is the position of a saga in its lifecycle. There is no terminal
// stage: a saga continues until the user restarts it.
type Stage int

const (
	// WorldForge collects theme, archetype and contradiction to generate
	// the world bible. Initial stage.
	WorldForge Stage = iota
	// StoryStart waits for the user's opening sentence.
	StoryStart
	// StoryCycle is the indefinite choice-driven turn loop.
	StoryCycle
)

func (s Stage) String() string {
	switch s {
	case WorldForge:
		return "world_forge"
	case StoryStart:
		return "story_start"
	case StoryCycle:
		return "story_cycle"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when an operation is attempted in a stage
// that does not permit it.
var ErrInvalidTransition = errors.New("invalid saga stage transition")

// Chapter is one narrative beat. The user's opening sentence has no image;
// AI chapters carry one unless image generation failed or is unconfigured.
// Chapters are immutable once appended.
type Chapter struct {
	Text  string
	Image *gen.ImageHandle
}

// Saga is the complete state of one interactive story session.
type Saga struct {
	mu         sync.RWMutex
	id         uuid.UUID
	stage      Stage
	worldBible string
	transcript []Chapter
	choices    []string
}

func New() *Saga {
	return &Saga{
		id:    uuid.New(),
		stage: WorldForge,
	}
}

func (s *Saga) ID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *Saga) Stage() Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage
}

func (s *Saga) WorldBible() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.worldBible
}

// Transcript returns the chapters in chronological order.
func (s *Saga) Transcript() []Chapter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Chapter, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// PendingChoices returns the choices produced by the most recent successful
// turn. Empty only before the first successful turn.
func (s *Saga) PendingChoices() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.choices))
	copy(out, s.choices)
	return out
}

// StoryContext joins all chapter texts in transcript order into the single
// text blob fed back to the narrative generator.
func (s *Saga) StoryContext() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	texts := make([]string, len(s.transcript))
	for i, ch := range s.transcript {
		texts[i] = ch.Text
	}
	return strings.Join(texts, " ")
}

// SetWorldBible records the generated world bible and moves the saga from
// WorldForge to StoryStart. The bible is set exactly once per saga.
func (s *Saga) SetWorldBible(bible string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != WorldForge {
		return fmt.Errorf("%w: world bible can only be set in %s, saga is in %s", ErrInvalidTransition, WorldForge, s.stage)
	}
	s.worldBible = bible
	s.stage = StoryStart
	return nil
}

// BeginStory commits the first successful turn: the user's opening sentence
// as an imageless chapter, the first AI chapter, and the first choice set.
// Moves the saga from StoryStart to StoryCycle.
func (s *Saga) BeginStory(opening string, aiChapter Chapter, choices []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StoryStart {
		return fmt.Errorf("%w: story can only begin in %s, saga is in %s", ErrInvalidTransition, StoryStart, s.stage)
	}
	s.transcript = append(s.transcript, Chapter{Text: opening}, aiChapter)
	s.choices = append([]string(nil), choices...)
	s.stage = StoryCycle
	return nil
}

// CommitTurn appends one AI chapter and replaces the pending choices.
// Valid only in StoryCycle; the stage does not change. A commit racing a
// restart fails the stage check and leaves the fresh saga untouched.
func (s *Saga) CommitTurn(aiChapter Chapter, choices []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StoryCycle {
		return fmt.Errorf("%w: turns can only be committed in %s, saga is in %s", ErrInvalidTransition, StoryCycle, s.stage)
	}
	s.transcript = append(s.transcript, aiChapter)
	s.choices = append([]string(nil), choices...)
	return nil
}

// Restart clears every field and returns the saga to WorldForge with a
// fresh session id.
func (s *Saga) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = uuid.New()
	s.stage = WorldForge
	s.worldBible = ""
	s.transcript = nil
	s.choices = nil
}
