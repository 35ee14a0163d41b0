package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"storyteller/internal/gen"
	"storyteller/internal/saga"
	"storyteller/internal/story"
)

// Fixed world-forge option lists; the contradiction is free text.
var (
	themes     = []string{"Revenge", "Discovery", "Betrayal", "Survival", "Redemption"}
	archetypes = []string{"The Outcast", "The Reluctant Hero", "The Idealist", "The Trickster"}
)

const (
	defaultContradiction = "A city of high magic where everyone is profoundly bored."
	defaultOpening       = "The last starship captain woke from cryo-sleep to the sound of a ticking clock."
)

type formField int

const (
	fieldTheme formField = iota
	fieldArchetype
	fieldContradiction
)

// Model is the bubbletea shell around one saga. It only projects saga state
// and dispatches user actions; all story logic lives in the orchestrator.
type Model struct {
	sg     *saga.Saga
	orch   *story.Orchestrator
	logger *zap.Logger

	width  int
	height int

	loading        bool
	animationFrame int
	errText        string
	statusText     string

	// World-forge form.
	focus         formField
	themeIdx      int
	archetypeIdx  int
	contradiction string

	// Opening sentence form.
	opening string

	// Choice selection.
	choiceIdx int
}

func NewModel(orch *story.Orchestrator, logger *zap.Logger) Model {
	return Model{
		sg:            saga.New(),
		orch:          orch,
		logger:        logger,
		contradiction: defaultContradiction,
		opening:       defaultOpening,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Saga exposes the session state, mainly for tests.
func (m Model) Saga() *saga.Saga {
	return m.sg
}

type animationTickMsg struct{}

type worldForgedMsg struct {
	err error
}

type sagaBegunMsg struct {
	result *story.TurnResult
	err    error
}

type turnWovenMsg struct {
	result *story.TurnResult
	err    error
}

type sagaNarratedMsg struct {
	audio *gen.AudioHandle
	err   error
}
