package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"storyteller/internal/saga"
	"storyteller/internal/story"
)

func animationTimer() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return animationTickMsg{}
	})
}

func forgeWorldCmd(orch *story.Orchestrator, sg *saga.Saga, theme, archetype, contradiction string) tea.Cmd {
	return func() tea.Msg {
		err := orch.ForgeWorld(context.Background(), sg, theme, archetype, contradiction)
		return worldForgedMsg{err: err}
	}
}

func beginSagaCmd(orch *story.Orchestrator, sg *saga.Saga, opening string) tea.Cmd {
	return func() tea.Msg {
		result, err := orch.BeginSaga(context.Background(), sg, opening)
		return sagaBegunMsg{result: result, err: err}
	}
}

func weaveTurnCmd(orch *story.Orchestrator, sg *saga.Saga, choice string) tea.Cmd {
	return func() tea.Msg {
		result, err := orch.WeaveTurn(context.Background(), sg, choice)
		return turnWovenMsg{result: result, err: err}
	}
}

func narrateSagaCmd(orch *story.Orchestrator, sg *saga.Saga) tea.Cmd {
	return func() tea.Msg {
		audio, err := orch.NarrateSaga(context.Background(), sg)
		return sagaNarratedMsg{audio: audio, err: err}
	}
}
