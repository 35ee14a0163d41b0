package ui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"storyteller/internal/gen"
	"storyteller/internal/saga"
	"storyteller/internal/story"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case animationTickMsg:
		if m.loading {
			m.animationFrame++
			return m, animationTimer()
		}
		return m, nil

	case worldForgedMsg:
		return m.handleWorldForged(msg)
	case sagaBegunMsg:
		return m.handleTurnOutcome(msg.result, msg.err)
	case turnWovenMsg:
		return m.handleTurnOutcome(msg.result, msg.err)
	case sagaNarratedMsg:
		return m.handleSagaNarrated(msg)

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}
	return m, nil
}

func (m Model) handleWorldForged(msg worldForgedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		// A stale result from a forge that raced a restart; nothing to show.
		if errors.Is(msg.err, saga.ErrInvalidTransition) {
			return m, nil
		}
		m.errText = describeError(msg.err)
		return m, nil
	}
	m.errText = ""
	m.statusText = "Your world has been created. Start your story with a single, compelling sentence."
	return m, nil
}

func (m Model) handleTurnOutcome(result *story.TurnResult, err error) (tea.Model, tea.Cmd) {
	m.loading = false
	if err != nil {
		// A stale result from a turn that raced a restart; nothing to show.
		if errors.Is(err, saga.ErrInvalidTransition) {
			return m, nil
		}
		m.errText = describeError(err)
		return m, nil
	}
	m.errText = ""
	m.choiceIdx = 0
	m.statusText = ""
	if result != nil && result.Narration != nil {
		m.statusText = "Narration saved to " + result.Narration.Path
	}
	return m, nil
}

func (m Model) handleSagaNarrated(msg sagaNarratedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		m.errText = describeError(msg.err)
		return m, nil
	}
	m.errText = ""
	if msg.audio == nil {
		m.statusText = "Narration is disabled: no speech credential configured."
	} else {
		m.statusText = "Full saga narration saved to " + msg.audio.Path
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+r":
		return m.restart()
	}

	if m.loading {
		return m, nil
	}

	switch m.sg.Stage() {
	case saga.WorldForge:
		return m.handleForgeKeys(msg)
	case saga.StoryStart:
		return m.handleOpeningKeys(msg)
	case saga.StoryCycle:
		return m.handleCycleKeys(msg)
	}
	return m, nil
}

func (m Model) restart() (tea.Model, tea.Cmd) {
	m.sg.Restart()
	m.loading = false
	m.errText = ""
	m.statusText = ""
	m.focus = fieldTheme
	m.themeIdx = 0
	m.archetypeIdx = 0
	m.contradiction = defaultContradiction
	m.opening = defaultOpening
	m.choiceIdx = 0
	return m, nil
}

func (m Model) handleForgeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.focus = (m.focus + 1) % 3
		return m, nil
	case "shift+tab", "up":
		m.focus = (m.focus + 2) % 3
		return m, nil

	case "left":
		switch m.focus {
		case fieldTheme:
			m.themeIdx = (m.themeIdx + len(themes) - 1) % len(themes)
		case fieldArchetype:
			m.archetypeIdx = (m.archetypeIdx + len(archetypes) - 1) % len(archetypes)
		}
		return m, nil
	case "right":
		switch m.focus {
		case fieldTheme:
			m.themeIdx = (m.themeIdx + 1) % len(themes)
		case fieldArchetype:
			m.archetypeIdx = (m.archetypeIdx + 1) % len(archetypes)
		}
		return m, nil

	case "enter":
		if strings.TrimSpace(m.contradiction) == "" {
			m.errText = "The world needs a contradiction before it can be forged."
			return m, nil
		}
		m.loading = true
		m.animationFrame = 0
		m.errText = ""
		return m, tea.Batch(
			forgeWorldCmd(m.orch, m.sg, themes[m.themeIdx], archetypes[m.archetypeIdx], m.contradiction),
			animationTimer(),
		)

	case "backspace":
		if m.focus == fieldContradiction && len(m.contradiction) > 0 {
			m.contradiction = m.contradiction[:len(m.contradiction)-1]
		}
		return m, nil

	default:
		if m.focus == fieldContradiction && len(msg.String()) == 1 {
			m.contradiction += msg.String()
		}
		return m, nil
	}
}

func (m Model) handleOpeningKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if strings.TrimSpace(m.opening) == "" {
			return m, nil
		}
		m.loading = true
		m.animationFrame = 0
		m.errText = ""
		return m, tea.Batch(beginSagaCmd(m.orch, m.sg, m.opening), animationTimer())

	case "backspace":
		if len(m.opening) > 0 {
			m.opening = m.opening[:len(m.opening)-1]
		}
		return m, nil

	default:
		if len(msg.String()) == 1 {
			m.opening += msg.String()
		}
		return m, nil
	}
}

func (m Model) handleCycleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	choices := m.sg.PendingChoices()

	switch msg.String() {
	case "up", "k":
		if len(choices) > 0 {
			m.choiceIdx = (m.choiceIdx + len(choices) - 1) % len(choices)
		}
		return m, nil
	case "down", "j":
		if len(choices) > 0 {
			m.choiceIdx = (m.choiceIdx + 1) % len(choices)
		}
		return m, nil

	case "enter":
		if len(choices) == 0 {
			return m, nil
		}
		m.loading = true
		m.animationFrame = 0
		m.errText = ""
		return m, tea.Batch(weaveTurnCmd(m.orch, m.sg, choices[m.choiceIdx]), animationTimer())

	case "n":
		m.loading = true
		m.animationFrame = 0
		m.errText = ""
		return m, tea.Batch(narrateSagaCmd(m.orch, m.sg), animationTimer())

	case "r":
		return m.restart()
	}
	return m, nil
}

// describeError renders an error for the user with enough detail to diagnose
// it without log access: parse failures include the raw offending reply,
// HTTP failures include the upstream status and body.
func describeError(err error) string {
	var parseErr *story.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Sprintf("The AI returned an unexpected format: %s\nRaw reply: %s",
			parseErr.Reason, excerpt(parseErr.RawReply, 300))
	}

	var svcErr *gen.ServiceError
	if errors.As(err, &svcErr) {
		text := svcErr.Error()
		if svcErr.Body != "" {
			text += "\n" + excerpt(svcErr.Body, 300)
		}
		return text
	}

	return err.Error()
}

// excerpt truncates on a rune boundary so multi-byte text is never split
// mid-character.
func excerpt(text string, max int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}
