package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"storyteller/internal/saga"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("13")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	chapterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Italic(true)

	imageNoteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))

	selectedChoiceStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("12")).
				Bold(true)

	focusedFieldStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("12")).
				Bold(true)

	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("The Multimodal Storyteller") + "\n\n")

	switch m.sg.Stage() {
	case saga.WorldForge:
		s.WriteString(m.viewWorldForge())
	case saga.StoryStart:
		s.WriteString(m.viewStoryStart())
	case saga.StoryCycle:
		s.WriteString(m.viewStoryCycle())
	}

	if m.loading {
		s.WriteString("\n" + loadingStyle.Render(getLoadingAnimation(m.animationFrame)+" The Storyteller is weaving...") + "\n")
	}
	if m.errText != "" {
		s.WriteString("\n" + errorStyle.Render(m.wrap(m.errText)) + "\n")
	}
	if m.statusText != "" {
		s.WriteString("\n" + statusStyle.Render(m.wrap(m.statusText)) + "\n")
	}

	s.WriteString("\n" + helpStyle.Render(m.helpLine()))
	return s.String()
}

func (m Model) viewWorldForge() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Step 1: Forge Your World") + "\n\n")

	s.WriteString(m.renderPicker("Core Theme", themes[m.themeIdx], m.focus == fieldTheme) + "\n")
	s.WriteString(m.renderPicker("Protagonist Archetype", archetypes[m.archetypeIdx], m.focus == fieldArchetype) + "\n")

	contradiction := m.contradiction
	if m.focus == fieldContradiction {
		contradiction += "│"
	}
	s.WriteString(m.renderField("World's Contradiction", contradiction, m.focus == fieldContradiction) + "\n")
	return s.String()
}

func (m Model) viewStoryStart() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Step 2: Begin Your Saga") + "\n\n")

	bible := m.sg.WorldBible()
	if bible != "" {
		s.WriteString(imageNoteStyle.Render(m.wrap("World Bible: "+excerpt(bible, 400))) + "\n\n")
	}

	s.WriteString(fieldStyle.Render("Your opening sentence:") + "\n")
	s.WriteString(focusedFieldStyle.Render(m.wrap(m.opening+"│")) + "\n")
	return s.String()
}

func (m Model) viewStoryCycle() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("Your Saga Unfolds...") + "\n\n")

	for _, chapter := range m.visibleChapters() {
		if chapter.Image != nil {
			s.WriteString(imageNoteStyle.Render(fmt.Sprintf("[illustration: %s]", chapter.Image.Path)) + "\n")
		}
		s.WriteString(chapterStyle.Render(m.wrap(chapter.Text)) + "\n\n")
	}

	choices := m.sg.PendingChoices()
	if len(choices) > 0 {
		s.WriteString(headerStyle.Render("What Happens Next?") + "\n")
		for i, choice := range choices {
			if i == m.choiceIdx {
				s.WriteString(selectedChoiceStyle.Render("▸ "+m.wrap(choice)) + "\n")
			} else {
				s.WriteString(choiceStyle.Render("  "+m.wrap(choice)) + "\n")
			}
		}
	}
	return s.String()
}

// visibleChapters trims the transcript to what fits the terminal, keeping
// the newest chapters.
func (m Model) visibleChapters() []saga.Chapter {
	transcript := m.sg.Transcript()
	if m.height <= 0 {
		return transcript
	}

	// Rough budget: three lines per chapter, plus header/choices/help chrome.
	maxChapters := (m.height - 12) / 3
	if maxChapters < 1 {
		maxChapters = 1
	}
	if len(transcript) > maxChapters {
		return transcript[len(transcript)-maxChapters:]
	}
	return transcript
}

func (m Model) renderPicker(label, value string, focused bool) string {
	line := fmt.Sprintf("%s: ◂ %s ▸", label, value)
	if focused {
		return focusedFieldStyle.Render(line)
	}
	return fieldStyle.Render(line)
}

func (m Model) renderField(label, value string, focused bool) string {
	line := fmt.Sprintf("%s: %s", label, value)
	if focused {
		return focusedFieldStyle.Render(m.wrap(line))
	}
	return fieldStyle.Render(m.wrap(line))
}

func (m Model) helpLine() string {
	switch m.sg.Stage() {
	case saga.WorldForge:
		return "tab/↑↓ move · ←→ change option · enter forge world · ctrl+c quit"
	case saga.StoryStart:
		return "type your opening sentence · enter start the saga · ctrl+r restart · ctrl+c quit"
	default:
		return "↑↓ choose a path · enter weave next chapter · n narrate full saga · r restart · ctrl+c quit"
	}
}

func (m Model) wrap(text string) string {
	width := m.width - 4
	if width < 20 {
		width = 76
	}
	return wrapAndIndent(text, width, "")
}

func wrapAndIndent(text string, width int, indent string) string {
	if len(text) <= width {
		return indent + text
	}

	var result strings.Builder
	words := strings.Fields(text)
	if len(words) == 0 {
		return indent + text
	}

	currentLine := indent + words[0]
	for _, word := range words[1:] {
		if len(currentLine)+1+len(word) <= width {
			currentLine += " " + word
		} else {
			result.WriteString(currentLine + "\n")
			currentLine = indent + word
		}
	}
	result.WriteString(currentLine)
	return result.String()
}

func getLoadingAnimation(frame int) string {
	arc := []string{"◜", "◠", "◝", "◞", "◡", "◟"}
	return arc[frame%len(arc)]
}
