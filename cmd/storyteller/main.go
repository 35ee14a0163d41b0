// The Multimodal Storyteller is a terminal app for interactive, choice-driven
// stories. It forges a world from a few creative inputs, then weaves the tale
// chapter by chapter with generated text, illustrations and narration.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"storyteller/internal/config"
	"storyteller/internal/logging"
)

func main() {
	// A missing .env file is fine; real env vars still apply.
	_ = godotenv.Load()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "review", "--review":
			runReviewMode()
			return
		}
	}

	model, cleanup, err := createApp()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func runReviewMode() {
	// Review mode only needs the turn log path; a missing API credential is
	// fine here.
	cfg, err := config.Load()
	if err != nil && !errors.Is(err, config.ErrCredentialMissing) {
		fmt.Printf("Failed to load configuration: %v\n", err)
		return
	}

	turnLog, err := logging.NewTurnLog(cfg.TurnLogPath)
	if err != nil {
		fmt.Printf("Failed to open turn log: %v\n", err)
		return
	}
	defer turnLog.Close()

	records, err := turnLog.Recent(10)
	if err != nil {
		fmt.Printf("Failed to read turns: %v\n", err)
		return
	}

	if len(records) == 0 {
		fmt.Println("No turns recorded yet. Weave a story first!")
		return
	}

	fmt.Printf("Recent turns (%d):\n\n", len(records))
	for _, rec := range records {
		var metadata logging.TurnMetadata
		if err := json.Unmarshal([]byte(rec.Metadata), &metadata); err == nil {
			fmt.Printf("[%d] %s | %s | %v | %s\n",
				rec.ID,
				rec.Timestamp.Format("15:04:05"),
				rec.Stage,
				metadata.ResponseTime,
				rec.UserInput)
			if metadata.Error != nil {
				fmt.Printf("Error: %s\n", *metadata.Error)
			}
		} else {
			fmt.Printf("[%d] %s | %s | %s\n", rec.ID, rec.Timestamp.Format("15:04:05"), rec.Stage, rec.UserInput)
		}

		fmt.Printf("Reply: %s\n", rec.RawReply)
		fmt.Println(strings.Repeat("-", 50))
	}
}
