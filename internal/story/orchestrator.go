// Package story drives narrative turns: it sequences the generation calls
// for one turn, parses the structured reply and commits the result to the
// saga. A turn either commits fully (chapter + choices) or leaves the saga
// untouched.
package story

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storyteller/internal/gen"
	"storyteller/internal/logging"
	"storyteller/internal/saga"
)

// Orchestrator coordinates the text, image and speech generators for a
// session. Calls within one turn are sequential: the image prompt depends on
// the text result and narration depends on the committed chapter.
type Orchestrator struct {
	text    gen.TextGenerator
	images  gen.ImageGenerator
	speech  gen.SpeechSynthesizer
	model   string
	turnLog *logging.TurnLog // optional, best effort
	logger  *zap.Logger
}

func NewOrchestrator(
	text gen.TextGenerator,
	images gen.ImageGenerator,
	speech gen.SpeechSynthesizer,
	model string,
	turnLog *logging.TurnLog,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		text:    text,
		images:  images,
		speech:  speech,
		model:   model,
		turnLog: turnLog,
		logger:  logger,
	}
}

// TurnResult is what one successful turn produced.
type TurnResult struct {
	Chapter   saga.Chapter
	Choices   []string
	Narration *gen.AudioHandle
}

// ForgeWorld generates the world bible from the forge inputs and moves the
// saga to StoryStart. Failures leave the saga in WorldForge so the form can
// be resubmitted.
func (o *Orchestrator) ForgeWorld(ctx context.Context, sg *saga.Saga, theme, archetype, contradiction string) error {
	if sg.Stage() != saga.WorldForge {
		return fmt.Errorf("%w: cannot forge world in %s", saga.ErrInvalidTransition, sg.Stage())
	}

	bible, err := o.text.GenerateWorldBible(ctx, theme, archetype, contradiction)
	if err != nil {
		o.logger.Warn("world bible generation failed", zap.String("session_id", sg.ID().String()), zap.Error(err))
		return err
	}

	if err := sg.SetWorldBible(bible); err != nil {
		return err
	}
	o.logger.Info("world forged",
		zap.String("session_id", sg.ID().String()),
		zap.String("theme", theme),
		zap.String("archetype", archetype),
	)
	return nil
}

// BeginSaga runs the first turn from the user's opening sentence. On success
// the transcript gains two chapters (the opening, then the AI reply) and the
// saga enters StoryCycle. On failure nothing is mutated and the user may
// resubmit. The first turn is not auto-narrated.
func (o *Orchestrator) BeginSaga(ctx context.Context, sg *saga.Saga, opening string) (*TurnResult, error) {
	if sg.Stage() != saga.StoryStart {
		return nil, fmt.Errorf("%w: cannot begin story in %s", saga.ErrInvalidTransition, sg.Stage())
	}

	// The opening sentence stands in for story context on the very first turn.
	turn, image, err := o.generateTurn(ctx, sg, opening, opening)
	if err != nil {
		return nil, err
	}

	aiChapter := saga.Chapter{Text: turn.NarrativeChapter, Image: image}
	if err := sg.BeginStory(opening, aiChapter, turn.NextChoices); err != nil {
		return nil, err
	}

	o.logger.Info("saga begun", zap.String("session_id", sg.ID().String()))
	return &TurnResult{Chapter: aiChapter, Choices: turn.NextChoices}, nil
}

// WeaveTurn runs one StoryCycle turn for the submitted choice: generate,
// parse, illustrate (degrade-not-fail), commit, then narrate the new chapter.
// Text-generation and parse failures abort the turn with no state mutation;
// there are no automatic retries, resubmission is the retry.
func (o *Orchestrator) WeaveTurn(ctx context.Context, sg *saga.Saga, choice string) (*TurnResult, error) {
	if sg.Stage() != saga.StoryCycle {
		return nil, fmt.Errorf("%w: cannot weave turn in %s", saga.ErrInvalidTransition, sg.Stage())
	}

	turn, image, err := o.generateTurn(ctx, sg, sg.StoryContext(), choice)
	if err != nil {
		return nil, err
	}

	aiChapter := saga.Chapter{Text: turn.NarrativeChapter, Image: image}
	if err := sg.CommitTurn(aiChapter, turn.NextChoices); err != nil {
		return nil, err
	}

	// Per-turn narration covers only the new chapter, never the whole
	// transcript, and degrades silently like image generation.
	narration, err := o.speech.SynthesizeSpeech(ctx, turn.NarrativeChapter)
	if err != nil {
		o.logger.Warn("chapter narration failed, continuing without audio",
			zap.String("session_id", sg.ID().String()), zap.Error(err))
		narration = nil
	}

	o.logger.Info("turn woven",
		zap.String("session_id", sg.ID().String()),
		zap.Int("transcript_len", len(sg.Transcript())),
		zap.Bool("has_image", image != nil),
		zap.Bool("has_audio", narration != nil),
	)
	return &TurnResult{Chapter: aiChapter, Choices: turn.NextChoices, Narration: narration}, nil
}

// NarrateSaga synthesizes the full joined transcript on explicit request.
// Returns (nil, nil) when narration is unconfigured.
func (o *Orchestrator) NarrateSaga(ctx context.Context, sg *saga.Saga) (*gen.AudioHandle, error) {
	fullText := sg.StoryContext()
	if fullText == "" {
		return nil, errors.New("nothing to narrate yet")
	}
	return o.speech.SynthesizeSpeech(ctx, fullText)
}

// generateTurn performs the fallible half of a turn: raw generation, parse,
// and the degradable image call. It mutates nothing.
func (o *Orchestrator) generateTurn(ctx context.Context, sg *saga.Saga, storyContext, userChoice string) (*StructuredTurn, *gen.ImageHandle, error) {
	startTime := time.Now()

	raw, err := o.text.GenerateTurn(ctx, storyContext, sg.WorldBible(), userChoice)
	if err != nil {
		o.logger.Warn("turn generation failed", zap.String("session_id", sg.ID().String()), zap.Error(err))
		o.audit(sg, userChoice, "", startTime, nil, err)
		return nil, nil, err
	}

	turn, err := ParseTurn(raw)
	if err != nil {
		o.logger.Warn("turn reply unparseable",
			zap.String("session_id", sg.ID().String()),
			zap.String("raw_reply", raw),
			zap.Error(err),
		)
		o.audit(sg, userChoice, raw, startTime, nil, err)
		return nil, nil, err
	}

	image, err := o.images.GenerateImage(ctx, turn.ImagePrompt)
	if err != nil {
		o.logger.Warn("image generation failed, continuing without image",
			zap.String("session_id", sg.ID().String()), zap.Error(err))
		image = nil
	}

	o.audit(sg, userChoice, raw, startTime, image, nil)
	return turn, image, nil
}

func (o *Orchestrator) audit(sg *saga.Saga, userInput, rawReply string, startTime time.Time, image *gen.ImageHandle, turnErr error) {
	if o.turnLog == nil {
		return
	}

	metadata := logging.TurnMetadata{
		Model:        o.model,
		ResponseTime: time.Since(startTime),
		HasImage:     image != nil,
	}
	if turnErr != nil {
		msg := turnErr.Error()
		metadata.Error = &msg
	}

	if err := o.turnLog.Record(sg.ID().String(), sg.Stage().String(), userInput, rawReply, metadata); err != nil {
		o.logger.Debug("failed to record turn audit", zap.Error(err))
	}
}
