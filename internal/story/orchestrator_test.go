package story_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storyteller/internal/gen"
	"storyteller/internal/saga"
	"storyteller/internal/story"
)

const goodTurnReply = `{
	"narrative_chapter": "The hatch hissed open.",
	"next_choices": ["Climb out", "Seal it again", "Shout into the dark"],
	"image_prompt": "an open starship hatch venting mist"
}`

type fakeText struct {
	bible      string
	bibleErr   error
	reply      string
	replyErr   error
	lastCtx    string
	lastBible  string
	lastChoice string
	turnCalls  int
}

func (f *fakeText) GenerateWorldBible(ctx context.Context, theme, archetype, contradiction string) (string, error) {
	return f.bible, f.bibleErr
}

func (f *fakeText) GenerateTurn(ctx context.Context, storyContext, worldBible, userChoice string) (string, error) {
	f.turnCalls++
	f.lastCtx = storyContext
	f.lastBible = worldBible
	f.lastChoice = userChoice
	return f.reply, f.replyErr
}

type fakeImages struct {
	handle     *gen.ImageHandle
	err        error
	lastPrompt string
	calls      int
}

func (f *fakeImages) GenerateImage(ctx context.Context, prompt string) (*gen.ImageHandle, error) {
	f.calls++
	f.lastPrompt = prompt
	return f.handle, f.err
}

type fakeSpeech struct {
	handle   *gen.AudioHandle
	err      error
	lastText string
	calls    int
}

func (f *fakeSpeech) SynthesizeSpeech(ctx context.Context, text string) (*gen.AudioHandle, error) {
	f.calls++
	f.lastText = text
	return f.handle, f.err
}

func newTestOrchestrator(text *fakeText, images *fakeImages, speech *fakeSpeech) *story.Orchestrator {
	return story.NewOrchestrator(text, images, speech, "test-model", nil, zap.NewNop())
}

func sagaAtStoryStart(t *testing.T) *saga.Saga {
	t.Helper()
	sg := saga.New()
	require.NoError(t, sg.SetWorldBible("a drowned kingdom"))
	return sg
}

func sagaAtStoryCycle(t *testing.T) *saga.Saga {
	t.Helper()
	sg := sagaAtStoryStart(t)
	require.NoError(t, sg.BeginStory("The tide came in.", saga.Chapter{Text: "It did not go out."}, []string{"wait", "swim"}))
	return sg
}

func TestForgeWorldSetsBibleAndAdvances(t *testing.T) {
	text := &fakeText{bible: "a drowned kingdom ruled by tides"}
	orch := newTestOrchestrator(text, &fakeImages{}, &fakeSpeech{})
	sg := saga.New()

	err := orch.ForgeWorld(context.Background(), sg, "Survival", "The Outcast", "an ocean afraid of water")
	require.NoError(t, err)

	assert.Equal(t, saga.StoryStart, sg.Stage())
	assert.Equal(t, "a drowned kingdom ruled by tides", sg.WorldBible())
}

func TestForgeWorldFailureLeavesWorldForge(t *testing.T) {
	text := &fakeText{bibleErr: &gen.ServiceError{Service: "openai", Kind: gen.KindTimeout, Message: "deadline exceeded"}}
	orch := newTestOrchestrator(text, &fakeImages{}, &fakeSpeech{})
	sg := saga.New()

	err := orch.ForgeWorld(context.Background(), sg, "Revenge", "The Trickster", "c")

	var svcErr *gen.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, saga.WorldForge, sg.Stage())
	assert.Empty(t, sg.WorldBible())
}

func TestForgeWorldRejectedAfterStoryStart(t *testing.T) {
	orch := newTestOrchestrator(&fakeText{bible: "b"}, &fakeImages{}, &fakeSpeech{})
	sg := sagaAtStoryStart(t)

	err := orch.ForgeWorld(context.Background(), sg, "Discovery", "The Idealist", "c")
	require.ErrorIs(t, err, saga.ErrInvalidTransition)
}

func TestBeginSagaCommitsOpeningAndFirstChapter(t *testing.T) {
	text := &fakeText{reply: goodTurnReply}
	images := &fakeImages{handle: &gen.ImageHandle{Path: "media/hatch.png"}}
	speech := &fakeSpeech{handle: &gen.AudioHandle{Path: "media/never.mp3"}}
	orch := newTestOrchestrator(text, images, speech)
	sg := sagaAtStoryStart(t)

	result, err := orch.BeginSaga(context.Background(), sg, "The captain woke to a ticking clock.")
	require.NoError(t, err)

	assert.Equal(t, saga.StoryCycle, sg.Stage())
	transcript := sg.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "The captain woke to a ticking clock.", transcript[0].Text)
	assert.Nil(t, transcript[0].Image)
	assert.Equal(t, "The hatch hissed open.", transcript[1].Text)
	assert.Equal(t, images.handle, transcript[1].Image)
	assert.Equal(t, []string{"Climb out", "Seal it again", "Shout into the dark"}, sg.PendingChoices())

	// The opening sentence serves as both story context and first choice.
	assert.Equal(t, "The captain woke to a ticking clock.", text.lastCtx)
	assert.Equal(t, "The captain woke to a ticking clock.", text.lastChoice)
	assert.Equal(t, "a drowned kingdom", text.lastBible)
	assert.Equal(t, "an open starship hatch venting mist", images.lastPrompt)

	// The first turn is never auto-narrated.
	assert.Zero(t, speech.calls)
	assert.Nil(t, result.Narration)
	assert.Equal(t, result.Choices, sg.PendingChoices())
}

func TestBeginSagaParseFailureMutatesNothing(t *testing.T) {
	text := &fakeText{reply: "not json at all"}
	images := &fakeImages{}
	orch := newTestOrchestrator(text, images, &fakeSpeech{})
	sg := sagaAtStoryStart(t)

	result, err := orch.BeginSaga(context.Background(), sg, "opening")
	assert.Nil(t, result)

	var parseErr *story.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "not json at all", parseErr.RawReply)

	assert.Equal(t, saga.StoryStart, sg.Stage())
	assert.Empty(t, sg.Transcript())
	assert.Zero(t, images.calls)
}

func TestWeaveTurnCommitsAndNarrates(t *testing.T) {
	text := &fakeText{reply: goodTurnReply}
	images := &fakeImages{handle: &gen.ImageHandle{Path: "media/hatch.png"}}
	speech := &fakeSpeech{handle: &gen.AudioHandle{Path: "media/chapter.mp3"}}
	orch := newTestOrchestrator(text, images, speech)
	sg := sagaAtStoryCycle(t)

	result, err := orch.WeaveTurn(context.Background(), sg, "swim")
	require.NoError(t, err)

	require.Len(t, sg.Transcript(), 3)
	assert.Equal(t, "The hatch hissed open.", sg.Transcript()[2].Text)
	assert.Equal(t, "The tide came in. It did not go out.", text.lastCtx)
	assert.Equal(t, "swim", text.lastChoice)

	// Per-turn narration covers only the new chapter.
	assert.Equal(t, "The hatch hissed open.", speech.lastText)
	assert.Equal(t, speech.handle, result.Narration)
}

func TestWeaveTurnGenerationFailureMutatesNothing(t *testing.T) {
	text := &fakeText{replyErr: &gen.ServiceError{Service: "openai", Kind: gen.KindHTTP, Status: 500, Message: "server error"}}
	images := &fakeImages{}
	speech := &fakeSpeech{}
	orch := newTestOrchestrator(text, images, speech)
	sg := sagaAtStoryCycle(t)
	before := sg.Transcript()

	result, err := orch.WeaveTurn(context.Background(), sg, "wait")
	assert.Nil(t, result)

	var svcErr *gen.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 500, svcErr.Status)

	assert.Equal(t, before, sg.Transcript())
	assert.Equal(t, []string{"wait", "swim"}, sg.PendingChoices())
	assert.Zero(t, images.calls)
	assert.Zero(t, speech.calls)
}

func TestWeaveTurnImageFailureDegrades(t *testing.T) {
	text := &fakeText{reply: goodTurnReply}
	images := &fakeImages{err: &gen.ServiceError{Service: "stability", Kind: gen.KindHTTP, Status: 429, Message: "rate limited"}}
	orch := newTestOrchestrator(text, images, &fakeSpeech{})
	sg := sagaAtStoryCycle(t)

	result, err := orch.WeaveTurn(context.Background(), sg, "swim")
	require.NoError(t, err)

	assert.Nil(t, result.Chapter.Image)
	require.Len(t, sg.Transcript(), 3)
	assert.Nil(t, sg.Transcript()[2].Image)
}

func TestWeaveTurnUnconfiguredImageCommitsWithoutImage(t *testing.T) {
	text := &fakeText{reply: goodTurnReply}
	orch := newTestOrchestrator(text, &fakeImages{}, &fakeSpeech{})
	sg := sagaAtStoryCycle(t)

	result, err := orch.WeaveTurn(context.Background(), sg, "swim")
	require.NoError(t, err)
	assert.Nil(t, result.Chapter.Image)
}

func TestWeaveTurnNarrationFailureDegrades(t *testing.T) {
	text := &fakeText{reply: goodTurnReply}
	speech := &fakeSpeech{err: errors.New("voice service down")}
	orch := newTestOrchestrator(text, &fakeImages{}, speech)
	sg := sagaAtStoryCycle(t)

	result, err := orch.WeaveTurn(context.Background(), sg, "swim")
	require.NoError(t, err)

	assert.Nil(t, result.Narration)
	assert.Len(t, sg.Transcript(), 3)
}

func TestWeaveTurnRejectedOutsideStoryCycle(t *testing.T) {
	text := &fakeText{reply: goodTurnReply}
	orch := newTestOrchestrator(text, &fakeImages{}, &fakeSpeech{})
	sg := sagaAtStoryStart(t)

	_, err := orch.WeaveTurn(context.Background(), sg, "swim")
	require.ErrorIs(t, err, saga.ErrInvalidTransition)
	assert.Zero(t, text.turnCalls)
}

func TestNarrateSagaJoinsFullTranscript(t *testing.T) {
	speech := &fakeSpeech{handle: &gen.AudioHandle{Path: "media/saga.mp3"}}
	orch := newTestOrchestrator(&fakeText{}, &fakeImages{}, speech)
	sg := sagaAtStoryCycle(t)

	audio, err := orch.NarrateSaga(context.Background(), sg)
	require.NoError(t, err)

	assert.Equal(t, speech.handle, audio)
	assert.Equal(t, "The tide came in. It did not go out.", speech.lastText)
}

func TestNarrateSagaWithEmptyTranscript(t *testing.T) {
	orch := newTestOrchestrator(&fakeText{}, &fakeImages{}, &fakeSpeech{})
	sg := saga.New()

	_, err := orch.NarrateSaga(context.Background(), sg)
	require.Error(t, err)
}

func TestNarrateSagaUnconfiguredReturnsNil(t *testing.T) {
	orch := newTestOrchestrator(&fakeText{}, &fakeImages{}, &fakeSpeech{})
	sg := sagaAtStoryCycle(t)

	audio, err := orch.NarrateSaga(context.Background(), sg)
	require.NoError(t, err)
	assert.Nil(t, audio)
}
