package saga_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyteller/internal/gen"
	"storyteller/internal/saga"
)

func TestNewSagaStartsInWorldForge(t *testing.T) {
	sg := saga.New()

	assert.Equal(t, saga.WorldForge, sg.Stage())
	assert.Empty(t, sg.WorldBible())
	assert.Empty(t, sg.Transcript())
	assert.Empty(t, sg.PendingChoices())
	assert.NotEqual(t, "", sg.ID().String())
}

func TestSetWorldBibleAdvancesToStoryStart(t *testing.T) {
	sg := saga.New()

	err := sg.SetWorldBible("a world of rust and rain")
	require.NoError(t, err)

	assert.Equal(t, saga.StoryStart, sg.Stage())
	assert.Equal(t, "a world of rust and rain", sg.WorldBible())
}

func TestSetWorldBibleRejectedOutsideWorldForge(t *testing.T) {
	sg := saga.New()
	require.NoError(t, sg.SetWorldBible("first"))

	err := sg.SetWorldBible("second")
	require.ErrorIs(t, err, saga.ErrInvalidTransition)
	assert.Equal(t, "first", sg.WorldBible())
}

func TestBeginStoryAppendsOpeningThenAIChapter(t *testing.T) {
	sg := saga.New()
	require.NoError(t, sg.SetWorldBible("bible"))

	aiChapter := saga.Chapter{
		Text:  "The clock stopped ticking.",
		Image: &gen.ImageHandle{Path: "media/a.png", Prompt: "a stopped clock"},
	}
	err := sg.BeginStory("The captain woke.", aiChapter, []string{"listen", "run"})
	require.NoError(t, err)

	assert.Equal(t, saga.StoryCycle, sg.Stage())

	transcript := sg.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "The captain woke.", transcript[0].Text)
	assert.Nil(t, transcript[0].Image)
	assert.Equal(t, aiChapter, transcript[1])
	assert.Equal(t, []string{"listen", "run"}, sg.PendingChoices())
}

func TestBeginStoryRejectedOutsideStoryStart(t *testing.T) {
	sg := saga.New()

	err := sg.BeginStory("opening", saga.Chapter{Text: "reply"}, nil)
	require.ErrorIs(t, err, saga.ErrInvalidTransition)
	assert.Empty(t, sg.Transcript())
}

func TestCommitTurnAppendsAndReplacesChoices(t *testing.T) {
	sg := saga.New()
	require.NoError(t, sg.SetWorldBible("bible"))
	require.NoError(t, sg.BeginStory("opening", saga.Chapter{Text: "first"}, []string{"a", "b"}))

	err := sg.CommitTurn(saga.Chapter{Text: "second"}, []string{"c", "d", "e"})
	require.NoError(t, err)

	transcript := sg.Transcript()
	require.Len(t, transcript, 3)
	assert.Equal(t, "opening", transcript[0].Text)
	assert.Equal(t, "first", transcript[1].Text)
	assert.Equal(t, "second", transcript[2].Text)
	assert.Equal(t, []string{"c", "d", "e"}, sg.PendingChoices())
	assert.Equal(t, saga.StoryCycle, sg.Stage())
}

func TestCommitTurnRejectedBeforeStoryCycle(t *testing.T) {
	sg := saga.New()

	err := sg.CommitTurn(saga.Chapter{Text: "chapter"}, nil)
	require.ErrorIs(t, err, saga.ErrInvalidTransition)

	require.NoError(t, sg.SetWorldBible("bible"))
	err = sg.CommitTurn(saga.Chapter{Text: "chapter"}, nil)
	require.ErrorIs(t, err, saga.ErrInvalidTransition)
	assert.Empty(t, sg.Transcript())
}

func TestStoryContextJoinsChaptersInOrder(t *testing.T) {
	sg := saga.New()
	require.NoError(t, sg.SetWorldBible("bible"))
	require.NoError(t, sg.BeginStory("One.", saga.Chapter{Text: "Two."}, []string{"a"}))
	require.NoError(t, sg.CommitTurn(saga.Chapter{Text: "Three."}, []string{"b"}))

	assert.Equal(t, "One. Two. Three.", sg.StoryContext())
}

func TestRestartClearsEverythingFromAnyStage(t *testing.T) {
	sg := saga.New()
	require.NoError(t, sg.SetWorldBible("bible"))
	require.NoError(t, sg.BeginStory("opening", saga.Chapter{Text: "reply"}, []string{"a"}))
	oldID := sg.ID()

	sg.Restart()

	assert.Equal(t, saga.WorldForge, sg.Stage())
	assert.Empty(t, sg.WorldBible())
	assert.Empty(t, sg.Transcript())
	assert.Empty(t, sg.PendingChoices())
	assert.NotEqual(t, oldID, sg.ID())
}

func TestTranscriptReturnsCopy(t *testing.T) {
	sg := saga.New()
	require.NoError(t, sg.SetWorldBible("bible"))
	require.NoError(t, sg.BeginStory("opening", saga.Chapter{Text: "reply"}, []string{"a"}))

	transcript := sg.Transcript()
	transcript[0].Text = "mutated"
	choices := sg.PendingChoices()
	choices[0] = "mutated"

	assert.Equal(t, "opening", sg.Transcript()[0].Text)
	assert.Equal(t, []string{"a"}, sg.PendingChoices())
}

func TestConcurrentReadsDuringCommits(t *testing.T) {
	sg := saga.New()
	require.NoError(t, sg.SetWorldBible("bible"))
	require.NoError(t, sg.BeginStory("opening", saga.Chapter{Text: "first"}, []string{"a", "b"}))

	const commits = 100
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < commits; i++ {
			_ = sg.CommitTurn(saga.Chapter{Text: "next"}, []string{"c", "d"})
		}
	}()

	// The render loop reads while turns commit; run under -race.
	for i := 0; i < commits; i++ {
		_ = sg.Stage()
		_ = sg.Transcript()
		_ = sg.PendingChoices()
		_ = sg.StoryContext()
		_ = sg.WorldBible()
	}
	<-done

	assert.Len(t, sg.Transcript(), 2+commits)
	assert.Equal(t, []string{"c", "d"}, sg.PendingChoices())
}

func TestCommitAfterRestartRejected(t *testing.T) {
	sg := saga.New()
	require.NoError(t, sg.SetWorldBible("bible"))
	require.NoError(t, sg.BeginStory("opening", saga.Chapter{Text: "first"}, []string{"a"}))

	sg.Restart()

	err := sg.CommitTurn(saga.Chapter{Text: "late"}, []string{"b"})
	require.ErrorIs(t, err, saga.ErrInvalidTransition)
	assert.Empty(t, sg.Transcript())
	assert.Equal(t, saga.WorldForge, sg.Stage())
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "world_forge", saga.WorldForge.String())
	assert.Equal(t, "story_start", saga.StoryStart.String())
	assert.Equal(t, "story_cycle", saga.StoryCycle.String())
}
