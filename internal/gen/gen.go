// Package gen holds the thin adapters around the three generative services:
// narrative text, image synthesis and speech synthesis. Each adapter exposes
// a single request/response operation and converts transport failures into
// typed ServiceError values so callers can decide whether to degrade or stop.
package gen

import "context"

// ImageHandle points at a generated illustration on disk.
type ImageHandle struct {
	Path   string
	Prompt string
}

// AudioHandle points at generated narration audio on disk.
type AudioHandle struct {
	Path string
}

// TextGenerator produces the narrative side of a saga: the world bible and
// the raw model reply for each turn. Replies are returned unparsed so that
// parse failures stay diagnosable independently of transport failures.
type TextGenerator interface {
	GenerateWorldBible(ctx context.Context, theme, archetype, contradiction string) (string, error)
	GenerateTurn(ctx context.Context, storyContext, worldBible, userChoice string) (string, error)
}

// ImageGenerator turns an image prompt into a stored illustration.
// Implementations return (nil, nil) when no image credential is configured:
// image generation is an optional enhancement, not a hard dependency.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*ImageHandle, error)
}

// SpeechSynthesizer narrates text. Implementations return (nil, nil) when no
// speech credential is configured.
type SpeechSynthesizer interface {
	SynthesizeSpeech(ctx context.Context, text string) (*AudioHandle, error)
}
