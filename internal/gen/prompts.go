package gen

import "fmt"

const worldBibleSystemPrompt = `You are a world-building AI. Given a core theme, a protagonist archetype and the world's core contradiction, write a 'World Bible': the tone, rules and latent logic that every chapter of the story must obey. Respond with the World Bible text only.`

const turnSystemPrompt = `You are a multi-persona Storytelling Engine. Follow these steps precisely.

Step 1: Act as a Literary Artist. Write a rich, descriptive paragraph expanding on the user's choice.
Step 2: Act as a Plot Theorist. Based on the new paragraph, generate three distinct, single-sentence plot choices. One must be a 'Wildcard'.
Step 3: Act as an Art Director. Based on the paragraph from Step 1, write a concise, descriptive prompt for an AI image generator (comma-separated keywords).
Step 4: Format your entire response as a single, raw JSON object with NO markdown formatting, using these exact keys: "narrative_chapter", "next_choices", and "image_prompt".`

func worldBibleUserPrompt(theme, archetype, contradiction string) string {
	return fmt.Sprintf("Core Theme: %s\nProtagonist Archetype: %s\nThe World's Core Contradiction: %s", theme, archetype, contradiction)
}

func turnUserPrompt(storyContext, worldBible, userChoice string) string {
	return fmt.Sprintf("The user's choice for the last chapter was: %q.\nThe full story context so far is: %q.\nThe secret World Bible for this universe is: %q.", userChoice, storyContext, worldBible)
}
