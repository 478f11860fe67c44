package judge

import (
	"fmt"
	"strings"

	"da-vinci/internal/game"
)

const themePlaceholder = "{{theme}}"

const basePrompt = `You are playing a drawing guessing game. Look at the drawing and guess what it shows.
The drawing belongs to the category "{{theme}}".
Answer with a single Korean word or short noun phrase.
Respond only with JSON in this exact form: {"guess": "<Korean word>", "confidence": <number between 0 and 1>}`

const strictPrompt = `Guess what this drawing shows. Category: "{{theme}}".
Reply only with JSON: {"guess": "<Korean word>", "confidence": <0-1>}`

var themeHints = map[string]string{
	"동화": "Think of characters, objects and scenes from well-known fairy tales, such as 백설공주, 신데렐라 or 피노키오.",
	"영화": "Think of famous movies, their title characters and iconic props.",
	"음식": "Think of dishes, ingredients, fruits, snacks and drinks. Korean dishes are common answers.",
	"동물": "Think of animals, birds, fish and insects. Prefer the common Korean name of the animal.",
}

// Example is a previously solved word shown to the model as a hint.
type Example struct {
	Theme string
	Word  string
	Guess string
}

// BuildPrompt returns the instruction sent with the drawing for a room's
// difficulty. Easy rooms get the enhanced prompt plus solved examples,
// normal rooms get the enhanced prompt and hard rooms a bare one.
func BuildPrompt(difficulty, theme string, examples []Example) string {
	switch difficulty {
	case game.DifficultyHard:
		return fillTheme(strictPrompt, theme)
	case game.DifficultyEasy:
		return fewShotPrompt(theme, examples)
	default:
		return enhancedPrompt(theme)
	}
}

func enhancedPrompt(theme string) string {
	var b strings.Builder
	b.WriteString(fillTheme(basePrompt, theme))
	if hint, ok := themeHints[theme]; ok {
		b.WriteString("\n\nHint: ")
		b.WriteString(hint)
	}
	fmt.Fprintf(&b, "\n\nRemember: Your guess should match the category %q.", theme)
	return b.String()
}

func fewShotPrompt(theme string, examples []Example) string {
	prompt := enhancedPrompt(theme)
	if len(examples) == 0 {
		return prompt
	}
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nWords other players drew successfully in this category:")
	for _, example := range examples {
		fmt.Fprintf(&b, "\n- %s", example.Word)
	}
	return b.String()
}

func fillTheme(template, theme string) string {
	if strings.TrimSpace(theme) == "" {
		theme = unknownGuess
	}
	return strings.ReplaceAll(template, themePlaceholder, theme)
}
