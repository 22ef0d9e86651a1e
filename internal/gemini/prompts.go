package gemini

import (
	"fmt"
	"strings"
)

// QuestionCount is how many quiz questions are requested per game.
const QuestionCount = 5

func sourceImagePrompt(prompt string) string {
	return "cinematic, high detail, masterpiece: " + prompt
}

func questionsPrompt(prompt string) string {
	return fmt.Sprintf(
		"Generate %d creative and open-ended questions related to the theme: %q. "+
			"The questions are used in a game where each answer unblurs an image a little more. "+
			"Return the response as a valid JSON array of strings with no other text or markdown formatting.",
		QuestionCount, prompt)
}

func roastPrompt(questions, answers []string) string {
	var b strings.Builder
	b.WriteString("Based on these questions and answers, write a funny, lighthearted roast meme text. ")
	b.WriteString("Keep it playful and humorous, never mean-spirited.\n\n")
	b.WriteString("Questions: ")
	b.WriteString(strings.Join(questions, ", "))
	b.WriteString("\nAnswers: ")
	b.WriteString(strings.Join(answers, ", "))
	b.WriteString("\n\nReply with one or two short, witty sentences that tease the person based on their answers. ")
	b.WriteString("Make it meme-worthy.")
	return b.String()
}

func memePrompt(roast string) string {
	return fmt.Sprintf(
		"A funny internet meme style image with text overlay carrying this playful roast: %q. "+
			"Classic meme format, bold text overlay, funny background, vibrant colors, text clearly visible.",
		roast)
}
