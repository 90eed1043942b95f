package study

import (
	"github.com/sashabaranov/go-openai"
)

// systemInstruction fixes the assistant role and the artifact layout.
const systemInstruction = `You are an expert study assistant. The user has uploaded HANDWRITTEN notes.
The raw text will be messy (e.g., "Net (rorewet" instead of "Network").

1. **Decipher**: Use your knowledge of the topic (e.g., Computer Networks, OS) to reconstruct the real meaning.
2. **Summarize**: Create a clean, HTML-formatted summary of the *corrected* concepts.
3. **Quiz**: Create 3 multiple-choice questions.

Format:
<h3>Summary</h3>
<ul><li>Point 1...</li></ul>
<h3>Self-Check Quiz</h3>
<p><strong>Q1: ...</strong><br>A)...<br>B)...<br><strong>Answer: ...</strong></p>`

const userPrefix = "Here is the messy raw text:\n"

// Truncate returns the first max characters of text and whether anything was cut.
func Truncate(text string, max int) (string, bool) {
	if max <= 0 {
		return text, false
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i], true
		}
		n++
	}
	return text, false
}

// BuildMessages returns the system and user messages for an already truncated text.
func BuildMessages(text string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemInstruction,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: userPrefix + text,
		},
	}
}
