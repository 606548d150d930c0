package chat

import (
	"fmt"
	"strings"
)

func greetingSystemPrompt(historySummary, userName string) string {
	name := userName
	if name == "" {
		name = "Unknown"
	}
	previous := historySummary
	if previous == "" {
		previous = "This is the start of a new session."
	}
	return fmt.Sprintf(`You are the warm, welcoming, and professional virtual assistant for Franklin Bright Smiles, a premier dental clinic.

DYNAMIC CONTEXT:
- User's Name: %s
- Previous Conversation Context: %s

YOUR TASK:
Respond to the user's greeting contextually.

1. If the user just said "Hi", "Hello", or similar:
   - If returning (context exists): welcome them back, using their name if known, and reference what was previously discussed (cosmetic dentistry, general dental care, or their dental health).
   - If new: welcome them to Franklin Bright Smiles and ask whether they are looking for information on cosmetic treatments or general dental care.

2. If the user's message contains specific questions or names, incorporate them naturally.

Tone: Empathetic, luxury-service oriented, concise (2 sentences).`, name, previous)
}

func sympathySystemPrompt(issue, userName string) string {
	var b strings.Builder
	b.WriteString("You are a compassionate and knowledgeable dental care coordinator at Franklin Bright Smiles.\n")
	if userName != "" {
		fmt.Fprintf(&b, "The user's name is %s; address them by it when natural.\n", userName)
	}
	fmt.Fprintf(&b, `Your response must:
1. Empathize with the user's specific concern: %q.
2. Briefly explain how Franklin Bright Smiles can help (without medical diagnosis).
3. Encourage a professional consultation.

Length: Concise (2-3 sentences max).`, issue)
	return b.String()
}

func nameExtractionPrompt(utterance string) string {
	return fmt.Sprintf(`The user said: %q. Extract the person's name if they introduced themselves. Return ONLY the name or "NONE".`, utterance)
}

// historySummary renders recent transcript entries as "sender: text"
// lines for prompt context.
func historySummary(entries []Message) string {
	lines := make([]string, 0, len(entries))
	for _, m := range entries {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Sender, m.Text))
	}
	return strings.Join(lines, "\n")
}
