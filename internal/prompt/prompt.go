// Package prompt assembles generative-model requests for every endpoint.
// Builders are pure: structured inputs go in, one ai.Request comes out, and
// each builder appends the output contract the downstream parser relies on
// (crisis marker, JSON shape, markdown formatting).
package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mindloom/internal/ai"
	"mindloom/internal/conversation"
	"mindloom/internal/quiz"
	"mindloom/internal/roadmap"
)

var ErrInvalidInput = errors.New("user message is empty")

const (
	localeEnglish    = "Respond in English."
	localeVietnamese = "Hãy phản hồi bằng tiếng Việt."
)

// LocaleInstruction maps a locale code onto its language instruction.
// Unrecognized or missing locales fall back to English.
func LocaleInstruction(locale string) string {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "vi":
		return localeVietnamese
	case "en":
		return localeEnglish
	default:
		return localeEnglish
	}
}

// chatSafetySettings block only high-severity dangerous content so the model
// can talk *about* heavy emotional topics, while harassment is filtered at
// medium and above.
var chatSafetySettings = []ai.SafetySetting{
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_ONLY_HIGH"},
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

const therapistPersona = `You are a compassionate AI therapist.

Your role is to help the user feel heard and supported. Respond in a warm, calm, and emotionally intelligent way.
%s

However — if you detect that the user is expressing something emotionally extreme (e.g., suicidal thoughts, self-harm, deep hopelessness, severe crisis):
- DO NOT try to solve the problem.
- Instead, include "[FLAG:CRISIS]" at the end of your message.
- Offer empathy and acknowledge the need for real human support.

Examples that should be flagged:
- "I don't want to live anymore."
- "Everything feels pointless."
- "I want to hurt myself."

Only include "[FLAG:CRISIS]" if you're concerned about the user's mental or emotional safety.

You may also suggest up to three short emoji reactions that fit the user's message by appending "[REACT:…]" with a comma-separated list, e.g. "[REACT:💙,🌱]". Omit the annotation when no reaction fits.`

// Therapist builds the safety-gated chat request.
func Therapist(locale string, history []conversation.Message, message string) (ai.Request, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return ai.Request{}, ErrInvalidInput
	}
	return ai.Request{
		SystemInstruction: fmt.Sprintf(therapistPersona, LocaleInstruction(locale)),
		History:           toTurns(history),
		UserPrompt:        trimmed,
		SafetySettings:    chatSafetySettings,
	}, nil
}

// BotChat builds the request for the embeddable per-tenant assistant.
func BotChat(botName, botContext, locale string, history []conversation.Message, message string) (ai.Request, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return ai.Request{}, ErrInvalidInput
	}

	system := fmt.Sprintf(`You are a helpful AI assistant named %s.

Here is the context about yourself or the domain you operate in:
%s

%s

Always be helpful, friendly, and provide accurate information based on the provided context. Keep responses concise but informative.`,
		strings.TrimSpace(botName),
		strings.TrimSpace(botContext),
		LocaleInstruction(locale),
	)

	return ai.Request{
		SystemInstruction: system,
		History:           toTurns(history),
		UserPrompt:        trimmed,
		SafetySettings:    chatSafetySettings,
	}, nil
}

// Quiz builds the quiz-set generation request. The response contract is a
// JSON array with exactly four options per question.
func Quiz(topic, difficulty string, numQuestions int) (ai.Request, error) {
	trimmedTopic := strings.TrimSpace(topic)
	if trimmedTopic == "" {
		return ai.Request{}, ErrInvalidInput
	}
	if numQuestions <= 0 {
		numQuestions = 5
	}
	if strings.TrimSpace(difficulty) == "" {
		difficulty = "medium"
	}

	userPrompt := fmt.Sprintf(`You are a quiz generator AI.

Generate %d multiple-choice quiz questions of %s difficulty about the topic: "%s".
Each question should have 4 options (A, B, C, D), one correct answer, and a short explanation.

Format the response as JSON array like this:
[
  {
    "question": "...",
    "options": ["A", "B", "C", "D"],
    "answer": "B",
    "explanation": "..."
  },
  ...
]`, numQuestions, strings.TrimSpace(difficulty), trimmedTopic)

	return ai.Request{UserPrompt: userPrompt}, nil
}

// QuizChat builds the quiz companion request: a markdown answer grounded in
// the quiz the user just took. The reply is meant to stay one segment.
func QuizChat(message string, quizContext []quiz.Item) (ai.Request, error) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return ai.Request{}, ErrInvalidInput
	}

	contextText := "[No quiz context provided]"
	if len(quizContext) > 0 {
		contextText = mustMarshalIndent(quizContext)
	}

	userPrompt := fmt.Sprintf(`You are a helpful AI assistant responding in Markdown.

The user previously received the following quiz questions:
%s

Now, the user asks: "%s"

Respond clearly using **Markdown** formatting where helpful:

- Use code blocks for code
- Use **bold** or *italic* for emphasis
- Use inline code for terms or functions
- Use bullet points or numbered steps if explaining a process
- Use headings if breaking down multiple points

Answer now:`, contextText, trimmed)

	return ai.Request{UserPrompt: userPrompt}, nil
}

// Roadmap builds the step-outline generation request.
func Roadmap(topic string) (ai.Request, error) {
	trimmedTopic := strings.TrimSpace(topic)
	if trimmedTopic == "" {
		return ai.Request{}, ErrInvalidInput
	}

	userPrompt := fmt.Sprintf(`You are a curriculum generator AI.
Break down the topic "%s" into a clear step-by-step roadmap for a beginner to master it.
Each step should have a clear title and an objective.
Output as a JSON array like:
[
  { "title": "Introduction to X", "objective": "Understand basic idea of X" },
  { "title": "Core Concepts of Y", "objective": "Master essential principles of Y" }
]`, trimmedTopic)

	return ai.Request{UserPrompt: userPrompt}, nil
}

// Tasks builds the per-step task-list request, carrying the titles and task
// lists of already-completed steps so generated tasks do not repeat them.
func Tasks(topic, stepTitle string, completed []roadmap.Step) (ai.Request, error) {
	trimmedTopic := strings.TrimSpace(topic)
	trimmedTitle := strings.TrimSpace(stepTitle)
	if trimmedTopic == "" || trimmedTitle == "" {
		return ai.Request{}, ErrInvalidInput
	}

	completedContext := ""
	if len(completed) > 0 {
		descriptions := make([]string, 0, len(completed))
		for _, step := range completed {
			tasks := make([]string, 0, len(step.Todos))
			for _, todo := range step.Todos {
				tasks = append(tasks, stripMarkdown(todo.Task))
			}
			descriptions = append(descriptions, fmt.Sprintf("%q (including tasks: %s)", step.Title, strings.Join(tasks, ", ")))
		}
		completedContext = "You have already completed the following steps: " + strings.Join(descriptions, "; ") + ". "
	}

	userPrompt := fmt.Sprintf(`You are an expert guide, generating highly specific, non-repetitive, and actionable tasks for a learning path.
Generate a unique and practical todo list for learning "%s" specifically for the step "%s".

%s

Each task should provide genuine, real-world advice on how to accomplish something related to "%s".
Do NOT suggest tasks that have been explicitly mentioned in the "completed steps" context.
Ensure the tasks are distinct and build progressively.
Include 2-3 relevant, specific tasks, e.g. watch a specific video or playlist, read a specific book chapter, do a specific interactive tutorial, search for and summarize a focused topic, or build something small and concrete.

Crucially, format the content of each 'task' string using Markdown (bolding with **, links with [], lists with -) to make it clear and engaging.

This should work for ANY topic, technical or non-technical. If the topic is non-technical, provide equally practical and actionable social/personal development advice.

Output as a JSON array of objects like:
[
  { "task": "## Learn about **HTML Basics**\n- Understand **tags** and **attributes**.\n- Check out [MDN Web Docs on HTML](https://developer.mozilla.org/en-US/docs/Web/HTML).", "completed": false },
  { "task": "### Explore CSS Styling\n- Grasp **selectors** and **properties**.\n- Practice with [CSS-Tricks](https://css-tricks.com/) tutorials.", "completed": false }
]`, trimmedTopic, trimmedTitle, completedContext, trimmedTitle)

	return ai.Request{UserPrompt: userPrompt}, nil
}

// Evaluate builds the note-scoring request. The response contract is a JSON
// object {"score": …, "feedback": …}.
func Evaluate(stepTitle, note string) (ai.Request, error) {
	trimmedTitle := strings.TrimSpace(stepTitle)
	trimmedNote := strings.TrimSpace(note)
	if trimmedTitle == "" || trimmedNote == "" {
		return ai.Request{}, ErrInvalidInput
	}

	userPrompt := fmt.Sprintf(`You are an AI tutor. Evaluate the following student's note on "%s":

Note:
%s

Give a score from 0 to 100, and provide 1 paragraph of feedback.
Output format: { "score": 78, "feedback": "..." }`, trimmedTitle, trimmedNote)

	return ai.Request{UserPrompt: userPrompt}, nil
}

// toTurns flattens multi-segment message content into the one-string-per-turn
// shape the model API expects.
func toTurns(history []conversation.Message) []ai.Turn {
	turns := make([]ai.Turn, 0, len(history))
	for _, msg := range history {
		flattened := strings.TrimSpace(msg.Flatten())
		if flattened == "" {
			continue
		}
		turns = append(turns, ai.Turn{
			Role:    string(msg.Role),
			Content: flattened,
		})
	}
	return turns
}

var markdownStripper = strings.NewReplacer("**", "", "*", "", "_", "", "`", "")

// stripMarkdown removes formatting characters before task text is reused as
// plain prompt context.
func stripMarkdown(text string) string {
	return markdownStripper.Replace(text)
}

func mustMarshalIndent(value any) string {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(encoded)
}
