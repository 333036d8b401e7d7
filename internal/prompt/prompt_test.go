package prompt

import (
	"errors"
	"strings"
	"testing"

	"mindloom/internal/conversation"
	"mindloom/internal/quiz"
	"mindloom/internal/roadmap"
)

func TestLocaleInstructionClosedSet(t *testing.T) {
	if got := LocaleInstruction("en"); got != "Respond in English." {
		t.Fatalf("unexpected English instruction: %q", got)
	}
	if got := LocaleInstruction("vi"); got != "Hãy phản hồi bằng tiếng Việt." {
		t.Fatalf("unexpected Vietnamese instruction: %q", got)
	}
	if got := LocaleInstruction("fr"); got != "Respond in English." {
		t.Fatalf("unrecognized locale must fall back to English, got %q", got)
	}
	if got := LocaleInstruction(""); got != "Respond in English." {
		t.Fatalf("missing locale must fall back to English, got %q", got)
	}
}

func TestTherapistCarriesOutputContract(t *testing.T) {
	request, err := Therapist("en", nil, "I had a rough day")
	if err != nil {
		t.Fatalf("expected build to succeed: %v", err)
	}
	if !strings.Contains(request.SystemInstruction, `"[FLAG:CRISIS]"`) {
		t.Fatalf("system instruction must define the crisis marker contract")
	}
	if !strings.Contains(request.SystemInstruction, "[REACT:") {
		t.Fatalf("system instruction must define the reaction annotation contract")
	}
	if !strings.Contains(request.SystemInstruction, "Respond in English.") {
		t.Fatalf("system instruction must carry the locale instruction")
	}
	if request.UserPrompt != "I had a rough day" {
		t.Fatalf("unexpected user prompt: %q", request.UserPrompt)
	}
	if len(request.SafetySettings) != 2 {
		t.Fatalf("expected chat safety settings, got %v", request.SafetySettings)
	}
}

func TestTherapistRejectsEmptyMessage(t *testing.T) {
	if _, err := Therapist("en", nil, "   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestHistoryFlattensSegmentsWithSingleSpace(t *testing.T) {
	history := []conversation.Message{
		{Role: conversation.RoleUser, Content: []string{"hi"}},
		{Role: conversation.RoleAssistant, Content: []string{"Hello.", "How are you?"}},
	}

	request, err := Therapist("en", history, "better now")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(request.History) != 2 {
		t.Fatalf("expected two prior turns, got %d", len(request.History))
	}
	if request.History[1].Role != "assistant" {
		t.Fatalf("unexpected role: %q", request.History[1].Role)
	}
	if request.History[1].Content != "Hello. How are you?" {
		t.Fatalf("segments must rejoin with single spaces, got %q", request.History[1].Content)
	}
}

func TestBotChatEmbedsPersonaAndContext(t *testing.T) {
	request, err := BotChat("Willow", "You answer questions about houseplants.", "vi", nil, "how often to water?")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !strings.Contains(request.SystemInstruction, "named Willow") {
		t.Fatalf("system instruction must include the bot name")
	}
	if !strings.Contains(request.SystemInstruction, "houseplants") {
		t.Fatalf("system instruction must include the domain context")
	}
	if !strings.Contains(request.SystemInstruction, "Hãy phản hồi bằng tiếng Việt.") {
		t.Fatalf("system instruction must carry the bot locale")
	}
}

func TestQuizContractPinsShapeAndDefaults(t *testing.T) {
	request, err := Quiz("photosynthesis", "", 0)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !strings.Contains(request.UserPrompt, "Generate 5 multiple-choice quiz questions") {
		t.Fatalf("expected default question count of 5 in: %q", request.UserPrompt)
	}
	if !strings.Contains(request.UserPrompt, "medium difficulty") {
		t.Fatalf("expected default difficulty in prompt")
	}
	if !strings.Contains(request.UserPrompt, `"options": ["A", "B", "C", "D"]`) {
		t.Fatalf("quiz prompt must pin the JSON array shape")
	}
}

func TestQuizChatIncludesContextJSON(t *testing.T) {
	items := []quiz.Item{{
		Question: "What is Go?",
		Options:  []string{"a", "b", "c", "d"},
		Answer:   "a",
	}}
	request, err := QuizChat("why is the answer a?", items)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !strings.Contains(request.UserPrompt, `"What is Go?"`) {
		t.Fatalf("quiz context must be serialized into the prompt")
	}

	empty, err := QuizChat("hello", nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !strings.Contains(empty.UserPrompt, "[No quiz context provided]") {
		t.Fatalf("missing context must be stated explicitly")
	}
}

func TestTasksCarriesCompletedStepsWithoutMarkdown(t *testing.T) {
	completed := []roadmap.Step{{
		Title: "HTML Basics",
		Todos: []roadmap.Todo{
			{Task: "**Watch** the `crash course` video", Completed: true},
		},
	}}

	request, err := Tasks("web development", "CSS Fundamentals", completed)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !strings.Contains(request.UserPrompt, `"HTML Basics"`) {
		t.Fatalf("completed step titles must appear in the prompt")
	}
	if !strings.Contains(request.UserPrompt, "Watch the crash course video") {
		t.Fatalf("task context must have markdown stripped, got: %q", request.UserPrompt)
	}
	if strings.Contains(request.UserPrompt, "**Watch**") {
		t.Fatalf("markdown must not leak into completed-step context")
	}
}

func TestTasksWithoutCompletedStepsOmitsContext(t *testing.T) {
	request, err := Tasks("web development", "HTML Basics", nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if strings.Contains(request.UserPrompt, "already completed") {
		t.Fatalf("fresh roadmap must not mention completed steps")
	}
}

func TestEvaluateContract(t *testing.T) {
	request, err := Evaluate("CSS Fundamentals", "Selectors target elements; specificity decides conflicts.")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !strings.Contains(request.UserPrompt, `{ "score": 78, "feedback": "..." }`) {
		t.Fatalf("evaluate prompt must pin the JSON object shape")
	}

	if _, err := Evaluate("", "note"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty title, got %v", err)
	}
	if _, err := Evaluate("title", " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty note, got %v", err)
	}
}
