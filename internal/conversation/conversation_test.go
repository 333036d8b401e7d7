package conversation

import (
	"errors"
	"testing"
)

func TestSubmitAppendsUserMessageAndOpensTurn(t *testing.T) {
	conv := New()

	history, err := conv.Submit("  hello there  ")
	if err != nil {
		t.Fatalf("expected submit to succeed: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history before the first turn, got %d messages", len(history))
	}

	state := conv.Snapshot()
	if !state.AwaitingResponse {
		t.Fatalf("expected conversation to be awaiting a response")
	}
	if len(state.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(state.Messages))
	}
	if state.Messages[0].Role != RoleUser || state.Messages[0].Content[0] != "hello there" {
		t.Fatalf("unexpected user message: %+v", state.Messages[0])
	}
}

func TestSubmitRejectsEmptyText(t *testing.T) {
	conv := New()
	if _, err := conv.Submit("   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(conv.Snapshot().Messages) != 0 {
		t.Fatalf("expected rejected submit to be a no-op")
	}
}

func TestSecondSubmitWhileAwaitingIsRejected(t *testing.T) {
	conv := New()
	if _, err := conv.Submit("first"); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	if _, err := conv.Submit("second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	state := conv.Snapshot()
	if len(state.Messages) != 1 {
		t.Fatalf("expected the second user message not to be appended, got %d messages", len(state.Messages))
	}
}

func TestResolveAppendsAssistantMessage(t *testing.T) {
	conv := New()
	if _, err := conv.Submit("how are you"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	err := conv.Resolve([]string{"I'm well.", "Thanks for asking."}, []string{"💙"}, false)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	state := conv.Snapshot()
	if state.AwaitingResponse {
		t.Fatalf("expected conversation to return to idle")
	}
	if state.CrisisFlagged {
		t.Fatalf("crisis must not be flagged for a calm turn")
	}
	last := state.Messages[len(state.Messages)-1]
	if last.Role != RoleAssistant || len(last.Content) != 2 {
		t.Fatalf("unexpected assistant message: %+v", last)
	}
	if len(last.Reactions) != 1 || last.Reactions[0] != "💙" {
		t.Fatalf("unexpected reactions: %v", last.Reactions)
	}
}

func TestResolveRequiresInFlightTurn(t *testing.T) {
	conv := New()
	if err := conv.Resolve([]string{"hi"}, nil, false); !errors.Is(err, ErrNotAwaiting) {
		t.Fatalf("expected ErrNotAwaiting, got %v", err)
	}
}

func TestCrisisFlagIsSticky(t *testing.T) {
	conv := New()

	if _, err := conv.Submit("I can't do this anymore"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := conv.Resolve([]string{"I'm here with you."}, nil, true); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !conv.Snapshot().CrisisFlagged {
		t.Fatalf("expected crisis flag after a crisis turn")
	}

	if _, err := conv.Submit("feeling a bit calmer now"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := conv.Resolve([]string{"That's good to hear."}, nil, false); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !conv.Snapshot().CrisisFlagged {
		t.Fatalf("crisis flag must stay set after a later calm turn")
	}
}

func TestFailAppendsFallbackAndKeepsCrisisUnchanged(t *testing.T) {
	conv := New()
	if _, err := conv.Submit("hello"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if err := conv.Fail(); err != nil {
		t.Fatalf("fail transition failed: %v", err)
	}

	state := conv.Snapshot()
	if state.AwaitingResponse {
		t.Fatalf("expected conversation to return to idle after failure")
	}
	if state.CrisisFlagged {
		t.Fatalf("a failed turn must not set the crisis flag")
	}
	last := state.Messages[len(state.Messages)-1]
	if last.Role != RoleAssistant || last.Content[0] != FallbackReply {
		t.Fatalf("expected fallback assistant message, got %+v", last)
	}
	if len(last.Reactions) != 0 {
		t.Fatalf("fallback message must carry no reactions")
	}
}

func TestSubmitReturnsPriorHistory(t *testing.T) {
	conv := New()
	if _, err := conv.Submit("first"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := conv.Resolve([]string{"reply one.", "reply two."}, nil, false); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	history, err := conv.Submit("second")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected two prior messages, got %d", len(history))
	}
	if history[1].Flatten() != "reply one. reply two." {
		t.Fatalf("expected flattened assistant turn, got %q", history[1].Flatten())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	conv := New()
	if _, err := conv.Submit("hello"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	state := conv.Snapshot()
	state.Messages[0].Content[0] = "mutated"

	if conv.Snapshot().Messages[0].Content[0] != "hello" {
		t.Fatalf("snapshot mutation leaked into the conversation")
	}
}
