package contract

import (
	"errors"
	"fmt"
	"testing"
)

func TestReplyErrorUnwrapsKind(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("wrapped: %w", Reply(ErrNotFound, "I couldn't find %q.", "pizza"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("errors.Is(err, ErrNotFound) = false")
	}
	text, ok := ReplyText(err)
	if !ok {
		t.Fatal("ReplyText() ok = false, want true")
	}
	if text != `I couldn't find "pizza".` {
		t.Fatalf("ReplyText() = %q", text)
	}
}

func TestReplyTextPlainError(t *testing.T) {
	t.Parallel()

	if _, ok := ReplyText(errors.New("boom")); ok {
		t.Fatal("ReplyText() ok = true for plain error")
	}
}

func TestParseAgentType(t *testing.T) {
	t.Parallel()

	got, err := ParseAgentType("  Coffee ")
	if err != nil {
		t.Fatalf("ParseAgentType() error = %v", err)
	}
	if got != AgentTypeCoffee {
		t.Fatalf("ParseAgentType() = %q, want coffee", got)
	}

	if _, err := ParseAgentType("barista"); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("ParseAgentType() error = %v, want ErrUnknownAgent", err)
	}
}
