package fraud

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tanpawarit/Chative-Voice-Agents/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	promptx "github.com/tanpawarit/Chative-Voice-Agents/agent/prompt"
	"github.com/tanpawarit/Chative-Voice-Agents/pkg/flatfile"
)

func newTestConversation(t *testing.T) (*Conversation, *flatfile.Store) {
	t.Helper()

	files := flatfile.New(t.TempDir())
	agent := New(Config{
		Catalog: catalog.MustLoad(),
		Files:   files,
		Prompts: promptx.MustLoadPromptSet(),
		Now:     func() time.Time { return time.Date(2025, 11, 26, 8, 0, 0, 0, time.UTC) },
	})
	conv, err := agent.NewConversation(context.Background(), "sess-fraud")
	if err != nil {
		t.Fatalf("NewConversation() error = %v", err)
	}
	return conv.(*Conversation), files
}

func caseStatus(t *testing.T, files *flatfile.Store, name string) string {
	t.Helper()
	res := flatfile.Read[[]catalog.FraudCase](files, CasesFile)
	if !res.Found() {
		t.Fatalf("cases status = %s", res.Status)
	}
	for _, fc := range res.Value {
		if fc.UserName == name {
			return fc.Status
		}
	}
	t.Fatalf("case %q not found", name)
	return ""
}

func TestVerifiedCallerMarksSafe(t *testing.T) {
	t.Parallel()

	c, files := newTestConversation(t)
	ctx := context.Background()

	if _, err := c.VerifyUsername(ctx, UsernameArgs{Username: "john"}); err != nil {
		t.Fatalf("VerifyUsername() error = %v", err)
	}
	if got := c.ShapeReply("Could you tell me your mother's maiden name?"); got !=
		"For verification, your security question is: What is the name of your first pet? Please answer it." {
		t.Fatalf("ShapeReply() = %q", got)
	}

	reply, err := c.VerifySecurityAnswer(ctx, AnswerArgs{Answer: " bruno "})
	if err != nil {
		t.Fatalf("VerifySecurityAnswer() error = %v", err)
	}
	if reply != "Thank you. Your identity is verified." {
		t.Fatalf("reply = %q", reply)
	}
	if got := c.ShapeReply("Let me pull up the transaction."); got != "Let me pull up the transaction." {
		t.Fatalf("ShapeReply() after verification = %q", got)
	}

	summary, err := c.GetTransactionSummary(ctx, struct{}{})
	if err != nil {
		t.Fatalf("GetTransactionSummary() error = %v", err)
	}
	if !strings.Contains(summary, "ends in 4242") {
		t.Fatalf("summary = %q", summary)
	}

	if _, err := c.MarkTransactionSafe(ctx, struct{}{}); err != nil {
		t.Fatalf("MarkTransactionSafe() error = %v", err)
	}
	if got := caseStatus(t, files, "John"); got != StatusConfirmedSafe {
		t.Fatalf("John status = %q", got)
	}
	if got := caseStatus(t, files, "Priya"); got != StatusPendingReview {
		t.Fatalf("Priya status = %q", got)
	}
}

func TestMarkingRequiresVerification(t *testing.T) {
	t.Parallel()

	c, files := newTestConversation(t)
	ctx := context.Background()

	if _, err := c.MarkTransactionFraud(ctx, struct{}{}); !errors.Is(err, contractx.ErrNotVerified) {
		t.Fatalf("MarkTransactionFraud() error = %v, want ErrNotVerified", err)
	}
	if _, err := c.VerifyUsername(ctx, UsernameArgs{Username: "Priya"}); err != nil {
		t.Fatalf("VerifyUsername() error = %v", err)
	}
	if _, err := c.MarkTransactionFraud(ctx, struct{}{}); !errors.Is(err, contractx.ErrNotVerified) {
		t.Fatalf("MarkTransactionFraud() error = %v, want ErrNotVerified", err)
	}
	if got := caseStatus(t, files, "Priya"); got != StatusPendingReview {
		t.Fatalf("Priya status = %q", got)
	}
}

func TestThreeWrongAnswersFailVerification(t *testing.T) {
	t.Parallel()

	c, files := newTestConversation(t)
	ctx := context.Background()
	if _, err := c.VerifyUsername(ctx, UsernameArgs{Username: "John"}); err != nil {
		t.Fatalf("VerifyUsername() error = %v", err)
	}

	for i := 0; i < MaxAnswerAttempts-1; i++ {
		reply, err := c.VerifySecurityAnswer(ctx, AnswerArgs{Answer: "Rex"})
		if err != nil {
			t.Fatalf("VerifySecurityAnswer() error = %v", err)
		}
		if reply != "That answer does not match our records." {
			t.Fatalf("reply = %q", reply)
		}
	}
	reply, err := c.VerifySecurityAnswer(ctx, AnswerArgs{Answer: "Rex"})
	if err != nil {
		t.Fatalf("VerifySecurityAnswer() error = %v", err)
	}
	if !strings.HasPrefix(reply, "Since we could not verify your identity") {
		t.Fatalf("reply = %q", reply)
	}
	if got := caseStatus(t, files, "John"); got != StatusVerificationFailed {
		t.Fatalf("John status = %q", got)
	}
	if c.AwaitingAnswer() {
		t.Fatal("AwaitingAnswer() = true after failure")
	}
	if got := c.ShapeReply("Goodbye."); got != "Goodbye." {
		t.Fatalf("ShapeReply() = %q", got)
	}
}

func TestUnknownUsername(t *testing.T) {
	t.Parallel()

	c, _ := newTestConversation(t)
	_, err := c.VerifyUsername(context.Background(), UsernameArgs{Username: "Mallory"})
	if !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("VerifyUsername() error = %v, want ErrNotFound", err)
	}
	if c.AwaitingAnswer() {
		t.Fatal("AwaitingAnswer() = true for unknown caller")
	}
}

func TestCorruptCaseFileIsQuarantinedOnUpdate(t *testing.T) {
	t.Parallel()

	c, files := newTestConversation(t)
	ctx := context.Background()
	path := filepath.Join(files.Root(), CasesFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("[{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := c.VerifyUsername(ctx, UsernameArgs{Username: "John"}); err != nil {
		t.Fatalf("VerifyUsername() error = %v", err)
	}
	if _, err := c.VerifySecurityAnswer(ctx, AnswerArgs{Answer: "Bruno"}); err != nil {
		t.Fatalf("VerifySecurityAnswer() error = %v", err)
	}
	if _, err := c.MarkTransactionFraud(ctx, struct{}{}); err != nil {
		t.Fatalf("MarkTransactionFraud() error = %v", err)
	}
	if got := caseStatus(t, files, "John"); got != StatusConfirmedFraud {
		t.Fatalf("John status = %q", got)
	}

	matches, _ := filepath.Glob(path + ".corrupt-*")
	if len(matches) != 1 {
		t.Fatalf("quarantined files = %v, want 1", matches)
	}
}

func TestVerifyUsernameSpeaksStoredQuestion(t *testing.T) {
	t.Parallel()

	c, _ := newTestConversation(t)
	reply, err := c.VerifyUsername(context.Background(), UsernameArgs{Username: " PRIYA "})
	if err != nil {
		t.Fatalf("VerifyUsername() error = %v", err)
	}
	want := "Thank you Priya. I have located your fraud alert case. For verification, your security question is: In which city were you born? Please answer it."
	if reply != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}
	if got := securityPrompt("Name your school"); got != "For verification, your security question is: Name your school. Please answer it." {
		t.Fatalf("securityPrompt() = %q", got)
	}
}
