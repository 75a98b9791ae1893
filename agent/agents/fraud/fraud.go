package fraud

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	kit "github.com/tanpawarit/Chative-Voice-Agents/agent/agents/agentkit"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	promptx "github.com/tanpawarit/Chative-Voice-Agents/agent/prompt"
	toolx "github.com/tanpawarit/Chative-Voice-Agents/agent/tool"
	"github.com/tanpawarit/Chative-Voice-Agents/pkg/flatfile"
)

const CasesFile = "fraud/fraud_cases.json"

const (
	StatusPendingReview      = "pending_review"
	StatusConfirmedSafe      = "confirmed_safe"
	StatusConfirmedFraud     = "confirmed_fraud"
	StatusVerificationFailed = "verification_failed"
)

// MaxAnswerAttempts is the number of wrong security answers after which
// the case is marked verification_failed.
const MaxAnswerAttempts = 3

type Config struct {
	Catalog   *catalog.Catalog
	Files     *flatfile.Store
	Prompts   promptx.PromptSet
	Publisher contractx.Publisher
	Now       func() time.Time
}

type Agent struct {
	cfg          Config
	instructions string
}

func New(cfg Config) *Agent {
	cfg.Now = kit.Clock(cfg.Now)
	return &Agent{
		cfg:          cfg,
		instructions: cfg.Prompts.Render(contractx.AgentTypeFraud, nil),
	}
}

func (a *Agent) Type() contractx.AgentType { return contractx.AgentTypeFraud }

func (a *Agent) Description() string {
	return "Bank fraud desk that verifies the caller and resolves a suspicious transaction."
}

func (a *Agent) NewConversation(_ context.Context, sessionID string) (contractx.Conversation, error) {
	c := &Conversation{
		agent:     a,
		sessionID: sessionID,
		events: kit.Emitter{
			Publisher: a.cfg.Publisher,
			SessionID: sessionID,
			Agent:     contractx.AgentTypeFraud,
			Now:       a.cfg.Now,
		},
	}
	c.tools = c.buildTools()
	return c, nil
}

// Cases returns the stored fraud cases, seeding the file from reference
// data on first use.
func (a *Agent) Cases() ([]catalog.FraudCase, error) {
	res := flatfile.Read[[]catalog.FraudCase](a.cfg.Files, CasesFile)
	switch res.Status {
	case flatfile.StatusOK:
		return res.Value, nil
	case flatfile.StatusCorrupt:
		log.Error().Err(res.Err).Str("path", res.Path).Msg("fraud: case file unreadable, using reference cases")
		return a.seed(), nil
	default:
		seed := a.seed()
		if err := a.cfg.Files.Write(CasesFile, seed); err != nil {
			return nil, fmt.Errorf("fraud: seed cases: %w", err)
		}
		return seed, nil
	}
}

func (a *Agent) seed() []catalog.FraudCase {
	return slices.Clone(a.cfg.Catalog.FraudCases)
}

func (a *Agent) setStatus(userName, status, notes string) (catalog.FraudCase, error) {
	var updated catalog.FraudCase
	err := flatfile.Update(a.cfg.Files, CasesFile, func(cases *[]catalog.FraudCase, st flatfile.Status) error {
		if st != flatfile.StatusOK {
			*cases = a.seed()
		}
		for i := range *cases {
			if strings.EqualFold((*cases)[i].UserName, userName) {
				(*cases)[i].Status = status
				(*cases)[i].Notes = notes
				updated = (*cases)[i]
				return nil
			}
		}
		return fmt.Errorf("fraud: case for %q: %w", userName, contractx.ErrNotFound)
	})
	return updated, err
}

// Conversation is one verification call. It remembers the matched case
// and how far verification got.
type Conversation struct {
	agent     *Agent
	sessionID string
	events    kit.Emitter
	tools     []einotool.InvokableTool

	matched          *catalog.FraudCase
	usernameVerified bool
	securityVerified bool
	attempts         int
	closed           bool
}

var _ contractx.ReplyShaper = (*Conversation)(nil)

func (c *Conversation) SessionID() string               { return c.sessionID }
func (c *Conversation) AgentType() contractx.AgentType  { return contractx.AgentTypeFraud }
func (c *Conversation) Instructions() string            { return c.agent.instructions }
func (c *Conversation) Tools() []einotool.InvokableTool { return c.tools }

type Snapshot struct {
	UserName         string `json:"userName,omitempty"`
	Status           string `json:"status,omitempty"`
	UsernameVerified bool   `json:"usernameVerified"`
	SecurityVerified bool   `json:"securityVerified"`
	Attempts         int    `json:"attempts"`
}

func (c *Conversation) Snapshot() any {
	s := Snapshot{
		UsernameVerified: c.usernameVerified,
		SecurityVerified: c.securityVerified,
		Attempts:         c.attempts,
	}
	if c.matched != nil {
		s.UserName = c.matched.UserName
		s.Status = c.matched.Status
	}
	return s
}

// AwaitingAnswer reports whether the caller was found but has not yet
// answered the security question.
func (c *Conversation) AwaitingAnswer() bool {
	return c.matched != nil && c.usernameVerified && !c.securityVerified && !c.closed
}

// ShapeReply speaks the stored security question while an answer is
// pending, whatever the model produced.
func (c *Conversation) ShapeReply(reply string) string {
	if !c.AwaitingAnswer() {
		return reply
	}
	return securityPrompt(c.matched.SecurityQuestion)
}

func securityPrompt(question string) string {
	q := strings.TrimSpace(question)
	if !strings.HasSuffix(q, "?") && !strings.HasSuffix(q, ".") {
		q += "."
	}
	return fmt.Sprintf("For verification, your security question is: %s Please answer it.", q)
}

type UsernameArgs struct {
	Username string `json:"username"`
}

type AnswerArgs struct {
	Answer string `json:"answer"`
}

func (c *Conversation) buildTools() []einotool.InvokableTool {
	return []einotool.InvokableTool{
		toolx.New("verify_username", "Look up the fraud case by the name the caller gives.",
			map[string]*schema.ParameterInfo{"username": toolx.String("Name the caller claims to be", true)},
			c.VerifyUsername),
		toolx.New("verify_security_answer", "Check the caller's answer to the security question.",
			map[string]*schema.ParameterInfo{"answer": toolx.String("Answer to the security question", true)},
			c.VerifySecurityAnswer),
		toolx.New("get_transaction_summary", "Read out the suspicious transaction. Requires verification.", nil,
			c.GetTransactionSummary),
		toolx.New("mark_transaction_safe", "Record that the caller made the transaction.", nil,
			c.MarkTransactionSafe),
		toolx.New("mark_transaction_fraud", "Record that the caller did not make the transaction.", nil,
			c.MarkTransactionFraud),
		toolx.New("mark_verification_failed", "Close the call because identity could not be verified.", nil,
			c.MarkVerificationFailed),
	}
}

func (c *Conversation) VerifyUsername(ctx context.Context, in UsernameArgs) (string, error) {
	claimed := strings.TrimSpace(in.Username)
	cases, err := c.agent.Cases()
	if err != nil {
		return "", err
	}

	idx := slices.IndexFunc(cases, func(fc catalog.FraudCase) bool {
		return strings.EqualFold(fc.UserName, claimed)
	})
	if claimed == "" || idx < 0 {
		return "", contractx.Reply(contractx.ErrNotFound,
			"I could not locate any fraud alert case under that name. Please try again with the correct account name.")
	}

	matched := cases[idx]
	c.matched = &matched
	c.usernameVerified = true
	c.securityVerified = false
	c.attempts = 0
	c.closed = false
	c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())

	return fmt.Sprintf("Thank you %s. I have located your fraud alert case. %s",
		matched.UserName, securityPrompt(matched.SecurityQuestion)), nil
}

func (c *Conversation) VerifySecurityAnswer(ctx context.Context, in AnswerArgs) (string, error) {
	if c.matched == nil {
		return "We have not found your case yet. Please provide your name first.", nil
	}
	if c.closed {
		return "This verification is closed. Please contact SecureTrust Bank through official channels.", nil
	}

	if strings.EqualFold(strings.TrimSpace(in.Answer), strings.TrimSpace(c.matched.SecurityAnswer)) {
		c.securityVerified = true
		c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
		return "Thank you. Your identity is verified.", nil
	}

	c.attempts++
	log.Warn().
		Str("session_id", c.sessionID).
		Int("attempts", c.attempts).
		Msg("fraud: security answer mismatch")
	if c.attempts >= MaxAnswerAttempts {
		return c.MarkVerificationFailed(ctx, struct{}{})
	}
	c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
	return "That answer does not match our records.", nil
}

func (c *Conversation) requireVerified() error {
	if c.matched == nil {
		return contractx.Reply(contractx.ErrNotVerified, "We have not accessed your case yet. Please tell me your name first.")
	}
	if !c.securityVerified || c.closed {
		return contractx.Reply(contractx.ErrNotVerified, "I need to verify your identity before we can go over this transaction.")
	}
	return nil
}

func (c *Conversation) GetTransactionSummary(_ context.Context, _ struct{}) (string, error) {
	if err := c.requireVerified(); err != nil {
		return "", err
	}
	fc := c.matched
	return fmt.Sprintf("There is a transaction of %s at %s in %s on %s. The card used ends in %s. It is categorized as %s, sourced from %s.",
		fc.TransactionAmount, fc.TransactionName, fc.TransactionLocation, fc.TransactionTime,
		fc.CardEnding, fc.TransactionCategory, fc.TransactionSource), nil
}

func (c *Conversation) resolve(ctx context.Context, status, notes string) error {
	updated, err := c.agent.setStatus(c.matched.UserName, status, notes)
	if err != nil {
		return err
	}
	c.matched = &updated
	log.Info().
		Str("session_id", c.sessionID).
		Str("case", updated.UserName).
		Str("status", status).
		Msg("fraud: case resolved")
	c.events.Emit(ctx, contractx.EventFinalized, c.Snapshot())
	return nil
}

func (c *Conversation) MarkTransactionSafe(ctx context.Context, _ struct{}) (string, error) {
	if err := c.requireVerified(); err != nil {
		return "", err
	}
	if err := c.resolve(ctx, StatusConfirmedSafe, "Customer confirmed transaction as legitimate."); err != nil {
		return "", err
	}
	return "I have marked this transaction as safe.", nil
}

func (c *Conversation) MarkTransactionFraud(ctx context.Context, _ struct{}) (string, error) {
	if err := c.requireVerified(); err != nil {
		return "", err
	}
	if err := c.resolve(ctx, StatusConfirmedFraud, "Customer denied transaction."); err != nil {
		return "", err
	}
	return "I have marked this transaction as fraudulent. Your card will be blocked and a dispute opened.", nil
}

func (c *Conversation) MarkVerificationFailed(ctx context.Context, _ struct{}) (string, error) {
	if c.matched != nil && !c.closed {
		if err := c.resolve(ctx, StatusVerificationFailed, "Identity verification failed."); err != nil {
			return "", err
		}
	}
	c.closed = true
	return "Since we could not verify your identity, I cannot continue. Please contact SecureTrust Bank through official channels.", nil
}
