package coffee

import (
	"context"
	"fmt"
	"sync"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	kit "github.com/tanpawarit/Chative-Voice-Agents/agent/agents/agentkit"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	promptx "github.com/tanpawarit/Chative-Voice-Agents/agent/prompt"
	statex "github.com/tanpawarit/Chative-Voice-Agents/agent/state"
	toolx "github.com/tanpawarit/Chative-Voice-Agents/agent/tool"
	"github.com/tanpawarit/Chative-Voice-Agents/pkg/flatfile"
)

const (
	OrdersFile      = "orders/orders.json"
	LatestOrderFile = "orders/latest_order.json"
)

var (
	DrinkTypes = []string{"latte", "cappuccino", "americano", "espresso", "mocha", "flat white", "cold brew"}
	Sizes      = []string{"small", "medium", "large"}
	Milks      = []string{"whole", "skim", "oat", "almond", "soy"}
	Extras     = []string{"extra shot", "vanilla syrup", "caramel syrup", "hazelnut syrup", "whipped cream", "cinnamon"}
)

const (
	slotDrinkType = "drinkType"
	slotSize      = "size"
	slotMilk      = "milk"
	slotExtras    = "extras"
	slotName      = "name"
)

var orderSchema = statex.NewSchema(
	statex.Slot{Name: slotDrinkType, Label: "drink type", Required: true, Options: DrinkTypes},
	statex.Slot{Name: slotSize, Label: "size", Required: true, Options: Sizes},
	statex.Slot{Name: slotMilk, Label: "milk", Required: true, Options: Milks},
	statex.Slot{Name: slotExtras, Label: "extras", Kind: statex.KindList, Options: Extras},
	statex.Slot{Name: slotName, Label: "name", Required: true},
)

// Order is one persisted coffee order.
type Order struct {
	Timestamp string   `json:"timestamp"`
	DrinkType string   `json:"drinkType"`
	Size      string   `json:"size"`
	Milk      string   `json:"milk"`
	Extras    []string `json:"extras"`
	Name      string   `json:"name"`
	Summary   string   `json:"summary"`
}

type Config struct {
	Files     *flatfile.Store
	Prompts   promptx.PromptSet
	Publisher contractx.Publisher
	Now       func() time.Time
}

type Agent struct {
	cfg          Config
	instructions string
	persistMu    sync.Mutex
}

func New(cfg Config) *Agent {
	cfg.Now = kit.Clock(cfg.Now)
	return &Agent{
		cfg: cfg,
		instructions: cfg.Prompts.Render(contractx.AgentTypeCoffee, map[string]string{
			"drinks": kit.JoinAnd(DrinkTypes),
			"sizes":  kit.JoinAnd(Sizes),
			"milks":  kit.JoinAnd(Milks),
			"extras": kit.JoinAnd(Extras),
		}),
	}
}

func (a *Agent) Type() contractx.AgentType {
	return contractx.AgentTypeCoffee
}

func (a *Agent) Description() string {
	return "Barista that takes a coffee order slot by slot and saves it."
}

func (a *Agent) NewConversation(_ context.Context, sessionID string) (contractx.Conversation, error) {
	c := &Conversation{
		agent:     a,
		sessionID: sessionID,
		order:     orderSchema.NewRecord(),
		events: kit.Emitter{
			Publisher: a.cfg.Publisher,
			SessionID: sessionID,
			Agent:     contractx.AgentTypeCoffee,
			Now:       a.cfg.Now,
		},
	}
	c.tools = c.buildTools()
	return c, nil
}

// Conversation is one customer's order in progress.
type Conversation struct {
	agent     *Agent
	sessionID string
	order     *statex.Record
	events    kit.Emitter
	tools     []einotool.InvokableTool
}

func (c *Conversation) SessionID() string               { return c.sessionID }
func (c *Conversation) AgentType() contractx.AgentType  { return contractx.AgentTypeCoffee }
func (c *Conversation) Instructions() string            { return c.agent.instructions }
func (c *Conversation) Tools() []einotool.InvokableTool { return c.tools }

type Snapshot struct {
	Order    map[string]any `json:"order"`
	Missing  []string       `json:"missing"`
	Complete bool           `json:"complete"`
}

func (c *Conversation) Snapshot() any {
	return Snapshot{
		Order:    c.order.Values(),
		Missing:  c.order.Missing(),
		Complete: c.order.IsComplete(),
	}
}

type DrinkTypeArgs struct {
	DrinkType string `json:"drinkType"`
}

type SizeArgs struct {
	Size string `json:"size"`
}

type MilkArgs struct {
	Milk string `json:"milk"`
}

type ExtrasArgs struct {
	Extras []string `json:"extras"`
}

type NameArgs struct {
	Name string `json:"name"`
}

func (c *Conversation) buildTools() []einotool.InvokableTool {
	return []einotool.InvokableTool{
		toolx.New("set_drink_type", "Record the drink the customer wants.",
			map[string]*schema.ParameterInfo{"drinkType": toolx.Enum("Drink type", DrinkTypes, true)},
			c.SetDrinkType),
		toolx.New("set_size", "Record the cup size.",
			map[string]*schema.ParameterInfo{"size": toolx.Enum("Cup size", Sizes, true)},
			c.SetSize),
		toolx.New("set_milk", "Record the milk choice.",
			map[string]*schema.ParameterInfo{"milk": toolx.Enum("Milk", Milks, true)},
			c.SetMilk),
		toolx.New("set_extras", "Record extras. Pass an empty list for no extras.",
			map[string]*schema.ParameterInfo{"extras": toolx.StringList("Extras", Extras, true)},
			c.SetExtras),
		toolx.New("set_name", "Record the name for the order.",
			map[string]*schema.ParameterInfo{"name": toolx.String("Customer name", true)},
			c.SetName),
		toolx.New("finalize_order", "Place the order once every field is collected.", nil,
			c.FinalizeOrder),
	}
}

func (c *Conversation) set(ctx context.Context, slot, value string) (string, error) {
	v, err := c.order.Set(slot, value)
	if err != nil {
		return "", err
	}
	c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
	return v, nil
}

func (c *Conversation) SetDrinkType(ctx context.Context, in DrinkTypeArgs) (string, error) {
	v, err := c.set(ctx, slotDrinkType, in.DrinkType)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Great, one %s.", kit.Title(v)), nil
}

func (c *Conversation) SetSize(ctx context.Context, in SizeArgs) (string, error) {
	v, err := c.set(ctx, slotSize, in.Size)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s it is.", kit.Title(v)), nil
}

func (c *Conversation) SetMilk(ctx context.Context, in MilkArgs) (string, error) {
	v, err := c.set(ctx, slotMilk, in.Milk)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s milk, got it.", kit.Title(v)), nil
}

func (c *Conversation) SetExtras(ctx context.Context, in ExtrasArgs) (string, error) {
	extras, err := c.order.SetList(slotExtras, in.Extras)
	if err != nil {
		return "", err
	}
	c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
	if len(extras) == 0 {
		return "No extras, noted.", nil
	}
	return fmt.Sprintf("Adding %s.", kit.JoinAnd(extras)), nil
}

func (c *Conversation) SetName(ctx context.Context, in NameArgs) (string, error) {
	v, err := c.set(ctx, slotName, in.Name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Thanks, %s.", v), nil
}

// Summary renders the order sentence, e.g. "Medium Latte with Oat milk and no extras for Sam".
func (c *Conversation) Summary() string {
	extras := "no extras"
	if list := c.order.List(slotExtras); len(list) > 0 {
		extras = kit.JoinAnd(list)
	}
	return fmt.Sprintf("%s %s with %s milk and %s for %s",
		kit.Title(c.order.Text(slotSize)),
		kit.Title(c.order.Text(slotDrinkType)),
		kit.Title(c.order.Text(slotMilk)),
		extras,
		c.order.Text(slotName),
	)
}

func (c *Conversation) finalizer() statex.Finalizer[Order] {
	return statex.Finalizer[Order]{
		Missing: c.order.Missing,
		Build: func(at time.Time) (Order, string, error) {
			summary := c.Summary()
			return Order{
				Timestamp: kit.Timestamp(at),
				DrinkType: c.order.Text(slotDrinkType),
				Size:      c.order.Text(slotSize),
				Milk:      c.order.Text(slotMilk),
				Extras:    c.order.List(slotExtras),
				Name:      c.order.Text(slotName),
				Summary:   summary,
			}, summary, nil
		},
		Persist: c.agent.persist,
		Now:     c.agent.cfg.Now,
	}
}

func (c *Conversation) FinalizeOrder(ctx context.Context, _ struct{}) (string, error) {
	out, err := c.finalizer().Finalize(ctx)
	if err != nil {
		return "", err
	}
	if !out.Complete() {
		return fmt.Sprintf("I still need your %s before I can place the order.", kit.JoinAnd(out.Missing)), nil
	}
	c.events.Emit(ctx, contractx.EventFinalized, out.Entry)
	return fmt.Sprintf("Your order is in: %s. It'll be ready shortly!", out.Summary), nil
}

func (a *Agent) persist(_ context.Context, order Order) error {
	a.persistMu.Lock()
	defer a.persistMu.Unlock()

	if _, err := flatfile.Append(a.cfg.Files, OrdersFile, order); err != nil {
		return err
	}
	return a.cfg.Files.WriteLatest(LatestOrderFile, order)
}
