package grocery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	kit "github.com/tanpawarit/Chative-Voice-Agents/agent/agents/agentkit"
	"github.com/tanpawarit/Chative-Voice-Agents/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	promptx "github.com/tanpawarit/Chative-Voice-Agents/agent/prompt"
	statex "github.com/tanpawarit/Chative-Voice-Agents/agent/state"
	toolx "github.com/tanpawarit/Chative-Voice-Agents/agent/tool"
	"github.com/tanpawarit/Chative-Voice-Agents/pkg/flatfile"
)

const (
	OrdersFile      = "grocery/orders.json"
	LatestOrderFile = "grocery/latest_order.json"
)

const (
	defaultCustomer = "Guest"
	defaultAddress  = "Not provided"
)

var customerSchema = statex.NewSchema(
	statex.Slot{Name: "customer_name", Label: "name"},
	statex.Slot{Name: "address", Label: "address"},
)

// Line is one product in the cart.
type Line struct {
	Product  catalog.Product
	Quantity int
}

func (l Line) Total() float64 {
	return l.Product.Price * float64(l.Quantity)
}

type OrderItem struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

type Order struct {
	Timestamp    string      `json:"timestamp"`
	CustomerName string      `json:"customer_name"`
	Address      string      `json:"address"`
	Items        []OrderItem `json:"items"`
	Total        float64     `json:"total"`
}

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
	persistMu    sync.Mutex
}

func New(cfg Config) *Agent {
	cfg.Now = kit.Clock(cfg.Now)
	return &Agent{
		cfg: cfg,
		instructions: cfg.Prompts.Render(contractx.AgentTypeGrocery, map[string]string{
			"dishes": kit.JoinAnd(cfg.Catalog.Dishes()),
		}),
	}
}

func (a *Agent) Type() contractx.AgentType { return contractx.AgentTypeGrocery }

func (a *Agent) Description() string {
	return "Grocery assistant that builds a cart from the catalog and places the order."
}

func (a *Agent) NewConversation(_ context.Context, sessionID string) (contractx.Conversation, error) {
	c := &Conversation{
		agent:     a,
		sessionID: sessionID,
		customer:  customerSchema.NewRecord(),
		events: kit.Emitter{
			Publisher: a.cfg.Publisher,
			SessionID: sessionID,
			Agent:     contractx.AgentTypeGrocery,
			Now:       a.cfg.Now,
		},
	}
	c.tools = c.buildTools()
	return c, nil
}

type Conversation struct {
	agent     *Agent
	sessionID string
	customer  *statex.Record
	cart      []Line
	events    kit.Emitter
	tools     []einotool.InvokableTool
}

func (c *Conversation) SessionID() string               { return c.sessionID }
func (c *Conversation) AgentType() contractx.AgentType  { return contractx.AgentTypeGrocery }
func (c *Conversation) Instructions() string            { return c.agent.instructions }
func (c *Conversation) Tools() []einotool.InvokableTool { return c.tools }

func (c *Conversation) Snapshot() any {
	return c.order(time.Time{})
}

func (c *Conversation) Cart() []Line {
	return append([]Line(nil), c.cart...)
}

func (c *Conversation) CartTotal() float64 {
	var total float64
	for _, l := range c.cart {
		total += l.Total()
	}
	return total
}

// money prints a price without trailing zeros.
func money(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type NameArgs struct {
	Name string `json:"name"`
}

type AddressArgs struct {
	Address string `json:"address"`
}

type AddItemArgs struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

type ItemArgs struct {
	ItemName string `json:"item_name"`
}

type QuantityArgs struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

type DishArgs struct {
	DishName string `json:"dish_name"`
}

func (c *Conversation) buildTools() []einotool.InvokableTool {
	item := toolx.String("Item name as spoken by the customer", true)
	return []einotool.InvokableTool{
		toolx.New("set_customer_name", "Record the name the order is placed under.",
			map[string]*schema.ParameterInfo{"name": toolx.String("Customer name", true)},
			c.SetCustomerName),
		toolx.New("set_address", "Record the delivery address.",
			map[string]*schema.ParameterInfo{"address": toolx.String("Delivery address", true)},
			c.SetAddress),
		toolx.New("add_item_to_cart", "Add a catalog item to the cart.",
			map[string]*schema.ParameterInfo{
				"item_name": item,
				"quantity":  toolx.Integer("How many units to add, default 1", false),
			},
			c.AddItem),
		toolx.New("remove_item_from_cart", "Remove every cart item whose name contains the given text.",
			map[string]*schema.ParameterInfo{"item_name": item},
			c.RemoveItem),
		toolx.New("update_item_quantity", "Set the quantity of a cart item. Zero removes it.",
			map[string]*schema.ParameterInfo{
				"item_name": item,
				"quantity":  toolx.Integer("New quantity, 0 to remove", true),
			},
			c.UpdateQuantity),
		toolx.New("list_cart", "Read back the cart and its total.", nil, c.ListCart),
		toolx.New("add_ingredients_for_dish", "Add the ingredients for a known dish.",
			map[string]*schema.ParameterInfo{"dish_name": toolx.Enum("Dish name", c.agent.cfg.Catalog.Dishes(), true)},
			c.AddIngredients),
		toolx.New("place_order", "Place the order for the current cart.", nil, c.PlaceOrder),
	}
}

func (c *Conversation) SetCustomerName(ctx context.Context, in NameArgs) (string, error) {
	name, err := c.customer.Set("customer_name", in.Name)
	if err != nil {
		return "", err
	}
	c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
	return fmt.Sprintf("Got it, I'll place the order under the name %s.", name), nil
}

func (c *Conversation) SetAddress(ctx context.Context, in AddressArgs) (string, error) {
	if _, err := c.customer.Set("address", in.Address); err != nil {
		return "", err
	}
	c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
	return "Thanks, I've noted the delivery address.", nil
}

// add merges qty units of p into the cart.
func (c *Conversation) add(p catalog.Product, qty int) {
	for i := range c.cart {
		if c.cart[i].Product.ID == p.ID {
			c.cart[i].Quantity += qty
			return
		}
	}
	c.cart = append(c.cart, Line{Product: p, Quantity: qty})
}

func (c *Conversation) AddItem(ctx context.Context, in AddItemArgs) (string, error) {
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return "", contractx.Reply(contractx.ErrValidation, "I can only add a positive quantity.")
	}

	p, ok := c.agent.cfg.Catalog.FindProduct(in.ItemName)
	if !ok {
		return "", contractx.Reply(contractx.ErrNotFound,
			"I couldn't find an item matching %q in the catalog. Please try a different name or ask what's available.", in.ItemName)
	}
	c.add(p, qty)
	c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
	return fmt.Sprintf("Added %d x %s to your cart.", qty, p.Name), nil
}

func matches(l Line, query string) bool {
	return strings.Contains(strings.ToLower(l.Product.Name), query)
}

func (c *Conversation) RemoveItem(ctx context.Context, in ItemArgs) (string, error) {
	if len(c.cart) == 0 {
		return "Your cart is currently empty.", nil
	}
	query := strings.ToLower(strings.TrimSpace(in.ItemName))
	if query == "" {
		return "", contractx.Reply(contractx.ErrValidation, "Which item should I remove?")
	}

	kept := c.cart[:0]
	removed := 0
	for _, l := range c.cart {
		if matches(l, query) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	c.cart = kept

	if removed == 0 {
		return fmt.Sprintf("I couldn't find any items matching %q in your cart.", in.ItemName), nil
	}
	c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
	return fmt.Sprintf("I've removed items matching %q from your cart.", in.ItemName), nil
}

func (c *Conversation) UpdateQuantity(ctx context.Context, in QuantityArgs) (string, error) {
	if len(c.cart) == 0 {
		return "Your cart is currently empty.", nil
	}
	if in.Quantity < 0 {
		return "", contractx.Reply(contractx.ErrValidation, "The quantity can't be negative.")
	}
	query := strings.ToLower(strings.TrimSpace(in.ItemName))

	for i, l := range c.cart {
		if query == "" || !matches(l, query) {
			continue
		}
		if in.Quantity == 0 {
			c.cart = append(c.cart[:i], c.cart[i+1:]...)
			c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
			return fmt.Sprintf("I've removed %s from your cart.", l.Product.Name), nil
		}
		c.cart[i].Quantity = in.Quantity
		c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
		return fmt.Sprintf("I've updated %s to quantity %d.", l.Product.Name, in.Quantity), nil
	}
	return fmt.Sprintf("I couldn't find any items matching %q in your cart.", in.ItemName), nil
}

func (c *Conversation) ListCart(_ context.Context, _ struct{}) (string, error) {
	if len(c.cart) == 0 {
		return "Your cart is currently empty.", nil
	}
	parts := make([]string, 0, len(c.cart))
	for _, l := range c.cart {
		parts = append(parts, fmt.Sprintf("%d x %s at %s each, %s", l.Quantity, l.Product.Name, money(l.Product.Price), money(l.Total())))
	}
	return fmt.Sprintf("Here's what is in your cart: %s. Total: %s.", strings.Join(parts, "; "), money(c.CartTotal())), nil
}

func (c *Conversation) AddIngredients(ctx context.Context, in DishArgs) (string, error) {
	ingredients, ok := c.agent.cfg.Catalog.Recipe(in.DishName)
	if !ok {
		return "", contractx.Reply(contractx.ErrNotFound,
			"I don't have a recipe for %q yet. You can still add individual items by name.", in.DishName)
	}

	var added []string
	for _, name := range ingredients {
		p, ok := c.agent.cfg.Catalog.FindProduct(name)
		if !ok {
			log.Warn().Str("dish", in.DishName).Str("ingredient", name).Msg("grocery: recipe ingredient not in catalog")
			continue
		}
		c.add(p, 1)
		added = append(added, p.Name)
	}
	if len(added) == 0 {
		return fmt.Sprintf("I tried to add ingredients for %s, but none of them are in the catalog.", in.DishName), nil
	}
	c.events.Emit(ctx, contractx.EventStateUpdated, c.Snapshot())
	return fmt.Sprintf("For %s, I've added these to your cart: %s.", in.DishName, kit.JoinAnd(added)), nil
}

func (c *Conversation) order(at time.Time) Order {
	items := make([]OrderItem, 0, len(c.cart))
	for _, l := range c.cart {
		items = append(items, OrderItem{
			ID:        l.Product.ID,
			Name:      l.Product.Name,
			Category:  l.Product.Category,
			Price:     l.Product.Price,
			Quantity:  l.Quantity,
			LineTotal: l.Total(),
		})
	}
	o := Order{
		CustomerName: c.customer.Text("customer_name"),
		Address:      c.customer.Text("address"),
		Items:        items,
		Total:        c.CartTotal(),
	}
	if o.CustomerName == "" {
		o.CustomerName = defaultCustomer
	}
	if o.Address == "" {
		o.Address = defaultAddress
	}
	if !at.IsZero() {
		o.Timestamp = kit.Timestamp(at)
	}
	return o
}

func (c *Conversation) missing() []string {
	if len(c.cart) == 0 {
		return []string{"cart items"}
	}
	return nil
}

func (c *Conversation) PlaceOrder(ctx context.Context, _ struct{}) (string, error) {
	out, err := statex.Finalizer[Order]{
		Missing: c.missing,
		Build: func(at time.Time) (Order, string, error) {
			o := c.order(at)
			return o, fmt.Sprintf("%d items for %s, total %s", len(o.Items), o.CustomerName, money(o.Total)), nil
		},
		Persist: c.agent.persist,
		Now:     c.agent.cfg.Now,
	}.Finalize(ctx)
	if err != nil {
		return "", err
	}
	if !out.Complete() {
		return "Your cart is empty, so there's nothing to place as an order.", nil
	}
	c.events.Emit(ctx, contractx.EventFinalized, out.Entry)
	return fmt.Sprintf("I've placed your order with %d items. Your total is %s. The order has been saved.",
		len(out.Entry.Items), money(out.Entry.Total)), nil
}

func (a *Agent) persist(_ context.Context, o Order) error {
	a.persistMu.Lock()
	defer a.persistMu.Unlock()

	if err := a.cfg.Files.WriteLatest(LatestOrderFile, o); err != nil {
		return err
	}
	if _, err := flatfile.Append(a.cfg.Files, OrdersFile, o); err != nil {
		return err
	}
	log.Info().Int("items", len(o.Items)).Float64("total", o.Total).Msg("grocery: order saved")
	return nil
}
