// Package catalog loads the read-only reference data the agents look up:
// FAQ entries, grocery products and recipes, tutor concepts and fraud cases.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
)

//go:embed data/*.json
var embedded embed.FS

const (
	FAQFile        = "faq.json"
	ProductsFile   = "products.json"
	RecipesFile    = "recipes.json"
	ConceptsFile   = "concepts.json"
	FraudCasesFile = "fraud_cases.json"
)

type FAQ struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Tags     []string `json:"tags"`
}

func (f FAQ) Text() string {
	return f.Question + " " + f.Answer + " " + strings.Join(f.Tags, " ")
}

type Product struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Price    float64  `json:"price"`
	Tags     []string `json:"tags"`
}

type Concept struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Summary        string `json:"summary"`
	SampleQuestion string `json:"sample_question"`
}

type FraudCase struct {
	UserName            string `json:"userName"`
	SecurityIdentifier  string `json:"securityIdentifier"`
	SecurityQuestion    string `json:"securityQuestion"`
	SecurityAnswer      string `json:"securityAnswer"`
	CardEnding          string `json:"cardEnding"`
	TransactionAmount   string `json:"transactionAmount"`
	TransactionName     string `json:"transactionName"`
	TransactionTime     string `json:"transactionTime"`
	TransactionLocation string `json:"transactionLocation"`
	TransactionCategory string `json:"transactionCategory"`
	TransactionSource   string `json:"transactionSource"`
	Status              string `json:"status"`
	Notes               string `json:"notes"`
}

type Catalog struct {
	FAQ        []FAQ
	Products   []Product
	Recipes    map[string][]string
	Concepts   []Concept
	FraudCases []FraudCase
}

// Load reads reference data from dir, falling back to the embedded copy
// for any file dir does not have. An empty dir uses the embedded data only.
func Load(dir string) (*Catalog, error) {
	base, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("catalog: embedded data: %w", err)
	}

	var override fs.FS
	if d := strings.TrimSpace(dir); d != "" {
		override = os.DirFS(d)
	}

	c := &Catalog{}
	if err := decode(override, base, FAQFile, &c.FAQ); err != nil {
		return nil, err
	}
	if err := decode(override, base, ProductsFile, &c.Products); err != nil {
		return nil, err
	}
	if err := decode(override, base, RecipesFile, &c.Recipes); err != nil {
		return nil, err
	}
	if err := decode(override, base, ConceptsFile, &c.Concepts); err != nil {
		return nil, err
	}
	if err := decode(override, base, FraudCasesFile, &c.FraudCases); err != nil {
		return nil, err
	}

	c.Recipes = normalizeRecipes(c.Recipes)
	log.Debug().
		Int("faq", len(c.FAQ)).
		Int("products", len(c.Products)).
		Int("recipes", len(c.Recipes)).
		Int("concepts", len(c.Concepts)).
		Int("fraud_cases", len(c.FraudCases)).
		Msg("catalog loaded")
	return c, nil
}

// MustLoad is Load with the embedded data, which is known to be valid.
func MustLoad() *Catalog {
	c, err := Load("")
	if err != nil {
		panic(err)
	}
	return c
}

func decode(override, base fs.FS, name string, v any) error {
	var (
		data []byte
		err  error
	)
	if override != nil {
		data, err = fs.ReadFile(override, name)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("catalog: read %s: %w", name, err)
		}
	}
	if data == nil {
		data, err = fs.ReadFile(base, name)
		if err != nil {
			return fmt.Errorf("catalog: read embedded %s: %w", name, err)
		}
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("catalog: parse %s: %w", name, err)
	}
	return nil
}

func normalizeRecipes(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for dish, items := range in {
		out[strings.ToLower(strings.TrimSpace(dish))] = items
	}
	return out
}

func (c *Catalog) FindFAQ(query string) (FAQ, bool) {
	entry, _, ok := Lookup(c.FAQ, query, FAQ.Text)
	return entry, ok
}

func (c *Catalog) FindProduct(query string) (Product, bool) {
	p, _, ok := Lookup(c.Products, query, func(p Product) string { return p.Name })
	return p, ok
}

func (c *Catalog) Concept(id string) (Concept, bool) {
	key := strings.ToLower(strings.TrimSpace(id))
	for _, concept := range c.Concepts {
		if concept.ID == key {
			return concept, true
		}
	}
	return Concept{}, false
}

func (c *Catalog) ConceptIDs() []string {
	ids := make([]string, 0, len(c.Concepts))
	for _, concept := range c.Concepts {
		ids = append(ids, concept.ID)
	}
	return ids
}

func (c *Catalog) Recipe(dish string) ([]string, bool) {
	items, ok := c.Recipes[strings.ToLower(strings.TrimSpace(dish))]
	return items, ok
}

func (c *Catalog) Dishes() []string {
	dishes := make([]string, 0, len(c.Recipes))
	for d := range c.Recipes {
		dishes = append(dishes, d)
	}
	sort.Strings(dishes)
	return dishes
}
