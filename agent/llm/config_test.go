package llm

import (
	"errors"
	"testing"

	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
)

func TestOpenRouterForAppliesOverrides(t *testing.T) {
	t.Parallel()

	cfg := Config{
		APIKey:               " key ",
		Model:                "google/gemini-2.5-flash",
		Temperature:          0.5,
		MaxCompletionToken:   400,
		ModelOverrides:       map[string]string{"gamemaster": "anthropic/claude-3.5-haiku"},
		TemperatureOverrides: map[string]float32{"gamemaster": 0.9},
	}

	gm := cfg.OpenRouterFor(contractx.AgentTypeGameMaster)
	if gm.Model != "anthropic/claude-3.5-haiku" || gm.Temperature != 0.9 {
		t.Fatalf("gamemaster config = %+v", gm)
	}
	if gm.APIKey != "key" || gm.MaxCompletionToken == nil || *gm.MaxCompletionToken != 400 {
		t.Fatalf("gamemaster config = %+v", gm)
	}

	coffee := cfg.OpenRouterFor(contractx.AgentTypeCoffee)
	if coffee.Model != "google/gemini-2.5-flash" || coffee.Temperature != 0.5 {
		t.Fatalf("coffee config = %+v", coffee)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := (Config{Model: "m"}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation", err)
	}
	bad := Config{APIKey: "k", Model: "m", ModelOverrides: map[string]string{"barista": "x"}}
	if err := bad.Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Validate() error = %v, want ErrValidation", err)
	}
	if (Config{}).Enabled() {
		t.Fatal("Enabled() = true without api key")
	}
}
