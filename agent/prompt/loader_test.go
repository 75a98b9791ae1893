package prompt

import (
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
)

func TestLoadPromptSetHasEveryAgent(t *testing.T) {
	t.Parallel()

	set, err := LoadPromptSet()
	if err != nil {
		t.Fatalf("LoadPromptSet() error = %v", err)
	}
	for _, agent := range contractx.AllAgentTypes {
		if strings.TrimSpace(set[agent]) == "" {
			t.Fatalf("prompt for %s is empty", agent)
		}
	}
}

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	t.Parallel()

	set := PromptSet{contractx.AgentTypeTutor: "Concepts: {{concepts}}. Again: {{concepts}}."}
	got := set.Render(contractx.AgentTypeTutor, map[string]string{"concepts": "Loops, Variables"})
	if got != "Concepts: Loops, Variables. Again: Loops, Variables." {
		t.Fatalf("Render() = %q", got)
	}
}

func TestVoiceProfilesLayerOverrides(t *testing.T) {
	t.Parallel()

	profiles, err := LoadVoiceProfiles()
	if err != nil {
		t.Fatalf("LoadVoiceProfiles() error = %v", err)
	}
	gm := profiles[contractx.AgentTypeGameMaster]
	if gm.TTS.Style != "Narration" {
		t.Fatalf("gamemaster style = %q, want Narration", gm.TTS.Style)
	}
	if gm.TTS.Voice != "en-US-matthew" || gm.STT.Model != "nova-3" {
		t.Fatalf("gamemaster lost defaults: %+v", gm)
	}
	if profiles[contractx.AgentTypeCoffee].Greeting == "" {
		t.Fatal("coffee greeting is empty")
	}
}

func TestParseVoiceProfilesUnknownAgent(t *testing.T) {
	t.Parallel()

	_, err := parseVoiceProfiles([]byte("agents:\n  barista:\n    greeting: hi\n"))
	if !errors.Is(err, contractx.ErrUnknownAgent) {
		t.Fatalf("parseVoiceProfiles() error = %v, want ErrUnknownAgent", err)
	}
}
