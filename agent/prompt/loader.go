package prompt

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
	"gopkg.in/yaml.v3"
)

var (
	//go:embed template/*.txt
	templates embed.FS

	//go:embed voices.yaml
	voicesRaw []byte
)

// PromptSet holds the trimmed instruction template of every agent.
type PromptSet map[contractx.AgentType]string

// LoadPromptSet reads every embedded template. Missing templates are an error.
func LoadPromptSet() (PromptSet, error) {
	set := make(PromptSet, len(contractx.AllAgentTypes))
	for _, agent := range contractx.AllAgentTypes {
		raw, err := templates.ReadFile("template/" + string(agent) + ".txt")
		if err != nil {
			return nil, fmt.Errorf("prompt: template for agent=%s: %w", agent, err)
		}
		set[agent] = strings.TrimSpace(string(raw))
	}
	return set, nil
}

func MustLoadPromptSet() PromptSet {
	set, err := LoadPromptSet()
	if err != nil {
		panic(err)
	}
	return set
}

// Render substitutes {{key}} placeholders in the agent's template.
func (p PromptSet) Render(agent contractx.AgentType, vars map[string]string) string {
	out := p[agent]
	if len(vars) == 0 {
		return out
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(out)
}

type STT struct {
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model" json:"model"`
	Language string `yaml:"language" json:"language"`
}

type LLM struct {
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model" json:"model"`
}

type TTS struct {
	Provider  string `yaml:"provider" json:"provider"`
	Voice     string `yaml:"voice" json:"voice"`
	Style     string `yaml:"style" json:"style"`
	Tokenizer string `yaml:"tokenizer" json:"tokenizer"`
}

// VoiceProfile is the pipeline wiring the hosting framework needs per agent.
type VoiceProfile struct {
	STT                  STT    `yaml:"stt" json:"stt"`
	LLM                  LLM    `yaml:"llm" json:"llm"`
	TTS                  TTS    `yaml:"tts" json:"tts"`
	TurnDetection        string `yaml:"turn_detection" json:"turn_detection"`
	VAD                  string `yaml:"vad" json:"vad"`
	NoiseCancellation    string `yaml:"noise_cancellation" json:"noise_cancellation"`
	PreemptiveGeneration bool   `yaml:"preemptive_generation" json:"preemptive_generation"`
	Greeting             string `yaml:"greeting" json:"greeting"`
}

type voicesDoc struct {
	Defaults VoiceProfile         `yaml:"defaults"`
	Agents   map[string]yaml.Node `yaml:"agents"`
}

// LoadVoiceProfiles parses the embedded profiles, layering each agent's
// overrides on the shared defaults.
func LoadVoiceProfiles() (map[contractx.AgentType]VoiceProfile, error) {
	return parseVoiceProfiles(voicesRaw)
}

func parseVoiceProfiles(raw []byte) (map[contractx.AgentType]VoiceProfile, error) {
	var doc voicesDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("prompt: parse voices: %w", err)
	}

	out := make(map[contractx.AgentType]VoiceProfile, len(contractx.AllAgentTypes))
	for _, agent := range contractx.AllAgentTypes {
		profile := doc.Defaults
		if node, ok := doc.Agents[string(agent)]; ok {
			if err := node.Decode(&profile); err != nil {
				return nil, fmt.Errorf("prompt: voice profile for agent=%s: %w", agent, err)
			}
		}
		out[agent] = profile
	}
	for name := range doc.Agents {
		if _, err := contractx.ParseAgentType(name); err != nil {
			return nil, fmt.Errorf("prompt: voices: %w", err)
		}
	}
	return out, nil
}
