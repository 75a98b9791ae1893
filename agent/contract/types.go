package contract

import (
	"fmt"
	"strings"
	"time"
)

type AgentType string

const (
	AgentTypeWellness   AgentType = "wellness"
	AgentTypeCoffee     AgentType = "coffee"
	AgentTypeTutor      AgentType = "tutor"
	AgentTypeSDR        AgentType = "sdr"
	AgentTypeFraud      AgentType = "fraud"
	AgentTypeGrocery    AgentType = "grocery"
	AgentTypeGameMaster AgentType = "gamemaster"
)

// AllAgentTypes is the registration order used by listings.
var AllAgentTypes = []AgentType{
	AgentTypeWellness,
	AgentTypeCoffee,
	AgentTypeTutor,
	AgentTypeSDR,
	AgentTypeFraud,
	AgentTypeGrocery,
	AgentTypeGameMaster,
}

func ParseAgentType(raw string) (AgentType, error) {
	candidate := AgentType(strings.ToLower(strings.TrimSpace(raw)))
	for _, t := range AllAgentTypes {
		if t == candidate {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAgent, raw)
}

// Event kinds published while a conversation mutates its state.
const (
	EventSessionStarted = "session_started"
	EventStateUpdated   = "state_updated"
	EventFinalized      = "finalized"
	EventSessionEnded   = "session_ended"
)

// Event is a side-channel notification about session state, e.g. for a live UI.
type Event struct {
	SessionID string    `json:"session_id"`
	Agent     AgentType `json:"agent"`
	Kind      string    `json:"kind"`
	Payload   any       `json:"payload,omitempty"`
	At        time.Time `json:"at"`
}

type ToolResult struct {
	Tool   string `json:"tool"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
