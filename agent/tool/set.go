package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
)

type entry struct {
	info *schema.ToolInfo
	tool einotool.InvokableTool
}

// Set is the tool surface of one conversation.
type Set struct {
	agent   contractx.AgentType
	entries []entry
	byName  map[string]int
}

func NewSet(ctx context.Context, agent contractx.AgentType, tools []einotool.InvokableTool) (*Set, error) {
	s := &Set{agent: agent, byName: make(map[string]int, len(tools))}
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info for agent=%s: %w", agent, err)
		}
		name := strings.TrimSpace(info.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool name is empty for agent=%s", contractx.ErrValidation, agent)
		}
		if _, dup := s.byName[name]; dup {
			return nil, fmt.Errorf("%w: duplicate tool=%s for agent=%s", contractx.ErrValidation, name, agent)
		}
		s.byName[name] = len(s.entries)
		s.entries = append(s.entries, entry{info: info, tool: t})
	}
	return s, nil
}

func (s *Set) Infos() []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.info)
	}
	return out
}

func (s *Set) Names() []string {
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.info.Name)
	}
	return out
}

// Descriptor is a transport-neutral tool description. Parameters is the
// OpenAPI v3 object schema eino hands to chat models.
type Descriptor struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  *openapi3.Schema `json:"parameters"`
}

func (s *Set) Descriptors() ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(s.entries))
	for _, e := range s.entries {
		params, err := e.info.ParamsOneOf.ToOpenAPIV3()
		if err != nil {
			return nil, fmt.Errorf("render schema for tool=%s: %w", e.info.Name, err)
		}
		if params == nil {
			params = openapi3.NewObjectSchema()
		}
		sort.Strings(params.Required)
		out = append(out, Descriptor{Name: e.info.Name, Description: e.info.Desc, Parameters: params})
	}
	return out, nil
}

// Call runs one tool. The result always names the tool; err is non-nil when
// the tool is unknown or failed outright.
func (s *Set) Call(ctx context.Context, name string, args string) (contractx.ToolResult, error) {
	idx, ok := s.byName[strings.TrimSpace(name)]
	if !ok {
		return contractx.ToolResult{
			Tool:  name,
			Error: fmt.Sprintf("tool=%s is unavailable for agent=%s", name, s.agent),
		}, fmt.Errorf("%w: tool=%s agent=%s", contractx.ErrUnknownTool, name, s.agent)
	}

	t := s.entries[idx].tool
	out, err := t.InvokableRun(ctx, args)
	if err != nil {
		log.Error().Err(err).Str("agent", string(s.agent)).Str("tool", name).Msg("tool call failed")
		return contractx.ToolResult{Tool: name, Error: err.Error()}, err
	}
	return contractx.ToolResult{Tool: name, Result: out}, nil
}
