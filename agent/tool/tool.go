package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Voice-Agents/agent/contract"
)

// Handler runs a tool against its decoded, typed arguments.
type Handler[T any] func(ctx context.Context, in T) (string, error)

// Tool adapts a typed handler to eino's InvokableTool.
type Tool[T any] struct {
	name    string
	desc    string
	params  map[string]*schema.ParameterInfo
	handler Handler[T]
}

var _ einotool.InvokableTool = (*Tool[struct{}])(nil)

func New[T any](name, desc string, params map[string]*schema.ParameterInfo, h Handler[T]) *Tool[T] {
	if params == nil {
		params = map[string]*schema.ParameterInfo{}
	}
	return &Tool[T]{name: name, desc: desc, params: params, handler: h}
}

func (t *Tool[T]) Name() string {
	return t.name
}

func (t *Tool[T]) Info(context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        t.name,
		Desc:        t.desc,
		ParamsOneOf: schema.NewParamsOneOfByParams(t.params),
	}, nil
}

// InvokableRun decodes the JSON arguments into T and runs the handler.
// Conversational handler errors become the returned text.
func (t *Tool[T]) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...einotool.Option) (string, error) {
	var in T
	raw := strings.TrimSpace(argumentsInJSON)
	if raw != "" && raw != "null" {
		if err := sonic.UnmarshalString(raw, &in); err != nil {
			return "", fmt.Errorf("%w: invalid args for tool=%s: %v", contractx.ErrValidation, t.name, err)
		}
	}

	out, err := t.handler(ctx, in)
	if err != nil {
		if reply, ok := contractx.ReplyText(err); ok {
			log.Warn().Err(err).Str("tool", t.name).Msg("tool rejected input")
			return reply, nil
		}
		return "", err
	}
	return out, nil
}

func String(desc string, required bool) *schema.ParameterInfo {
	return &schema.ParameterInfo{Type: schema.String, Desc: desc, Required: required}
}

func Integer(desc string, required bool) *schema.ParameterInfo {
	return &schema.ParameterInfo{Type: schema.Integer, Desc: desc, Required: required}
}

// Enum is a string parameter restricted to options.
func Enum(desc string, options []string, required bool) *schema.ParameterInfo {
	return &schema.ParameterInfo{Type: schema.String, Desc: desc, Enum: options, Required: required}
}

func StringList(desc string, options []string, required bool) *schema.ParameterInfo {
	return &schema.ParameterInfo{
		Type:     schema.Array,
		Desc:     desc,
		ElemInfo: &schema.ParameterInfo{Type: schema.String, Enum: options},
		Required: required,
	}
}
