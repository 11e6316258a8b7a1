package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
)

// ToolHandler executes a read tool. It receives the parsed JSON arguments and
// returns a JSON-encoded result string.
type ToolHandler func(ctx context.Context, params map[string]any) (string, error)

// ToolDefinition describes one read-only tool the model may call while drafting.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     ToolHandler
}

// ToolRegistry holds the tools offered for a single call. A nil registry offers none.
type ToolRegistry struct {
	tools []ToolDefinition
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{}
}

func (r *ToolRegistry) Register(t ToolDefinition) {
	r.tools = append(r.tools, t)
}

// Get returns the ToolDefinition for name, and whether it was found.
func (r *ToolRegistry) Get(name string) (ToolDefinition, bool) {
	if r == nil {
		return ToolDefinition{}, false
	}
	for _, t := range r.tools {
		if t.Name == name {
			return t, true
		}
	}
	return ToolDefinition{}, false
}

// ToOpenAITools converts the registry to the Responses API tool format.
func (r *ToolRegistry) ToOpenAITools() []responses.ToolUnionParam {
	if r == nil {
		return nil
	}
	out := make([]responses.ToolUnionParam, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, responses.ToolUnionParam{
			OfFunction: &responses.FunctionToolParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  t.InputSchema,
			},
		})
	}
	return out
}

// Call runs the named tool with JSON-encoded arguments. Failures are returned
// as a JSON error object so the model can recover instead of aborting the draft.
func (r *ToolRegistry) Call(ctx context.Context, name, arguments string) string {
	tool, ok := r.Get(name)
	if !ok || tool.Handler == nil {
		return errorJSON(fmt.Errorf("unknown tool %q", name))
	}
	params := map[string]any{}
	if arguments != "" {
		if err := json.Unmarshal([]byte(arguments), &params); err != nil {
			return errorJSON(fmt.Errorf("invalid arguments: %w", err))
		}
	}
	out, err := tool.Handler(ctx, params)
	if err != nil {
		return errorJSON(err)
	}
	return out
}

// runCalls executes every function call in output and returns the matching
// function_call_output items. An empty result means the model answered.
func (r *ToolRegistry) runCalls(ctx context.Context, output []responses.ResponseOutputItemUnion) responses.ResponseInputParam {
	var results responses.ResponseInputParam
	for _, item := range output {
		if item.Type != "function_call" {
			continue
		}
		call := item.AsFunctionCall()
		results = append(results, responses.ResponseInputItemParamOfFunctionCallOutput(call.CallID, r.Call(ctx, call.Name, call.Arguments)))
	}
	return results
}

func errorJSON(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b)
}

// StringParam reads a required string argument.
func StringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return v, nil
}
