package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

// maxToolRounds bounds how many read-tool round trips one draft may take.
const maxToolRounds = 4

// AdjustmentDraft is the structured output the model must return. It is a
// suggestion only; nothing is written until a human proposes it.
type AdjustmentDraft struct {
	ItemCode   string  `json:"item_code" jsonschema:"description=Item code exactly as returned by lookup_item"`
	Type       string  `json:"type" jsonschema:"enum=INCREASE,enum=DECREASE"`
	Quantity   int64   `json:"quantity" jsonschema:"description=Positive whole number of units"`
	Reason     string  `json:"reason" jsonschema:"description=Short reason for the audit trail, e.g. damage or cycle count"`
	Confidence float64 `json:"confidence" jsonschema:"description=0.0 to 1.0"`
	Reasoning  string  `json:"reasoning"`
}

type Drafter interface {
	DraftAdjustment(ctx context.Context, text string, tools *ToolRegistry) (*AdjustmentDraft, error)
}

type Agent struct {
	client *openai.Client
	model  string
}

func NewAgent(apiKey, model string) *Agent {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = string(shared.ChatModelGPT4oMini)
	}
	return &Agent{client: &client, model: model}
}

// DraftAdjustment turns a free-text stock report ("3 units of SKU-1 arrived
// crushed") into an AdjustmentDraft. Read tools in the registry are executed
// as the model calls them.
func (a *Agent) DraftAdjustment(ctx context.Context, text string, tools *ToolRegistry) (*AdjustmentDraft, error) {
	prompt := fmt.Sprintf(`You are an inventory controller.
Turn the stock report below into a single inventory adjustment.
Rules:
1. Call lookup_item to confirm the item code before answering. Never invent codes.
2. Use DECREASE for loss, damage, theft or a count below the books; INCREASE for found stock or a count above.
3. Quantity is the size of the change, not the resulting stock level.
4. Provide a confidence score (0.0-1.0) and explain your reasoning.

Stock report: %s`, text)

	schema, err := schemaMap()
	if err != nil {
		return nil, err
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(a.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Tools: tools.ToOpenAITools(),
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "inventory_adjustment_draft",
					Strict:      param.NewOpt(true),
					Schema:      schema,
					Description: param.NewOpt("A draft inventory adjustment awaiting human review"),
				},
			},
		},
	}

	for round := 0; ; round++ {
		resp, err := a.client.Responses.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("openai responses error: %w", err)
		}

		outputs := tools.runCalls(ctx, resp.Output)
		if len(outputs) == 0 {
			return parseDraft(resp.OutputText())
		}
		if round+1 >= maxToolRounds {
			return nil, fmt.Errorf("model kept calling tools after %d rounds", maxToolRounds)
		}

		params.PreviousResponseID = openai.String(resp.ID)
		params.Input = responses.ResponseNewParamsInputUnion{OfInputItemList: outputs}
	}
}

func parseDraft(content string) (*AdjustmentDraft, error) {
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}
	var draft AdjustmentDraft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	draft.ItemCode = strings.TrimSpace(draft.ItemCode)
	draft.Type = strings.ToUpper(strings.TrimSpace(draft.Type))
	return &draft, nil
}

func generateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v AdjustmentDraft
	return reflector.Reflect(v)
}

func schemaMap() (map[string]any, error) {
	raw, err := json.Marshal(generateSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}
	return m, nil
}
