package llm

import (
	"encoding/json"
	"fmt"

	"fitflow/coach-app/internal/coach"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v2"
)

// Tool descriptions shown to the model alongside each parameter schema.
var toolDescriptions = map[string]string{
	"create_workout_template": "Propose a new reusable workout template. The user must approve it before anything is saved.",
	"create_workout_plan":     "Propose a new multi-week workout plan with its templates and day schedule. The user must approve it before anything is saved.",
	"update_workout_plan":     "Propose changes to the user's existing plan: metadata, day schedule, or new templates. The user must approve it before anything is saved.",
	"create_recipe":           "Propose a recipe with ingredients, instructions and macros. The user must approve it before anything is saved.",
}

// toolPayloads pairs each advertised tool name with the struct its arguments
// must decode into. The same structs validate the payload at execute time, so
// schema and enforcement cannot drift apart.
var toolPayloads = map[string]any{
	"create_workout_template": &coach.TemplatePayload{},
	"create_workout_plan":     &coach.PlanPayload{},
	"update_workout_plan":     &coach.PlanUpdatePayload{},
	"create_recipe":           &coach.RecipePayload{},
}

// toolDefinitions reflects the payload structs into JSON-schema parameter
// definitions for the chat request.
func toolDefinitions() ([]openai.ChatCompletionToolUnionParam, error) {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}

	var tools []openai.ChatCompletionToolUnionParam
	for _, name := range coach.ToolNames() {
		schema := reflector.Reflect(toolPayloads[name])

		raw, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("marshalling schema for %s: %w", name, err)
		}
		var params openai.FunctionParameters
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("rebuilding schema for %s: %w", name, err)
		}

		tools = append(tools, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        name,
			Description: openai.String(toolDescriptions[name]),
			Parameters:  params,
		}))
	}
	return tools, nil
}
