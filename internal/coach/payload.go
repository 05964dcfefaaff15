package coach

import (
	"encoding/json"
	"fmt"

	"fitflow/coach-app/internal/domain"
)

// The model emits denormalized payloads: exercises are embedded by name and
// type, not by library id. The executor re-derives the normalized rows.
// These structs double as the source of the tool parameter schemas sent to
// the model (see internal/llm).

// TemplatePayload is the arguments shape of create_workout_template, and the
// embedded template shape inside plan payloads.
type TemplatePayload struct {
	Name      string                `json:"name" jsonschema_description:"Template name shown to the user"`
	Notes     string                `json:"notes,omitempty"`
	Exercises []TemplateSlotPayload `json:"exercises"`
}

// TemplateSlotPayload is one embedded exercise slot.
type TemplateSlotPayload struct {
	Name              string   `json:"name" jsonschema_description:"Exercise name, matched case-insensitively against the user's library"`
	Type              string   `json:"type" jsonschema:"enum=reps_weight,enum=reps_time,enum=time_only,enum=time_distance,enum=reps_only"`
	DefaultSetsCount  int      `json:"defaultSetsCount"`
	RestTimeSeconds   int      `json:"restTimeSeconds"`
	SuggestedReps     *int     `json:"suggestedReps,omitempty"`
	SuggestedWeight   *float64 `json:"suggestedWeight,omitempty"`
	SuggestedTime     *int     `json:"suggestedTime,omitempty"`
	SuggestedDistance *float64 `json:"suggestedDistance,omitempty"`
}

// PlanPayload is the arguments shape of create_workout_plan.
type PlanPayload struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Goal          string            `json:"goal,omitempty"`
	DurationWeeks int               `json:"durationWeeks"`
	StartDate     string            `json:"startDate,omitempty" jsonschema_description:"YYYY-MM-DD; defaults to today when omitted"`
	Days          []PlanDayPayload  `json:"days"`
	Templates     []TemplatePayload `json:"templates"`
}

// PlanDayPayload is one (week, dayOfWeek) cell. DayOfWeek uses 0=Sunday
// through 6=Saturday. A day without a templateName is a rest day.
type PlanDayPayload struct {
	Week         int    `json:"week"`
	DayOfWeek    int    `json:"dayOfWeek" jsonschema_description:"0=Sunday .. 6=Saturday"`
	TemplateName string `json:"templateName,omitempty"`
	Label        string `json:"label,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// PlanUpdatePayload is the arguments shape of update_workout_plan.
type PlanUpdatePayload struct {
	PlanClientID string      `json:"planClientId"`
	Updates      PlanUpdates `json:"updates"`
}

// PlanUpdates carries the optional pieces of a plan update.
type PlanUpdates struct {
	Name         *string                `json:"name,omitempty"`
	Description  *string                `json:"description,omitempty"`
	DaysToUpdate []PlanDayUpdatePayload `json:"daysToUpdate,omitempty"`
	NewTemplates []TemplatePayload      `json:"newTemplates,omitempty"`
}

// PlanDayUpdatePayload addresses one cell of the plan grid. Remove deletes the
// cell; otherwise present fields are patched onto an existing row, or a new
// row is inserted when the cell is empty.
type PlanDayUpdatePayload struct {
	Week         int     `json:"week"`
	DayOfWeek    int     `json:"dayOfWeek" jsonschema_description:"0=Sunday .. 6=Saturday"`
	TemplateName *string `json:"templateName,omitempty"`
	Label        *string `json:"label,omitempty"`
	Notes        *string `json:"notes,omitempty"`
	Remove       bool    `json:"remove,omitempty"`
}

// RecipePayload is the arguments shape of create_recipe.
type RecipePayload struct {
	Title           string              `json:"title"`
	Description     string              `json:"description"`
	Ingredients     []IngredientPayload `json:"ingredients"`
	Instructions    []string            `json:"instructions"`
	PrepTimeMinutes int                 `json:"prepTimeMinutes,omitempty"`
	CookTimeMinutes int                 `json:"cookTimeMinutes,omitempty"`
	Servings        int                 `json:"servings,omitempty"`
	Macros          MacrosPayload       `json:"macros"`
	Tags            []string            `json:"tags,omitempty"`
}

// IngredientPayload is one ingredient line.
type IngredientPayload struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit,omitempty"`
}

// MacrosPayload is the per-serving macro breakdown.
type MacrosPayload struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// --- Validation ---

// The payload stays an opaque JSON string up to the storage boundary; at
// execute time it is parsed into its typed shape and checked here, so a
// malformed model output fails fast instead of partially writing.

func (p *TemplatePayload) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if len(p.Exercises) == 0 {
		return fmt.Errorf("template %q has no exercises", p.Name)
	}
	for i, slot := range p.Exercises {
		if slot.Name == "" {
			return fmt.Errorf("template %q: exercise %d has no name", p.Name, i)
		}
		if !domain.ValidMeasurementType(domain.MeasurementType(slot.Type)) {
			return fmt.Errorf("template %q: exercise %q has invalid type %q", p.Name, slot.Name, slot.Type)
		}
		if slot.DefaultSetsCount <= 0 {
			return fmt.Errorf("template %q: exercise %q needs a positive set count", p.Name, slot.Name)
		}
	}
	return nil
}

func (p *PlanPayload) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("plan name is required")
	}
	if p.DurationWeeks <= 0 {
		return fmt.Errorf("plan %q needs a positive durationWeeks", p.Name)
	}
	for _, tpl := range p.Templates {
		if err := tpl.Validate(); err != nil {
			return err
		}
	}
	for _, day := range p.Days {
		if day.Week < 1 || day.Week > p.DurationWeeks {
			return fmt.Errorf("plan %q: day week %d outside 1..%d", p.Name, day.Week, p.DurationWeeks)
		}
		if day.DayOfWeek < 0 || day.DayOfWeek > 6 {
			return fmt.Errorf("plan %q: dayOfWeek %d outside 0..6", p.Name, day.DayOfWeek)
		}
	}
	return nil
}

func (p *PlanUpdatePayload) Validate() error {
	if p.PlanClientID == "" {
		return fmt.Errorf("planClientId is required")
	}
	for _, tpl := range p.Updates.NewTemplates {
		if err := tpl.Validate(); err != nil {
			return err
		}
	}
	for _, day := range p.Updates.DaysToUpdate {
		if day.DayOfWeek < 0 || day.DayOfWeek > 6 {
			return fmt.Errorf("day update dayOfWeek %d outside 0..6", day.DayOfWeek)
		}
		if day.Week < 1 {
			return fmt.Errorf("day update week %d must be 1 or greater", day.Week)
		}
	}
	return nil
}

func (p *RecipePayload) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("recipe title is required")
	}
	if len(p.Ingredients) == 0 {
		return fmt.Errorf("recipe %q has no ingredients", p.Title)
	}
	if len(p.Instructions) == 0 {
		return fmt.Errorf("recipe %q has no instructions", p.Title)
	}
	return nil
}

// parsePayload decodes raw into dst and runs its validation.
func parsePayload(raw string, dst interface{ Validate() error }) error {
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return dst.Validate()
}
