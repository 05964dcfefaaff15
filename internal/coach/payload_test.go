package coach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload_TemplateValidation(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			"valid",
			`{"name": "Push", "exercises": [{"name": "Bench", "type": "reps_weight", "defaultSetsCount": 3}]}`,
			"",
		},
		{"not json", `{"name":`, "malformed payload"},
		{"missing name", `{"exercises": [{"name": "Bench", "type": "reps_weight", "defaultSetsCount": 3}]}`, "name is required"},
		{"no exercises", `{"name": "Push", "exercises": []}`, "has no exercises"},
		{
			"bad measurement type",
			`{"name": "Push", "exercises": [{"name": "Bench", "type": "sets_weight", "defaultSetsCount": 3}]}`,
			"invalid type",
		},
		{
			"zero sets",
			`{"name": "Push", "exercises": [{"name": "Bench", "type": "reps_weight", "defaultSetsCount": 0}]}`,
			"positive set count",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var payload TemplatePayload
			err := parsePayload(tc.raw, &payload)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestParsePayload_PlanValidation(t *testing.T) {
	valid := `{
		"name": "Block", "description": "", "durationWeeks": 2,
		"templates": [],
		"days": [{"week": 1, "dayOfWeek": 0}, {"week": 2, "dayOfWeek": 6}]
	}`
	var payload PlanPayload
	require.NoError(t, parsePayload(valid, &payload))
	assert.Equal(t, 2, payload.DurationWeeks)

	cases := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"zero duration", `{"name": "B", "durationWeeks": 0, "days": [], "templates": []}`, "positive durationWeeks"},
		{
			"day week beyond duration",
			`{"name": "B", "durationWeeks": 1, "templates": [], "days": [{"week": 2, "dayOfWeek": 0}]}`,
			"outside 1..1",
		},
		{
			"dayOfWeek out of range",
			`{"name": "B", "durationWeeks": 1, "templates": [], "days": [{"week": 1, "dayOfWeek": 7}]}`,
			"outside 0..6",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p PlanPayload
			err := parsePayload(tc.raw, &p)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParsePayload_PlanUpdateValidation(t *testing.T) {
	var payload PlanUpdatePayload
	err := parsePayload(`{"updates": {}}`, &payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "planClientId is required")

	err = parsePayload(`{"planClientId": "p1", "updates": {"daysToUpdate": [{"week": 0, "dayOfWeek": 1}]}}`, &payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be 1 or greater")

	err = parsePayload(`{"planClientId": "p1", "updates": {"daysToUpdate": [{"week": 1, "dayOfWeek": -1}]}}`, &payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside 0..6")

	// Optional fields stay nil when absent so the executor can tell
	// "not mentioned" from "set to empty".
	require.NoError(t, parsePayload(`{"planClientId": "p1", "updates": {"daysToUpdate": [{"week": 1, "dayOfWeek": 2, "remove": true}]}}`, &payload))
	require.Len(t, payload.Updates.DaysToUpdate, 1)
	assert.True(t, payload.Updates.DaysToUpdate[0].Remove)
	assert.Nil(t, payload.Updates.DaysToUpdate[0].TemplateName)
	assert.Nil(t, payload.Updates.DaysToUpdate[0].Label)
	assert.Nil(t, payload.Updates.Name)
}

func TestParsePayload_RecipeValidation(t *testing.T) {
	valid := `{
		"title": "Oats", "description": "",
		"ingredients": [{"name": "Oats", "amount": 80, "unit": "g"}],
		"instructions": ["Mix"],
		"macros": {"calories": 400, "protein": 30, "carbs": 50, "fat": 10}
	}`
	var payload RecipePayload
	require.NoError(t, parsePayload(valid, &payload))

	var bad RecipePayload
	err := parsePayload(`{"title": "Oats", "ingredients": [], "instructions": ["Mix"], "macros": {}}`, &bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no ingredients")

	err = parsePayload(`{"title": "Oats", "ingredients": [{"name": "Oats", "amount": 1}], "instructions": [], "macros": {}}`, &bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no instructions")
}
