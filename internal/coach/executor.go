package coach

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fitflow/coach-app/internal/domain"
	"fitflow/coach-app/internal/metrics"
	"fitflow/coach-app/internal/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotApproved covers execute calls against a message with no approval,
	// a non-approved approval, or an approval owned by someone else.
	ErrNotApproved = errors.New("message has no approved action")

	// ErrUnknownApprovalType means a stored approval carries a type outside
	// the fixed enum. Hard error; nothing is written.
	ErrUnknownApprovalType = errors.New("unknown approval type")

	// ErrPlanNotFound means an update_plan payload references a plan client id
	// that does not exist for this user.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrDayOutOfRange rejects day updates addressing weeks beyond the plan's
	// duration or weekdays outside 0..6, before any write happens.
	ErrDayOutOfRange = errors.New("plan day outside plan range")
)

// Executor materializes approved payloads into normalized entities. Every
// insert is keyed by a deterministic client identity derived from the
// approval's message id, so re-running Execute with the same message is a
// no-op per entity. Partial failures are therefore recoverable by retry and
// are not rolled back.
type Executor struct {
	messages  repository.MessageRepository
	exercises repository.ExerciseRepository
	templates repository.TemplateRepository
	plans     repository.PlanRepository
	planDays  repository.PlanDayRepository
	recipes   repository.RecipeRepository
	now       func() time.Time
}

// NewExecutor creates an executor over the given stores.
func NewExecutor(
	messages repository.MessageRepository,
	exercises repository.ExerciseRepository,
	templates repository.TemplateRepository,
	plans repository.PlanRepository,
	planDays repository.PlanDayRepository,
	recipes repository.RecipeRepository,
) *Executor {
	return &Executor{
		messages:  messages,
		exercises: exercises,
		templates: templates,
		plans:     plans,
		planDays:  planDays,
		recipes:   recipes,
		now:       time.Now,
	}
}

// Execute applies the approved action staged on a message. The client calls
// this as a separate step after Approve has succeeded; the split is what
// makes a dropped response safe to retry.
func (e *Executor) Execute(ctx context.Context, messageID, actor primitive.ObjectID) error {
	msg, err := e.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotApproved
		}
		return err
	}
	if msg.OwnerID != actor || msg.Approval == nil || msg.Approval.Status != domain.ApprovalApproved {
		return ErrNotApproved
	}

	var execErr error
	switch msg.Approval.Type {
	case domain.ApprovalCreateTemplate:
		execErr = e.executeCreateTemplate(ctx, actor, msg)
	case domain.ApprovalCreatePlan:
		execErr = e.executeCreatePlan(ctx, actor, msg)
	case domain.ApprovalUpdatePlan:
		execErr = e.executeUpdatePlan(ctx, actor, msg)
	case domain.ApprovalCreateRecipe:
		execErr = e.executeCreateRecipe(ctx, actor, msg)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownApprovalType, msg.Approval.Type)
	}

	result := "ok"
	if execErr != nil {
		result = "error"
	}
	metrics.Executions.WithLabelValues(string(msg.Approval.Type), result).Inc()
	return execErr
}

// idemKey derives a stable uuid-v5 client identity from the message id and an
// entity path, so a retried Execute regenerates identical keys.
func idemKey(messageID primitive.ObjectID, parts ...string) string {
	path := messageID.Hex() + "/" + strings.Join(parts, "/")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(path)).String()
}

func (e *Executor) executeCreateTemplate(ctx context.Context, owner primitive.ObjectID, msg *domain.ChatMessage) error {
	var payload TemplatePayload
	if err := parsePayload(msg.Approval.Payload, &payload); err != nil {
		return err
	}
	_, err := e.materializeTemplate(ctx, owner, msg.ID, payload, "template/0")
	return err
}

// materializeTemplate expands one denormalized template payload: every
// embedded exercise resolves to an existing library definition by name or a
// freshly created one, and the template's slots always use that resolved id,
// regardless of any placeholder id the model may have invented.
func (e *Executor) materializeTemplate(ctx context.Context, owner primitive.ObjectID, messageID primitive.ObjectID, payload TemplatePayload, keyPath string) (*domain.WorkoutTemplate, error) {
	slots := make([]domain.ExerciseSlot, 0, len(payload.Exercises))
	for i, ex := range payload.Exercises {
		def, err := e.exercises.GetOrCreate(ctx, &domain.ExerciseDefinition{
			OwnerID:  owner,
			ClientID: idemKey(messageID, "exercise", domain.ExerciseNameKey(ex.Name)),
			Name:     ex.Name,
			Type:     domain.MeasurementType(ex.Type),
		})
		if err != nil {
			return nil, fmt.Errorf("resolving exercise %q: %w", ex.Name, err)
		}
		slots = append(slots, domain.ExerciseSlot{
			Order:             i,
			ExerciseID:        def.ID,
			ExerciseClientID:  def.ClientID,
			RestTimeSeconds:   ex.RestTimeSeconds,
			SetsCount:         ex.DefaultSetsCount,
			SuggestedReps:     ex.SuggestedReps,
			SuggestedWeight:   ex.SuggestedWeight,
			SuggestedTime:     ex.SuggestedTime,
			SuggestedDistance: ex.SuggestedDistance,
		})
	}

	return e.templates.CreateIfAbsent(ctx, &domain.WorkoutTemplate{
		OwnerID:   owner,
		ClientID:  idemKey(messageID, keyPath),
		Name:      payload.Name,
		Notes:     payload.Notes,
		Exercises: slots,
	})
}

func (e *Executor) executeCreatePlan(ctx context.Context, owner primitive.ObjectID, msg *domain.ChatMessage) error {
	var payload PlanPayload
	if err := parsePayload(msg.Approval.Payload, &payload); err != nil {
		return err
	}

	// Templates first, so day rows can reference them by name.
	byName := make(map[string]*domain.WorkoutTemplate)
	for i, tp := range payload.Templates {
		tpl, err := e.materializeTemplate(ctx, owner, msg.ID, tp, "template/"+strconv.Itoa(i))
		if err != nil {
			return err
		}
		byName[domain.ExerciseNameKey(tp.Name)] = tpl
	}

	startDate := e.now().UTC().Truncate(24 * time.Hour)
	if payload.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", payload.StartDate)
		if err != nil {
			return fmt.Errorf("malformed startDate %q: %w", payload.StartDate, err)
		}
		startDate = parsed
	}

	plan, err := e.plans.CreateIfAbsent(ctx, &domain.WorkoutPlan{
		OwnerID:       owner,
		ClientID:      idemKey(msg.ID, "plan"),
		Name:          payload.Name,
		Description:   payload.Description,
		Goal:          payload.Goal,
		DurationWeeks: payload.DurationWeeks,
		StartDate:     startDate,
		Status:        domain.PlanActive, // forced on creation
	})
	if err != nil {
		return err
	}

	for _, dp := range payload.Days {
		day := e.buildPlanDay(owner, msg.ID, plan.ID, dp, byName)
		if _, err := e.planDays.CreateIfAbsent(ctx, day); err != nil {
			return fmt.Errorf("creating day (week %d, day %d): %w", dp.Week, dp.DayOfWeek, err)
		}
	}
	return nil
}

// buildPlanDay turns one day payload into a row. No template reference means
// a rest day; a resolved template means pending with the template's name as
// the default label.
func (e *Executor) buildPlanDay(owner, messageID, planID primitive.ObjectID, dp PlanDayPayload, byName map[string]*domain.WorkoutTemplate) *domain.PlanDay {
	day := &domain.PlanDay{
		OwnerID:   owner,
		ClientID:  idemKey(messageID, "day", strconv.Itoa(dp.Week), strconv.Itoa(dp.DayOfWeek)),
		PlanID:    planID,
		Week:      dp.Week,
		DayOfWeek: dp.DayOfWeek,
		Notes:     dp.Notes,
		Status:    domain.DayRest,
		Label:     dp.Label,
	}
	if dp.TemplateName == "" {
		return day
	}

	day.Status = domain.DayPending
	if tpl, ok := byName[domain.ExerciseNameKey(dp.TemplateName)]; ok {
		day.TemplateID = &tpl.ID
		if day.Label == "" {
			day.Label = tpl.Name
		}
	} else if day.Label == "" {
		// Unresolvable name degrades to a label-only day.
		day.Label = dp.TemplateName
	}
	return day
}

func (e *Executor) executeUpdatePlan(ctx context.Context, owner primitive.ObjectID, msg *domain.ChatMessage) error {
	var payload PlanUpdatePayload
	if err := parsePayload(msg.Approval.Payload, &payload); err != nil {
		return err
	}

	plan, err := e.plans.GetByClientID(ctx, owner, payload.PlanClientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %q", ErrPlanNotFound, payload.PlanClientID)
		}
		return err
	}

	// Range-check every day update before any write.
	for _, du := range payload.Updates.DaysToUpdate {
		if du.Week < 1 || du.Week > plan.DurationWeeks {
			return fmt.Errorf("%w: week %d of %d", ErrDayOutOfRange, du.Week, plan.DurationWeeks)
		}
	}

	if payload.Updates.Name != nil || payload.Updates.Description != nil {
		err := e.plans.PatchMetadata(ctx, owner, plan.ID, repository.PlanMetadataPatch{
			Name:        payload.Updates.Name,
			Description: payload.Updates.Description,
		})
		if err != nil {
			return err
		}
	}

	// Resolution map: the user's existing templates by name, with templates
	// embedded in the update created and merged on top.
	byName := make(map[string]*domain.WorkoutTemplate)
	existing, err := e.templates.GetRecentByOwner(ctx, owner, 100)
	if err != nil {
		return err
	}
	for i := range existing {
		byName[domain.ExerciseNameKey(existing[i].Name)] = &existing[i]
	}
	for i, tp := range payload.Updates.NewTemplates {
		tpl, err := e.materializeTemplate(ctx, owner, msg.ID, tp, "newtemplate/"+strconv.Itoa(i))
		if err != nil {
			return err
		}
		byName[domain.ExerciseNameKey(tp.Name)] = tpl
	}

	for _, du := range payload.Updates.DaysToUpdate {
		if err := e.applyDayUpdate(ctx, owner, msg.ID, plan.ID, du, byName); err != nil {
			return err
		}
	}
	return nil
}

// applyDayUpdate resolves one cell update: remove deletes a matching row (a
// miss is a no-op so retries stay safe), a match is patched with only the
// fields present, and an empty cell gets a new row.
func (e *Executor) applyDayUpdate(ctx context.Context, owner, messageID, planID primitive.ObjectID, du PlanDayUpdatePayload, byName map[string]*domain.WorkoutTemplate) error {
	existing, err := e.planDays.FindByCell(ctx, planID, du.Week, du.DayOfWeek)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if du.Remove {
		if existing == nil {
			return nil
		}
		err := e.planDays.DeleteByCell(ctx, planID, du.Week, du.DayOfWeek)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	if existing != nil {
		patch := repository.PlanDayPatch{Label: du.Label, Notes: du.Notes}
		if du.TemplateName != nil {
			tpl, ok := byName[domain.ExerciseNameKey(*du.TemplateName)]
			if !ok {
				return fmt.Errorf("day update references unknown template %q", *du.TemplateName)
			}
			// A new template reference puts the day back in front of
			// the user as not-yet-done.
			patch.TemplateID = &tpl.ID
			pending := domain.DayPending
			patch.Status = &pending
			if du.Label == nil {
				patch.Label = &tpl.Name
			}
		}
		return e.planDays.PatchByCell(ctx, planID, du.Week, du.DayOfWeek, patch)
	}

	insert := PlanDayPayload{Week: du.Week, DayOfWeek: du.DayOfWeek}
	if du.TemplateName != nil {
		insert.TemplateName = *du.TemplateName
	}
	if du.Label != nil {
		insert.Label = *du.Label
	}
	if du.Notes != nil {
		insert.Notes = *du.Notes
	}
	_, err = e.planDays.CreateIfAbsent(ctx, e.buildPlanDay(owner, messageID, planID, insert, byName))
	return err
}

func (e *Executor) executeCreateRecipe(ctx context.Context, owner primitive.ObjectID, msg *domain.ChatMessage) error {
	var payload RecipePayload
	if err := parsePayload(msg.Approval.Payload, &payload); err != nil {
		return err
	}

	ingredients := make([]domain.Ingredient, 0, len(payload.Ingredients))
	for _, ing := range payload.Ingredients {
		ingredients = append(ingredients, domain.Ingredient{
			Name:   ing.Name,
			Amount: ing.Amount,
			Unit:   ing.Unit,
		})
	}

	_, err := e.recipes.CreateIfAbsent(ctx, &domain.Recipe{
		OwnerID:         owner,
		ClientID:        idemKey(msg.ID, "recipe"),
		Title:           payload.Title,
		Description:     payload.Description,
		Ingredients:     ingredients,
		Instructions:    payload.Instructions,
		PrepTimeMinutes: payload.PrepTimeMinutes,
		CookTimeMinutes: payload.CookTimeMinutes,
		Servings:        payload.Servings,
		Macros: domain.Macros{
			Calories: payload.Macros.Calories,
			Protein:  payload.Macros.Protein,
			Carbs:    payload.Macros.Carbs,
			Fat:      payload.Macros.Fat,
		},
		Tags:           payload.Tags,
		Saved:          true,
		ConversationID: msg.ConversationID,
	})
	return err
}
