package coach

import (
	"context"
	"errors"
	"time"

	"fitflow/coach-app/internal/domain"
	"fitflow/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Bounds on the snapshot so the compiled prompt stays a predictable size.
const (
	snapshotTemplateLimit    = 10
	snapshotLogWindowDays    = 14
	snapshotLogLimit         = 20
	snapshotPerformanceLimit = 20
	snapshotSetLimit         = 5
	snapshotStreakScanLimit  = 400
)

// Label used when a plan day references a template that no longer exists.
const missingTemplateLabel = "(deleted template)"

// Snapshot is a bounded, read-only view of a user's fitness state, assembled
// for prompt construction. Building one has no side effects.
type Snapshot struct {
	WeightUnit   string
	DistanceUnit string
	Library      []LibraryEntry
	Templates    []TemplateSummary
	RecentLogs   []LogSummary
	Performance  []ExercisePerformance
	Stats        ActivityStats
	ActivePlan   *PlanSummary
}

// LibraryEntry reduces an exercise definition to name and measurement type.
type LibraryEntry struct {
	Name string
	Type domain.MeasurementType
}

// SlotSummary is one template slot with its exercise resolved to a name.
type SlotSummary struct {
	Name              string
	Type              domain.MeasurementType
	SetsCount         int
	RestTimeSeconds   int
	SuggestedReps     *int
	SuggestedWeight   *float64
	SuggestedTime     *int
	SuggestedDistance *float64
}

// TemplateSummary is one recent template with resolved slots.
type TemplateSummary struct {
	Name  string
	Notes string
	Slots []SlotSummary
}

// LogSummary reduces a workout log to date, label and duration.
type LogSummary struct {
	Date            time.Time
	Label           string
	DurationMinutes int
}

// SetSummary keeps only the numeric fields of a completed set.
type SetSummary struct {
	Reps           *int
	WeightKg       *float64
	TimeSeconds    *int
	DistanceMeters *float64
}

// ExercisePerformance is the most recent session's completed sets for one
// exercise.
type ExercisePerformance struct {
	Name string
	Date time.Time
	Sets []SetSummary
}

// ActivityStats aggregates the user's training history.
type ActivityStats struct {
	TotalSessions   int64
	SessionsPerWeek float64 // 30-day rate
	StreakDays      int     // consecutive days ending today or yesterday
}

// DayEntry is one scheduled (non-rest) day in a plan week.
type DayEntry struct {
	DayOfWeek    int
	TemplateName string
	Status       domain.PlanDayStatus
}

// WeekSchedule is one week of the active plan. TotalDays counts every day row
// in the week including rest days, even though rest days are omitted from
// Entries.
type WeekSchedule struct {
	Week      int
	Entries   []DayEntry
	TotalDays int
}

// PlanSummary is the active plan expanded into a per-week schedule.
type PlanSummary struct {
	Name          string
	Goal          string
	DurationWeeks int
	StartDate     time.Time
	Weeks         []WeekSchedule
}

// ContextBuilder assembles snapshots from the read model. All stores are
// injected; the builder never writes.
type ContextBuilder struct {
	exercises repository.ExerciseRepository
	templates repository.TemplateRepository
	plans     repository.PlanRepository
	planDays  repository.PlanDayRepository
	logs      repository.WorkoutLogRepository
	settings  repository.SettingsRepository
	now       func() time.Time
}

// NewContextBuilder creates a snapshot builder over the given stores.
func NewContextBuilder(
	exercises repository.ExerciseRepository,
	templates repository.TemplateRepository,
	plans repository.PlanRepository,
	planDays repository.PlanDayRepository,
	logs repository.WorkoutLogRepository,
	settings repository.SettingsRepository,
) *ContextBuilder {
	return &ContextBuilder{
		exercises: exercises,
		templates: templates,
		plans:     plans,
		planDays:  planDays,
		logs:      logs,
		settings:  settings,
		now:       time.Now,
	}
}

// Build assembles the snapshot for one user. Missing related rows degrade to
// placeholders; only store-level failures abort the build.
func (b *ContextBuilder) Build(ctx context.Context, ownerID primitive.ObjectID) (*Snapshot, error) {
	snap := &Snapshot{}

	settings, err := b.settings.GetByOwner(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		settings = domain.DefaultSettings(ownerID)
	}
	snap.WeightUnit = settings.WeightUnit
	snap.DistanceUnit = settings.DistanceUnit

	library, err := b.exercises.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]domain.ExerciseDefinition, len(library))
	for _, def := range library {
		byID[def.ID] = def
		snap.Library = append(snap.Library, LibraryEntry{Name: def.Name, Type: def.Type})
	}

	if err := b.buildTemplates(ctx, ownerID, byID, snap); err != nil {
		return nil, err
	}
	if err := b.buildActivity(ctx, ownerID, byID, snap); err != nil {
		return nil, err
	}
	if err := b.buildStats(ctx, ownerID, snap); err != nil {
		return nil, err
	}
	if err := b.buildActivePlan(ctx, ownerID, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (b *ContextBuilder) buildTemplates(ctx context.Context, ownerID primitive.ObjectID, byID map[primitive.ObjectID]domain.ExerciseDefinition, snap *Snapshot) error {
	templates, err := b.templates.GetRecentByOwner(ctx, ownerID, snapshotTemplateLimit)
	if err != nil {
		return err
	}
	for _, tpl := range templates {
		summary := TemplateSummary{Name: tpl.Name, Notes: tpl.Notes}
		for _, slot := range tpl.Exercises {
			entry := SlotSummary{
				SetsCount:         slot.SetsCount,
				RestTimeSeconds:   slot.RestTimeSeconds,
				SuggestedReps:     slot.SuggestedReps,
				SuggestedWeight:   slot.SuggestedWeight,
				SuggestedTime:     slot.SuggestedTime,
				SuggestedDistance: slot.SuggestedDistance,
			}
			if def, ok := byID[slot.ExerciseID]; ok {
				entry.Name = def.Name
				entry.Type = def.Type
			} else {
				entry.Name = "(deleted exercise)"
			}
			summary.Slots = append(summary.Slots, entry)
		}
		snap.Templates = append(snap.Templates, summary)
	}
	return nil
}

func (b *ContextBuilder) buildActivity(ctx context.Context, ownerID primitive.ObjectID, byID map[primitive.ObjectID]domain.ExerciseDefinition, snap *Snapshot) error {
	since := b.now().UTC().AddDate(0, 0, -snapshotLogWindowDays)
	recent, err := b.logs.GetSince(ctx, ownerID, since, snapshotLogLimit)
	if err != nil {
		return err
	}
	for _, l := range recent {
		snap.RecentLogs = append(snap.RecentLogs, LogSummary{
			Date:            l.Date,
			Label:           l.Label,
			DurationMinutes: l.DurationMinutes,
		})
	}

	// Per-exercise latest-session sets. Logs arrive most recent first, so the
	// first time an exercise appears is its most recent session.
	history, err := b.logs.GetRecent(ctx, ownerID, 50)
	if err != nil {
		return err
	}
	seen := make(map[primitive.ObjectID]bool)
	for _, l := range history {
		if len(snap.Performance) >= snapshotPerformanceLimit {
			break
		}
		for _, entry := range l.Entries {
			if seen[entry.ExerciseID] || len(snap.Performance) >= snapshotPerformanceLimit {
				continue
			}
			seen[entry.ExerciseID] = true

			perf := ExercisePerformance{Date: l.Date}
			if def, ok := byID[entry.ExerciseID]; ok {
				perf.Name = def.Name
			} else {
				perf.Name = "(deleted exercise)"
			}
			for _, set := range entry.Sets {
				if !set.Completed || len(perf.Sets) >= snapshotSetLimit {
					continue
				}
				perf.Sets = append(perf.Sets, SetSummary{
					Reps:           set.Reps,
					WeightKg:       set.WeightKg,
					TimeSeconds:    set.TimeSeconds,
					DistanceMeters: set.DistanceMeters,
				})
			}
			if len(perf.Sets) > 0 {
				snap.Performance = append(snap.Performance, perf)
			}
		}
	}
	return nil
}

func (b *ContextBuilder) buildStats(ctx context.Context, ownerID primitive.ObjectID, snap *Snapshot) error {
	total, err := b.logs.CountByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	snap.Stats.TotalSessions = total

	monthAgo := b.now().UTC().AddDate(0, 0, -30)
	monthLogs, err := b.logs.GetSince(ctx, ownerID, monthAgo, snapshotStreakScanLimit)
	if err != nil {
		return err
	}
	snap.Stats.SessionsPerWeek = float64(len(monthLogs)) / (30.0 / 7.0)

	dates, err := b.logs.GetDistinctDates(ctx, ownerID, snapshotStreakScanLimit)
	if err != nil {
		return err
	}
	snap.Stats.StreakDays = currentStreak(b.now().UTC(), dates)
	return nil
}

// currentStreak walks backward from today (or yesterday, if today has no
// session yet) counting consecutive training days until the first gap.
// dates must be distinct day-truncated values, most recent first.
func currentStreak(now time.Time, dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	today := now.Truncate(24 * time.Hour)

	cursor := today
	if !dates[0].Equal(today) {
		cursor = today.AddDate(0, 0, -1)
	}

	streak := 0
	for _, d := range dates {
		if !d.Equal(cursor) {
			break
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

func (b *ContextBuilder) buildActivePlan(ctx context.Context, ownerID primitive.ObjectID, snap *Snapshot) error {
	plan, err := b.plans.GetActiveByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	days, err := b.planDays.GetByPlanID(ctx, plan.ID)
	if err != nil {
		return err
	}

	summary := &PlanSummary{
		Name:          plan.Name,
		Goal:          plan.Goal,
		DurationWeeks: plan.DurationWeeks,
		StartDate:     plan.StartDate,
	}

	templateNames := make(map[primitive.ObjectID]string)
	byWeek := make(map[int]*WeekSchedule)
	var weekOrder []int
	for _, day := range days {
		week, ok := byWeek[day.Week]
		if !ok {
			week = &WeekSchedule{Week: day.Week}
			byWeek[day.Week] = week
			weekOrder = append(weekOrder, day.Week)
		}
		week.TotalDays++
		if day.Status == domain.DayRest {
			continue
		}

		entry := DayEntry{DayOfWeek: day.DayOfWeek, Status: day.Status}
		switch {
		case day.TemplateID == nil:
			entry.TemplateName = day.Label
		default:
			name, ok := templateNames[*day.TemplateID]
			if !ok {
				tpl, err := b.templates.GetByID(ctx, *day.TemplateID)
				switch {
				case err == nil:
					name = tpl.Name
				case errors.Is(err, repository.ErrNotFound):
					// Dangling reference degrades to a placeholder
					// rather than failing the whole snapshot.
					name = missingTemplateLabel
				default:
					return err
				}
				templateNames[*day.TemplateID] = name
			}
			entry.TemplateName = name
		}
		week.Entries = append(week.Entries, entry)
	}

	for _, w := range weekOrder {
		summary.Weeks = append(summary.Weeks, *byWeek[w])
	}
	snap.ActivePlan = summary
	return nil
}
