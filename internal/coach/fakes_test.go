package coach

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"fitflow/coach-app/internal/domain"
	"fitflow/coach-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStream replays scripted chunks and then ends with io.EOF, or with err
// when one is set.
type memStream struct {
	chunks []Chunk
	err    error
	pos    int
}

func (s *memStream) Recv() (Chunk, error) {
	if s.pos >= len(s.chunks) {
		if s.err != nil {
			return Chunk{}, s.err
		}
		return Chunk{}, io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

// --- In-memory stores mirroring the mongo repositories' semantics ---

type fakeMessages struct {
	mu    sync.Mutex
	byID  map[primitive.ObjectID]*domain.ChatMessage
	order []primitive.ObjectID

	setContentCalls int
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{byID: make(map[primitive.ObjectID]*domain.ChatMessage)}
}

func (f *fakeMessages) Create(_ context.Context, msg *domain.ChatMessage) (primitive.ObjectID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	msg.CreatedAt = time.Now().UTC()
	stored := *msg
	f.byID[msg.ID] = &stored
	f.order = append(f.order, msg.ID)
	return msg.ID, nil
}

func (f *fakeMessages) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *msg
	return &out, nil
}

func (f *fakeMessages) GetByConversation(_ context.Context, ownerID primitive.ObjectID, conversationID string) ([]domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ChatMessage
	for _, id := range f.order {
		msg := f.byID[id]
		if msg.OwnerID == ownerID && msg.ConversationID == conversationID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (f *fakeMessages) SetContent(_ context.Context, id primitive.ObjectID, content string, status domain.MessageStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	f.setContentCalls++
	msg.Content = content
	msg.Status = status
	return nil
}

func (f *fakeMessages) Finalize(_ context.Context, id primitive.ObjectID, content string, status domain.MessageStatus, toolCalls []domain.ToolCallRecord, approval *domain.PendingApproval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	msg.Content = content
	msg.Status = status
	if len(toolCalls) > 0 {
		msg.ToolCalls = toolCalls
	}
	if approval != nil {
		msg.Approval = approval
	}
	return nil
}

func (f *fakeMessages) TransitionApproval(_ context.Context, id, ownerID primitive.ObjectID, to domain.ApprovalStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.byID[id]
	if !ok || msg.OwnerID != ownerID || msg.Approval == nil || msg.Approval.Status != domain.ApprovalPending {
		return repository.ErrNotFound
	}
	msg.Approval.Status = to
	return nil
}

type fakeExercises struct {
	mu   sync.Mutex
	defs []*domain.ExerciseDefinition
}

func (f *fakeExercises) GetOrCreate(_ context.Context, def *domain.ExerciseDefinition) (*domain.ExerciseDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := domain.ExerciseNameKey(def.Name)
	for _, d := range f.defs {
		if d.OwnerID == def.OwnerID && d.NameKey == key {
			out := *d
			return &out, nil
		}
	}
	stored := *def
	stored.ID = primitive.NewObjectID()
	stored.NameKey = key
	f.defs = append(f.defs, &stored)
	out := stored
	return &out, nil
}

func (f *fakeExercises) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ExerciseDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.defs {
		if d.ID == id {
			out := *d
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeExercises) GetByOwner(_ context.Context, ownerID primitive.ObjectID) ([]domain.ExerciseDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ExerciseDefinition
	for _, d := range f.defs {
		if d.OwnerID == ownerID {
			out = append(out, *d)
		}
	}
	return out, nil
}

type fakeTemplates struct {
	mu        sync.Mutex
	templates []*domain.WorkoutTemplate
}

func (f *fakeTemplates) CreateIfAbsent(_ context.Context, tpl *domain.WorkoutTemplate) (*domain.WorkoutTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.templates {
		if t.OwnerID == tpl.OwnerID && t.ClientID == tpl.ClientID {
			out := *t
			return &out, nil
		}
	}
	stored := *tpl
	stored.ID = primitive.NewObjectID()
	stored.CreatedAt = time.Now().UTC()
	f.templates = append(f.templates, &stored)
	out := stored
	return &out, nil
}

func (f *fakeTemplates) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WorkoutTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.templates {
		if t.ID == id {
			out := *t
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeTemplates) GetRecentByOwner(_ context.Context, ownerID primitive.ObjectID, limit int) ([]domain.WorkoutTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.WorkoutTemplate
	for i := len(f.templates) - 1; i >= 0 && len(out) < limit; i-- {
		if f.templates[i].OwnerID == ownerID {
			out = append(out, *f.templates[i])
		}
	}
	return out, nil
}

type fakePlans struct {
	mu    sync.Mutex
	plans []*domain.WorkoutPlan
}

func (f *fakePlans) CreateIfAbsent(_ context.Context, plan *domain.WorkoutPlan) (*domain.WorkoutPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.plans {
		if p.OwnerID == plan.OwnerID && p.ClientID == plan.ClientID {
			out := *p
			return &out, nil
		}
	}
	stored := *plan
	stored.ID = primitive.NewObjectID()
	f.plans = append(f.plans, &stored)
	out := stored
	return &out, nil
}

func (f *fakePlans) GetByID(_ context.Context, id primitive.ObjectID) (*domain.WorkoutPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.plans {
		if p.ID == id {
			out := *p
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePlans) GetByClientID(_ context.Context, ownerID primitive.ObjectID, clientID string) (*domain.WorkoutPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.plans {
		if p.OwnerID == ownerID && p.ClientID == clientID {
			out := *p
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePlans) GetActiveByOwner(_ context.Context, ownerID primitive.ObjectID) (*domain.WorkoutPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.plans {
		if p.OwnerID == ownerID && p.Status == domain.PlanActive {
			out := *p
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePlans) PatchMetadata(_ context.Context, ownerID, planID primitive.ObjectID, patch repository.PlanMetadataPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.plans {
		if p.ID == planID && p.OwnerID == ownerID {
			if patch.Name != nil {
				p.Name = *patch.Name
			}
			if patch.Description != nil {
				p.Description = *patch.Description
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakePlanDays struct {
	mu   sync.Mutex
	days []*domain.PlanDay
}

func (f *fakePlanDays) find(planID primitive.ObjectID, week, dayOfWeek int) *domain.PlanDay {
	for _, d := range f.days {
		if d.PlanID == planID && d.Week == week && d.DayOfWeek == dayOfWeek {
			return d
		}
	}
	return nil
}

func (f *fakePlanDays) CreateIfAbsent(_ context.Context, day *domain.PlanDay) (*domain.PlanDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing := f.find(day.PlanID, day.Week, day.DayOfWeek); existing != nil {
		out := *existing
		return &out, nil
	}
	stored := *day
	stored.ID = primitive.NewObjectID()
	f.days = append(f.days, &stored)
	out := stored
	return &out, nil
}

func (f *fakePlanDays) GetByPlanID(_ context.Context, planID primitive.ObjectID) ([]domain.PlanDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.PlanDay
	for _, d := range f.days {
		if d.PlanID == planID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Week != out[j].Week {
			return out[i].Week < out[j].Week
		}
		return out[i].DayOfWeek < out[j].DayOfWeek
	})
	return out, nil
}

func (f *fakePlanDays) FindByCell(_ context.Context, planID primitive.ObjectID, week, dayOfWeek int) (*domain.PlanDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d := f.find(planID, week, dayOfWeek); d != nil {
		out := *d
		return &out, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakePlanDays) PatchByCell(_ context.Context, planID primitive.ObjectID, week, dayOfWeek int, patch repository.PlanDayPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.find(planID, week, dayOfWeek)
	if d == nil {
		return repository.ErrNotFound
	}
	if patch.TemplateID != nil {
		d.TemplateID = patch.TemplateID
	}
	if patch.Label != nil {
		d.Label = *patch.Label
	}
	if patch.Notes != nil {
		d.Notes = *patch.Notes
	}
	if patch.Status != nil {
		d.Status = *patch.Status
	}
	return nil
}

func (f *fakePlanDays) DeleteByCell(_ context.Context, planID primitive.ObjectID, week, dayOfWeek int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, d := range f.days {
		if d.PlanID == planID && d.Week == week && d.DayOfWeek == dayOfWeek {
			f.days = append(f.days[:i], f.days[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeRecipes struct {
	mu      sync.Mutex
	recipes []*domain.Recipe
}

func (f *fakeRecipes) CreateIfAbsent(_ context.Context, recipe *domain.Recipe) (*domain.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.recipes {
		if r.OwnerID == recipe.OwnerID && r.ClientID == recipe.ClientID {
			out := *r
			return &out, nil
		}
	}
	stored := *recipe
	stored.ID = primitive.NewObjectID()
	f.recipes = append(f.recipes, &stored)
	out := stored
	return &out, nil
}

func (f *fakeRecipes) GetByOwner(_ context.Context, ownerID primitive.ObjectID) ([]domain.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Recipe
	for _, r := range f.recipes {
		if r.OwnerID == ownerID {
			out = append(out, *r)
		}
	}
	return out, nil
}

// fakeLogs serves reads over a fixed slice, most recent first.
type fakeLogs struct {
	logs []domain.WorkoutLog
}

func (f *fakeLogs) GetSince(_ context.Context, ownerID primitive.ObjectID, since time.Time, limit int) ([]domain.WorkoutLog, error) {
	var out []domain.WorkoutLog
	for _, l := range f.logs {
		if l.OwnerID == ownerID && !l.Date.Before(since) && len(out) < limit {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLogs) GetRecent(_ context.Context, ownerID primitive.ObjectID, limit int) ([]domain.WorkoutLog, error) {
	var out []domain.WorkoutLog
	for _, l := range f.logs {
		if l.OwnerID == ownerID && len(out) < limit {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLogs) CountByOwner(_ context.Context, ownerID primitive.ObjectID) (int64, error) {
	var n int64
	for _, l := range f.logs {
		if l.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (f *fakeLogs) GetDistinctDates(_ context.Context, ownerID primitive.ObjectID, limit int) ([]time.Time, error) {
	seen := make(map[time.Time]bool)
	var out []time.Time
	for _, l := range f.logs {
		if l.OwnerID != ownerID {
			continue
		}
		day := l.Date.Truncate(24 * time.Hour)
		if !seen[day] {
			seen[day] = true
			out = append(out, day)
		}
		if len(out) >= limit {
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	return out, nil
}

type fakeSettings struct {
	settings *domain.UserSettings
}

func (f *fakeSettings) GetByOwner(_ context.Context, ownerID primitive.ObjectID) (*domain.UserSettings, error) {
	if f.settings == nil {
		return nil, repository.ErrNotFound
	}
	out := *f.settings
	return &out, nil
}
