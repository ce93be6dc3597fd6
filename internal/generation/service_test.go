// AngelaMos | 2026
// service_test.go

package generation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/scribe/internal/catalog"
	"github.com/angelamos/scribe/internal/config"
	"github.com/angelamos/scribe/internal/plan"
	"github.com/angelamos/scribe/internal/provider"
)

type memPlans struct {
	plan.Repository

	mu    sync.Mutex
	byID  map[string]*plan.UserPlan
	spent atomic.Int32
}

func newMemPlans(userID string, used, generation int) *memPlans {
	return &memPlans{byID: map[string]*plan.UserPlan{
		"up-1": {ID: "up-1", UserID: userID, PlanID: "p-1", Used: used, Generation: generation, IsActive: true},
	}}
}

func (m *memPlans) GetUserPlan(_ context.Context, id string) (*plan.UserPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	up, ok := m.byID[id]
	if !ok {
		return nil, plan.ErrUserPlanNotFound
	}
	out := *up
	return &out, nil
}

func (m *memPlans) GetActiveUserPlan(_ context.Context, userID string) (*plan.UserPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, up := range m.byID {
		if up.UserID == userID && up.IsActive {
			out := *up
			return &out, nil
		}
	}
	return nil, plan.ErrUserPlanNotFound
}

func (m *memPlans) IncrementUsed(_ context.Context, id string, amount int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	up, ok := m.byID[id]
	if !ok || up.Used+amount > up.Generation {
		return false, nil
	}
	up.Used += amount
	m.spent.Add(1)
	return true, nil
}

func (m *memPlans) used(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].Used
}

type memHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

func (m *memHistory) Create(_ context.Context, e *HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.CreatedAt = time.Now()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memHistory) GetByID(_ context.Context, id string) (*HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID == id {
			e := m.entries[i]
			return &e, nil
		}
	}
	return nil, ErrHistoryNotFound
}

func (m *memHistory) GetByIdempotencyKey(_ context.Context, userID, key string) (*HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		e := m.entries[i]
		if e.UserID == userID && e.IdempotencyKey != nil && *e.IdempotencyKey == key {
			return &e, nil
		}
	}
	return nil, ErrHistoryNotFound
}

func (m *memHistory) ListByUser(_ context.Context, userID string, limit, offset int) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []HistoryEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

func (m *memHistory) CountByUser(ctx context.Context, userID string) (int, error) {
	entries, err := m.ListByUser(ctx, userID, 1<<30, 0)
	return len(entries), err
}

func (m *memHistory) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

// memRecorder mirrors TxRecorder: the key check, the spend and the
// append happen under one lock.
type memRecorder struct {
	mu      sync.Mutex
	plans   *memPlans
	history *memHistory
}

func (m *memRecorder) Record(ctx context.Context, r *plan.Reservation, e *HistoryEntry) (*HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.IdempotencyKey != nil {
		if existing, err := m.history.GetByIdempotencyKey(ctx, e.UserID, *e.IdempotencyKey); err == nil {
			return existing, ErrReplayed
		}
	}
	if err := plan.NewLedger(m.plans).Commit(ctx, r); err != nil {
		return nil, err
	}
	if err := m.history.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

type fakeCatalog struct {
	category *catalog.Category
	prompt   *catalog.Prompt
	tone     *catalog.Tone
	inputs   []catalog.Input
}

func (f *fakeCatalog) Category(_ context.Context, id, _ string) (*catalog.Category, error) {
	if f.category == nil || f.category.ID != id {
		return nil, catalog.ErrCategoryNotFound
	}
	return f.category, nil
}

func (f *fakeCatalog) Prompt(_ context.Context, _, _ string) (*catalog.Prompt, error) {
	if f.prompt == nil {
		return nil, catalog.ErrPromptNotFound
	}
	return f.prompt, nil
}

func (f *fakeCatalog) Tone(_ context.Context, id string) (*catalog.Tone, error) {
	if f.tone == nil || f.tone.ID != id {
		return nil, catalog.ErrToneNotFound
	}
	return f.tone, nil
}

func (f *fakeCatalog) Inputs(_ context.Context, _, _ string) ([]catalog.Input, error) {
	if len(f.inputs) == 0 {
		return nil, catalog.ErrInputsNotFound
	}
	return f.inputs, nil
}

type stubProvider struct {
	text    string
	err     error
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}

	mu   sync.Mutex
	last provider.Request
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, req provider.Request) (*provider.Result, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.last = req
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &provider.Result{Text: s.text, PromptTokens: 40, CompletionTokens: 20}, nil
}

type harness struct {
	service  *Service
	plans    *memPlans
	history  *memHistory
	provider *stubProvider
	catalog  *fakeCatalog
}

const testUser = "user-1"

func newHarness(used, generation int) *harness {
	plans := newMemPlans(testUser, used, generation)
	history := &memHistory{}
	prov := &stubProvider{text: "Fresh green tea, delivered."}
	cat := &fakeCatalog{
		category: &catalog.Category{ID: "cat-1", Lang: "en", Description: "ads"},
		prompt:   &catalog.Prompt{SystemTemplate: "Write {{variants}} ads in {{language}}."},
		tone:     &catalog.Tone{ID: "tone-1", Name: "friendly"},
		inputs: []catalog.Input{
			{ID: "in-1", Name: "product", DescriptionFormat: "Product: {{value}}", Position: 1},
		},
	}

	cfg := config.GenerationConfig{
		Timeout:          time.Second,
		DefaultMaxTokens: 1024,
		MaxVariants:      5,
	}

	svc := NewService(
		history,
		plans,
		plan.NewLedger(plans),
		cat,
		prov,
		&memRecorder{plans: plans, history: history},
		cfg,
		nil,
	)

	return &harness{service: svc, plans: plans, history: history, provider: prov, catalog: cat}
}

func params(variant int) GenerateParams {
	return GenerateParams{
		UserID:     testUser,
		CategoryID: "cat-1",
		ToneID:     "tone-1",
		Inputs:     map[string]string{"product": "green tea"},
		Variant:    variant,
		Lang:       "en",
	}
}

func TestGenerate_SpendsVariantAndRecordsHistory(t *testing.T) {
	h := newHarness(0, 5)

	out, err := h.service.Generate(context.Background(), params(2))
	require.NoError(t, err)

	assert.False(t, out.Replayed)
	assert.Equal(t, "Fresh green tea, delivered.", out.Entry.Content)
	assert.Equal(t, 2, h.plans.used("up-1"))

	count, _ := h.history.Count(context.Background())
	assert.Equal(t, 1, count)
	require.Len(t, out.Entry.InputValues, 1)
	assert.Equal(t, "in-1", out.Entry.InputValues[0].InputID)

	assert.Equal(t, 1024, h.provider.last.MaxTokens)
	assert.InDelta(t, defaultTemperature, h.provider.last.Temperature, 1e-9)
	assert.Equal(t, "Write 2 ads in English.", h.provider.last.Messages[0].Content)
}

func TestGenerate_QuotaExhaustedLeavesStateUnchanged(t *testing.T) {
	h := newHarness(3, 3)

	_, err := h.service.Generate(context.Background(), params(1))
	require.ErrorIs(t, err, plan.ErrQuotaExhausted)

	assert.Equal(t, 3, h.plans.used("up-1"))
	count, _ := h.history.Count(context.Background())
	assert.Zero(t, count)
	assert.Zero(t, h.provider.calls.Load())
}

func TestGenerate_ReservesFullVariantCount(t *testing.T) {
	h := newHarness(4, 5)

	_, err := h.service.Generate(context.Background(), params(2))
	require.ErrorIs(t, err, plan.ErrQuotaExhausted)
	assert.Equal(t, 4, h.plans.used("up-1"))
}

func TestGenerate_ProviderFailureSpendsNothing(t *testing.T) {
	h := newHarness(0, 5)
	h.provider.err = errors.New("connection reset")

	_, err := h.service.Generate(context.Background(), params(1))
	require.ErrorIs(t, err, provider.ErrProviderFailure)

	assert.Zero(t, h.plans.used("up-1"))
	count, _ := h.history.Count(context.Background())
	assert.Zero(t, count)
}

func TestGenerate_ProviderTimeout(t *testing.T) {
	h := newHarness(0, 5)
	h.provider.started = make(chan struct{}, 1)
	h.provider.release = make(chan struct{})
	h.service.cfg.Timeout = 20 * time.Millisecond

	_, err := h.service.Generate(context.Background(), params(1))
	require.ErrorIs(t, err, provider.ErrProviderFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, h.plans.used("up-1"))
}

func TestGenerate_MissingReferenceData(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*fakeCatalog)
		wantErr error
	}{
		{"category", func(c *fakeCatalog) { c.category = nil }, catalog.ErrCategoryNotFound},
		{"prompt", func(c *fakeCatalog) { c.prompt = nil }, catalog.ErrPromptNotFound},
		{"inputs", func(c *fakeCatalog) { c.inputs = nil }, catalog.ErrInputsNotFound},
		{"tone", func(c *fakeCatalog) { c.tone = nil }, catalog.ErrToneNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(0, 5)
			tc.mutate(h.catalog)

			_, err := h.service.Generate(context.Background(), params(1))
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Zero(t, h.provider.calls.Load())
		})
	}
}

func TestGenerate_NoPlan(t *testing.T) {
	h := newHarness(0, 5)
	p := params(1)
	p.UserID = "someone-else"

	_, err := h.service.Generate(context.Background(), p)
	assert.ErrorIs(t, err, plan.ErrUserPlanNotFound)
}

func TestGenerate_VariantBounds(t *testing.T) {
	h := newHarness(0, 50)

	_, err := h.service.Generate(context.Background(), params(0))
	assert.ErrorIs(t, err, ErrInvalidVariant)

	_, err = h.service.Generate(context.Background(), params(6))
	assert.ErrorIs(t, err, ErrInvalidVariant)
}

func TestGenerate_IdempotencyKeyReplays(t *testing.T) {
	h := newHarness(0, 5)
	p := params(1)
	p.IdempotencyKey = "req-42"

	first, err := h.service.Generate(context.Background(), p)
	require.NoError(t, err)

	second, err := h.service.Generate(context.Background(), p)
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)
	assert.Equal(t, int32(1), h.provider.calls.Load())
	assert.Equal(t, 1, h.plans.used("up-1"))
}

func TestGenerate_ConcurrentRequestsCannotOverspend(t *testing.T) {
	h := newHarness(0, 2)
	h.provider.started = make(chan struct{}, 2)
	h.provider.release = make(chan struct{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.service.Generate(context.Background(), params(2))
		}()
	}

	<-h.provider.started
	<-h.provider.started
	close(h.provider.release)
	wg.Wait()

	var ok, exhausted int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, plan.ErrQuotaExhausted):
			exhausted++
		}
	}

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, exhausted)
	assert.Equal(t, 2, h.plans.used("up-1"))
	count, _ := h.history.Count(context.Background())
	assert.Equal(t, 1, count)
}

func TestGet_HidesOtherUsersEntries(t *testing.T) {
	h := newHarness(0, 5)

	out, err := h.service.Generate(context.Background(), params(1))
	require.NoError(t, err)

	got, err := h.service.Get(context.Background(), testUser, out.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Entry.ID, got.ID)

	_, err = h.service.Get(context.Background(), "intruder", out.Entry.ID)
	assert.ErrorIs(t, err, ErrHistoryNotFound)
}
