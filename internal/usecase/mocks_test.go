// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"
	"time"

	"creative-ai-studio/internal/domain"
	"creative-ai-studio/internal/domain/model"
	"creative-ai-studio/internal/domain/ports/adapter"
	"creative-ai-studio/internal/domain/ports/repository"

	"creative-ai-studio/internal/config"
	"creative-ai-studio/internal/infra/logging"

	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	return logging.New(config.LogConfig{Level: "error", Format: "console"}, true)
}

// memAccountRepo is a small in-memory identity/ledger store used by unit tests.
type memAccountRepo struct {
	mu        sync.RWMutex
	store     map[string]*model.Account
	updateErr error // simulate persistence outages
	updates   int   // remote persistence calls observed
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{store: make(map[string]*model.Account)}
}

var _ repository.AccountRepository = (*memAccountRepo)(nil)

func (m *memAccountRepo) FindByID(ctx context.Context, qx any, id string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAccountRepo) FindByEmail(ctx context.Context, qx any, email string) (*model.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.store {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAccountRepo) Save(ctx context.Context, qx any, a *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *memAccountRepo) UpdateBalance(ctx context.Context, qx any, id string, balance model.CreditBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.updateErr != nil {
		return m.updateErr
	}
	a, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Balance = balance
	return nil
}

func (m *memAccountRepo) balanceOf(id string) model.CreditBalance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.store[id]; ok {
		return a.Balance
	}
	return model.CreditBalance{}
}

// memJobRepo keeps job history in memory.
type memJobRepo struct {
	mu   sync.Mutex
	byID map[string]*model.GenerationJob
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{byID: make(map[string]*model.GenerationJob)}
}

var _ repository.GenerationJobRepository = (*memJobRepo)(nil)

func (m *memJobRepo) Save(ctx context.Context, qx any, job *model.GenerationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.byID[job.ID] = &cp
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, qx any, id string) (*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.byID[id]; ok {
		cp := *j
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memJobRepo) ListByUser(ctx context.Context, qx any, userID string, limit int) ([]*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.GenerationJob
	for _, j := range m.byID {
		if j.UserID == userID && len(out) < limit {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memJobRepo) ListStuck(ctx context.Context, qx any, olderThanSeconds int) ([]*model.GenerationJob, error) {
	return nil, nil
}

// scriptedProvider walks a fixed sequence of poll responses.
type pollStep struct {
	status model.ProviderStatus
	err    error
}

type scriptedProvider struct {
	mu        sync.Mutex
	steps     []pollStep
	idx       int
	artifact  adapter.Artifact
	fetchErr  error
	submitErr error
	submits   int
	polls     int
}

var _ adapter.GenerationProviderAdapter = (*scriptedProvider)(nil)

func (p *scriptedProvider) Submit(ctx context.Context, req *model.GenerationRequest) (adapter.JobHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submits++
	if p.submitErr != nil {
		return adapter.JobHandle{}, p.submitErr
	}
	return adapter.JobHandle{RequestID: "req-1", Modality: req.Modality}, nil
}

func (p *scriptedProvider) PollOnce(ctx context.Context, handle adapter.JobHandle) (model.ProviderStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	if len(p.steps) == 0 {
		return model.ProviderStatusInProgress, nil
	}
	step := p.steps[p.idx]
	if p.idx < len(p.steps)-1 {
		p.idx++
	}
	return step.status, step.err
}

func (p *scriptedProvider) FetchResult(ctx context.Context, handle adapter.JobHandle) (adapter.Artifact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetchErr != nil {
		return adapter.Artifact{}, p.fetchErr
	}
	return p.artifact, nil
}

// fakeClock advances virtual time instantly and records every wait.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	waits  []time.Duration
	slept  time.Duration
	onWait func() // optional hook fired before each wait completes
}

var _ Clock = (*fakeClock)(nil)

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.waits = append(c.waits, d)
	c.slept += d
	hook := c.onWait
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *fakeClock) waitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waits)
}
