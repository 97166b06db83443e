//go:build !integration

package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"creative-ai-studio/internal/domain"
	"creative-ai-studio/internal/domain/model"
	"creative-ai-studio/internal/infra/worker"
	"creative-ai-studio/internal/usecase"
)

// --- Mock use cases ---

type mockAccountUC struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
	getErr   error
}

func newMockAccountUC() *mockAccountUC {
	return &mockAccountUC{accounts: map[string]*model.Account{}}
}

func (m *mockAccountUC) RegisterOrFetch(ctx context.Context, email, name string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	acc, err := model.NewAccount("", email, name)
	if err != nil {
		return nil, err
	}
	m.accounts[acc.ID] = acc
	return acc, nil
}

func (m *mockAccountUC) GetByID(ctx context.Context, id string) (*model.Account, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return nil, domain.ErrNotFound
}

type mockGenUC struct {
	mu      sync.Mutex
	history []*model.GenerationJob

	// scripted Generate outcome
	genErr    error
	emitJob   bool // emit updates before returning, as a submitted job would
	finalState model.JobState
}

func (m *mockGenUC) Generate(ctx context.Context, account *model.Account, req *model.GenerationRequest, emit func(usecase.JobUpdate)) (*model.GenerationJob, error) {
	if !m.emitJob {
		return nil, m.genErr
	}
	job := model.NewGenerationJob(account.ID, req.Modality, "req-123")
	emit(usecase.JobUpdate{Job: *job, Balance: model.CreditBalance{ImageCredits: 1}})
	job.Transition(model.JobStatePolling)
	emit(usecase.JobUpdate{Job: *job, Balance: model.CreditBalance{ImageCredits: 1}})
	job.ArtifactURLs = []string{"https://cdn.example/out.png"}
	job.Transition(m.finalState)
	emit(usecase.JobUpdate{Job: *job, Balance: model.CreditBalance{ImageCredits: 1}})
	return job, m.genErr
}

func (m *mockGenUC) History(ctx context.Context, userID string, limit int) ([]*model.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history, nil
}

// --- Test helpers ---

func newTestServer(t *testing.T, gen *mockGenUC, accs *mockAccountUC) (*Server, *worker.Pool) {
	t.Helper()
	l := zerolog.Nop()
	pool := worker.NewPool(2, &l)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() { cancel(); pool.Stop() })

	auth := NewAuthManager("test-secret", false, "", time.Hour)
	srv := NewServer(gen, accs, usecase.NewEntitlementUseCase(), auth, nil, pool, 10, time.Minute, &l)
	return srv, pool
}

func mintToken(t *testing.T, srv *Server, userID, email string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	tok, err := srv.auth.Mint(rec, userID, email)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return tok
}

func seedFreeAccount(t *testing.T, accs *mockAccountUC, email string) *model.Account {
	t.Helper()
	acc, err := accs.RegisterOrFetch(context.Background(), email, "Test User")
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return acc
}

// --- Tests ---

func TestSessionMintAndAccount(t *testing.T) {
	t.Parallel()
	accs := newMockAccountUC()
	srv, _ := newTestServer(t, &mockGenUC{}, accs)
	router := srv.Routes()

	body := bytes.NewBufferString(`{"email":"ada@example.com","name":"Ada"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("session status = %d, want 200", rec.Code)
	}
	var resp struct {
		Token   string      `json:"token"`
		Account accountView `json:"account"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a session token")
	}
	if resp.Account.ImageCredits != 2 {
		t.Fatalf("new account image credits = %d, want 2", resp.Account.ImageCredits)
	}

	// The minted token must open the account endpoint.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/account", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("account status = %d, want 200", rec.Code)
	}
	var acc accountView
	if err := json.NewDecoder(rec.Body).Decode(&acc); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if acc.Email != "ada@example.com" || acc.ImagePlan != "free" {
		t.Fatalf("unexpected account view: %+v", acc)
	}
}

func TestAccountRequiresSession(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t, &mockGenUC{}, newMockAccountUC())
	router := srv.Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/account", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGenerateStreamsUpdates(t *testing.T) {
	t.Parallel()
	accs := newMockAccountUC()
	gen := &mockGenUC{emitJob: true, finalState: model.JobStateCompleted}
	srv, _ := newTestServer(t, gen, accs)
	router := srv.Routes()

	acc := seedFreeAccount(t, accs, "gen@example.com")
	tok := mintToken(t, srv, acc.ID, acc.Email)

	body := bytes.NewBufferString(`{"modality":"text-to-image","prompt":"a lighthouse at dawn"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations", body)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q, want text/event-stream", ct)
	}

	// Snapshot once; scanning the recorder buffer consumes it.
	streamBody := rec.Body.String()
	var events []string
	sc := bufio.NewScanner(strings.NewReader(streamBody))
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimPrefix(line, "event: "))
		}
	}
	if len(events) < 2 {
		t.Fatalf("expected at least 2 events, got %v", events)
	}
	if events[len(events)-1] != "done" {
		t.Fatalf("last event = %q, want done", events[len(events)-1])
	}
	if !strings.Contains(streamBody, "out.png") {
		t.Fatal("expected artifact URL in stream")
	}
}

func TestGenerateRejectedBeforeSubmissionIsPlainError(t *testing.T) {
	t.Parallel()
	accs := newMockAccountUC()
	gen := &mockGenUC{emitJob: false, genErr: domain.ErrInsufficientCredits}
	srv, _ := newTestServer(t, gen, accs)
	router := srv.Routes()

	acc := seedFreeAccount(t, accs, "broke@example.com")
	tok := mintToken(t, srv, acc.ID, acc.Email)

	body := bytes.NewBufferString(`{"modality":"text-to-image","prompt":"x"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations", body)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rec.Code)
	}
}

func TestGenerateFailureStreamsErrorEvent(t *testing.T) {
	t.Parallel()
	accs := newMockAccountUC()
	gen := &mockGenUC{emitJob: true, finalState: model.JobStateFailed, genErr: domain.ErrGenerationFailed}
	srv, _ := newTestServer(t, gen, accs)
	router := srv.Routes()

	acc := seedFreeAccount(t, accs, "fail@example.com")
	tok := mintToken(t, srv, acc.ID, acc.Email)

	body := bytes.NewBufferString(`{"modality":"text-to-image","prompt":"x"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations", body)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (stream already open)", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "event: error") {
		t.Fatalf("expected an error event, body=%s", rec.Body.String())
	}
}

func TestGenerateConflictsWhileInFlight(t *testing.T) {
	t.Parallel()
	accs := newMockAccountUC()
	srv, _ := newTestServer(t, &mockGenUC{}, accs)
	router := srv.Routes()

	acc := seedFreeAccount(t, accs, "busy@example.com")
	tok := mintToken(t, srv, acc.ID, acc.Email)

	// Simulate a generation already running for this user.
	srv.inflight.Store(acc.ID, struct{}{})

	body := bytes.NewBufferString(`{"modality":"text-to-image","prompt":"x"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations", body)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestHistoryReturnsJobs(t *testing.T) {
	t.Parallel()
	accs := newMockAccountUC()
	gen := &mockGenUC{}
	srv, _ := newTestServer(t, gen, accs)
	router := srv.Routes()

	acc := seedFreeAccount(t, accs, "hist@example.com")
	tok := mintToken(t, srv, acc.ID, acc.Email)

	job := model.NewGenerationJob(acc.ID, model.ModalityTextToImage, "req-1")
	job.Transition(model.JobStatePolling)
	job.Transition(model.JobStateCompleted)
	gen.history = []*model.GenerationJob{job}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/generations?limit=10", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Data []jobView `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].State != "completed" {
		t.Fatalf("unexpected history: %+v", resp.Data)
	}
}

func TestResolutionsGatedByPlan(t *testing.T) {
	t.Parallel()
	accs := newMockAccountUC()
	srv, _ := newTestServer(t, &mockGenUC{}, accs)
	router := srv.Routes()

	acc := seedFreeAccount(t, accs, "res@example.com")
	tok := mintToken(t, srv, acc.ID, acc.Email)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/resolutions", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Data []struct {
			Width   int  `json:"width"`
			Allowed bool `json:"allowed"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode resolutions: %v", err)
	}
	if len(resp.Data) != 3 {
		t.Fatalf("expected 3 catalog entries, got %d", len(resp.Data))
	}
	for _, opt := range resp.Data {
		wantAllowed := opt.Width != 2048
		if opt.Allowed != wantAllowed {
			t.Fatalf("width %d allowed = %v, want %v", opt.Width, opt.Allowed, wantAllowed)
		}
	}
}
