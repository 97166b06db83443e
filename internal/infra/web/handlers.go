package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"creative-ai-studio/internal/domain"
	"creative-ai-studio/internal/domain/model"
	red "creative-ai-studio/internal/infra/redis"
	"creative-ai-studio/internal/usecase"
)

// ===== JSON views =====

type accountView struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	ImagePlan    string `json:"image_plan"`
	VideoPlan    string `json:"video_plan"`
	ImageCredits int    `json:"image_credits"`
	VideoCredits int    `json:"video_credits"`
}

func toAccountView(a *model.Account) accountView {
	return accountView{
		ID:           a.ID,
		Email:        a.Email,
		Name:         a.Name,
		ImagePlan:    string(a.Plan.ImagePlan),
		VideoPlan:    string(a.Plan.VideoPlan),
		ImageCredits: a.Balance.ImageCredits,
		VideoCredits: a.Balance.VideoCredits,
	}
}

type jobView struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id"`
	Modality     string    `json:"modality"`
	State        string    `json:"state"`
	ArtifactURLs []string  `json:"artifact_urls,omitempty"`
	Cause        string    `json:"cause,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toJobView(j *model.GenerationJob) jobView {
	return jobView{
		ID:           j.ID,
		RequestID:    j.RequestID,
		Modality:     string(j.Modality),
		State:        string(j.State),
		ArtifactURLs: j.ArtifactURLs,
		Cause:        j.Cause,
		SubmittedAt:  j.SubmittedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}

type updateView struct {
	Job          jobView `json:"job"`
	ImageCredits int     `json:"image_credits"`
	VideoCredits int     `json:"video_credits"`
}

func toUpdateView(u usecase.JobUpdate) updateView {
	return updateView{
		Job:          toJobView(&u.Job),
		ImageCredits: u.Balance.ImageCredits,
		VideoCredits: u.Balance.VideoCredits,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps domain sentinels to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrPlanRestricted):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrInsufficientCredits):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, domain.ErrJobInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrLedgerUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrSubmissionFailed):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// ===== Handlers =====

type sessionRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	acc, err := s.accountUC.RegisterOrFetch(ctx, req.Email, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	token, err := s.auth.Mint(w, acc.ID, acc.Email)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Token   string      `json:"token"`
		Account accountView `json:"account"`
	}{Token: token, Account: toAccountView(acc)})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	acc, err := s.accountUC.GetByID(ctx, SessionUserID(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountView(acc))
}

func (s *Server) handleResolutions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	acc, err := s.accountUC.GetByID(ctx, SessionUserID(ctx))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type resolutionView struct {
		Label        string `json:"label"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		PlanRequired string `json:"plan_required"`
		Allowed      bool   `json:"allowed"`
	}
	out := make([]resolutionView, 0, len(model.ResolutionCatalog))
	for _, opt := range model.ResolutionCatalog {
		out = append(out, resolutionView{
			Label:        opt.Label,
			Width:        opt.Width,
			Height:       opt.Height,
			PlanRequired: string(opt.PlanRequired),
			Allowed:      s.entitlements.IsResolutionAllowed(opt, acc.Plan),
		})
	}

	writeJSON(w, http.StatusOK, struct {
		Data []resolutionView `json:"data"`
	}{Data: out})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := s.genUC.History(ctx, SessionUserID(ctx), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobView(j))
	}
	writeJSON(w, http.StatusOK, struct {
		Data []jobView `json:"data"`
	}{Data: out})
}

type generateRequest struct {
	Modality       string `json:"modality"`
	Prompt         string `json:"prompt"`
	SourceImageURL string `json:"source_image_url"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

type generateResult struct {
	job *model.GenerationJob
	err error
}

// handleGenerate runs one job end to end and streams its updates as
// server-sent events. The response does not commit to a status code
// until the job is actually submitted: anything the coordinator rejects
// up front (bad request, plan, credits) still comes back as a plain
// HTTP error.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := SessionUserID(ctx)

	var body generateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req := &model.GenerationRequest{
		Modality:       model.Modality(body.Modality),
		Prompt:         body.Prompt,
		SourceImageURL: body.SourceImageURL,
		Width:          body.Width,
		Height:         body.Height,
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, red.SubmissionKey(userID), s.rateLimit, s.rateWindow)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter unavailable; allowing request")
		} else if !ok {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
	}

	// One in-flight generation per account.
	if _, loaded := s.inflight.LoadOrStore(userID, struct{}{}); loaded {
		writeDomainError(w, domain.ErrJobInFlight)
		return
	}

	acc, err := s.accountUC.GetByID(ctx, userID)
	if err != nil {
		s.inflight.Delete(userID)
		writeDomainError(w, err)
		return
	}

	// Transitions are few (submitted, polling, terminal, settlement), so
	// the buffer never fills and emit never blocks the poll loop.
	updates := make(chan usecase.JobUpdate, 16)
	result := make(chan generateResult, 1)

	task := func(context.Context) error {
		defer s.inflight.Delete(userID)
		job, err := s.genUC.Generate(ctx, acc, req, func(u usecase.JobUpdate) {
			updates <- u
		})
		close(updates)
		result <- generateResult{job: job, err: err}
		return nil
	}
	if err := s.pool.Submit(task); err != nil {
		s.inflight.Delete(userID)
		http.Error(w, "server busy", http.StatusServiceUnavailable)
		return
	}

	first, ok := <-updates
	if !ok {
		// Rejected before submission.
		res := <-result
		writeDomainError(w, res.err)
		return
	}

	flusher, canFlush := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent := func(name string, v any) {
		b, err := json.Marshal(v)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, b)
		if canFlush {
			flusher.Flush()
		}
	}

	writeEvent("update", toUpdateView(first))
	for u := range updates {
		writeEvent("update", toUpdateView(u))
	}

	res := <-result
	if res.err != nil {
		writeEvent("error", struct {
			State string `json:"state"`
			Cause string `json:"cause"`
		}{State: string(res.job.State), Cause: res.err.Error()})
		return
	}
	writeEvent("done", toJobView(res.job))
}
