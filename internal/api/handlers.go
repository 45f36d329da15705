package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"quitflow/internal/chat"
	apperrors "quitflow/internal/common/errors"
	"quitflow/internal/common/logger"
	"quitflow/internal/community"
	"quitflow/internal/habits"
	"quitflow/internal/identity"
	"quitflow/internal/onboarding"
	"quitflow/internal/prefs"
)

// flowState is the onboarding payload every flow endpoint responds with, so
// the client can render from any single response.
type flowState struct {
	Phase     string                  `json:"phase"`
	CurrentID string                  `json:"currentId,omitempty"`
	Question  *onboarding.QuestionDef `json:"question,omitempty"`
	Done      bool                    `json:"done"`
}

func (s *Server) flowStateOf(c *onboarding.Controller) flowState {
	state := flowState{
		Phase:     c.Phase().String(),
		CurrentID: c.CurrentID(),
		Done:      c.Phase() == onboarding.PhaseComplete,
	}
	if q, ok := c.CurrentQuestion(); ok {
		state.Question = &q
	}
	return state
}

func (s *Server) handleOnboardingStart(w http.ResponseWriter, r *http.Request) {
	user, err := identity.ContextProvider{}.Current(r.Context())
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	c := s.sessionFor(user.ID)
	if c.Phase() == onboarding.PhaseFailed {
		// A failed load is terminal for the controller; rebuild and retry.
		s.dropSession(user.ID)
		c = s.sessionFor(user.ID)
	}
	if c.Phase() == onboarding.PhaseLoading {
		if err := c.Start(r.Context()); err != nil {
			writeError(w, s.log, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, s.flowStateOf(c))
}

func (s *Server) handleOnboardingAnswer(w http.ResponseWriter, r *http.Request) {
	user, err := identity.ContextProvider{}.Current(r.Context())
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	var req struct {
		QuestionID string      `json:"questionId"`
		Answer     interface{} `json:"answer"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	if req.QuestionID == "" {
		writeError(w, s.log, badRequestErr("questionId is required"))
		return
	}

	c := s.sessionFor(user.ID)
	c.SetLocalAnswer(r.Context(), req.QuestionID, req.Answer)
	writeJSON(w, http.StatusOK, s.flowStateOf(c))
}

func (s *Server) handleOnboardingNext(w http.ResponseWriter, r *http.Request) {
	user, err := identity.ContextProvider{}.Current(r.Context())
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	var req struct {
		FromID string `json:"fromId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}

	c := s.sessionFor(user.ID)
	if _, _, err := c.GoNextFrom(req.FromID); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s.flowStateOf(c))
}

func (s *Server) handleOnboardingJump(w http.ResponseWriter, r *http.Request) {
	user, err := identity.ContextProvider{}.Current(r.Context())
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	var req struct {
		QuestionID string `json:"questionId"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	if req.QuestionID == "" {
		writeError(w, s.log, badRequestErr("questionId is required"))
		return
	}

	c := s.sessionFor(user.ID)
	if err := c.JumpTo(req.QuestionID); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s.flowStateOf(c))
}

func (s *Server) handleOnboardingFinalize(w http.ResponseWriter, r *http.Request) {
	user, err := identity.ContextProvider{}.Current(r.Context())
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}

	mode := onboarding.FinalizeAggregate
	if req.Mode == string(onboarding.FinalizePerQuestion) {
		mode = onboarding.FinalizePerQuestion
	}

	c := s.sessionFor(user.ID)
	if err := c.Finalize(r.Context(), mode); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"finalized": true, "mode": string(mode)})
}

func (s *Server) handleCheckInRecord(w http.ResponseWriter, r *http.Request) {
	var checkin habits.CheckIn
	if err := decodeBody(r, &checkin); err != nil {
		writeError(w, s.log, err)
		return
	}

	if err := s.deps.Habits.Record(r.Context(), checkin); err != nil {
		writeError(w, s.log, err)
		return
	}

	// Refresh the caller's leaderboard entry from the new streak; a board
	// failure does not fail the check-in.
	if s.deps.Leaderboard != nil {
		if user, err := (identity.ContextProvider{}).Current(r.Context()); err == nil {
			current, _, err := s.deps.Habits.Streaks(r.Context(), time.Now())
			if err == nil {
				err = s.deps.Leaderboard.UpdateScore(r.Context(), user.ID, user.DisplayName(), current)
			}
			if err != nil {
				s.log.Warn("leaderboard update failed", map[string]interface{}{
					"userId": user.ID,
					"error":  err.Error(),
				})
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"recorded": true})
}

func (s *Server) handleCheckInHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.deps.Habits.History(r.Context())
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"checkins": history})
}

func (s *Server) handleStreaks(w http.ResponseWriter, r *http.Request) {
	current, longest, err := s.deps.Habits.Streaks(r.Context(), time.Now())
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"current": current, "longest": longest})
}

// quitPlanPref is the preference name the savings endpoint reads. The app
// writes it from the consumption answers gathered during onboarding.
const quitPlanPref = "quitPlan"

type quitPlan struct {
	QuitDate     string  `json:"quitDate"`
	PacksPerDay  float64 `json:"packsPerDay"`
	PricePerPack float64 `json:"pricePerPack"`
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	user, err := identity.ContextProvider{}.Current(r.Context())
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	var plan quitPlan
	err = s.deps.Prefs.Get(r.Context(), user.ID, quitPlanPref, &plan)
	if errors.Is(err, prefs.ErrNotFound) {
		writeError(w, s.log, apperrors.NewDocumentNotFoundError("quit plan not set"))
		return
	}
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	quitDate, err := time.Parse("2006-01-02", plan.QuitDate)
	if err != nil {
		writeError(w, s.log, badRequestErr("quit plan has an invalid quitDate"))
		return
	}

	now := time.Now()
	days := 0
	if now.After(quitDate) {
		days = int(now.Sub(quitDate).Hours() / 24)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"amount":        habits.MoneySaved(quitDate, now, plan.PacksPerDay, plan.PricePerPack),
		"smokeFreeDays": days,
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.Leaderboard == nil {
		writeError(w, s.log, unavailableErr("leaderboard is not configured"))
		return
	}

	top := s.cfg.Community.LeaderboardTop
	if top <= 0 {
		top = 10
	}
	entries, err := s.deps.Leaderboard.Top(r.Context(), top)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (s *Server) handlePostCreate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Posts == nil {
		writeError(w, s.log, unavailableErr("post search is not configured"))
		return
	}
	user, err := identity.ContextProvider{}.Current(r.Context())
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	var req struct {
		Title string   `json:"title"`
		Body  string   `json:"body"`
		Tags  []string `json:"tags"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	if req.Title == "" {
		writeError(w, s.log, badRequestErr("title is required"))
		return
	}

	post, err := s.deps.Posts.IndexPost(r.Context(), community.Post{
		AuthorID: user.ID,
		Author:   user.DisplayName(),
		Title:    req.Title,
		Body:     req.Body,
		Tags:     req.Tags,
	})
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handlePostSearch(w http.ResponseWriter, r *http.Request) {
	if s.deps.Posts == nil {
		writeError(w, s.log, unavailableErr("post search is not configured"))
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, s.log, badRequestErr("query parameter q is required"))
		return
	}

	results, err := s.deps.Posts.Search(r.Context(), query, 20)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.deps.Chat == nil {
		writeError(w, s.log, unavailableErr("chat is not configured"))
		return
	}

	var req struct {
		Messages []chat.Message `json:"messages"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, s.log, badRequestErr("messages must not be empty"))
		return
	}

	reply, err := s.deps.Chat.Complete(r.Context(), req.Messages)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handlePrefGet(w http.ResponseWriter, r *http.Request) {
	user, err := identity.ContextProvider{}.Current(r.Context())
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	var value interface{}
	err = s.deps.Prefs.Get(r.Context(), user.ID, chi.URLParam(r, "name"), &value)
	if errors.Is(err, prefs.ErrNotFound) {
		writeError(w, s.log, apperrors.NewDocumentNotFoundError("preference not set"))
		return
	}
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"value": value})
}

func (s *Server) handlePrefSet(w http.ResponseWriter, r *http.Request) {
	user, err := identity.ContextProvider{}.Current(r.Context())
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	var req struct {
		Value interface{} `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}

	if err := s.deps.Prefs.Set(r.Context(), user.ID, chi.URLParam(r, "name"), req.Value); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

func (s *Server) handlePrefDelete(w http.ResponseWriter, r *http.Request) {
	user, err := identity.ContextProvider{}.Current(r.Context())
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	if err := s.deps.Prefs.Delete(r.Context(), user.ID, chi.URLParam(r, "name")); err != nil {
		writeError(w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- shared response plumbing ---

// httpError carries a status for request-shape problems that have no domain
// error code.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequestErr(msg string) error   { return &httpError{http.StatusBadRequest, msg} }
func unauthorizedErr(msg string) error { return &httpError{http.StatusUnauthorized, msg} }
func unavailableErr(msg string) error  { return &httpError{http.StatusServiceUnavailable, msg} }

func decodeBody(r *http.Request, out interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return badRequestErr("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	status := apperrors.HTTPStatus(err)
	var he *httpError
	if errors.As(err, &he) {
		status = he.status
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", map[string]interface{}{"error": err.Error()})
	}

	body := map[string]interface{}{
		"error":     err.Error(),
		"retryable": apperrors.IsRetryable(err),
	}
	if code := apperrors.CodeOf(err); code != "" {
		body["code"] = string(code)
	}
	writeJSON(w, status, body)
}
