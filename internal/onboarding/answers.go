package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	apperrors "quitflow/internal/common/errors"
	"quitflow/internal/common/logger"
	"quitflow/internal/common/metrics"
	"quitflow/internal/docstore"
	"quitflow/internal/identity"
)

// Document paths per user:
//
//	users/<uid>                      profile (completion flags + response mirror)
//	users/<uid>/state/onboarding     aggregate snapshot
//	users/<uid>/answers/<qid>        one document per answered question
func profilePath(uid string) string  { return "users/" + uid }
func snapshotPath(uid string) string { return "users/" + uid + "/state/onboarding" }
func answerPath(uid, qid string) string {
	return "users/" + uid + "/answers/" + qid
}

// AnswerStore persists the answer bag. The in-memory bag itself lives in the
// Controller; this type owns only the durable side.
type AnswerStore struct {
	store   docstore.Store
	ident   identity.Provider
	version int
	log     logger.Logger
}

func NewAnswerStore(store docstore.Store, ident identity.Provider, version int, log logger.Logger) *AnswerStore {
	return &AnswerStore{
		store:   store,
		ident:   ident,
		version: version,
		log:     log.WithFields(map[string]interface{}{"component": "onboarding.answers"}),
	}
}

// Load resolves previously persisted answers: the aggregate snapshot when one
// exists, otherwise a reconstruction from the per-question documents.
func (s *AnswerStore) Load(ctx context.Context) (AnswerBag, error) {
	user, err := s.ident.Current(ctx)
	if err != nil {
		return nil, err
	}

	if bag, err := s.loadSnapshot(ctx, user.ID); err == nil {
		return bag, nil
	} else if !errors.Is(err, docstore.ErrNotFound) {
		return nil, apperrors.NewPersistenceError("read answer snapshot", err)
	}

	return s.loadPerQuestion(ctx, user.ID)
}

func (s *AnswerStore) loadSnapshot(ctx context.Context, uid string) (AnswerBag, error) {
	raw, err := s.store.Get(ctx, snapshotPath(uid))
	if err != nil {
		return nil, err
	}

	var doc struct {
		AnswersSnapshot map[string]interface{} `json:"answersSnapshot"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode answer snapshot: %w", err)
	}
	if doc.AnswersSnapshot == nil {
		return nil, docstore.ErrNotFound
	}
	return AnswerBag(doc.AnswersSnapshot), nil
}

func (s *AnswerStore) loadPerQuestion(ctx context.Context, uid string) (AnswerBag, error) {
	docs, err := s.store.List(ctx, "users/"+uid+"/answers")
	if err != nil {
		return nil, apperrors.NewPersistenceError("list answer documents", err)
	}

	bag := AnswerBag{}
	for docID, raw := range docs {
		var doc struct {
			QuestionID string      `json:"questionId"`
			Answer     interface{} `json:"answer"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			s.log.Warn("skipping undecodable answer document", map[string]interface{}{
				"docId": docID,
				"error": err.Error(),
			})
			continue
		}
		qid := doc.QuestionID
		if qid == "" {
			// Older documents carried no questionId field; the document id is it.
			qid = docID
		}
		bag[qid] = doc.Answer
	}
	return bag, nil
}

// FinalizeAggregate commits the whole snapshot in one merge-write plus the
// completion mirror on the profile. Safe to retry with the identical bag.
func (s *AnswerStore) FinalizeAggregate(ctx context.Context, bag AnswerBag) error {
	user, err := s.ident.Current(ctx)
	if err != nil {
		return err
	}

	snapshot := sanitizeMap(bag)
	writes := []docstore.Write{
		{
			Path: snapshotPath(user.ID),
			Data: map[string]interface{}{
				"completed":       true,
				"answersSnapshot": snapshot,
				"updatedAt":       docstore.ServerTimestamp,
			},
			Merge: true,
		},
		{
			Path: profilePath(user.ID),
			Data: map[string]interface{}{
				"completedOnboarding":      true,
				"onboardingCompletionDate": docstore.ServerTimestamp,
				"onboardingResponse":       snapshot,
			},
			Merge: true,
		},
	}

	if err := s.store.Batch(ctx, writes); err != nil {
		metrics.PersistenceFailures.WithLabelValues("finalize_aggregate").Inc()
		metrics.OnboardingFinalizes.WithLabelValues("aggregate", "error").Inc()
		return apperrors.NewPersistenceError("finalize aggregate snapshot", err)
	}
	metrics.OnboardingFinalizes.WithLabelValues("aggregate", "ok").Inc()
	return nil
}

// FinalizePerQuestion commits one document per answered question in a single
// atomic batch, each carrying the question label as of finalize time, plus
// the completion flag on the profile.
func (s *AnswerStore) FinalizePerQuestion(ctx context.Context, bag AnswerBag, cfg *Config) error {
	user, err := s.ident.Current(ctx)
	if err != nil {
		return err
	}

	// Stable write order keeps retries byte-identical.
	qids := make([]string, 0, len(bag))
	for qid := range bag {
		qids = append(qids, qid)
	}
	sort.Strings(qids)

	writes := make([]docstore.Write, 0, len(qids)+1)
	for _, qid := range qids {
		label := ""
		if q, ok := cfg.Questions[qid]; ok {
			label = q.Question
		}
		writes = append(writes, docstore.Write{
			Path: answerPath(user.ID, qid),
			Data: map[string]interface{}{
				"questionId": qid,
				"question":   label,
				"answer":     sanitizeValue(bag[qid]),
				"userId":     user.ID,
				"userName":   user.DisplayName(),
				"answeredAt": docstore.ServerTimestamp,
				"version":    s.version,
			},
			Merge: true,
		})
	}
	writes = append(writes, docstore.Write{
		Path: profilePath(user.ID),
		Data: map[string]interface{}{
			"completedOnboarding":      true,
			"onboardingCompletionDate": docstore.ServerTimestamp,
		},
		Merge: true,
	})

	if err := s.store.Batch(ctx, writes); err != nil {
		metrics.PersistenceFailures.WithLabelValues("finalize_per_question").Inc()
		metrics.OnboardingFinalizes.WithLabelValues("per_question", "error").Inc()
		return apperrors.NewPersistenceError("finalize per-question batch", err)
	}
	metrics.OnboardingFinalizes.WithLabelValues("per_question", "ok").Inc()
	return nil
}

// Autosave is the legacy per-answer mode: one answer persisted as it is set.
// A nil value deletes the document.
func (s *AnswerStore) Autosave(ctx context.Context, qid string, value interface{}) error {
	user, err := s.ident.Current(ctx)
	if err != nil {
		return err
	}

	if value == nil {
		if err := s.store.Delete(ctx, answerPath(user.ID, qid)); err != nil {
			metrics.PersistenceFailures.WithLabelValues("autosave").Inc()
			return apperrors.NewPersistenceError("autosave delete", err)
		}
		return nil
	}

	doc := map[string]interface{}{
		"questionId": qid,
		"answer":     sanitizeValue(value),
		"userId":     user.ID,
		"userName":   user.DisplayName(),
		"answeredAt": docstore.ServerTimestamp,
	}
	if err := s.store.Set(ctx, answerPath(user.ID, qid), doc, true); err != nil {
		metrics.PersistenceFailures.WithLabelValues("autosave").Inc()
		return apperrors.NewPersistenceError("autosave upsert", err)
	}
	return nil
}

// sanitizeValue reduces a value to what the storage layer can encode:
// string, number, bool, nil, lists and string-keyed maps thereof. Anything
// else is stringified.
func sanitizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return t
	case []string:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = sanitizeValue(e)
		}
		return out
	case map[string]interface{}:
		return sanitizeMap(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func sanitizeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = sanitizeValue(v)
	}
	return out
}
