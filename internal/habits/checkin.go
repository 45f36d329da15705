// Package habits records daily check-ins and derives streaks and money saved
// from them.
package habits

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"time"

	apperrors "quitflow/internal/common/errors"
	"quitflow/internal/common/logger"
	"quitflow/internal/common/metrics"
	"quitflow/internal/docstore"
	"quitflow/internal/identity"
)

// CheckIn is one day's entry. Date is the calendar day in the user's
// timezone, formatted 2006-01-02; one document per user per day.
type CheckIn struct {
	Date      string `json:"date"`
	SmokeFree bool   `json:"smokeFree"`
	Cravings  int    `json:"cravings"`
	Note      string `json:"note,omitempty"`
}

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type Service struct {
	store docstore.Store
	ident identity.Provider
	log   logger.Logger
}

func NewService(store docstore.Store, ident identity.Provider, log logger.Logger) *Service {
	return &Service{
		store: store,
		ident: ident,
		log:   log.WithFields(map[string]interface{}{"component": "habits"}),
	}
}

func checkinPath(uid, date string) string {
	return "users/" + uid + "/checkins/" + date
}

// Record upserts the day's check-in. Re-submitting the same day replaces it.
func (s *Service) Record(ctx context.Context, c CheckIn) error {
	user, err := s.ident.Current(ctx)
	if err != nil {
		return err
	}
	if !dateRe.MatchString(c.Date) {
		return apperrors.NewCheckInInvalidError("date must be formatted yyyy-mm-dd")
	}
	if c.Cravings < 0 || c.Cravings > 10 {
		return apperrors.NewCheckInInvalidError("cravings must be between 0 and 10")
	}

	doc := map[string]interface{}{
		"date":      c.Date,
		"smokeFree": c.SmokeFree,
		"cravings":  c.Cravings,
		"note":      c.Note,
		"updatedAt": docstore.ServerTimestamp,
	}
	if err := s.store.Set(ctx, checkinPath(user.ID, c.Date), doc, true); err != nil {
		metrics.PersistenceFailures.WithLabelValues("checkin").Inc()
		return apperrors.NewPersistenceError("record check-in", err)
	}
	metrics.CheckInsRecorded.Inc()
	return nil
}

// History returns all check-ins sorted by date ascending.
func (s *Service) History(ctx context.Context) ([]CheckIn, error) {
	user, err := s.ident.Current(ctx)
	if err != nil {
		return nil, err
	}

	docs, err := s.store.List(ctx, "users/"+user.ID+"/checkins")
	if err != nil {
		return nil, apperrors.NewPersistenceError("list check-ins", err)
	}

	history := make([]CheckIn, 0, len(docs))
	for docID, raw := range docs {
		var c CheckIn
		if err := json.Unmarshal(raw, &c); err != nil {
			s.log.Warn("skipping undecodable check-in", map[string]interface{}{
				"docId": docID,
				"error": err.Error(),
			})
			continue
		}
		if c.Date == "" {
			c.Date = docID
		}
		history = append(history, c)
	}
	sort.Slice(history, func(i, j int) bool { return history[i].Date < history[j].Date })
	return history, nil
}

// Streaks computes the current and longest smoke-free streaks as of today.
func (s *Service) Streaks(ctx context.Context, today time.Time) (current, longest int, err error) {
	history, err := s.History(ctx)
	if err != nil {
		return 0, 0, err
	}
	current, longest = ComputeStreaks(history, today)
	return current, longest, nil
}
