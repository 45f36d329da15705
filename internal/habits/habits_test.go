package habits

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "quitflow/internal/common/errors"
	"quitflow/internal/common/logger"
	"quitflow/internal/docstore"
	"quitflow/internal/identity"
)

var testUser = identity.User{ID: "u-1", Name: "Sam"}

func newTestService() (*Service, *docstore.Memory) {
	mem := docstore.NewMemory()
	return NewService(mem, identity.Static{User: testUser}, logger.Nop()), mem
}

func day(s string) time.Time {
	d, _ := time.Parse(dateLayout, s)
	return d
}

func TestRecord_Upsert(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, CheckIn{Date: "2024-06-01", SmokeFree: true, Cravings: 3}))
	require.NoError(t, svc.Record(ctx, CheckIn{Date: "2024-06-01", SmokeFree: false, Cravings: 8}))

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].SmokeFree)
	assert.Equal(t, 8, history[0].Cravings)
}

func TestRecord_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	err := svc.Record(ctx, CheckIn{Date: "June 1", SmokeFree: true})
	assert.Equal(t, apperrors.ErrCodeCheckInInvalid, apperrors.CodeOf(err))

	err = svc.Record(ctx, CheckIn{Date: "2024-06-01", Cravings: 11})
	assert.Equal(t, apperrors.ErrCodeCheckInInvalid, apperrors.CodeOf(err))
}

func TestRecord_RequiresSignedInUser(t *testing.T) {
	svc := NewService(docstore.NewMemory(), identity.Static{}, logger.Nop())

	err := svc.Record(context.Background(), CheckIn{Date: "2024-06-01", SmokeFree: true})
	assert.Equal(t, apperrors.ErrCodeNoSignedInUser, apperrors.CodeOf(err))
}

func TestHistory_SortedByDate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, d := range []string{"2024-06-03", "2024-06-01", "2024-06-02"} {
		require.NoError(t, svc.Record(ctx, CheckIn{Date: d, SmokeFree: true}))
	}

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "2024-06-01", history[0].Date)
	assert.Equal(t, "2024-06-03", history[2].Date)
}

func TestComputeStreaks(t *testing.T) {
	tests := []struct {
		name        string
		history     []CheckIn
		today       string
		wantCurrent int
		wantLongest int
	}{
		{
			name:        "empty history",
			today:       "2024-06-10",
			wantCurrent: 0, wantLongest: 0,
		},
		{
			name: "run ending today",
			history: []CheckIn{
				{Date: "2024-06-08", SmokeFree: true},
				{Date: "2024-06-09", SmokeFree: true},
				{Date: "2024-06-10", SmokeFree: true},
			},
			today:       "2024-06-10",
			wantCurrent: 3, wantLongest: 3,
		},
		{
			name: "today not yet logged counts from yesterday",
			history: []CheckIn{
				{Date: "2024-06-08", SmokeFree: true},
				{Date: "2024-06-09", SmokeFree: true},
			},
			today:       "2024-06-10",
			wantCurrent: 2, wantLongest: 2,
		},
		{
			name: "smoked day breaks the run",
			history: []CheckIn{
				{Date: "2024-06-05", SmokeFree: true},
				{Date: "2024-06-06", SmokeFree: true},
				{Date: "2024-06-07", SmokeFree: false},
				{Date: "2024-06-08", SmokeFree: true},
			},
			today:       "2024-06-08",
			wantCurrent: 1, wantLongest: 2,
		},
		{
			name: "gap breaks the run",
			history: []CheckIn{
				{Date: "2024-06-01", SmokeFree: true},
				{Date: "2024-06-02", SmokeFree: true},
				{Date: "2024-06-09", SmokeFree: true},
				{Date: "2024-06-10", SmokeFree: true},
			},
			today:       "2024-06-10",
			wantCurrent: 2, wantLongest: 2,
		},
		{
			name: "old streak longer than current",
			history: []CheckIn{
				{Date: "2024-06-01", SmokeFree: true},
				{Date: "2024-06-02", SmokeFree: true},
				{Date: "2024-06-03", SmokeFree: true},
				{Date: "2024-06-04", SmokeFree: false},
				{Date: "2024-06-10", SmokeFree: true},
			},
			today:       "2024-06-10",
			wantCurrent: 1, wantLongest: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, longest := ComputeStreaks(tt.history, day(tt.today))
			assert.Equal(t, tt.wantCurrent, current, "current")
			assert.Equal(t, tt.wantLongest, longest, "longest")
		})
	}
}

func TestMoneySaved(t *testing.T) {
	quit := day("2024-06-01")

	assert.InDelta(t, 10*0.5*8.0, MoneySaved(quit, day("2024-06-11"), 0.5, 8.0), 0.001)
	assert.Zero(t, MoneySaved(quit, day("2024-05-01"), 0.5, 8.0))
	assert.Zero(t, MoneySaved(quit, day("2024-06-11"), 0, 8.0))
	assert.Zero(t, MoneySaved(quit, day("2024-06-11"), 0.5, 0))
}
