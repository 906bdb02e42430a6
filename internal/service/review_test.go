package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/rideshare/internal/errs"
	"github.com/and161185/rideshare/internal/model"
)

func TestReviewService_CreateChecksRating(t *testing.T) {
	t.Parallel()

	d := newFakeDoer()
	_, err := NewReviewService(d).Create(context.Background(), model.ReviewInput{RideID: 1, RevieweeID: 2, Rating: 6})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, []string{"Rating must be between 1 and 5"}, errs.FieldErrors(err)["rating"])
	assert.Zero(t, d.count())
}

func TestReviewService(t *testing.T) {
	t.Parallel()

	d := newFakeDoer().
		on("POST", "/reviews/create/", `{"id":1,"ride":3,"reviewer":{"id":2},"reviewee":{"id":1},"rating":5,"comment":"great","created_at":"2030-01-02T00:00:00Z"}`).
		on("GET", "/reviews/user/1/", `[{"id":1,"ride_info":{"id":3,"origin":"NYC","destination":"Boston","departure_time":"2030-01-01T09:00:00Z"},"rating":5,"created_at":"2030-01-02T00:00:00Z"}]`).
		on("GET", "/reviews/", `[]`)
	svc := NewReviewService(d)
	ctx := context.Background()

	r, err := svc.Create(ctx, model.ReviewInput{RideID: 3, RevieweeID: 1, Rating: 5, Comment: "great"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.RideID)

	got, err := svc.ForUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].RideID)
	assert.Equal(t, "Boston", got[0].Ride.Destination)

	none, err := svc.List(ctx, model.ReviewFilter{UserID: 1, ReviewerID: 2})
	require.NoError(t, err)
	assert.Empty(t, none)
	q := d.last().Query
	assert.Equal(t, "1", q.Get("user"))
	assert.Equal(t, "2", q.Get("reviewer"))
	assert.False(t, q.Has("ride"))
}
