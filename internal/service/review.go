package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/and161185/rideshare/internal/api"
	"github.com/and161185/rideshare/internal/convert"
	"github.com/and161185/rideshare/internal/model"
)

// ReviewService covers review creation and listing.
type ReviewService interface {
	// Create leaves a review for another participant of a ride.
	Create(ctx context.Context, in model.ReviewInput) (*model.Review, error)
	// List returns reviews matching f.
	List(ctx context.Context, f model.ReviewFilter) ([]model.Review, error)
	// Get returns one review.
	Get(ctx context.Context, id int64) (*model.Review, error)
	// ForUser lists reviews received by a user.
	ForUser(ctx context.Context, userID int64) ([]model.Review, error)
	// ForRide lists reviews left on a ride.
	ForRide(ctx context.Context, rideID int64) ([]model.Review, error)
}

type ReviewServiceImpl struct {
	api api.Doer
}

// NewReviewService constructs ReviewService.
func NewReviewService(d api.Doer) *ReviewServiceImpl { return &ReviewServiceImpl{api: d} }

func (s *ReviewServiceImpl) Create(ctx context.Context, in model.ReviewInput) (*model.Review, error) {
	if err := ValidateReview(in); err != nil {
		return nil, err
	}
	var out convert.Review
	if err := s.api.Do(ctx, api.Request{Method: http.MethodPost, Path: "/reviews/create/", Body: in}, &out); err != nil {
		return nil, err
	}
	return convert.ToReview(&out), nil
}

func (s *ReviewServiceImpl) List(ctx context.Context, f model.ReviewFilter) ([]model.Review, error) {
	q := url.Values{}
	if f.UserID > 0 {
		q.Set("user", strconv.FormatInt(f.UserID, 10))
	}
	if f.RideID > 0 {
		q.Set("ride", strconv.FormatInt(f.RideID, 10))
	}
	if f.ReviewerID > 0 {
		q.Set("reviewer", strconv.FormatInt(f.ReviewerID, 10))
	}
	return s.list(ctx, "/reviews/", q)
}

func (s *ReviewServiceImpl) Get(ctx context.Context, id int64) (*model.Review, error) {
	var out convert.Review
	if err := s.api.Do(ctx, api.Request{Method: http.MethodGet, Path: idPath("/reviews/", id, "")}, &out); err != nil {
		return nil, err
	}
	return convert.ToReview(&out), nil
}

func (s *ReviewServiceImpl) ForUser(ctx context.Context, userID int64) ([]model.Review, error) {
	return s.list(ctx, idPath("/reviews/user/", userID, ""), nil)
}

func (s *ReviewServiceImpl) ForRide(ctx context.Context, rideID int64) ([]model.Review, error) {
	return s.list(ctx, idPath("/reviews/ride/", rideID, ""), nil)
}

func (s *ReviewServiceImpl) list(ctx context.Context, path string, q url.Values) ([]model.Review, error) {
	out, err := list[convert.Review](ctx, s.api, path, q)
	if err != nil {
		return nil, err
	}
	return convert.ToReviews(out), nil
}
