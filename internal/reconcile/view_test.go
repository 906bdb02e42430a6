package reconcile

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/rideshare/internal/errs"
)

func TestView_StaleResponseDiscarded(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	v := newView(Key{Kind: KindRideRequests}, func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
			return "old", nil
		}
		return "new", nil
	})

	done := make(chan error, 1)
	go func() { done <- v.Load(context.Background()) }()
	<-entered

	require.NoError(t, v.Load(context.Background()))
	close(release)
	require.NoError(t, <-done)

	got, ok := v.Data()
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestView_ClosedDiscardsInFlight(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	v := newView(Key{Kind: KindMyRides}, func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 42, nil
	})

	done := make(chan error, 1)
	go func() { done <- v.Load(context.Background()) }()
	<-started
	v.Close()
	close(release)
	require.NoError(t, <-done)

	_, ok := v.Data()
	assert.False(t, ok)
	require.ErrorIs(t, v.Load(context.Background()), errs.ErrClosed)
	v.Close()
}

func TestView_FailedLoadKeepsData(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	fail := false
	v := newView(Key{Kind: KindDashboard}, func(ctx context.Context) ([]int, error) {
		if fail {
			return nil, boom
		}
		return []int{1, 2}, nil
	})
	require.NoError(t, v.Load(context.Background()))
	fail = true
	require.ErrorIs(t, v.Load(context.Background()), boom)

	got, ok := v.Data()
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2}, got)
	require.ErrorIs(t, v.Err(), boom)
}

func TestAffected(t *testing.T) {
	t.Parallel()

	cases := []struct {
		action Action
		want   []Key
	}{
		{ActionAccept, []Key{{Kind: KindDashboard}, {Kind: KindRideRequests}, {Kind: KindRideBookings, RideID: 7}, {Kind: KindRideDetails, RideID: 7}}},
		{ActionDecline, []Key{{Kind: KindDashboard}, {Kind: KindRideRequests}, {Kind: KindRideBookings, RideID: 7}, {Kind: KindRideDetails, RideID: 7}}},
		{ActionCreateBooking, []Key{{Kind: KindRideDetails, RideID: 7}, {Kind: KindMyRides}, {Kind: KindRideBookings, RideID: 7}}},
		{ActionCancelBooking, []Key{{Kind: KindRideDetails, RideID: 7}, {Kind: KindMyRides}, {Kind: KindRideBookings, RideID: 7}}},
		{ActionCancelRide, []Key{{Kind: KindMyRides}, {Kind: KindDashboard}, {Kind: KindRideDetails, RideID: 7}}},
		{ActionUpdateRide, []Key{{Kind: KindMyRides}, {Kind: KindDashboard}, {Kind: KindRideDetails, RideID: 7}}},
		{ActionCreateReview, []Key{{Kind: KindRideDetails, RideID: 7}}},
	}
	for _, c := range cases {
		assert.ElementsMatchf(t, c.want, Affected(c.action, 7), "%s", c.action)
	}
	assert.Nil(t, Affected(Action("unknown"), 7))
}

func TestKey_Matches(t *testing.T) {
	t.Parallel()

	assert.True(t, Key{Kind: KindRideDetails, RideID: 3}.matches(Key{Kind: KindRideDetails, RideID: 3}))
	assert.False(t, Key{Kind: KindRideDetails, RideID: 3}.matches(Key{Kind: KindRideDetails, RideID: 4}))
	assert.True(t, Key{Kind: KindRideDetails}.matches(Key{Kind: KindRideDetails, RideID: 4}))
	assert.False(t, Key{Kind: KindMyRides}.matches(Key{Kind: KindDashboard}))
}

func TestActionError_Message(t *testing.T) {
	t.Parallel()

	server := &errs.APIError{Status: 400, Kind: errs.ErrValidation, Message: "Not enough seats available"}
	ae := actionError(ActionAccept, server)
	assert.Equal(t, "Not enough seats available", ae.Error())
	require.ErrorIs(t, ae, errs.ErrValidation)

	ae = actionError(ActionCancelRide, &errs.APIError{Status: 502, Kind: errs.ErrServer})
	assert.Equal(t, "Failed to cancel ride. Please try again.", ae.Message)
	assert.Equal(t, "Failed to book ride. Please try again.", GenericMessage(ActionCreateBooking))
}
