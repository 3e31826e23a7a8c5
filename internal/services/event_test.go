package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestcheckin/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestEventService_CreateEvent(t *testing.T) {
	date := time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		event   domain.Event
		wantErr string
	}{
		{name: "success", event: domain.Event{Name: " Gala ", Location: " Hall ", Date: date, OwnerID: "owner", Description: strPtr("  ")}},
		{name: "client id kept", event: domain.Event{ID: "0b8f5c36-1d0e-4d7f-9c3a-2f1e4b6a7c01", Name: "Gala", Location: "Hall", Date: date, OwnerID: "owner"}},
		{name: "no owner", event: domain.Event{Name: "Gala", Location: "Hall", Date: date}, wantErr: "owner"},
		{name: "no name", event: domain.Event{Name: " ", Location: "Hall", Date: date, OwnerID: "owner"}, wantErr: "name is required"},
		{name: "no location", event: domain.Event{Name: "Gala", Date: date, OwnerID: "owner"}, wantErr: "location is required"},
		{name: "no date", event: domain.Event{Name: "Gala", Location: "Hall", OwnerID: "owner"}, wantErr: "date is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			svc := NewEventService(s, testTimeout)
			event := tt.event
			clientID := event.ID

			err := svc.CreateEvent(context.Background(), &event)

			if tt.wantErr != "" {
				require.ErrorIs(t, err, domain.ErrInvalidInput)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Empty(t, s.events.byID)
				return
			}
			require.NoError(t, err)
			if clientID != "" {
				assert.Equal(t, clientID, event.ID)
			} else {
				_, perr := uuid.Parse(event.ID)
				assert.NoError(t, perr)
			}
			assert.Equal(t, "Gala", event.Name)
			assert.Equal(t, "Hall", event.Location)
			assert.Nil(t, event.Description)
			assert.False(t, event.CreatedAt.IsZero())
			stored, err := s.GetEvent(context.Background(), event.ID)
			require.NoError(t, err)
			assert.Equal(t, "owner", stored.OwnerID)
		})
	}
}

func TestEventService_Ownership(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	s.seedEvent("ev", "owner")
	svc := NewEventService(s, testTimeout)

	_, err := svc.GetEvent(ctx, "ev", "owner")
	assert.NoError(t, err)
	_, err = svc.GetEvent(ctx, "ev", "intruder")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.GetEvent(ctx, "missing", "owner")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteEvent(ctx, "ev", "intruder"), domain.ErrForbidden)
	_, err = svc.GetEventStats(ctx, "ev", "intruder")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	events, err := svc.ListEvents(ctx, "intruder")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventService_ReplaceEvent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	original := s.seedEvent("ev", "owner")
	svc := NewEventService(s, testTimeout)

	updated, err := svc.ReplaceEvent(ctx, &domain.Event{
		ID:       "ev",
		Name:     "Renamed",
		Location: "Roof",
		Date:     original.Date.Add(24 * time.Hour),
		OwnerID:  "someone-else",
	}, "owner")
	require.NoError(t, err)
	assert.Equal(t, "owner", updated.OwnerID)
	assert.True(t, updated.CreatedAt.Equal(original.CreatedAt))

	stored, err := s.GetEvent(ctx, "ev")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)
	assert.Equal(t, "Roof", stored.Location)

	_, err = svc.ReplaceEvent(ctx, &domain.Event{ID: "ev", Name: "", Location: "Roof", Date: original.Date}, "owner")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEventService_DeleteEvent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	s.seedEvent("ev", "owner")
	s.seedGuest("g1", "ev", "Ada", "code1")
	svc := NewEventService(s, testTimeout)

	require.NoError(t, svc.DeleteEvent(ctx, "ev", "owner"))
	assert.Empty(t, s.ListGuests(ctx, "ev"))
	assert.ErrorIs(t, svc.DeleteEvent(ctx, "ev", "owner"), domain.ErrNotFound)
}

func TestEventService_GetEventStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	s.seedEvent("ev", "owner")
	base := time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		g := s.seedGuest(fmt.Sprintf("g%d", i), "ev", fmt.Sprintf("Guest %d", i), fmt.Sprintf("code%d", i))
		if i < 6 {
			at := base.Add(time.Duration(i) * time.Minute)
			g.IsPresent = true
			g.CheckedInAt = &at
			s.guests.put(g)
		}
	}
	svc := NewEventService(s, testTimeout)

	stats, err := svc.GetEventStats(ctx, "ev", "owner")
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalGuests)
	assert.Equal(t, 6, stats.PresentGuests)
	assert.Equal(t, 1, stats.AbsentGuests)
	assert.Equal(t, 86, stats.AttendanceRate)
	require.Len(t, stats.RecentCheckIns, recentCheckInLimit)
	assert.Equal(t, "g5", stats.RecentCheckIns[0].ID)
	assert.Equal(t, "g1", stats.RecentCheckIns[4].ID)
}

func TestComputeStats(t *testing.T) {
	t.Run("no guests", func(t *testing.T) {
		stats := computeStats("ev", nil)
		assert.Zero(t, stats.TotalGuests)
		assert.Zero(t, stats.AttendanceRate)
		assert.NotNil(t, stats.RecentCheckIns)
	})

	t.Run("rounds to nearest percent", func(t *testing.T) {
		at := time.Now()
		stats := computeStats("ev", []*domain.Guest{
			{ID: "a", IsPresent: true, CheckedInAt: &at},
			{ID: "b", IsPresent: true, CheckedInAt: &at},
			{ID: "c"},
		})
		assert.Equal(t, 67, stats.AttendanceRate)
		assert.Equal(t, stats.TotalGuests, stats.PresentGuests+stats.AbsentGuests)
	})

	t.Run("present without timestamp is counted but not listed", func(t *testing.T) {
		stats := computeStats("ev", []*domain.Guest{{ID: "a", IsPresent: true}})
		assert.Equal(t, 100, stats.AttendanceRate)
		assert.Empty(t, stats.RecentCheckIns)
	})
}
