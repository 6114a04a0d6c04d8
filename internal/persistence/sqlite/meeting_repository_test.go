package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

func TestMeetingRepository(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)
	repo := NewMeetingRepository(pool)

	start := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	seedPendingMeeting(t, pool, "meeting-1", start)

	fetched, err := repo.GetMeeting(ctx, "meeting-1")
	if err != nil {
		t.Fatalf("GetMeeting failed: %v", err)
	}
	if fetched.Status != persistence.MeetingStatusPending {
		t.Fatalf("expected pending status, got %s", fetched.Status)
	}
	if !fetched.Start.Equal(start) || !fetched.End.Equal(start.Add(30*time.Minute)) {
		t.Fatalf("unexpected meeting window: %v - %v", fetched.Start, fetched.End)
	}
	if fetched.AssignedTo != nil || fetched.ExternalEventID != nil {
		t.Fatalf("new meeting should be unassigned: %#v", fetched)
	}

	if _, err := repo.GetMeeting(ctx, "ghost"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMeetingRepository_ListPendingOrdersByStart(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)
	repo := NewMeetingRepository(pool)

	base := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	seedPendingMeeting(t, pool, "meeting-late", base.Add(2*time.Hour))
	seedPendingMeeting(t, pool, "meeting-early", base)
	claimed := seedPendingMeeting(t, pool, "meeting-claimed", base.Add(time.Hour))

	seedMember(t, pool, "member-1", 0)
	if err := repo.ClaimMeeting(ctx, claimed.ID, "member-1"); err != nil {
		t.Fatalf("ClaimMeeting failed: %v", err)
	}

	pending, err := repo.ListPendingMeetings(ctx)
	if err != nil {
		t.Fatalf("ListPendingMeetings failed: %v", err)
	}

	wantIDs := []string{"meeting-early", "meeting-late"}
	if len(pending) != len(wantIDs) {
		t.Fatalf("expected %d pending meetings, got %d", len(wantIDs), len(pending))
	}
	for i, want := range wantIDs {
		if pending[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, pending[i].ID)
		}
	}
}

func TestMeetingRepository_ClaimMeeting(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)
	repo := NewMeetingRepository(pool)
	members := NewTeamMemberRepository(pool)

	start := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	seedPendingMeeting(t, pool, "meeting-1", start)
	seedMember(t, pool, "member-1", 2)

	if err := repo.ClaimMeeting(ctx, "meeting-1", "member-1"); err != nil {
		t.Fatalf("ClaimMeeting failed: %v", err)
	}

	meeting, err := repo.GetMeeting(ctx, "meeting-1")
	if err != nil {
		t.Fatalf("GetMeeting failed: %v", err)
	}
	if meeting.Status != persistence.MeetingStatusAssigned {
		t.Fatalf("expected assigned status, got %s", meeting.Status)
	}
	if meeting.AssignedTo == nil || *meeting.AssignedTo != "member-1" {
		t.Fatalf("unexpected assignee: %#v", meeting.AssignedTo)
	}

	member, err := members.GetTeamMember(ctx, "member-1")
	if err != nil {
		t.Fatalf("GetTeamMember failed: %v", err)
	}
	if member.MeetingCount != 3 {
		t.Fatalf("expected meeting count 3, got %d", member.MeetingCount)
	}

	// A second claim must fail without touching the counter again.
	if err := repo.ClaimMeeting(ctx, "meeting-1", "member-1"); !errors.Is(err, persistence.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	member, err = members.GetTeamMember(ctx, "member-1")
	if err != nil {
		t.Fatalf("GetTeamMember failed: %v", err)
	}
	if member.MeetingCount != 3 {
		t.Fatalf("meeting count changed on failed claim: %d", member.MeetingCount)
	}
}

func TestMeetingRepository_ClaimMeeting_NotFound(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)
	repo := NewMeetingRepository(pool)

	seedMember(t, pool, "member-1", 0)
	if err := repo.ClaimMeeting(ctx, "ghost", "member-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown meeting, got %v", err)
	}

	start := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	seedPendingMeeting(t, pool, "meeting-1", start)
	err := repo.ClaimMeeting(ctx, "meeting-1", "ghost")
	if !errors.Is(err, persistence.ErrNotFound) && !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected not found or foreign key violation for unknown member, got %v", err)
	}

	// The failed claim must roll back and leave the meeting claimable.
	meeting, getErr := repo.GetMeeting(ctx, "meeting-1")
	if getErr != nil {
		t.Fatalf("GetMeeting failed: %v", getErr)
	}
	if meeting.Status != persistence.MeetingStatusPending {
		t.Fatalf("expected meeting still pending after rollback, got %s", meeting.Status)
	}
}

func TestMeetingRepository_ClaimMeeting_Concurrent(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)
	repo := NewMeetingRepository(pool)
	members := NewTeamMemberRepository(pool)

	start := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	seedPendingMeeting(t, pool, "meeting-1", start)
	seedMember(t, pool, "member-1", 0)
	seedMember(t, pool, "member-2", 0)

	claimers := []string{"member-1", "member-2"}
	results := make([]error, len(claimers))

	var wg sync.WaitGroup
	for i, memberID := range claimers {
		wg.Add(1)
		go func(i int, memberID string) {
			defer wg.Done()
			results[i] = repo.ClaimMeeting(ctx, "meeting-1", memberID)
		}(i, memberID)
	}
	wg.Wait()

	var wins, conflicts int
	var winner string
	for i, err := range results {
		switch {
		case err == nil:
			wins++
			winner = claimers[i]
		case errors.Is(err, persistence.ErrAlreadyClaimed):
			conflicts++
		default:
			t.Fatalf("unexpected claim error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("expected exactly one winner, got %d wins and %d conflicts", wins, conflicts)
	}

	meeting, err := repo.GetMeeting(ctx, "meeting-1")
	if err != nil {
		t.Fatalf("GetMeeting failed: %v", err)
	}
	if meeting.AssignedTo == nil || *meeting.AssignedTo != winner {
		t.Fatalf("expected assignee %s, got %#v", winner, meeting.AssignedTo)
	}

	for _, memberID := range claimers {
		member, err := members.GetTeamMember(ctx, memberID)
		if err != nil {
			t.Fatalf("GetTeamMember failed: %v", err)
		}
		want := 0
		if memberID == winner {
			want = 1
		}
		if member.MeetingCount != want {
			t.Fatalf("member %s: expected meeting count %d, got %d", memberID, want, member.MeetingCount)
		}
	}
}

func TestMeetingRepository_SetExternalEventID(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)
	repo := NewMeetingRepository(pool)

	start := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	seedPendingMeeting(t, pool, "meeting-1", start)

	if err := repo.SetExternalEventID(ctx, "meeting-1", "evt-42"); err != nil {
		t.Fatalf("SetExternalEventID failed: %v", err)
	}

	meeting, err := repo.GetMeeting(ctx, "meeting-1")
	if err != nil {
		t.Fatalf("GetMeeting failed: %v", err)
	}
	if meeting.ExternalEventID == nil || *meeting.ExternalEventID != "evt-42" {
		t.Fatalf("unexpected external event id: %#v", meeting.ExternalEventID)
	}

	if err := repo.SetExternalEventID(ctx, "ghost", "evt-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
