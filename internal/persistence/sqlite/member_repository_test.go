package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/meeting-scheduler/internal/persistence"
)

func TestTeamMemberRepository(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)
	repo := NewTeamMemberRepository(pool)

	now := time.Now().UTC().Truncate(time.Second)
	member := persistence.TeamMember{
		ID:        "member-1",
		Name:      "Alice",
		Email:     "Alice@Example.com",
		Active:    true,
		CreatedAt: now,
	}

	if err := repo.CreateTeamMember(ctx, member); err != nil {
		t.Fatalf("CreateTeamMember failed: %v", err)
	}

	fetched, err := repo.GetTeamMember(ctx, "member-1")
	if err != nil {
		t.Fatalf("GetTeamMember failed: %v", err)
	}
	if fetched.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", fetched.Email)
	}
	if !fetched.CreatedAt.Equal(now) {
		t.Fatalf("unexpected created_at: %v", fetched.CreatedAt)
	}
	if fetched.AccessToken != nil || fetched.CalendarSyncEnabled {
		t.Fatalf("new member should have no credential: %#v", fetched)
	}

	fetched, err = repo.GetTeamMemberByEmail(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetTeamMemberByEmail failed: %v", err)
	}
	if fetched.ID != "member-1" {
		t.Fatalf("unexpected member: %#v", fetched)
	}
}

func TestTeamMemberRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)
	repo := NewTeamMemberRepository(pool)

	seedMember(t, pool, "member-1", 0)

	duplicate := persistence.TeamMember{
		ID:     "member-2",
		Name:   "Impostor",
		Email:  "member-1@example.com",
		Active: true,
	}
	if err := repo.CreateTeamMember(ctx, duplicate); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestTeamMemberRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)
	repo := NewTeamMemberRepository(pool)

	if _, err := repo.GetTeamMember(ctx, "ghost"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetTeamMemberByEmail(ctx, "ghost@example.com"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateCalendarCredential(ctx, "ghost", "access", "refresh", "primary"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTeamMemberRepository_ListActiveOrdersByLoad(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)
	repo := NewTeamMemberRepository(pool)

	seedMember(t, pool, "member-c", 3)
	seedMember(t, pool, "member-b", 1)
	seedMember(t, pool, "member-a", 1)

	inactive := persistence.TeamMember{ID: "member-d", Name: "Gone", Email: "gone@example.com", Active: false}
	if err := repo.CreateTeamMember(ctx, inactive); err != nil {
		t.Fatalf("CreateTeamMember failed: %v", err)
	}

	members, err := repo.ListActiveTeamMembers(ctx)
	if err != nil {
		t.Fatalf("ListActiveTeamMembers failed: %v", err)
	}

	wantIDs := []string{"member-a", "member-b", "member-c"}
	if len(members) != len(wantIDs) {
		t.Fatalf("expected %d members, got %d", len(wantIDs), len(members))
	}
	for i, want := range wantIDs {
		if members[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, members[i].ID)
		}
	}
}

func TestTeamMemberRepository_CalendarCredential(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)
	repo := NewTeamMemberRepository(pool)

	seedMember(t, pool, "member-1", 0)
	seedMember(t, pool, "member-2", 0)

	if err := repo.UpdateCalendarCredential(ctx, "member-1", "access", "refresh", "primary"); err != nil {
		t.Fatalf("UpdateCalendarCredential failed: %v", err)
	}

	fetched, err := repo.GetTeamMember(ctx, "member-1")
	if err != nil {
		t.Fatalf("GetTeamMember failed: %v", err)
	}
	if fetched.AccessToken == nil || *fetched.AccessToken != "access" {
		t.Fatalf("expected stored access token, got %#v", fetched.AccessToken)
	}
	if !fetched.CalendarSyncEnabled {
		t.Fatal("expected calendar sync enabled after credential update")
	}

	calendarMembers, err := repo.ListCalendarMembers(ctx)
	if err != nil {
		t.Fatalf("ListCalendarMembers failed: %v", err)
	}
	if len(calendarMembers) != 1 || calendarMembers[0].ID != "member-1" {
		t.Fatalf("expected only member-1 with calendar sync, got %#v", calendarMembers)
	}
}
