package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stenolab/steno/pkg/domain/interfaces"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
	"github.com/stenolab/steno/pkg/repository/firestore"
	"github.com/stenolab/steno/pkg/repository/memory"
)

func newMeetingID() types.MeetingID {
	return types.MeetingID(fmt.Sprintf("meeting-%d", time.Now().UnixNano()))
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if databaseID == "" {
		t.Skip("TEST_FIRESTORE_DATABASE_ID not set")
	}

	ctx := context.Background()
	// Test data isolation comes from random IDs, not collection prefixes
	repo, err := firestore.New(ctx, projectID, databaseID)
	if err != nil {
		t.Fatalf("failed to create firestore repository: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close firestore repository: %v", err)
		}
	})
	return repo
}

func runMeetingRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Upsert creates and merges user IDs", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		meetingID := newMeetingID()

		created, err := repo.Meeting().Upsert(ctx, &model.Meeting{
			ID:      meetingID,
			UserIDs: []types.UserID{"user-a"},
		})
		if err != nil {
			t.Fatalf("failed to upsert meeting: %v", err)
		}
		if created.CreatedAt.IsZero() {
			t.Error("expected non-zero CreatedAt")
		}

		merged, err := repo.Meeting().Upsert(ctx, &model.Meeting{
			ID:      meetingID,
			UserIDs: []types.UserID{"user-a", "user-b"},
		})
		if err != nil {
			t.Fatalf("failed to re-upsert meeting: %v", err)
		}
		if len(merged.UserIDs) != 2 {
			t.Errorf("expected 2 user IDs after merge, got %v", merged.UserIDs)
		}
	})

	t.Run("Upsert rejects sentinel IDs", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, id := range []types.MeetingID{"", "undefined", "null"} {
			if _, err := repo.Meeting().Upsert(ctx, &model.Meeting{ID: id}); err == nil {
				t.Errorf("expected error for meeting ID %q", id)
			}
		}
	})

	t.Run("Get returns ErrNotFound for unknown meeting", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		_, err := repo.Meeting().Get(ctx, newMeetingID())
		if !errors.Is(err, types.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Update applies partial updates only", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		meetingID := newMeetingID()

		if _, err := repo.Meeting().Upsert(ctx, &model.Meeting{
			ID:         meetingID,
			Transcript: "original transcript",
		}); err != nil {
			t.Fatalf("failed to upsert meeting: %v", err)
		}

		summary := "the summary"
		failed := true
		errText := "exhausted retries"
		if err := repo.Meeting().Update(ctx, meetingID, &model.MeetingUpdate{
			Summary:             &summary,
			MemoryStorageFailed: &failed,
			MemoryStorageError:  &errText,
		}); err != nil {
			t.Fatalf("failed to update meeting: %v", err)
		}

		got, err := repo.Meeting().Get(ctx, meetingID)
		if err != nil {
			t.Fatalf("failed to get meeting: %v", err)
		}
		if got.Summary != summary {
			t.Errorf("expected Summary=%q, got %q", summary, got.Summary)
		}
		if got.Transcript != "original transcript" {
			t.Errorf("expected untouched transcript, got %q", got.Transcript)
		}
		if !got.MemoryStorageFailed || got.MemoryStorageError != errText {
			t.Errorf("expected failure flags set, got failed=%v error=%q", got.MemoryStorageFailed, got.MemoryStorageError)
		}
	})

	t.Run("Update on unknown meeting fails", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		url := "gs://bucket/whatever"
		err := repo.Meeting().Update(ctx, newMeetingID(), &model.MeetingUpdate{TranscriptURL: &url})
		if !errors.Is(err, types.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ClaimPrimary resolves to exactly one winner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		meetingID := newMeetingID()

		if _, err := repo.Meeting().Upsert(ctx, &model.Meeting{ID: meetingID}); err != nil {
			t.Fatalf("failed to upsert meeting: %v", err)
		}

		const claimers = 8
		var wg sync.WaitGroup
		winners := make([]bool, claimers)
		for i := 0; i < claimers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				claimed, err := repo.Meeting().ClaimPrimary(ctx, meetingID, types.NewConnectionID())
				if err != nil {
					t.Errorf("claim %d failed: %v", i, err)
					return
				}
				winners[i] = claimed
			}(i)
		}
		wg.Wait()

		won := 0
		for _, w := range winners {
			if w {
				won++
			}
		}
		if won != 1 {
			t.Errorf("expected exactly one winner, got %d", won)
		}
	})

	t.Run("ReleasePrimary clears only the holder", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		meetingID := newMeetingID()

		if _, err := repo.Meeting().Upsert(ctx, &model.Meeting{ID: meetingID}); err != nil {
			t.Fatalf("failed to upsert meeting: %v", err)
		}

		holder := types.NewConnectionID()
		claimed, err := repo.Meeting().ClaimPrimary(ctx, meetingID, holder)
		if err != nil || !claimed {
			t.Fatalf("expected claim to succeed, claimed=%v err=%v", claimed, err)
		}

		// release by a non-holder is a no-op
		if err := repo.Meeting().ReleasePrimary(ctx, meetingID, types.NewConnectionID()); err != nil {
			t.Fatalf("failed to release primary: %v", err)
		}
		got, err := repo.Meeting().Get(ctx, meetingID)
		if err != nil {
			t.Fatalf("failed to get meeting: %v", err)
		}
		if got.PrimaryConnectionID != holder {
			t.Errorf("expected holder to keep the slot, got %q", got.PrimaryConnectionID)
		}

		if err := repo.Meeting().ReleasePrimary(ctx, meetingID, holder); err != nil {
			t.Fatalf("failed to release primary: %v", err)
		}
		got, err = repo.Meeting().Get(ctx, meetingID)
		if err != nil {
			t.Fatalf("failed to get meeting: %v", err)
		}
		if got.PrimaryConnectionID != "" {
			t.Errorf("expected empty primary after release, got %q", got.PrimaryConnectionID)
		}

		// the slot is claimable again, no re-election happened meanwhile
		claimed, err = repo.Meeting().ClaimPrimary(ctx, meetingID, types.NewConnectionID())
		if err != nil || !claimed {
			t.Errorf("expected re-claim to succeed, claimed=%v err=%v", claimed, err)
		}
	})

	t.Run("Exists reflects upserts", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		meetingID := newMeetingID()

		exists, err := repo.Meeting().Exists(ctx, meetingID)
		if err != nil {
			t.Fatalf("failed to check existence: %v", err)
		}
		if exists {
			t.Error("expected meeting to be absent")
		}

		if _, err := repo.Meeting().Upsert(ctx, &model.Meeting{ID: meetingID}); err != nil {
			t.Fatalf("failed to upsert meeting: %v", err)
		}

		exists, err = repo.Meeting().Exists(ctx, meetingID)
		if err != nil {
			t.Fatalf("failed to check existence: %v", err)
		}
		if !exists {
			t.Error("expected meeting to exist")
		}
	})
}

func TestMemoryMeetingRepository(t *testing.T) {
	runMeetingRepositoryTest(t, func(t *testing.T) interfaces.Repository {
		return memory.New()
	})
}

func TestFirestoreMeetingRepository(t *testing.T) {
	runMeetingRepositoryTest(t, newFirestoreRepository)
}
