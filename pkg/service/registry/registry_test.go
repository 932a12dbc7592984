package registry_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
	"github.com/stenolab/steno/pkg/repository/memory"
	"github.com/stenolab/steno/pkg/service/registry"
)

func TestConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("first user connection becomes primary", func(t *testing.T) {
		repo := memory.New()
		reg := registry.New(repo.Meeting())

		conn, err := reg.Connect(ctx, "meeting-1", "user-1")
		gt.NoError(t, err).Required()

		session, ok := reg.Session("meeting-1")
		gt.Bool(t, ok).True()
		gt.Bool(t, session.IsPrimary(conn.ID)).True()

		stored, err := repo.Meeting().Get(ctx, "meeting-1")
		gt.NoError(t, err).Required()
		gt.Value(t, stored.PrimaryConnectionID).Equal(conn.ID)
	})

	t.Run("second user connection stays non-primary", func(t *testing.T) {
		repo := memory.New()
		reg := registry.New(repo.Meeting())

		first, err := reg.Connect(ctx, "meeting-2", "user-1")
		gt.NoError(t, err).Required()
		second, err := reg.Connect(ctx, "meeting-2", "user-2")
		gt.NoError(t, err).Required()

		session, _ := reg.Session("meeting-2")
		gt.Bool(t, session.IsPrimary(first.ID)).True()
		gt.Bool(t, session.IsPrimary(second.ID)).False()
		gt.Number(t, reg.ConnectionCount("meeting-2")).Equal(2)
	})

	t.Run("sentinel user IDs never claim primary", func(t *testing.T) {
		repo := memory.New()
		reg := registry.New(repo.Meeting())

		for _, userID := range []types.UserID{"", "undefined", "null"} {
			conn, err := reg.Connect(ctx, "meeting-3", userID)
			gt.NoError(t, err).Required()

			session, _ := reg.Session("meeting-3")
			gt.Bool(t, session.IsPrimary(conn.ID)).False()
		}
	})

	t.Run("invalid meeting ID is rejected", func(t *testing.T) {
		repo := memory.New()
		reg := registry.New(repo.Meeting())

		for _, meetingID := range []types.MeetingID{"", "undefined", "null"} {
			_, err := reg.Connect(ctx, meetingID, "user-1")
			gt.Error(t, err)
		}
	})

	t.Run("exactly one primary under concurrent connects", func(t *testing.T) {
		repo := memory.New()
		reg := registry.New(repo.Meeting())

		const n = 16
		conns := make([]*model.Connection, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				conn, err := reg.Connect(ctx, "meeting-race", types.UserID(fmt.Sprintf("user-%d", i)))
				gt.NoError(t, err)
				conns[i] = conn
			}(i)
		}
		wg.Wait()

		session, ok := reg.Session("meeting-race")
		gt.Bool(t, ok).True()

		primaries := 0
		for _, conn := range conns {
			if session.IsPrimary(conn.ID) {
				primaries++
			}
		}
		gt.Number(t, primaries).Equal(1)

		stored, err := repo.Meeting().Get(ctx, "meeting-race")
		gt.NoError(t, err).Required()
		gt.Value(t, stored.PrimaryConnectionID).Equal(session.PrimaryConnectionID)
	})
}

func TestDisconnect(t *testing.T) {
	ctx := context.Background()

	t.Run("primary disconnect clears the slot without re-election", func(t *testing.T) {
		repo := memory.New()
		reg := registry.New(repo.Meeting())

		primary, err := reg.Connect(ctx, "meeting-1", "user-1")
		gt.NoError(t, err).Required()
		other, err := reg.Connect(ctx, "meeting-1", "user-2")
		gt.NoError(t, err).Required()

		reg.Disconnect(ctx, primary)

		session, ok := reg.Session("meeting-1")
		gt.Bool(t, ok).True()
		gt.Value(t, session.PrimaryConnectionID).Equal(types.ConnectionID(""))
		gt.Bool(t, session.IsPrimary(other.ID)).False()

		stored, err := repo.Meeting().Get(ctx, "meeting-1")
		gt.NoError(t, err).Required()
		gt.Value(t, stored.PrimaryConnectionID).Equal(types.ConnectionID(""))
	})

	t.Run("last disconnect drops the session", func(t *testing.T) {
		repo := memory.New()
		reg := registry.New(repo.Meeting())

		conn, err := reg.Connect(ctx, "meeting-2", "user-1")
		gt.NoError(t, err).Required()
		reg.Disconnect(ctx, conn)

		_, ok := reg.Session("meeting-2")
		gt.Bool(t, ok).False()

		// a reconnect after session GC claims primary again
		reconn, err := reg.Connect(ctx, "meeting-2", "user-1")
		gt.NoError(t, err).Required()
		session, _ := reg.Session("meeting-2")
		gt.Bool(t, session.IsPrimary(reconn.ID)).True()
	})
}

func TestAdoptPrimary(t *testing.T) {
	ctx := context.Background()

	t.Run("claim won after disconnect is released", func(t *testing.T) {
		repo := memory.New()
		reg := registry.New(repo.Meeting())

		_, err := repo.Meeting().Upsert(ctx, &model.Meeting{ID: "meeting-1"})
		gt.NoError(t, err).Required()

		// the connection won the store claim but is no longer registered,
		// as happens when it disconnects while the claim is in flight
		gone := &model.Connection{ID: types.NewConnectionID(), MeetingID: "meeting-1", UserID: "user-1"}
		claimed, err := repo.Meeting().ClaimPrimary(ctx, "meeting-1", gone.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, claimed).True()

		registry.AdoptPrimary(reg, ctx, gone)

		stored, err := repo.Meeting().Get(ctx, "meeting-1")
		gt.NoError(t, err).Required()
		gt.Value(t, stored.PrimaryConnectionID).Equal(types.ConnectionID(""))

		// the slot is free again for the next connection
		conn, err := reg.Connect(ctx, "meeting-1", "user-2")
		gt.NoError(t, err).Required()
		session, _ := reg.Session("meeting-1")
		gt.Bool(t, session.IsPrimary(conn.ID)).True()
	})

	t.Run("registered connection keeps the claim", func(t *testing.T) {
		repo := memory.New()
		reg := registry.New(repo.Meeting())

		conn, err := reg.Connect(ctx, "meeting-2", "user-1")
		gt.NoError(t, err).Required()

		stored, err := repo.Meeting().Get(ctx, "meeting-2")
		gt.NoError(t, err).Required()
		gt.Value(t, stored.PrimaryConnectionID).Equal(conn.ID)
	})
}

func TestAppendTranscript(t *testing.T) {
	ctx := context.Background()

	t.Run("primary appends accumulate in order", func(t *testing.T) {
		repo := memory.New()
		reg := registry.New(repo.Meeting())

		primary, err := reg.Connect(ctx, "meeting-1", "user-1")
		gt.NoError(t, err).Required()

		reg.AppendTranscript(ctx, "meeting-1", primary.ID, "hello ")
		reg.AppendTranscript(ctx, "meeting-1", primary.ID, "world")

		gt.Value(t, reg.GetTranscript("meeting-1")).Equal("hello world")

		stored, err := repo.Meeting().Get(ctx, "meeting-1")
		gt.NoError(t, err).Required()
		gt.Value(t, stored.Transcript).Equal("hello world")
	})

	t.Run("non-primary appends are dropped", func(t *testing.T) {
		repo := memory.New()
		reg := registry.New(repo.Meeting())

		_, err := reg.Connect(ctx, "meeting-2", "user-1")
		gt.NoError(t, err).Required()
		other, err := reg.Connect(ctx, "meeting-2", "user-2")
		gt.NoError(t, err).Required()

		reg.AppendTranscript(ctx, "meeting-2", other.ID, "should not appear")
		gt.Value(t, reg.GetTranscript("meeting-2")).Equal("")
	})

	t.Run("empty deltas are dropped", func(t *testing.T) {
		repo := memory.New()
		reg := registry.New(repo.Meeting())

		primary, err := reg.Connect(ctx, "meeting-3", "user-1")
		gt.NoError(t, err).Required()

		reg.AppendTranscript(ctx, "meeting-3", primary.ID, "")
		gt.Value(t, reg.GetTranscript("meeting-3")).Equal("")
	})

	t.Run("unknown meeting is a no-op", func(t *testing.T) {
		repo := memory.New()
		reg := registry.New(repo.Meeting())

		reg.AppendTranscript(ctx, "nope", "conn", "delta")
		gt.Value(t, reg.GetTranscript("nope")).Equal("")
	})
}
