package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"taskbot/model"
)

// runStoreContract exercises the TaskStore contract against any backend.
func runStoreContract(t *testing.T, s TaskStore) {
	ctx := context.Background()

	rec, err := model.NewTaskRecord("chan-1", "logo", 3, "50 USDC", "draw a logo", "", "role-1")
	require.NoError(t, err)

	t.Run("create and get", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, rec))

		got, err := s.Get(ctx, "chan-1")
		require.NoError(t, err)
		require.Equal(t, "logo", got.TaskName)
		require.Equal(t, model.StateOpen, got.State)
		require.NotNil(t, got.ApprovedParticipants)
	})

	t.Run("duplicate create", func(t *testing.T) {
		err := s.Create(ctx, rec)
		require.ErrorIs(t, err, model.ErrDuplicateChannel)
	})

	t.Run("invalid limit", func(t *testing.T) {
		bad := rec.Clone()
		bad.ChannelID = "chan-bad"
		bad.UserLimit = 0
		require.ErrorIs(t, s.Create(ctx, bad), model.ErrInvalidUserLimit)
	})

	t.Run("get absent", func(t *testing.T) {
		_, err := s.Get(ctx, "nope")
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("mutate applies atomically", func(t *testing.T) {
		updated, err := s.Mutate(ctx, "chan-1", func(r *model.TaskRecord) error {
			r.Approve("alice")
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 1, updated.ApprovedCount)

		got, err := s.Get(ctx, "chan-1")
		require.NoError(t, err)
		require.True(t, got.IsApproved("alice"))
	})

	t.Run("failed mutate leaves record unchanged", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := s.Mutate(ctx, "chan-1", func(r *model.TaskRecord) error {
			r.Approve("mallory")
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := s.Get(ctx, "chan-1")
		require.NoError(t, err)
		require.False(t, got.IsApproved("mallory"))
		require.Equal(t, 1, got.ApprovedCount)
	})

	t.Run("mutate absent", func(t *testing.T) {
		_, err := s.Mutate(ctx, "nope", func(*model.TaskRecord) error { return nil })
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, s.Remove(ctx, "chan-1"))
		_, err := s.Get(ctx, "chan-1")
		require.ErrorIs(t, err, model.ErrNotFound)
		require.NoError(t, s.Remove(ctx, "chan-1"))
	})
}

// runStoreConcurrency hammers Mutate from many goroutines; the guarded
// Approve inside fn must keep the count at the limit.
func runStoreConcurrency(t *testing.T, s TaskStore) {
	ctx := context.Background()

	rec, err := model.NewTaskRecord("chan-conc", "stress", 3, "x", "d", "", "role-1")
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, rec))

	users := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"}
	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			s.Mutate(ctx, "chan-conc", func(r *model.TaskRecord) error {
				r.Approve(user)
				return nil
			})
		}(u)
	}
	wg.Wait()

	got, err := s.Get(ctx, "chan-conc")
	require.NoError(t, err)
	require.Equal(t, 3, got.ApprovedCount)
	require.Equal(t, model.StateFull, got.State)
	require.Len(t, got.ApprovedParticipants, 3)
}
