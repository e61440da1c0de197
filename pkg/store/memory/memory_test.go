package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tikscraper/pkg/models"
	"tikscraper/pkg/store"
)

func ts(day int) *time.Time {
	t := time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		ctx := context.Background()
		if _, err := tx.UpsertGroup(ctx, "news"); err != nil {
			return err
		}
		if _, err := tx.UpsertProfile(ctx, store.ProfileUpsert{Username: "alice", Name: "Alice", Group: "news"}); err != nil {
			return err
		}
		_, err := tx.UpsertVideo(ctx, models.Video{VideoID: "v1", ProfileUsername: "alice", PostedAt: ts(1)})
		return err
	})
	require.NoError(t, err)
}

func TestUpsertReportsCreatedThenUpdated(t *testing.T) {
	s := New()
	ctx := context.Background()

	var first, second []bool
	for _, dst := range []*[]bool{&first, &second} {
		dst := dst
		err := s.WithTx(ctx, func(tx store.Tx) error {
			g, err := tx.UpsertGroup(ctx, "news")
			require.NoError(t, err)
			p, err := tx.UpsertProfile(ctx, store.ProfileUpsert{Username: "alice", Name: "Alice", Group: "news"})
			require.NoError(t, err)
			v, err := tx.UpsertVideo(ctx, models.Video{VideoID: "v1", ProfileUsername: "alice", LikeCount: 3})
			require.NoError(t, err)
			c, err := tx.UpsertComment(ctx, models.Comment{CommentID: "c1", VideoID: "v1"})
			require.NoError(t, err)
			*dst = []bool{g, p, v, c}
			return nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, []bool{true, true, true, true}, first)
	assert.Equal(t, []bool{false, false, false, false}, second)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.Stats{Groups: 1, Profiles: 1, Videos: 1, Comments: 1}, stats)
}

func TestUpsertVideoOverwritesFields(t *testing.T) {
	s := New()
	clock := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return clock })
	seed(t, s)
	ctx := context.Background()

	before, err := s.GetVideo(ctx, "v1")
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.UpsertProfile(ctx, store.ProfileUpsert{Username: "bob"})
		require.NoError(t, err)
		_, err = tx.UpsertVideo(ctx, models.Video{VideoID: "v1", ProfileUsername: "bob", Description: "new", PlayCount: 9})
		return err
	}))

	after, err := s.GetVideo(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.Equal(t, "bob", after.ProfileUsername)
	assert.Equal(t, "new", after.Description)
	assert.Equal(t, int64(9), after.PlayCount)
	assert.Nil(t, after.PostedAt, "posted_at is overwritten too")
}

func TestProfileGroupMembershipIsAdditive(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		_, _ = tx.UpsertGroup(ctx, "comedy")
		_, err := tx.UpsertProfile(ctx, store.ProfileUpsert{Username: "alice", Name: "Alice B", ProfileURL: "https://www.tiktok.com/@alice", Group: "comedy"})
		return err
	}))
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.UpsertProfile(ctx, store.ProfileUpsert{Username: "alice", Name: "Alice C"})
		return err
	}))

	p, err := s.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"comedy", "news"}, p.Groups)
	assert.Equal(t, "Alice C", p.Name)
}

func TestFailedTransactionLeavesNoTrace(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.UpsertVideo(ctx, models.Video{VideoID: "v2", ProfileUsername: "alice"})
		require.NoError(t, err)
		_, err = tx.UpsertComment(ctx, models.Comment{CommentID: "c1", VideoID: "v2"})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetVideo(ctx, "v2")
	assert.ErrorIs(t, err, store.ErrNotFound)
	stats, _ := s.Stats(ctx)
	assert.Equal(t, 1, stats.Videos)
	assert.Equal(t, 0, stats.Comments)
}

func TestReadersDoNotSeeUncommittedWrites(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.UpsertVideo(ctx, models.Video{VideoID: "v2", ProfileUsername: "alice"})
		require.NoError(t, err)

		_, err = s.GetVideo(ctx, "v2")
		assert.ErrorIs(t, err, store.ErrNotFound)
		return nil
	}))

	_, err := s.GetVideo(ctx, "v2")
	assert.NoError(t, err)
}

func TestUpsertCommentParentRules(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.UpsertVideo(ctx, models.Video{VideoID: "v2", ProfileUsername: "alice"})
		require.NoError(t, err)
		_, err = tx.UpsertComment(ctx, models.Comment{CommentID: "c1", VideoID: "v1"})
		return err
	}))

	tests := []struct {
		name    string
		comment models.Comment
	}{
		{"missing parent", models.Comment{CommentID: "r1", VideoID: "v1", ParentCommentID: "nope"}},
		{"parent on another video", models.Comment{CommentID: "r2", VideoID: "v2", ParentCommentID: "c1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.WithTx(ctx, func(tx store.Tx) error {
				_, err := tx.UpsertComment(ctx, tt.comment)
				return err
			})
			assert.ErrorIs(t, err, store.ErrParentMismatch)
		})
	}

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.UpsertComment(ctx, models.Comment{CommentID: "r3", VideoID: "v1", ParentCommentID: "c1"})
		return err
	}))
	r, err := s.GetComment(ctx, "r3")
	require.NoError(t, err)
	assert.True(t, r.IsReply())
}

func TestUpsertRequiresOwners(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.UpsertVideo(ctx, models.Video{VideoID: "v1", ProfileUsername: "ghost"})
		return err
	})
	assert.Error(t, err)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.UpsertComment(ctx, models.Comment{CommentID: "c1", VideoID: "ghost"})
		return err
	})
	assert.Error(t, err)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.UpsertProfile(ctx, store.ProfileUpsert{Username: "alice", Group: "missing"})
		return err
	})
	assert.Error(t, err)
}

func TestListVideosOrderingAndFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		for _, u := range []string{"alice", "bob"} {
			if _, err := tx.UpsertProfile(ctx, store.ProfileUpsert{Username: u}); err != nil {
				return err
			}
		}
		videos := []models.Video{
			{VideoID: "a1", ProfileUsername: "alice", PostedAt: ts(1)},
			{VideoID: "a2", ProfileUsername: "alice", PostedAt: ts(5)},
			{VideoID: "a3", ProfileUsername: "alice"},
			{VideoID: "b1", ProfileUsername: "bob", PostedAt: ts(3)},
		}
		for _, v := range videos {
			if _, err := tx.UpsertVideo(ctx, v); err != nil {
				return err
			}
		}
		return nil
	}))

	ids := func(vs []models.Video) []string {
		out := []string{}
		for _, v := range vs {
			out = append(out, v.VideoID)
		}
		return out
	}

	all, err := s.ListVideos(ctx, store.VideoFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "b1", "a1", "a3"}, ids(all))

	alice, _ := s.ListVideos(ctx, store.VideoFilter{Username: "alice", Limit: 2})
	assert.Equal(t, []string{"a2", "a1"}, ids(alice))

	recent, _ := s.ListVideos(ctx, store.VideoFilter{Since: *ts(3)})
	assert.Equal(t, []string{"a2", "b1"}, ids(recent))

	one, _ := s.ListVideos(ctx, store.VideoFilter{VideoID: "b1"})
	assert.Equal(t, []string{"b1"}, ids(one))
}

func TestSnapshotIsSortedCopy(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Profiles, 1)
	snap.Profiles[0].Groups[0] = "mutated"

	p, _ := s.GetProfile(ctx, "alice")
	assert.Equal(t, []string{"news"}, p.Groups)
}

func TestWithTxHonoursCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.WithTx(ctx, func(tx store.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
