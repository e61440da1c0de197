// Package memory is an in-process store. Each transaction works on a private
// copy of the data that replaces the shared state on commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tikscraper/pkg/models"
	"tikscraper/pkg/store"
)

type state struct {
	groups   map[string]models.Group
	profiles map[string]models.Profile
	videos   map[string]models.Video
	comments map[string]models.Comment
	nextID   int64
}

func newState() *state {
	return &state{
		groups:   make(map[string]models.Group),
		profiles: make(map[string]models.Profile),
		videos:   make(map[string]models.Video),
		comments: make(map[string]models.Comment),
	}
}

func (s *state) clone() *state {
	c := &state{
		groups:   make(map[string]models.Group, len(s.groups)),
		profiles: make(map[string]models.Profile, len(s.profiles)),
		videos:   make(map[string]models.Video, len(s.videos)),
		comments: make(map[string]models.Comment, len(s.comments)),
		nextID:   s.nextID,
	}
	for k, v := range s.groups {
		c.groups[k] = v
	}
	for k, v := range s.profiles {
		v.Groups = append([]string(nil), v.Groups...)
		c.profiles[k] = v
	}
	for k, v := range s.videos {
		c.videos[k] = v
	}
	for k, v := range s.comments {
		c.comments[k] = v
	}
	return c
}

// Store is an in-memory store.Store
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	data    *state
	now     func() time.Time
}

var _ store.Store = (*Store)(nil)

// New creates an empty Store
func New() *Store {
	return &Store{data: newState(), now: time.Now}
}

// SetClock replaces the time source used for created/updated timestamps
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) current() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// WithTx serializes writers. Readers keep seeing the previous state until fn
// returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{data: s.current().clone(), now: s.now().UTC()}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = tx.data
	s.mu.Unlock()
	return nil
}

type memTx struct {
	data *state
	now  time.Time
}

func (t *memTx) id() int64 {
	t.data.nextID++
	return t.data.nextID
}

func (t *memTx) UpsertGroup(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("group name is required")
	}
	if _, ok := t.data.groups[name]; ok {
		return false, nil
	}
	t.data.groups[name] = models.Group{ID: t.id(), Name: name, CreatedAt: t.now, UpdatedAt: t.now}
	return true, nil
}

func (t *memTx) UpsertProfile(ctx context.Context, p store.ProfileUpsert) (bool, error) {
	if p.Username == "" {
		return false, fmt.Errorf("profile username is required")
	}
	if p.Group != "" {
		if _, ok := t.data.groups[p.Group]; !ok {
			return false, fmt.Errorf("unknown group %q", p.Group)
		}
	}

	existing, found := t.data.profiles[p.Username]
	if !found {
		existing = models.Profile{ID: t.id(), Username: p.Username, CreatedAt: t.now}
	}
	existing.Name = p.Name
	existing.ProfileURL = p.ProfileURL
	existing.UpdatedAt = t.now
	if p.Group != "" && !contains(existing.Groups, p.Group) {
		existing.Groups = append(existing.Groups, p.Group)
		sort.Strings(existing.Groups)
	}
	t.data.profiles[p.Username] = existing
	return !found, nil
}

func (t *memTx) UpsertVideo(ctx context.Context, v models.Video) (bool, error) {
	if v.VideoID == "" {
		return false, fmt.Errorf("video id is required")
	}
	if _, ok := t.data.profiles[v.ProfileUsername]; !ok {
		return false, fmt.Errorf("video %s: unknown profile %q", v.VideoID, v.ProfileUsername)
	}

	existing, found := t.data.videos[v.VideoID]
	if found {
		v.ID = existing.ID
		v.CreatedAt = existing.CreatedAt
	} else {
		v.ID = t.id()
		v.CreatedAt = t.now
	}
	v.UpdatedAt = t.now
	t.data.videos[v.VideoID] = v
	return !found, nil
}

func (t *memTx) UpsertComment(ctx context.Context, c models.Comment) (bool, error) {
	if c.CommentID == "" {
		return false, fmt.Errorf("comment id is required")
	}
	if _, ok := t.data.videos[c.VideoID]; !ok {
		return false, fmt.Errorf("comment %s: unknown video %q", c.CommentID, c.VideoID)
	}
	if c.ParentCommentID != "" {
		parent, ok := t.data.comments[c.ParentCommentID]
		if !ok || parent.VideoID != c.VideoID {
			return false, fmt.Errorf("comment %s: %w", c.CommentID, store.ErrParentMismatch)
		}
	}

	existing, found := t.data.comments[c.CommentID]
	if found {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	} else {
		c.ID = t.id()
		c.CreatedAt = t.now
	}
	c.UpdatedAt = t.now
	t.data.comments[c.CommentID] = c
	return !found, nil
}

func (s *Store) GetProfile(ctx context.Context, username string) (*models.Profile, error) {
	p, ok := s.current().profiles[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Groups = append([]string(nil), p.Groups...)
	return &p, nil
}

func (s *Store) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	v, ok := s.current().videos[videoID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &v, nil
}

func (s *Store) GetComment(ctx context.Context, commentID string) (*models.Comment, error) {
	c, ok := s.current().comments[commentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) ListVideos(ctx context.Context, filter store.VideoFilter) ([]models.Video, error) {
	var out []models.Video
	for _, v := range s.current().videos {
		if filter.Username != "" && v.ProfileUsername != filter.Username {
			continue
		}
		if filter.VideoID != "" && v.VideoID != filter.VideoID {
			continue
		}
		if !filter.Since.IsZero() && (v.PostedAt == nil || v.PostedAt.Before(filter.Since)) {
			continue
		}
		out = append(out, v)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].PostedAt, out[j].PostedAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return out[i].VideoID < out[j].VideoID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) ListComments(ctx context.Context, videoID string) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range s.current().comments {
		if c.VideoID == videoID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommentID < out[j].CommentID })
	return out, nil
}

func (s *Store) Snapshot(ctx context.Context) (*store.Snapshot, error) {
	data := s.current()
	snap := &store.Snapshot{}

	for _, g := range data.groups {
		snap.Groups = append(snap.Groups, g)
	}
	for _, p := range data.profiles {
		p.Groups = append([]string(nil), p.Groups...)
		snap.Profiles = append(snap.Profiles, p)
	}
	for _, v := range data.videos {
		snap.Videos = append(snap.Videos, v)
	}
	for _, c := range data.comments {
		snap.Comments = append(snap.Comments, c)
	}

	sort.Slice(snap.Groups, func(i, j int) bool { return snap.Groups[i].Name < snap.Groups[j].Name })
	sort.Slice(snap.Profiles, func(i, j int) bool { return snap.Profiles[i].Username < snap.Profiles[j].Username })
	sort.Slice(snap.Videos, func(i, j int) bool { return snap.Videos[i].VideoID < snap.Videos[j].VideoID })
	sort.Slice(snap.Comments, func(i, j int) bool { return snap.Comments[i].CommentID < snap.Comments[j].CommentID })
	return snap, nil
}

func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	data := s.current()
	return store.Stats{
		Groups:   len(data.groups),
		Profiles: len(data.profiles),
		Videos:   len(data.videos),
		Comments: len(data.comments),
	}, nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
