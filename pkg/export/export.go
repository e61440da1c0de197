// Package export writes the stored dataset to a timestamped JSON document.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tikscraper/pkg/logger"
	"tikscraper/pkg/models"
	"tikscraper/pkg/storage"
	"tikscraper/pkg/store"
)

// Document is the export file layout
type Document struct {
	ExportedAt time.Time        `json:"exported_at"`
	Statistics store.Stats      `json:"statistics"`
	Groups     []models.Group   `json:"groups"`
	Profiles   []models.Profile `json:"profiles"`
	Videos     []models.Video   `json:"videos"`
	Comments   []Comment        `json:"comments"`
}

// Comment is a stored comment with a nullable parent id
type Comment struct {
	CommentID       string     `json:"comment_id"`
	VideoID         string     `json:"video_id"`
	AuthorUsername  string     `json:"author_username"`
	AuthorNickname  string     `json:"author_nickname"`
	Content         string     `json:"content"`
	LikeCount       int64      `json:"like_count"`
	ReplyCount      int64      `json:"reply_count"`
	AvatarURL       string     `json:"avatar_url"`
	ParentCommentID *string    `json:"parent_comment_id"`
	PostedAt        *time.Time `json:"posted_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func commentFromModel(c models.Comment) Comment {
	out := Comment{
		CommentID:      c.CommentID,
		VideoID:        c.VideoID,
		AuthorUsername: c.AuthorUsername,
		AuthorNickname: c.AuthorNickname,
		Content:        c.Content,
		LikeCount:      c.LikeCount,
		ReplyCount:     c.ReplyCount,
		AvatarURL:      c.AvatarURL,
		PostedAt:       c.PostedAt,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.IsReply() {
		parent := c.ParentCommentID
		out.ParentCommentID = &parent
	}
	return out
}

// Result describes a written export
type Result struct {
	Path       string
	Statistics store.Stats
	Pruned     []string
}

// Exporter writes exports of a store into a directory
type Exporter struct {
	store  store.Store
	files  *storage.Manager
	keep   int
	logger logger.Logger
	now    func() time.Time
}

// New creates an Exporter. After each export only the keep newest files
// are left in the directory.
func New(s store.Store, files *storage.Manager, keep int, log logger.Logger) *Exporter {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Exporter{store: s, files: files, keep: keep, logger: log, now: time.Now}
}

// Build reads the whole store into a Document. Statistics are counted from
// the same snapshot, so they always match the lists.
func (e *Exporter) Build(ctx context.Context) (*Document, error) {
	snap, err := e.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}

	doc := &Document{
		ExportedAt: e.now().UTC(),
		Statistics: store.Stats{
			Groups:   len(snap.Groups),
			Profiles: len(snap.Profiles),
			Videos:   len(snap.Videos),
			Comments: len(snap.Comments),
		},
		Groups:   nonNil(snap.Groups),
		Profiles: nonNil(snap.Profiles),
		Videos:   nonNil(snap.Videos),
		Comments: make([]Comment, 0, len(snap.Comments)),
	}
	for _, c := range snap.Comments {
		doc.Comments = append(doc.Comments, commentFromModel(c))
	}
	return doc, nil
}

// Export writes a new export file and prunes old ones. A failed prune is
// logged; the new export is kept.
func (e *Exporter) Export(ctx context.Context) (*Result, error) {
	doc, err := e.Build(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	path, err := e.files.Save(bytes.NewReader(data), storage.FileName(doc.ExportedAt))
	if err != nil {
		return nil, err
	}

	result := &Result{Path: path, Statistics: doc.Statistics}
	result.Pruned, err = e.files.Prune(e.keep)
	if err != nil {
		e.logger.WithError(err).Warn("failed to prune old exports")
	}

	e.logger.InfoWithFields("export written", map[string]interface{}{
		"path":     path,
		"groups":   doc.Statistics.Groups,
		"profiles": doc.Statistics.Profiles,
		"videos":   doc.Statistics.Videos,
		"comments": doc.Statistics.Comments,
		"pruned":   len(result.Pruned),
	})
	return result, nil
}

// Latest returns the newest export in dir
func Latest(dir string) (string, error) {
	files, err := storage.NewManager(dir)
	if err != nil {
		return "", err
	}
	return files.Latest()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
