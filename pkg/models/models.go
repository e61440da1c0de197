package models

import "time"

// Group is a named collection of profiles from the input document
type Group struct {
	ID        int64     `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile is a TikTok account keyed by username
type Profile struct {
	ID             int64     `json:"-"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	ProfileURL     string    `json:"profile_url"`
	FullName       string    `json:"full_name"`
	Bio            string    `json:"bio"`
	FollowersCount int64     `json:"followers_count"`
	FollowingCount int64     `json:"following_count"`
	LikesCount     int64     `json:"likes_count"`
	Groups         []string  `json:"groups"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Video is a single post keyed by its TikTok video id
type Video struct {
	ID              int64      `json:"-"`
	VideoID         string     `json:"video_id"`
	ProfileUsername string     `json:"profile_username"`
	Description     string     `json:"description"`
	VideoURL        string     `json:"video_url"`
	PlayCount       int64      `json:"play_count"`
	LikeCount       int64      `json:"like_count"`
	CommentCount    int64      `json:"comment_count"`
	ShareCount      int64      `json:"share_count"`
	PostedAt        *time.Time `json:"posted_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Comment is a top-level comment or a reply. ParentCommentID is empty for
// top-level comments.
type Comment struct {
	ID              int64      `json:"-"`
	CommentID       string     `json:"comment_id"`
	VideoID         string     `json:"video_id"`
	AuthorUsername  string     `json:"author_username"`
	AuthorNickname  string     `json:"author_nickname"`
	Content         string     `json:"content"`
	LikeCount       int64      `json:"like_count"`
	ReplyCount      int64      `json:"reply_count"`
	AvatarURL       string     `json:"avatar_url"`
	ParentCommentID string     `json:"parent_comment_id"`
	PostedAt        *time.Time `json:"posted_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsReply reports whether the comment has a parent
func (c *Comment) IsReply() bool {
	return c.ParentCommentID != ""
}

// ProfileTarget is one profile descriptor from the input document
type ProfileTarget struct {
	Group    string
	URL      string
	Name     string
	Username string
}

// VideoRecord is a video as reported by the extraction tool
type VideoRecord struct {
	VideoID      string
	Title        string
	URL          string
	PlayCount    int64
	LikeCount    int64
	CommentCount int64
	ShareCount   int64
	PostedAt     *time.Time
}

// CommentRecord is a comment as returned by the comment API, with its
// flattened replies attached
type CommentRecord struct {
	CommentID  string
	Username   string
	Nickname   string
	Text       string
	PostedAt   *time.Time
	AvatarURL  string
	ReplyTotal int64
	LikeCount  int64
	Replies    []CommentRecord
}
