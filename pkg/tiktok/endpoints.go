package tiktok

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the root of the web API
	DefaultBaseURL = "https://www.tiktok.com/api"

	// DefaultAID is the web application id expected by the API
	DefaultAID = "1988"

	// CommentListEndpoint lists the top-level comments of a video
	CommentListEndpoint = "/comment/list/"

	// ReplyListEndpoint lists the replies to one comment
	ReplyListEndpoint = "/comment/list/reply/"

	// DefaultPageSize is the number of comments requested per page
	DefaultPageSize = 50

	// MaxPageSize is the largest page the API serves
	MaxPageSize = 50
)

func clampPageSize(count int) int {
	if count <= 0 {
		return DefaultPageSize
	}
	if count > MaxPageSize {
		return MaxPageSize
	}
	return count
}

// CommentListURL builds the URL of one page of top-level comments
func CommentListURL(baseURL, aid, videoID string, cursor, count int) string {
	params := url.Values{}
	params.Set("aid", aid)
	params.Set("aweme_id", videoID)
	params.Set("count", strconv.Itoa(clampPageSize(count)))
	params.Set("cursor", strconv.Itoa(cursor))

	return fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), CommentListEndpoint, params.Encode())
}

// ReplyListURL builds the URL of one page of replies to commentID
func ReplyListURL(baseURL, aid, videoID, commentID string, cursor, count int) string {
	params := url.Values{}
	params.Set("aid", aid)
	params.Set("comment_id", commentID)
	params.Set("item_id", videoID)
	params.Set("count", strconv.Itoa(clampPageSize(count)))
	params.Set("cursor", strconv.Itoa(cursor))

	return fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), ReplyListEndpoint, params.Encode())
}
