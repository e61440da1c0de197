package tiktok

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tikscraper/pkg/logger"
	"tikscraper/pkg/models"
)

// fakeAPI serves canned pages keyed by cursor
type fakeAPI struct {
	comments   map[int]*Page
	commentErr map[int]error
	replies    map[string][]*Page
	// replyErr fails the n-th reply request of a comment
	replyErr map[string]map[int]error

	commentCalls []int
	replyCalls   map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		comments:   map[int]*Page{},
		commentErr: map[int]error{},
		replies:    map[string][]*Page{},
		replyErr:   map[string]map[int]error{},
		replyCalls: map[string]int{},
	}
}

func (f *fakeAPI) ListComments(ctx context.Context, videoID string, cursor, count int) (*Page, error) {
	f.commentCalls = append(f.commentCalls, cursor)
	if err := f.commentErr[cursor]; err != nil {
		return nil, err
	}
	if p, ok := f.comments[cursor]; ok {
		return p, nil
	}
	return &Page{}, nil
}

func (f *fakeAPI) ListReplies(ctx context.Context, videoID, commentID string, cursor, count int) (*Page, error) {
	n := f.replyCalls[commentID]
	f.replyCalls[commentID] = n + 1
	if err := f.replyErr[commentID][n]; err != nil {
		return nil, err
	}
	pages := f.replies[commentID]
	if n < len(pages) {
		return pages[n], nil
	}
	return &Page{HasMore: true}, nil
}

func comment(id string, replyTotal int64) models.CommentRecord {
	return models.CommentRecord{CommentID: id, Text: "text " + id, ReplyTotal: replyTotal}
}

func testFetcher(api CommentAPI, log logger.Logger) *CommentFetcher {
	return NewCommentFetcher(api, FetcherOptions{PageSize: 2}, log)
}

func TestFetchCommentsPaginatesAndAttachesReplies(t *testing.T) {
	api := newFakeAPI()
	api.comments[0] = &Page{Comments: []models.CommentRecord{comment("c1", 3), comment("c2", 0)}, HasMore: true}
	api.comments[2] = &Page{Comments: []models.CommentRecord{comment("c3", 1)}, HasMore: false}
	api.replies["c1"] = []*Page{
		{Comments: []models.CommentRecord{comment("r1", 0), comment("r2", 0)}, HasMore: true},
		{Comments: []models.CommentRecord{comment("r3", 5)}, HasMore: true},
	}
	api.replies["c3"] = []*Page{
		{Comments: []models.CommentRecord{comment("r4", 0)}, HasMore: true},
	}

	comments, err := testFetcher(api, logger.NewNopLogger()).FetchComments(context.Background(), "v1")
	require.NoError(t, err)

	require.Len(t, comments, 3)
	assert.Equal(t, []int{0, 2}, api.commentCalls)

	assert.Equal(t, "c1", comments[0].CommentID)
	require.Len(t, comments[0].Replies, 3)
	assert.Equal(t, "r3", comments[0].Replies[2].CommentID)
	assert.Nil(t, comments[0].Replies[2].Replies, "replies are not expanded")

	assert.Empty(t, comments[1].Replies)
	assert.Equal(t, 0, api.replyCalls["c2"], "no reply request without a reply total")

	require.Len(t, comments[2].Replies, 1)
	// two non-empty pages then the terminating empty page
	assert.Equal(t, 3, api.replyCalls["c1"])
	assert.Equal(t, 2, api.replyCalls["c3"])
}

func TestFetchCommentsStopsOnEmptyPageDespiteHasMore(t *testing.T) {
	api := newFakeAPI()
	api.comments[0] = &Page{Comments: []models.CommentRecord{comment("c1", 0)}, HasMore: true}
	api.comments[2] = &Page{HasMore: true}

	comments, err := testFetcher(api, logger.NewNopLogger()).FetchComments(context.Background(), "v1")
	require.NoError(t, err)
	assert.Len(t, comments, 1)
	assert.Equal(t, []int{0, 2}, api.commentCalls)
}

func TestFetchCommentsKeepsPartialResultsOnPageError(t *testing.T) {
	api := newFakeAPI()
	api.comments[0] = &Page{Comments: []models.CommentRecord{comment("c1", 0), comment("c2", 0)}, HasMore: true}
	api.commentErr[2] = errors.New("connection reset")
	api.comments[4] = &Page{Comments: []models.CommentRecord{comment("c9", 0)}}

	log := logger.NewTestLogger()
	comments, err := testFetcher(api, log).FetchComments(context.Background(), "v1")
	require.NoError(t, err)

	assert.Len(t, comments, 2)
	assert.Equal(t, []int{0, 2}, api.commentCalls, "a failed page ends the listing")
	assert.True(t, log.HasMessage("comment page failed"))
}

func TestFetchCommentsReplyErrorKeepsParent(t *testing.T) {
	api := newFakeAPI()
	api.comments[0] = &Page{Comments: []models.CommentRecord{comment("c1", 4)}}
	api.replies["c1"] = []*Page{
		{Comments: []models.CommentRecord{comment("r1", 0)}, HasMore: true},
	}
	api.replyErr["c1"] = map[int]error{1: fmt.Errorf("boom")}

	log := logger.NewTestLogger()
	comments, err := testFetcher(api, log).FetchComments(context.Background(), "v1")
	require.NoError(t, err)

	require.Len(t, comments, 1)
	assert.Equal(t, "c1", comments[0].CommentID)
	require.Len(t, comments[0].Replies, 1)
	assert.Equal(t, "r1", comments[0].Replies[0].CommentID)
	assert.True(t, log.HasMessage("reply page failed"))
}

func TestFetchCommentsFirstReplyPageFailure(t *testing.T) {
	api := newFakeAPI()
	api.comments[0] = &Page{Comments: []models.CommentRecord{comment("c1", 2), comment("c2", 1)}}
	api.replyErr["c1"] = map[int]error{0: errors.New("429 too many requests")}
	api.replies["c2"] = []*Page{
		{Comments: []models.CommentRecord{comment("r1", 0)}, HasMore: true},
	}

	log := logger.NewTestLogger()
	comments, err := testFetcher(api, log).FetchComments(context.Background(), "v1")
	require.NoError(t, err)

	require.Len(t, comments, 2)
	assert.Equal(t, "c1", comments[0].CommentID)
	assert.Empty(t, comments[0].Replies)
	require.Len(t, comments[1].Replies, 1)
	assert.Equal(t, "r1", comments[1].Replies[0].CommentID)
	assert.Equal(t, map[string]int{"c1": 1, "c2": 2}, api.replyCalls)
	assert.True(t, log.HasMessage("reply page failed"))
}

func TestFetchCommentsFirstPageFailure(t *testing.T) {
	api := newFakeAPI()
	api.commentErr[0] = errors.New("503")

	comments, err := testFetcher(api, logger.NewNopLogger()).FetchComments(context.Background(), "v1")
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestFetchCommentsReportsSkippedRecords(t *testing.T) {
	api := newFakeAPI()
	api.comments[0] = &Page{Comments: []models.CommentRecord{comment("c1", 0)}, Skipped: 2}

	log := logger.NewTestLogger()
	_, err := testFetcher(api, log).FetchComments(context.Background(), "v1")
	require.NoError(t, err)

	warns := log.GetMessagesByLevel("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, 2, warns[0].Fields["count"])
	assert.Equal(t, "v1", warns[0].Fields["video_id"])
}

func TestFetchCommentsContinuesPastPageOfSkippedRecords(t *testing.T) {
	api := newFakeAPI()
	api.comments[0] = &Page{Skipped: 2, HasMore: true}
	api.comments[2] = &Page{Comments: []models.CommentRecord{comment("c3", 0)}}

	comments, err := testFetcher(api, logger.NewNopLogger()).FetchComments(context.Background(), "v1")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "c3", comments[0].CommentID)
	assert.Equal(t, []int{0, 2}, api.commentCalls)
}

func TestNewCommentFetcherClampsPageSize(t *testing.T) {
	api := newFakeAPI()
	api.comments[0] = &Page{Comments: []models.CommentRecord{comment("c1", 0)}, HasMore: true}

	f := NewCommentFetcher(api, FetcherOptions{PageSize: 100}, logger.NewNopLogger())
	assert.Equal(t, MaxPageSize, f.opts.PageSize)

	_, err := f.FetchComments(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, []int{0, MaxPageSize}, api.commentCalls)

	assert.Equal(t, DefaultPageSize, NewCommentFetcher(api, FetcherOptions{}, nil).opts.PageSize)
}

func TestFetchCommentsCancelled(t *testing.T) {
	api := newFakeAPI()
	api.comments[0] = &Page{Comments: []models.CommentRecord{comment("c1", 0)}, HasMore: true}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewCommentFetcher(api, FetcherOptions{PageSize: 1}, logger.NewNopLogger())
	_, err := f.FetchComments(ctx, "v1")
	assert.ErrorIs(t, err, context.Canceled)
}
