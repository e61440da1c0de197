// Package tiktok talks to the public TikTok web API to list the comments of a
// video and the replies to each comment.
//
// The Client owns the HTTP session (headers, cookie jar, optional proxy) and
// maps HTTP failures onto typed errors. CommentFetcher walks both comment
// listings page by page and assembles a two-level comment tree:
//
//	client, err := tiktok.NewClient(&cfg.TikTok, log)
//	fetcher := tiktok.NewCommentFetcher(client, tiktok.FetcherOptions{
//		PageSize:       50,
//		PageDelay:      time.Second,
//		ReplyPageDelay: 500 * time.Millisecond,
//	}, log)
//	comments, err := fetcher.FetchComments(ctx, videoID)
//
// A failing page ends its listing early; whatever was collected up to that
// point is returned.
package tiktok
