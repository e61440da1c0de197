package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
	"tikscraper/pkg/config"
	errs "tikscraper/pkg/errors"
	"tikscraper/pkg/logger"
	"tikscraper/pkg/models"
	"tikscraper/pkg/ratelimit"
	"tikscraper/pkg/retry"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// maxBodyPreview bounds the body excerpt logged when decoding fails
const maxBodyPreview = 200

// Page is one page of a comment listing
type Page struct {
	Comments []models.CommentRecord
	HasMore  bool
	// Skipped counts records dropped for lacking a comment id
	Skipped int
}

// Client is a TikTok web API client. One Client holds the cookie session of
// a single run.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	aid        string
	proxy      string
	limiter    ratelimit.Limiter
	retry      *retry.Config
	logger     logger.Logger
}

// defaultTransport keeps connections pooled across the many small requests of
// a comment pass
func defaultTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}
}

// NewClient creates a client from the tiktok configuration section. Session
// cookies and the proxy are applied when configured.
func NewClient(cfg *config.TikTokConfig, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	aid := cfg.AID
	if aid == "" {
		aid = DefaultAID
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	c := &Client{
		httpClient: &http.Client{
			Jar:       jar,
			Timeout:   cfg.RequestTimeout,
			Transport: defaultTransport(),
		},
		headers: map[string]string{
			"User-Agent":      userAgent,
			"Accept":          "application/json, text/plain, */*",
			"Accept-Language": "en-US,en;q=0.9",
			"Referer":         "https://www.tiktok.com/",
		},
		baseURL: baseURL,
		aid:     aid,
		limiter: ratelimit.Unlimited{},
		retry:   &retry.Config{MaxAttempts: 1},
		logger:  log,
	}

	if err := c.SetProxy(cfg.Proxy); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, err, "invalid proxy %q", cfg.Proxy)
	}
	if err := c.SetSession(cfg.SessionID, cfg.MsToken); err != nil {
		return nil, err
	}
	return c, nil
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetLimiter sets the limiter consulted before every request
func (c *Client) SetLimiter(l ratelimit.Limiter) {
	if l == nil {
		l = ratelimit.Unlimited{}
	}
	c.limiter = l
}

// SetRetry sets how transient failures of a single request are retried.
// A nil config disables retries.
func (c *Client) SetRetry(cfg *retry.Config) {
	if cfg == nil {
		cfg = &retry.Config{MaxAttempts: 1}
	}
	if cfg.Logger == nil {
		cfg.Logger = c.logger
	}
	c.retry = cfg
}

// SetSession stores the sessionid and msToken cookies for the API host.
// Empty values are left out.
func (c *Client) SetSession(sessionID, msToken string) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, err, "invalid api base url %q", c.baseURL)
	}

	var cookies []*http.Cookie
	if sessionID != "" {
		cookies = append(cookies, &http.Cookie{Name: "sessionid", Value: sessionID, Path: "/"})
	}
	if msToken != "" {
		cookies = append(cookies, &http.Cookie{Name: "msToken", Value: msToken, Path: "/"})
	}
	if len(cookies) > 0 {
		c.httpClient.Jar.SetCookies(u, cookies)
		c.logger.DebugWithFields("session cookies set", map[string]interface{}{
			"host":    u.Host,
			"cookies": len(cookies),
		})
	}
	return nil
}

// SetProxy routes requests through an http, https or socks5 proxy. An empty
// address restores direct connections.
func (c *Client) SetProxy(proxyAddr string) error {
	if proxyAddr == "" {
		c.httpClient.Transport = defaultTransport()
		c.proxy = ""
		return nil
	}

	u, err := url.Parse(proxyAddr)
	if err != nil {
		return fmt.Errorf("parse proxy url: %w", err)
	}

	base := defaultTransport()
	switch u.Scheme {
	case "http", "https":
		base.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if u.User != nil {
			pass, _ := u.User.Password()
			auth = &proxy.Auth{User: u.User.Username(), Password: pass}
		}
		dialer, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
		if err != nil {
			return fmt.Errorf("socks5 proxy: %w", err)
		}
		dc, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return fmt.Errorf("socks5: context dialer not supported")
		}
		base.Proxy = nil
		base.DialContext = dc.DialContext
	default:
		return fmt.Errorf("unsupported proxy scheme: %s", u.Scheme)
	}

	c.httpClient.Transport = base
	c.proxy = proxyAddr
	return nil
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "request to %s failed", req.URL.Path)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// GetJSON performs a rate-limited GET and decodes the JSON body into target.
// Retryable failures are retried according to the client's retry config.
func (c *Client) GetJSON(ctx context.Context, rawURL string, target interface{}) error {
	return retry.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return c.getJSONOnce(ctx, rawURL, target)
	}, c.retry)
}

func (c *Client) getJSONOnce(ctx context.Context, rawURL string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: "failed to read response body",
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	// blocked sessions get an empty 200
	if len(body) == 0 {
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: "empty response body",
			Code:    resp.StatusCode,
		}
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > maxBodyPreview {
			preview = preview[:maxBodyPreview] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          rawURL,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: "failed to parse JSON",
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	return nil
}

// checkResponseStatus maps HTTP status codes onto typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", fields)
		return &errs.Error{Type: errs.ErrorTypeAuth, Message: "access denied", Code: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		c.logger.WarnWithFields("resource not found", fields)
		return &errs.Error{Type: errs.ErrorTypeNotFound, Message: "resource not found", Code: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded", fields)
		return &errs.Error{Type: errs.ErrorTypeRateLimit, Message: "rate limit exceeded", Code: resp.StatusCode}
	case resp.StatusCode >= 500:
		c.logger.ErrorWithFields("server error", fields)
		return &errs.Error{Type: errs.ErrorTypeServerError, Message: "server error", Code: resp.StatusCode}
	default:
		c.logger.ErrorWithFields("unexpected API error", fields)
		return &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, rawURL string) (*commentListResponse, error) {
	var body commentListResponse
	if err := c.GetJSON(ctx, rawURL, &body); err != nil {
		return nil, err
	}
	if body.StatusCode != 0 {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("api status %d: %s", body.StatusCode, body.StatusMsg),
		}
	}
	return &body, nil
}

// ListComments fetches one page of top-level comments of videoID
func (c *Client) ListComments(ctx context.Context, videoID string, cursor, count int) (*Page, error) {
	body, err := c.fetchPage(ctx, CommentListURL(c.baseURL, c.aid, videoID, cursor, count))
	if err != nil {
		return nil, err
	}
	page := toPage(body.Comments)
	page.HasMore = bool(body.HasMore)
	return page, nil
}

// ListReplies fetches one page of replies to commentID. The listing carries
// no reliable continuation flag, so HasMore is always true and callers stop
// on an empty page.
func (c *Client) ListReplies(ctx context.Context, videoID, commentID string, cursor, count int) (*Page, error) {
	body, err := c.fetchPage(ctx, ReplyListURL(c.baseURL, c.aid, videoID, commentID, cursor, count))
	if err != nil {
		return nil, err
	}
	page := toPage(body.Comments)
	page.HasMore = true
	return page, nil
}

func toPage(raw []rawComment) *Page {
	page := &Page{Comments: make([]models.CommentRecord, 0, len(raw))}
	for _, rc := range raw {
		rec, ok := toRecord(rc)
		if !ok {
			page.Skipped++
			continue
		}
		page.Comments = append(page.Comments, rec)
	}
	return page
}

// toRecord maps an API comment onto a CommentRecord. It reports false when
// the comment has no id.
func toRecord(rc rawComment) (models.CommentRecord, bool) {
	if rc.CID == "" {
		return models.CommentRecord{}, false
	}

	rec := models.CommentRecord{
		CommentID:  rc.CID,
		Username:   rc.User.UniqueID,
		Nickname:   rc.User.Nickname,
		Text:       rc.Text,
		ReplyTotal: nonNegative(rc.ReplyCommentTotal),
		LikeCount:  nonNegative(rc.DiggCount),
	}
	if len(rc.User.AvatarThumb.URLList) > 0 {
		rec.AvatarURL = rc.User.AvatarThumb.URLList[0]
	}
	if rc.CreateTime > 0 {
		t := time.Unix(rc.CreateTime, 0).UTC()
		rec.PostedAt = &t
	}
	return rec, true
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
