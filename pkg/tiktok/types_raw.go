package tiktok

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// commentListResponse is the body of both comment listings. The reply
// listing omits has_more.
type commentListResponse struct {
	StatusCode int          `json:"status_code"`
	StatusMsg  string       `json:"status_msg"`
	Comments   []rawComment `json:"comments"`
	HasMore    flexBool     `json:"has_more"`
	Cursor     int          `json:"cursor"`
	Total      int          `json:"total"`
}

type rawComment struct {
	CID               string       `json:"cid"`
	Text              string       `json:"text"`
	CreateTime        int64        `json:"create_time"`
	DiggCount         int64        `json:"digg_count"`
	ReplyCommentTotal int64        `json:"reply_comment_total"`
	User              rawUser      `json:"user"`
	ShareInfo         rawShareInfo `json:"share_info"`
}

type rawUser struct {
	UniqueID    string      `json:"unique_id"`
	Nickname    string      `json:"nickname"`
	AvatarThumb rawImageSet `json:"avatar_thumb"`
}

type rawImageSet struct {
	URLList []string `json:"url_list"`
}

type rawShareInfo struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// flexBool accepts 0/1 as well as true/false
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = false
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	n, err := strconv.ParseFloat(string(bytes.Trim(data, `"`)), 64)
	if err != nil {
		return err
	}
	*b = n != 0
	return nil
}
