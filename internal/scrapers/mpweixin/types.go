package mpweixin

import (
	"encoding/json"
	"fmt"
	"time"

	"mpstats/internal/components/chrono"
)

// PlatformError is a non-zero `base_resp.ret` returned by the platform.
type PlatformError struct {
	Ret    int
	ErrMsg string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform returned ret=%d: %s", e.Ret, e.ErrMsg)
}

type BaseResp struct {
	Ret     int    `json:"ret"`
	ErrMsg  string `json:"errmsg"`
	WxToken int64  `json:"wxtoken"`
}

func (b BaseResp) err() error {
	if b.Ret == 0 {
		return nil
	}
	return &PlatformError{Ret: b.Ret, ErrMsg: b.ErrMsg}
}

// AppMsgStat is the engagement statistics of an article. ReadNum and LikeNum
// are nil when the platform omitted them.
type AppMsgStat struct {
	ReadNum     *int `json:"read_num"`
	LikeNum     *int `json:"like_num"`
	RealReadNum int  `json:"real_read_num"`
	IsLogin     bool `json:"is_login"`
	Liked       bool `json:"liked"`
	Show        bool `json:"show"`
	Ret         int  `json:"ret"`
}

// AppMsgExt is the payload of the getappmsgext endpoint. Raw holds the body
// exactly as it was received.
type AppMsgExt struct {
	AppMsgStat        *AppMsgStat       `json:"appmsgstat"`
	BaseResp          BaseResp          `json:"base_resp"`
	AdvertisementNum  int               `json:"advertisement_num"`
	AdvertisementInfo []json.RawMessage `json:"advertisement_info"`
	RewardHeadImgs    []json.RawMessage `json:"reward_head_imgs"`

	Raw json.RawMessage `json:"-"`
}

// Check inspects the payload for signs of an expired session or a platform
// error, nothing in the client calls it implicitly.
func (p AppMsgExt) Check() error {
	if err := p.BaseResp.err(); err != nil {
		return err
	}
	if p.AppMsgStat != nil && !p.AppMsgStat.IsLogin {
		return ErrAuthenticationExpired
	}
	return nil
}

type Reply struct {
	Content    string `json:"content"`
	CreateTime int64  `json:"create_time"`
	ReplyId    int64  `json:"reply_id"`
	LikeNum    int    `json:"reply_like_num"`
}

type Comment struct {
	Id           int64  `json:"id"`
	MyId         int64  `json:"my_id"`
	ContentId    string `json:"content_id"`
	NickName     string `json:"nick_name"`
	LogoUrl      string `json:"logo_url"`
	Content      string `json:"content"`
	CreateTime   int64  `json:"create_time"`
	LikeId       int64  `json:"like_id"`
	LikeNum      int    `json:"like_num"`
	LikeStatus   int    `json:"like_status"`
	IsFromFriend int    `json:"is_from_friend"`
	IsFromMe     int    `json:"is_from_me"`
	IsTop        int    `json:"is_top"`
	Reply        struct {
		ReplyList []Reply `json:"reply_list"`
	} `json:"reply"`
}

// Created returns the comment's creation time in the platform timezone.
func (c Comment) Created() time.Time {
	return chrono.FromUnix(c.CreateTime)
}

// CommentPage is the payload of the appmsg_comment endpoint. Raw holds the
// body exactly as it was received.
type CommentPage struct {
	BaseResp            BaseResp  `json:"base_resp"`
	Enabled             int       `json:"enabled"`
	ElectedComment      []Comment `json:"elected_comment"`
	ElectedCommentTotal int       `json:"elected_comment_total_cnt"`
	FriendComment       []Comment `json:"friend_comment"`
	MyComment           []Comment `json:"my_comment"`
	IsFans              int       `json:"is_fans"`
	NickName            string    `json:"nick_name"`
	LogoUrl             string    `json:"logo_url"`
	OnlyFansCanComment  bool      `json:"only_fans_can_comment"`

	Raw json.RawMessage `json:"-"`
}

// Check inspects the payload for a platform error, nothing in the client calls
// it implicitly.
func (p CommentPage) Check() error {
	return p.BaseResp.err()
}

// ArticlePage is what is scraped from the rendered article page.
type ArticlePage struct {
	CommentId string
	Title     string
	Account   string
}
