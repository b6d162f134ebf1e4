// client.go contains the requests against the platform's internal endpoints,
// page.go contains the scraping of the rendered article page.

package mpweixin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mpstats/internal/components/assert"
	"mpstats/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_get_page      = "client.get-page"
	report_client_get_appmsgext = "client.get-appmsgext"
	report_client_read_like_num = "client.read-like-num"
	report_client_get_comments  = "client.get-comments"
)

const (
	DefaultBaseUrl   = "https://" + Host
	DefaultUserAgent = "Mozilla/5.0 (Linux; Android 7.1.1; PRO 6 Build/NMF26O; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/57.0.2987.132 MQQBrowser/6.2 TBS/043909 Mobile Safari/537.36 MicroMessenger/6.6.5.1280(0x26060532) NetType/WIFI Language"

	// CommentPageSize is the number of comments requested, the endpoint is
	// never paginated past the first page.
	CommentPageSize = 100
)

// ClientOptions configures a Client. Token and Cookie come from a logged in
// browser session, the client never logs in by itself.
type ClientOptions struct {
	// Token is the appmsg_token of the session, it is sent as is so it must
	// already be url escaped.
	Token  string
	Cookie string

	// BaseUrl is where the internal endpoints are requested, defaults to DefaultBaseUrl.
	BaseUrl   string
	UserAgent string

	// Timeout bounds each request, 0 means no timeout besides the context.
	Timeout time.Duration
	// RequestsPerSecond rate limits the client, 0 means unlimited.
	RequestsPerSecond float64
	// BrowserTLS makes the TLS handshake look like a browser's.
	BrowserTLS bool
	// Transport replaces the http transport.
	Transport http.RoundTripper
	// Dump receives a rendering of every request and response.
	Dump telemetry.MessageOutput

	// LegacyEngagementParams sends the idx value as `sn` and the sn value as
	// `idx` to getappmsgext, the way older versions of this client did.
	LegacyEngagementParams bool
}

// Client fetches engagement data for articles on behalf of one session.
type Client struct {
	http      *resty.Client
	baseUrl   string
	token     string
	bodyFlags map[string]string
	legacy    bool

	tel telemetry.API
}

func NewClient(opts ClientOptions, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel, "tel")
	assert.NotNegative(opts.Timeout, "timeout")
	assert.NotNegative(opts.RequestsPerSecond, "requests per second")

	tel = telemetry.NewScopedAPI("mpweixin", tel)

	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	parsedBaseUrl, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsedBaseUrl.Scheme == "" || parsedBaseUrl.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseUrl)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	httpClient := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	if opts.Transport != nil {
		httpClient.SetTransport(opts.Transport)
	}
	if opts.BrowserTLS {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}

	httpClient.SetHeader("User-Agent", userAgent)
	if opts.Cookie != "" {
		httpClient.SetHeader("Cookie", opts.Cookie)
	}
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}

	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, tel, opts.Dump)

	return &Client{
		http:    httpClient,
		baseUrl: strings.TrimSuffix(parsedBaseUrl.String(), "/"),
		token:   opts.Token,
		bodyFlags: map[string]string{
			"is_only_read": "1",
			"is_temp_url":  "0",
		},
		legacy: opts.LegacyEngagementParams,
		tel:    tel,
	}, nil
}

// rawQuery joins key value pairs in order without escaping, every value used
// here was cut out of a url (or is a token copied from one) so it is already
// escaped.
func rawQuery(pairs ...string) string {
	if len(pairs)%2 != 0 {
		panic("rawQuery: odd number of arguments")
	}

	var out strings.Builder
	for i := 0; i < len(pairs); i += 2 {
		if i > 0 {
			out.WriteByte('&')
		}
		out.WriteString(pairs[i])
		out.WriteByte('=')
		out.WriteString(pairs[i+1])
	}
	return out.String()
}

func (c *Client) appMsgExtUrl(ref ArticleRef) string {
	sn, idx := ref.Sn, ref.Idx
	if c.legacy {
		sn, idx = ref.Idx, ref.Sn
	}
	return c.baseUrl + "/mp/getappmsgext?" + rawQuery(
		"__biz", ref.Biz,
		"mid", ref.Mid,
		"sn", sn,
		"idx", idx,
		"appmsg_token", c.token,
		"x5", "1",
	)
}

func (c *Client) commentUrl(ref ArticleRef, commentId string) string {
	return c.baseUrl + "/mp/appmsg_comment?" + rawQuery(
		"action", "getcomment",
		"__biz", ref.Biz,
		"idx", ref.Idx,
		"comment_id", commentId,
		"limit", strconv.Itoa(CommentPageSize),
		"appmsg_token", c.token,
	)
}

func decodeJson[T any](res *resty.Response, out *T) error {
	if res.IsError() {
		return fmt.Errorf("unexpected status %s", res.Status())
	}
	return json.Unmarshal(res.Body(), out)
}

// AppMsgExt fetches the engagement payload of an article.
func (c *Client) AppMsgExt(ctx context.Context, articleUrl string) (AppMsgExt, error) {
	ref, err := ParseArticleURL(articleUrl)
	if err != nil {
		return AppMsgExt{}, err
	}

	endpoint := c.appMsgExtUrl(ref)
	c.tel.ReportDebug(report_client_get_appmsgext, endpoint)

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(c.bodyFlags).
		Post(endpoint)
	if err != nil {
		c.tel.ReportBroken(
			report_client_get_appmsgext,
			fmt.Errorf("fetch: %w", err),
			ref.String(),
		)
		return AppMsgExt{}, fmt.Errorf("getappmsgext: %w", err)
	}

	var payload AppMsgExt
	err = decodeJson(res, &payload)
	if err != nil {
		c.tel.ReportBroken(
			report_client_get_appmsgext,
			fmt.Errorf("decode: %w", err),
			ref.String(),
		)
		return AppMsgExt{}, fmt.Errorf("getappmsgext: %w", err)
	}
	payload.Raw = res.Body()

	return payload, nil
}

// ReadLikeNum returns the read and like counts of an article. Every failure is
// reported as ErrInvalidArticle, the underlying error is still wrapped.
func (c *Client) ReadLikeNum(ctx context.Context, articleUrl string) (read, like int, err error) {
	invalid := func(err error) (int, int, error) {
		c.tel.ReportWarning(report_client_read_like_num, err)
		return 0, 0, fmt.Errorf("%w: %w", ErrInvalidArticle, err)
	}

	payload, err := c.AppMsgExt(ctx, articleUrl)
	if err != nil {
		return invalid(err)
	}
	stat := payload.AppMsgStat
	if stat == nil {
		return invalid(fmt.Errorf("payload has no appmsgstat"))
	}
	if stat.ReadNum == nil || stat.LikeNum == nil {
		return invalid(fmt.Errorf("appmsgstat has no read_num or like_num"))
	}

	return *stat.ReadNum, *stat.LikeNum, nil
}

// Comments fetches the first page of comments of an article, this costs an
// extra request to recover the article's comment id.
func (c *Client) Comments(ctx context.Context, articleUrl string) (CommentPage, error) {
	ref, err := ParseArticleURL(articleUrl)
	if err != nil {
		return CommentPage{}, err
	}
	commentId, err := c.CommentId(ctx, articleUrl)
	if err != nil {
		return CommentPage{}, err
	}

	endpoint := c.commentUrl(ref, commentId)
	c.tel.ReportDebug(report_client_get_comments, endpoint)

	res, err := c.http.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		c.tel.ReportBroken(
			report_client_get_comments,
			fmt.Errorf("fetch: %w", err),
			ref.String(),
		)
		return CommentPage{}, fmt.Errorf("appmsg_comment: %w", err)
	}

	var payload CommentPage
	err = decodeJson(res, &payload)
	if err != nil {
		c.tel.ReportBroken(
			report_client_get_comments,
			fmt.Errorf("decode: %w", err),
			ref.String(),
		)
		return CommentPage{}, fmt.Errorf("appmsg_comment: %w", err)
	}
	payload.Raw = res.Body()

	return payload, nil
}
