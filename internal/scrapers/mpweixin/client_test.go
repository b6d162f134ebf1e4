package mpweixin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"mpstats/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

const (
	testArticleUrl = "https://mp.weixin.qq.com/s?__biz=MjM5NDU4ODI0NQ==&mid=1&idx=1&sn=deadbeef#rd"

	testPageHtml = `<!DOCTYPE html>
<html>
<head>
	<meta property="og:title" content="og title">
</head>
<body>
	<h1 class="rich_media_title" id="activity-name">
		A   title
	</h1>
	<a id="js_name">  Some account </a>
	<script>
		var appmsgid = "1";
		var comment_id = "123456789" * 1;
	</script>
</body>
</html>`

	testEngagementJson = `{
		"advertisement_num": 0,
		"advertisement_info": [],
		"appmsgstat": {"show": true, "is_login": true, "liked": false, "read_num": 288, "like_num": 12, "ret": 0, "real_read_num": 0},
		"comment_enabled": 1,
		"reward_head_imgs": [],
		"only_fans_can_comment": false,
		"is_ios_reward_open": 0,
		"base_resp": {"wxtoken": 777}
	}`

	testCommentJson = `{
		"base_resp": {"ret": 0, "errmsg": "ok"},
		"enabled": 1,
		"elected_comment": [
			{
				"id": 1,
				"my_id": 2,
				"nick_name": "reader",
				"content": "nice",
				"create_time": 1520098511,
				"content_id": "c1",
				"like_num": 4,
				"reply": {"reply_list": [{"content": "thanks", "create_time": 1520098600, "reply_id": 1, "reply_like_num": 1}]}
			},
			{"id": 3, "nick_name": "other", "content": "meh", "create_time": 1520098700}
		],
		"elected_comment_total_cnt": 2,
		"friend_comment": [],
		"is_fans": 1
	}`
)

// rewriteTransport sends every request to target regardless of its host and
// counts the requests it sent.
type rewriteTransport struct {
	target *url.URL
	calls  atomic.Int64
}

func (r *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.calls.Add(1)
	clone := req.Clone(req.Context())
	clone.URL.Scheme = r.target.Scheme
	clone.URL.Host = r.target.Host
	clone.Host = ""
	return http.DefaultTransport.RoundTrip(clone)
}

type capturedRequest struct {
	method   string
	path     string
	rawQuery string
	header   http.Header
	form     url.Values
}

type fakePlatform struct {
	page       string
	engagement string
	comments   string
	// redirect, if set, is where the article page redirects to
	redirect string

	mutex    sync.Mutex
	requests []capturedRequest
}

func (f *fakePlatform) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()

	f.mutex.Lock()
	f.requests = append(f.requests, capturedRequest{
		method:   r.Method,
		path:     r.URL.Path,
		rawQuery: r.URL.RawQuery,
		header:   r.Header.Clone(),
		form:     r.PostForm,
	})
	f.mutex.Unlock()

	switch r.URL.Path {
	case "/s":
		if f.redirect != "" {
			http.Redirect(w, r, f.redirect, http.StatusFound)
			return
		}
		w.Header().Set("content-type", "text/html; charset=utf-8")
		w.Write([]byte(f.page))
	case "/security/verify":
		w.Header().Set("content-type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><p>please verify your identity</p></body></html>`))
	case "/mp/getappmsgext":
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(f.engagement))
	case "/mp/appmsg_comment":
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(f.comments))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakePlatform) captured() []capturedRequest {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]capturedRequest(nil), f.requests...)
}

func setupClient(t testing.TB, platform *fakePlatform, opts ClientOptions) (*Client, *rewriteTransport, *telemetry.Recorder) {
	server := httptest.NewServer(platform)
	t.Cleanup(server.Close)

	target, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	transport := &rewriteTransport{target: target}
	opts.Transport = transport

	recorder := telemetry.NewRecorder()
	client, err := NewClient(opts, recorder)
	if err != nil {
		t.Fatal(err)
	}
	return client, transport, recorder
}

func defaultPlatform() *fakePlatform {
	return &fakePlatform{
		page:       testPageHtml,
		engagement: testEngagementJson,
		comments:   testCommentJson,
	}
}

func TestMalformedURLMakesNoRequests(t *testing.T) {
	client, transport, _ := setupClient(t, defaultPlatform(), ClientOptions{Token: "tok1"})
	ctx := context.Background()

	badUrls := []string{
		"https://example.com/s?__biz=MjM5NDU4ODI0NQ==&mid=1&idx=1&sn=deadbeef",
		"https://mp.weixin.qq.com/s?__biz=MjM5NDU4ODI0NQ==&mid=1&idx=1",
		"",
	}
	for _, badUrl := range badUrls {
		_, _, err := client.ReadLikeNum(ctx, badUrl)
		require.ErrorIs(t, err, ErrInvalidArticle)
		require.ErrorIs(t, err, ErrMalformedURL)

		_, err = client.AppMsgExt(ctx, badUrl)
		require.ErrorIs(t, err, ErrMalformedURL)

		_, err = client.Comments(ctx, badUrl)
		require.ErrorIs(t, err, ErrMalformedURL)

		_, err = client.CommentId(ctx, badUrl)
		require.ErrorIs(t, err, ErrMalformedURL)
	}

	require.Equal(t, int64(0), transport.calls.Load())
}

func TestPage(t *testing.T) {
	platform := defaultPlatform()
	client, _, _ := setupClient(t, platform, ClientOptions{Cookie: "sess=abc"})

	page, err := client.Page(context.Background(), testArticleUrl)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, ArticlePage{
		CommentId: "123456789",
		Title:     "A title",
		Account:   "Some account",
	}, page)

	requests := platform.captured()
	require.Len(t, requests, 1)
	require.Equal(t, http.MethodPost, requests[0].method)
	require.Equal(t, "/s", requests[0].path)
	require.Equal(t, "1", requests[0].form.Get("is_only_read"))
	require.Equal(t, "0", requests[0].form.Get("is_temp_url"))
	require.Equal(t, DefaultUserAgent, requests[0].header.Get("User-Agent"))
	require.Equal(t, "sess=abc", requests[0].header.Get("Cookie"))
}

func TestPageFallbackTitle(t *testing.T) {
	platform := defaultPlatform()
	platform.page = `<html><head><meta property="og:title" content=" og  title "></head><body></body></html>`
	client, _, recorder := setupClient(t, platform, ClientOptions{})

	page, err := client.Page(context.Background(), testArticleUrl)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "og title", page.Title)
	require.Empty(t, page.CommentId)
	require.NotEmpty(t, recorder.Reports("warning"))
}

func TestCommentId(t *testing.T) {
	client, transport, _ := setupClient(t, defaultPlatform(), ClientOptions{})

	commentId, err := client.CommentId(context.Background(), testArticleUrl)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "123456789", commentId)
	require.Equal(t, int64(1), transport.calls.Load())
}

func TestCommentsWithoutCommentId(t *testing.T) {
	platform := defaultPlatform()
	platform.page = `<html><body><script>var appmsgid = "1";</script></body></html>`
	client, transport, _ := setupClient(t, platform, ClientOptions{Token: "tok1"})

	_, err := client.Comments(context.Background(), testArticleUrl)
	require.ErrorIs(t, err, ErrExtraction)
	require.ErrorIs(t, err, ErrCommentIdNotFound)

	// only the page was requested
	require.Equal(t, int64(1), transport.calls.Load())
	for _, req := range platform.captured() {
		require.NotEqual(t, "/mp/appmsg_comment", req.path)
	}
}

func TestCommentsAfterCrossDomainRedirect(t *testing.T) {
	platform := defaultPlatform()
	platform.redirect = "https://weixin110.qq.com/security/verify?url=" + url.QueryEscape(testArticleUrl)
	client, transport, _ := setupClient(t, platform, ClientOptions{Token: "tok1", Cookie: "sess=expired"})

	_, err := client.Comments(context.Background(), testArticleUrl)
	require.ErrorIs(t, err, ErrCommentIdNotFound)
	require.ErrorIs(t, err, ErrExtraction)

	// the page and the redirect target, never the comment endpoint
	require.Equal(t, int64(2), transport.calls.Load())
	requests := platform.captured()
	require.Len(t, requests, 2)
	require.Equal(t, "/security/verify", requests[1].path)
}

func TestReadLikeNum(t *testing.T) {
	platform := defaultPlatform()
	client, transport, _ := setupClient(t, platform, ClientOptions{
		Token:  "tok1",
		Cookie: "sess=abc",
	})

	read, like, err := client.ReadLikeNum(context.Background(), testArticleUrl)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 288, read)
	require.Equal(t, 12, like)
	require.Equal(t, int64(1), transport.calls.Load())

	requests := platform.captured()
	require.Len(t, requests, 1)
	req := requests[0]
	require.Equal(t, http.MethodPost, req.method)
	require.Equal(t, "/mp/getappmsgext", req.path)
	require.Equal(
		t,
		"__biz=MjM5NDU4ODI0NQ==&mid=1&sn=deadbeef&idx=1&appmsg_token=tok1&x5=1",
		req.rawQuery,
	)
	require.Equal(t, "1", req.form.Get("is_only_read"))
	require.Equal(t, "0", req.form.Get("is_temp_url"))
	require.Equal(t, "sess=abc", req.header.Get("Cookie"))
}

func TestLegacyEngagementParams(t *testing.T) {
	platform := defaultPlatform()
	client, _, _ := setupClient(t, platform, ClientOptions{
		Token:                  "tok1",
		LegacyEngagementParams: true,
	})

	_, err := client.AppMsgExt(context.Background(), testArticleUrl)
	if err != nil {
		t.Fatal(err)
	}

	requests := platform.captured()
	require.Len(t, requests, 1)
	query, err := url.ParseQuery(requests[0].rawQuery)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "1", query.Get("sn"))
	require.Equal(t, "deadbeef", query.Get("idx"))
}

func TestAppMsgExt(t *testing.T) {
	client, _, _ := setupClient(t, defaultPlatform(), ClientOptions{Token: "tok1"})

	payload, err := client.AppMsgExt(context.Background(), testArticleUrl)
	if err != nil {
		t.Fatal(err)
	}
	require.NotNil(t, payload.AppMsgStat)
	require.True(t, payload.AppMsgStat.IsLogin)
	require.Equal(t, int64(777), payload.BaseResp.WxToken)
	require.NoError(t, payload.Check())
	require.JSONEq(t, testEngagementJson, string(payload.Raw))
}

func TestReadLikeNumInvalid(t *testing.T) {
	testCases := []struct {
		name       string
		engagement string
	}{
		{"missing appmsgstat", `{"base_resp": {"ret": 0}}`},
		{"missing counts", `{"appmsgstat": {"show": true}}`},
		{"not json", `<html>not logged in</html>`},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			platform := defaultPlatform()
			platform.engagement = test.engagement
			client, _, recorder := setupClient(t, platform, ClientOptions{Token: "tok1"})

			_, _, err := client.ReadLikeNum(context.Background(), testArticleUrl)
			require.ErrorIs(t, err, ErrInvalidArticle)
			require.True(t, strings.HasPrefix(err.Error(), ErrInvalidArticle.Error()))
			require.NotEmpty(t, recorder.Reports("warning"))
		})
	}
}

func TestComments(t *testing.T) {
	platform := defaultPlatform()
	client, transport, _ := setupClient(t, platform, ClientOptions{
		Token:  "tok1",
		Cookie: "sess=abc",
	})

	comments, err := client.Comments(context.Background(), "https://mp.weixin.qq.com/s?__biz=MjM5NDU4ODI0NQ==&mid=1&idx=1&sn=deadbeef")
	if err != nil {
		t.Fatal(err)
	}
	require.NoError(t, comments.Check())
	require.Equal(t, 2, comments.ElectedCommentTotal)
	require.Len(t, comments.ElectedComment, 2)
	require.Equal(t, "reader", comments.ElectedComment[0].NickName)
	require.Equal(t, "thanks", comments.ElectedComment[0].Reply.ReplyList[0].Content)
	require.Equal(t, 2018, comments.ElectedComment[0].Created().Year())
	require.Equal(t, int64(2), transport.calls.Load())

	requests := platform.captured()
	require.Len(t, requests, 2)
	require.Equal(t, "/s", requests[0].path)

	req := requests[1]
	require.Equal(t, http.MethodGet, req.method)
	require.Equal(t, "/mp/appmsg_comment", req.path)
	require.Equal(
		t,
		"action=getcomment&__biz=MjM5NDU4ODI0NQ==&idx=1&comment_id=123456789&limit=100&appmsg_token=tok1",
		req.rawQuery,
	)
	require.Equal(t, "sess=abc", req.header.Get("Cookie"))
	require.Equal(t, DefaultUserAgent, req.header.Get("User-Agent"))
}

func TestPayloadCheck(t *testing.T) {
	platform := defaultPlatform()
	platform.engagement = `{"appmsgstat": {"is_login": false, "read_num": 0, "like_num": 0}}`
	platform.comments = `{"base_resp": {"ret": -3, "errmsg": "no session"}}`
	client, _, _ := setupClient(t, platform, ClientOptions{Token: "tok1"})
	ctx := context.Background()

	payload, err := client.AppMsgExt(ctx, testArticleUrl)
	if err != nil {
		t.Fatal(err)
	}
	require.ErrorIs(t, payload.Check(), ErrAuthenticationExpired)

	// the masked read/like path does not inspect the login state
	read, like, err := client.ReadLikeNum(ctx, testArticleUrl)
	require.NoError(t, err)
	require.Zero(t, read)
	require.Zero(t, like)

	comments, err := client.Comments(ctx, testArticleUrl)
	if err != nil {
		t.Fatal(err)
	}
	var platformErr *PlatformError
	require.ErrorAs(t, comments.Check(), &platformErr)
	require.Equal(t, -3, platformErr.Ret)
}

func TestUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)
	target, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}

	recorder := telemetry.NewRecorder()
	client, err := NewClient(ClientOptions{Transport: &rewriteTransport{target: target}}, recorder)
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.AppMsgExt(context.Background(), testArticleUrl)
	require.ErrorContains(t, err, "502")
	_, err = client.Page(context.Background(), testArticleUrl)
	require.ErrorContains(t, err, "502")
	require.NotEmpty(t, recorder.Reports("broken"))
}

func TestDumpAndRateLimit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	output, err := telemetry.NewFilesystemOutput(dir)
	if err != nil {
		t.Fatal(err)
	}

	client, transport, _ := setupClient(t, defaultPlatform(), ClientOptions{
		Token:             "tok1",
		RequestsPerSecond: 100,
		Timeout:           5e9,
		Dump:              output,
	})
	_, err = client.Comments(context.Background(), testArticleUrl)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, int64(2), transport.calls.Load())

	entries, err := os.ReadDir(output.Dir())
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, entries, 2)
}

func TestNewClientBaseUrl(t *testing.T) {
	_, err := NewClient(ClientOptions{BaseUrl: "/relative"}, telemetry.NewRecorder())
	require.Error(t, err)

	client, err := NewClient(ClientOptions{BaseUrl: "http://localhost:8080/"}, telemetry.NewRecorder())
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(
		t,
		"http://localhost:8080/mp/getappmsgext?__biz=b&mid=1&sn=s&idx=2&appmsg_token=&x5=1",
		client.appMsgExtUrl(ArticleRef{Biz: "b", Mid: "1", Idx: "2", Sn: "s"}),
	)
}
