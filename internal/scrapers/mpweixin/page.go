package mpweixin

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"mpstats/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

var commentIdRegex = regexp.MustCompile(`comment_id = "(\d+)"`)

// firstText is the cleaned text of the first node in sel.
func firstText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return htmlutil.Clean(htmlutil.GetText(sel.Nodes[0]))
}

func parsePage(body []byte) (ArticlePage, error) {
	var page ArticlePage

	match := commentIdRegex.FindSubmatch(body)
	if match != nil {
		page.CommentId = string(match[1])
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return page, err
	}

	page.Title = firstText(doc.Find("#activity-name"))
	if page.Title == "" {
		title, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
		page.Title = htmlutil.Clean(title)
	}
	page.Account = firstText(doc.Find("#js_name"))
	if page.Account == "" {
		account, _ := doc.Find(`meta[property="og:article:author"]`).Attr("content")
		page.Account = htmlutil.Clean(account)
	}

	return page, nil
}

// Page fetches the article page the way the in-app browser does and scrapes
// it. A page without a comment id is not an error here, see CommentId.
func (c *Client) Page(ctx context.Context, articleUrl string) (ArticlePage, error) {
	err := ValidateArticleURL(articleUrl)
	if err != nil {
		return ArticlePage{}, err
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(c.bodyFlags).
		Post(articleUrl)
	if err != nil {
		c.tel.ReportBroken(
			report_client_get_page,
			fmt.Errorf("fetch: %w", err),
			articleUrl,
		)
		return ArticlePage{}, fmt.Errorf("article page: %w", err)
	}
	if res.IsError() {
		err := fmt.Errorf("article page: unexpected status %s", res.Status())
		c.tel.ReportBroken(report_client_get_page, err, articleUrl)
		return ArticlePage{}, err
	}

	page, err := parsePage(res.Body())
	if err != nil {
		// the comment id comes from the raw text so it survives a failed parse
		c.tel.ReportWarning(
			report_client_get_page,
			fmt.Errorf("parse html: %w", err),
			articleUrl,
		)
	}
	if page.CommentId == "" {
		c.tel.ReportWarning(report_client_get_page, ErrCommentIdNotFound, articleUrl)
	}

	return page, nil
}

// CommentId recovers the identifier of the article's comment thread from its
// page. It fails with ErrCommentIdNotFound when the page has none.
func (c *Client) CommentId(ctx context.Context, articleUrl string) (string, error) {
	page, err := c.Page(ctx, articleUrl)
	if err != nil {
		return "", err
	}
	if page.CommentId == "" {
		return "", ErrCommentIdNotFound
	}
	return page.CommentId, nil
}
