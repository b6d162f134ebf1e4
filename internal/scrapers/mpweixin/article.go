package mpweixin

import (
	"errors"
	"fmt"
	"strings"
)

// Host is the hostname of both the article pages and the internal endpoints.
const Host = "mp.weixin.qq.com"

var (
	ErrMalformedURL = errors.New("malformed article url")
	// ErrExtraction is returned when a value expected in a fetched page is missing.
	ErrExtraction = errors.New("extraction failed")
	// ErrCommentIdNotFound is returned when an article page does not contain a
	// comment id, usually because comments are disabled or the session expired.
	ErrCommentIdNotFound = fmt.Errorf("%w: comment_id not found in article page", ErrExtraction)
	// ErrInvalidArticle is the single error ReadLikeNum reduces every failure to.
	ErrInvalidArticle = errors.New("params is error, please check your article url")
	// ErrAuthenticationExpired is returned by the Check methods of the payloads
	// when the platform says the session is not logged in.
	ErrAuthenticationExpired = errors.New("authentication expired, refresh the cookie and appmsg_token")
)

var requiredMarkers = []string{Host, "__biz", "mid", "sn", "idx"}

// ValidateArticleURL checks that the url textually contains the platform host
// and the names of the four identifying query parameters. It does not check
// that the values are well formed.
func ValidateArticleURL(articleUrl string) error {
	for _, marker := range requiredMarkers {
		if !strings.Contains(articleUrl, marker) {
			return fmt.Errorf("%w: missing %q", ErrMalformedURL, marker)
		}
	}
	return nil
}

// ArticleRef is the set of identifiers that address one published article.
type ArticleRef struct {
	Biz string
	Mid string
	Idx string
	Sn  string
}

func (r ArticleRef) String() string {
	return fmt.Sprintf("__biz=%s&mid=%s&idx=%s&sn=%s", r.Biz, r.Mid, r.Idx, r.Sn)
}

// URL renders the canonical article url for the ref.
func (r ArticleRef) URL() string {
	return fmt.Sprintf("https://%s/s?%s", Host, r.String())
}

// ParseArticleURL extracts the article identifiers from an article url.
//
// The values are taken positionally from the first four query segments in the
// platform's canonical order (__biz, mid, idx, sn) and are kept in their
// escaped form. Every `=` after the first in a segment belongs to the value.
// Segments after the fourth are ignored. A url fragment at the end of sn
// (ex. `#rd`) is removed.
func ParseArticleURL(articleUrl string) (ArticleRef, error) {
	err := ValidateArticleURL(articleUrl)
	if err != nil {
		return ArticleRef{}, err
	}

	_, query, found := strings.Cut(articleUrl, "?")
	if !found {
		return ArticleRef{}, fmt.Errorf("%w: no query string", ErrMalformedURL)
	}
	segments := strings.Split(query, "&")
	if len(segments) < 4 {
		return ArticleRef{}, fmt.Errorf(
			"%w: expected at least 4 query parameters, got %d",
			ErrMalformedURL, len(segments),
		)
	}

	var values [4]string
	for i := range values {
		_, value, found := strings.Cut(segments[i], "=")
		if !found {
			return ArticleRef{}, fmt.Errorf("%w: query segment %q has no value", ErrMalformedURL, segments[i])
		}
		values[i] = value
	}

	sn, _, _ := strings.Cut(values[3], "#")

	return ArticleRef{
		Biz: values[0],
		Mid: values[1],
		Idx: values[2],
		Sn:  sn,
	}, nil
}
