package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"mpstats/internal/components/assert"
	"mpstats/internal/components/chrono"
	"mpstats/internal/components/db"
	"mpstats/internal/components/telemetry"
	"mpstats/internal/scrapers/mpweixin"

	"github.com/antzucaro/matchr"
)

const (
	report_db_query      = "db.query"
	report_fetch_stats   = "tracker.fetch-stats"
	report_track_all     = "tracker.track-all"
	report_tracked_count = "tracker.tracked-articles"
)

var ErrNotTracked = errors.New("article is not tracked")

// StatsAPI is the part of *mpweixin.Client the tracker uses.
type StatsAPI interface {
	Page(ctx context.Context, articleUrl string) (mpweixin.ArticlePage, error)
	ReadLikeNum(ctx context.Context, articleUrl string) (read, like int, err error)
	Comments(ctx context.Context, articleUrl string) (mpweixin.CommentPage, error)
}

// Tracker keeps a history of the engagement of a set of articles.
type Tracker struct {
	db     *db.Queries
	makeTx db.MakeTx
	stats  StatsAPI
	time   chrono.TimeAPI
	tel    telemetry.API
}

func New(
	db *db.Queries,
	makeTx db.MakeTx,
	stats StatsAPI,
	time chrono.TimeAPI,
	tel telemetry.API,
) Tracker {
	assert.NotNil(db, "db")
	assert.NotNil(makeTx, "makeTx")
	assert.NotNil(stats, "stats")
	assert.NotNil(time, "time")
	assert.NotNil(tel, "tel")

	tel = telemetry.NewScopedAPI("tracker", tel)

	return Tracker{
		db:     db,
		makeTx: makeTx,
		stats:  stats,
		time:   time,
		tel:    tel,
	}
}

type fetched struct {
	page         mpweixin.ArticlePage
	read         int
	like         int
	commentCount int
}

func (t Tracker) fetch(ctx context.Context, articleUrl string) (fetched, error) {
	page, err := t.stats.Page(ctx, articleUrl)
	if err != nil {
		t.tel.ReportBroken(report_fetch_stats, fmt.Errorf("page: %w", err), articleUrl)
		return fetched{}, err
	}

	read, like, err := t.stats.ReadLikeNum(ctx, articleUrl)
	if err != nil {
		t.tel.ReportBroken(report_fetch_stats, fmt.Errorf("read like num: %w", err), articleUrl)
		return fetched{}, err
	}

	commentCount := 0
	if page.CommentId != "" {
		comments, err := t.stats.Comments(ctx, articleUrl)
		if err != nil {
			t.tel.ReportBroken(report_fetch_stats, fmt.Errorf("comments: %w", err), articleUrl)
			return fetched{}, err
		}
		commentCount = comments.ElectedCommentTotal
	}

	return fetched{
		page:         page,
		read:         read,
		like:         like,
		commentCount: commentCount,
	}, nil
}

// Track registers the article if it is new and records a snapshot of its
// current engagement.
func (t Tracker) Track(ctx context.Context, articleUrl string) (db.EngagementSnapshot, error) {
	ref, err := mpweixin.ParseArticleURL(articleUrl)
	if err != nil {
		return db.EngagementSnapshot{}, err
	}

	stats, err := t.fetch(ctx, articleUrl)
	if err != nil {
		return db.EngagementSnapshot{}, err
	}
	now := t.time.Now()

	tx, discard, commit, err := t.makeTx()
	if err != nil {
		t.tel.ReportBroken(report_db_query, fmt.Errorf("make tx: %w", err))
		return db.EngagementSnapshot{}, err
	}
	defer discard()

	upsert := db.UpsertArticleParams{
		Biz:       ref.Biz,
		Mid:       ref.Mid,
		Idx:       ref.Idx,
		Sn:        ref.Sn,
		Url:       articleUrl,
		Title:     stats.page.Title,
		Account:   stats.page.Account,
		CreatedAt: now.Unix(),
	}
	articleId, err := tx.UpsertArticle(ctx, upsert)
	if err != nil {
		t.tel.ReportBroken(report_db_query, err, "UpsertArticle", upsert)
		return db.EngagementSnapshot{}, err
	}

	snapshot := db.EngagementSnapshot{
		ArticleID:    articleId,
		Time:         now.Unix(),
		ReadNum:      int64(stats.read),
		LikeNum:      int64(stats.like),
		CommentCount: int64(stats.commentCount),
	}
	err = tx.CreateSnapshot(ctx, snapshot)
	if err != nil {
		t.tel.ReportBroken(report_db_query, err, "CreateSnapshot", snapshot)
		return db.EngagementSnapshot{}, err
	}

	err = commit()
	if err != nil {
		t.tel.ReportBroken(report_db_query, fmt.Errorf("commit: %w", err))
		return db.EngagementSnapshot{}, err
	}
	return snapshot, nil
}

// TrackAll snapshots every tracked article one after the other. A failing
// article does not stop the others, every failure is returned joined.
func (t Tracker) TrackAll(ctx context.Context) error {
	articles, err := t.Articles(ctx)
	if err != nil {
		return err
	}
	t.tel.ReportCount(report_tracked_count, int64(len(articles)))

	var errs []error
	for _, article := range articles {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		_, err := t.Track(ctx, article.Url)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", article.Url, err))
		}
	}

	err = errors.Join(errs...)
	if err != nil {
		t.tel.ReportWarning(report_track_all, err)
	}
	return err
}

func (t Tracker) Articles(ctx context.Context) ([]db.Article, error) {
	articles, err := t.db.ListArticles(ctx)
	if err != nil {
		t.tel.ReportBroken(report_db_query, err, "ListArticles")
		return nil, err
	}
	return articles, nil
}

// SearchThreshold is the minimum similarity for an article to match a search.
const SearchThreshold = 0.75

func similarity(query, value string) float64 {
	value = strings.ToLower(value)
	if value == "" {
		return 0
	}
	if strings.Contains(value, query) {
		return 1
	}
	return matchr.JaroWinkler(query, value, false)
}

// Search returns the tracked articles whose title or account resembles query,
// most similar first.
func (t Tracker) Search(ctx context.Context, query string) ([]db.Article, error) {
	articles, err := t.Articles(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return articles, nil
	}

	type scored struct {
		article db.Article
		score   float64
	}
	var matches []scored
	for _, article := range articles {
		score := max(similarity(query, article.Title), similarity(query, article.Account))
		if score >= SearchThreshold {
			matches = append(matches, scored{article: article, score: score})
		}
	}
	slices.SortStableFunc(matches, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})

	out := make([]db.Article, len(matches))
	for i, match := range matches {
		out[i] = match.article
	}
	return out, nil
}

func (t Tracker) article(ctx context.Context, articleUrl string) (db.Article, error) {
	ref, err := mpweixin.ParseArticleURL(articleUrl)
	if err != nil {
		return db.Article{}, err
	}
	param := db.GetArticleByRefParams{
		Biz: ref.Biz,
		Mid: ref.Mid,
		Idx: ref.Idx,
	}
	article, err := t.db.GetArticleByRef(ctx, param)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Article{}, fmt.Errorf("%w: %s", ErrNotTracked, ref)
	}
	if err != nil {
		t.tel.ReportBroken(report_db_query, err, "GetArticleByRef", param)
		return db.Article{}, err
	}
	return article, nil
}

// History returns the snapshots of a tracked article, oldest first.
func (t Tracker) History(ctx context.Context, articleUrl string) (db.Article, []db.EngagementSnapshot, error) {
	article, err := t.article(ctx, articleUrl)
	if err != nil {
		return db.Article{}, nil, err
	}
	snapshots, err := t.db.GetSnapshots(ctx, article.ID)
	if err != nil {
		t.tel.ReportBroken(report_db_query, err, "GetSnapshots", article.ID)
		return db.Article{}, nil, err
	}
	return article, snapshots, nil
}

// Untrack removes an article and its history. Snapshots are deleted
// explicitly, remote libsql connections do not enforce foreign keys.
func (t Tracker) Untrack(ctx context.Context, articleUrl string) error {
	article, err := t.article(ctx, articleUrl)
	if err != nil {
		return err
	}

	tx, discard, commit, err := t.makeTx()
	if err != nil {
		t.tel.ReportBroken(report_db_query, fmt.Errorf("make tx: %w", err))
		return err
	}
	defer discard()

	err = tx.DeleteSnapshots(ctx, article.ID)
	if err != nil {
		t.tel.ReportBroken(report_db_query, err, "DeleteSnapshots", article.ID)
		return err
	}
	err = tx.DeleteArticle(ctx, article.ID)
	if err != nil {
		t.tel.ReportBroken(report_db_query, err, "DeleteArticle", article.ID)
		return err
	}

	err = commit()
	if err != nil {
		t.tel.ReportBroken(report_db_query, fmt.Errorf("commit: %w", err))
		return err
	}
	return nil
}
