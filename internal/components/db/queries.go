package db

import (
	"context"
)

type Article struct {
	ID        int64
	Biz       string
	Mid       string
	Idx       string
	Sn        string
	Url       string
	Title     string
	Account   string
	CreatedAt int64
}

type EngagementSnapshot struct {
	ArticleID    int64
	Time         int64
	ReadNum      int64
	LikeNum      int64
	CommentCount int64
}

const upsertArticle = `
insert into Article(biz, mid, idx, sn, url, title, account, createdAt)
values (?, ?, ?, ?, ?, ?, ?, ?)
on conflict (biz, mid, idx) do update set
    sn = excluded.sn,
    url = excluded.url,
    title = case when excluded.title != '' then excluded.title else Article.title end,
    account = case when excluded.account != '' then excluded.account else Article.account end
returning id
`

type UpsertArticleParams struct {
	Biz       string
	Mid       string
	Idx       string
	Sn        string
	Url       string
	Title     string
	Account   string
	CreatedAt int64
}

// UpsertArticle registers an article, an article that already exists keeps its
// id and creation time.
func (q *Queries) UpsertArticle(ctx context.Context, arg UpsertArticleParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, upsertArticle,
		arg.Biz,
		arg.Mid,
		arg.Idx,
		arg.Sn,
		arg.Url,
		arg.Title,
		arg.Account,
		arg.CreatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getArticleByRef = `
select id, biz, mid, idx, sn, url, title, account, createdAt from Article
where biz = ? and mid = ? and idx = ?
`

type GetArticleByRefParams struct {
	Biz string
	Mid string
	Idx string
}

func (q *Queries) GetArticleByRef(ctx context.Context, arg GetArticleByRefParams) (Article, error) {
	row := q.db.QueryRowContext(ctx, getArticleByRef, arg.Biz, arg.Mid, arg.Idx)
	var i Article
	err := row.Scan(
		&i.ID,
		&i.Biz,
		&i.Mid,
		&i.Idx,
		&i.Sn,
		&i.Url,
		&i.Title,
		&i.Account,
		&i.CreatedAt,
	)
	return i, err
}

const listArticles = `
select id, biz, mid, idx, sn, url, title, account, createdAt from Article
order by id asc
`

func (q *Queries) ListArticles(ctx context.Context) ([]Article, error) {
	rows, err := q.db.QueryContext(ctx, listArticles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Article
	for rows.Next() {
		var i Article
		err := rows.Scan(
			&i.ID,
			&i.Biz,
			&i.Mid,
			&i.Idx,
			&i.Sn,
			&i.Url,
			&i.Title,
			&i.Account,
			&i.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteArticle = `
delete from Article where id = ?
`

func (q *Queries) DeleteArticle(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteArticle, id)
	return err
}

const deleteSnapshots = `
delete from EngagementSnapshot where articleId = ?
`

func (q *Queries) DeleteSnapshots(ctx context.Context, articleId int64) error {
	_, err := q.db.ExecContext(ctx, deleteSnapshots, articleId)
	return err
}

const createSnapshot = `
insert into EngagementSnapshot(articleId, time, readNum, likeNum, commentCount)
values (?, ?, ?, ?, ?)
`

func (q *Queries) CreateSnapshot(ctx context.Context, arg EngagementSnapshot) error {
	_, err := q.db.ExecContext(ctx, createSnapshot,
		arg.ArticleID,
		arg.Time,
		arg.ReadNum,
		arg.LikeNum,
		arg.CommentCount,
	)
	return err
}

const getSnapshots = `
select articleId, time, readNum, likeNum, commentCount from EngagementSnapshot
where articleId = ?
order by time asc, rowid asc
`

func (q *Queries) GetSnapshots(ctx context.Context, articleId int64) ([]EngagementSnapshot, error) {
	rows, err := q.db.QueryContext(ctx, getSnapshots, articleId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []EngagementSnapshot
	for rows.Next() {
		var i EngagementSnapshot
		err := rows.Scan(
			&i.ArticleID,
			&i.Time,
			&i.ReadNum,
			&i.LikeNum,
			&i.CommentCount,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
