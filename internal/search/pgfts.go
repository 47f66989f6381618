package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs plainto_tsquery over the ideas table, ranking with ts_rank and
// building snippets with ts_headline. Verdict filtering joins the latest
// validation result per idea.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	where := "i.fts @@ " + tsQuery
	if q.FilterOwner != "" {
		where += fmt.Sprintf(" AND i.owner_name = $%d", argN)
		args = append(args, q.FilterOwner)
		argN++
	}
	if q.FilterVerdict != "" {
		where += fmt.Sprintf(" AND v.verdict = $%d", argN)
		args = append(args, q.FilterVerdict)
		argN++
	}

	baseSQL := fmt.Sprintf(`
		SELECT i.id, i.idea_title,
			ts_headline('english', coalesce(i.problem_statement, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
			i.owner_name,
			coalesce(v.verdict, '') AS verdict,
			coalesce(v.score, 0) AS score,
			ts_rank(i.fts, %s) AS rank
		FROM ideas i
		LEFT JOIN LATERAL (
			SELECT verdict, score FROM validation_results
			WHERE idea_id = i.id
			ORDER BY created_at DESC
			LIMIT 1
		) v ON true
		WHERE %s`, tsQuery, tsQuery, where)

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub", baseSQL)
	dataSQL := fmt.Sprintf(`SELECT id, idea_title, snippet, owner_name, verdict, score
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`, baseSQL, limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet, &r.Owner, &r.Verdict, &r.Score); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable ideas for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]IdeaRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT i.id, i.idea_title, i.problem_statement, i.solution_approach, i.target_market, i.owner_name,
			coalesce(v.verdict, '') AS verdict,
			coalesce(v.score, 0) AS score
		FROM ideas i
		LEFT JOIN LATERAL (
			SELECT verdict, score FROM validation_results
			WHERE idea_id = i.id
			ORDER BY created_at DESC
			LIMIT 1
		) v ON true
	`)
	if err != nil {
		return nil, fmt.Errorf("load ideas: %w", err)
	}
	defer rows.Close()

	records := make([]IdeaRecord, 0)
	for rows.Next() {
		var rec IdeaRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Problem, &rec.Solution, &rec.Market, &rec.Owner, &rec.Verdict, &rec.Score); err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ideas: %w", err)
	}

	return records, nil
}
