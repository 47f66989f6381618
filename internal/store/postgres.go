package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"ideaforge/api/internal/draft"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) EnsureUserByName(ctx context.Context, name string) (User, error) {
	const findUser = `SELECT id, display_name, email, created_at FROM users WHERE display_name = $1`
	var user User
	err := s.db.QueryRowContext(ctx, findUser, name).Scan(&user.ID, &user.DisplayName, &user.Email, &user.CreatedAt)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}

	const insertUser = `
		INSERT INTO users (display_name, email)
		VALUES ($1, CONCAT(LOWER(REPLACE($1, ' ', '.')), '@local.ideaforge.dev'))
		RETURNING id, display_name, email, created_at
	`
	if err := s.db.QueryRowContext(ctx, insertUser, name).Scan(&user.ID, &user.DisplayName, &user.Email, &user.CreatedAt); err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `SELECT id, display_name, email, created_at FROM users WHERE id=$1`, userID).
		Scan(&user.ID, &user.DisplayName, &user.Email, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

const ideaColumns = `
	id, owner_name,
	idea_title, problem_statement, solution_approach, target_market,
	competitive_landscape, business_model, unique_value_proposition,
	created_at, updated_at
`

func scanIdea(row interface{ Scan(...any) error }) (Idea, error) {
	var item Idea
	err := row.Scan(
		&item.ID, &item.OwnerName,
		&item.Fields.Title, &item.Fields.Problem, &item.Fields.Solution, &item.Fields.Market,
		&item.Fields.Competition, &item.Fields.BusinessModel, &item.Fields.UniqueValue,
		&item.CreatedAt, &item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) InsertIdea(ctx context.Context, item Idea) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ideas (
			id, owner_name,
			idea_title, problem_statement, solution_approach, target_market,
			competitive_landscape, business_model, unique_value_proposition
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`,
		item.ID, item.OwnerName,
		item.Fields.Title, item.Fields.Problem, item.Fields.Solution, item.Fields.Market,
		item.Fields.Competition, item.Fields.BusinessModel, item.Fields.UniqueValue,
	)
	if err != nil {
		return fmt.Errorf("insert idea: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetIdea(ctx context.Context, ideaID string) (Idea, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE id=$1`, ideaID)
	item, err := scanIdea(row)
	if err != nil {
		return Idea{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListIdeas(ctx context.Context, ownerName string) ([]Idea, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ideaColumns+`
		FROM ideas
		WHERE owner_name = $1
		ORDER BY updated_at DESC
	`, ownerName)
	if err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	defer rows.Close()

	items := make([]Idea, 0)
	for rows.Next() {
		item, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ideas: %w", err)
	}
	return items, nil
}

// SaveIdeaFields persists a full draft snapshot and returns the stored
// record, whose updated_at becomes the new ServerSnapshot timestamp.
func (s *PostgresStore) SaveIdeaFields(ctx context.Context, ideaID string, fields draft.Fields) (Idea, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE ideas
		SET idea_title=$2, problem_statement=$3, solution_approach=$4, target_market=$5,
			competitive_landscape=$6, business_model=$7, unique_value_proposition=$8,
			updated_at=NOW()
		WHERE id=$1
		RETURNING `+ideaColumns+`
	`,
		ideaID,
		fields.Title, fields.Problem, fields.Solution, fields.Market,
		fields.Competition, fields.BusinessModel, fields.UniqueValue,
	)
	item, err := scanIdea(row)
	if err != nil {
		return Idea{}, fmt.Errorf("save idea fields: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) DeleteIdea(ctx context.Context, ideaID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM ideas WHERE id=$1`, ideaID)
	if err != nil {
		return fmt.Errorf("delete idea: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete idea rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) InsertValidationResult(ctx context.Context, record ValidationRecord) error {
	dimensions, err := json.Marshal(record.Dimensions)
	if err != nil {
		return fmt.Errorf("marshal dimensions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO validation_results (idea_id, score, verdict, dimensions, is_refinement)
		VALUES ($1, $2, $3, $4, $5)
	`, record.IdeaID, record.Score, record.Verdict, dimensions, record.IsRefinement)
	if err != nil {
		return fmt.Errorf("insert validation result: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestValidationResult(ctx context.Context, ideaID string) (ValidationRecord, error) {
	var record ValidationRecord
	var dimensions []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, idea_id, score, verdict, dimensions, is_refinement, created_at
		FROM validation_results
		WHERE idea_id=$1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, ideaID).Scan(&record.ID, &record.IdeaID, &record.Score, &record.Verdict, &dimensions, &record.IsRefinement, &record.CreatedAt)
	if err != nil {
		return ValidationRecord{}, err
	}
	if len(dimensions) > 0 {
		if err := json.Unmarshal(dimensions, &record.Dimensions); err != nil {
			return ValidationRecord{}, fmt.Errorf("unmarshal dimensions: %w", err)
		}
	}
	return record, nil
}

func (s *PostgresStore) ListValidationResults(ctx context.Context, ideaID string, limit int) ([]ValidationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, idea_id, score, verdict, dimensions, is_refinement, created_at
		FROM validation_results
		WHERE idea_id=$1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, ideaID, limit)
	if err != nil {
		return nil, fmt.Errorf("list validation results: %w", err)
	}
	defer rows.Close()

	records := make([]ValidationRecord, 0)
	for rows.Next() {
		var record ValidationRecord
		var dimensions []byte
		if err := rows.Scan(&record.ID, &record.IdeaID, &record.Score, &record.Verdict, &dimensions, &record.IsRefinement, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan validation result: %w", err)
		}
		if len(dimensions) > 0 {
			if err := json.Unmarshal(dimensions, &record.Dimensions); err != nil {
				return nil, fmt.Errorf("unmarshal dimensions: %w", err)
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validation results: %w", err)
	}
	return records, nil
}

// SummaryCounts backs the dashboard header: total ideas, ideas with at least
// one validation, and ideas whose latest score unlocks downstream stages.
func (s *PostgresStore) SummaryCounts(ctx context.Context, unlockThreshold int) (ideas, validated, unlocked int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM ideas),
			(SELECT COUNT(DISTINCT idea_id) FROM validation_results),
			(SELECT COUNT(*) FROM (
				SELECT DISTINCT ON (idea_id) idea_id, score
				FROM validation_results
				ORDER BY idea_id, created_at DESC, id DESC
			) latest WHERE latest.score >= $1)
	`, unlockThreshold).Scan(&ideas, &validated, &unlocked)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("summary counts: %w", err)
	}
	return ideas, validated, unlocked, nil
}
