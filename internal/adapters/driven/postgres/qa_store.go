package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/anita-labs/anita-core/internal/core/domain"
	"github.com/anita-labs/anita-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.QAStore = (*QAStore)(nil)

// QAStore implements driven.QAStore against the qa_pairs and
// question_variations tables.
type QAStore struct {
	db *DB
}

// NewQAStore creates a new QAStore
func NewQAStore(db *DB) *QAStore {
	return &QAStore{db: db}
}

// GetAnswer returns the curated answer for a QA pair
func (s *QAStore) GetAnswer(ctx context.Context, qaID string) (string, error) {
	var answer string
	err := s.db.QueryRowContext(ctx,
		"SELECT answer FROM qa_pairs WHERE qa_id = $1", qaID,
	).Scan(&answer)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: qa pair %s", domain.ErrNotFound, qaID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get answer: %w", err)
	}
	return answer, nil
}

// ListEntries returns every QA pair with its variations, for index rebuilds
func (s *QAStore) ListEntries(ctx context.Context) ([]domain.QAEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT qa_id, COALESCE(question, ''), language FROM qa_pairs ORDER BY qa_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list qa pairs: %w", err)
	}
	defer rows.Close()

	var entries []domain.QAEntry
	byID := make(map[string]int)
	for rows.Next() {
		var e domain.QAEntry
		if err := rows.Scan(&e.ID, &e.Question, &e.Language); err != nil {
			return nil, fmt.Errorf("failed to scan qa pair: %w", err)
		}
		byID[e.ID] = len(entries)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate qa pairs: %w", err)
	}

	varRows, err := s.db.QueryContext(ctx,
		"SELECT id, qa_pair_id, variation_text, language FROM question_variations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list variations: %w", err)
	}
	defer varRows.Close()

	for varRows.Next() {
		var v domain.Variation
		if err := varRows.Scan(&v.ID, &v.QAID, &v.Text, &v.Language); err != nil {
			return nil, fmt.Errorf("failed to scan variation: %w", err)
		}
		if i, ok := byID[v.QAID]; ok {
			entries[i].Variations = append(entries[i].Variations, v)
		}
	}
	if err := varRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate variations: %w", err)
	}

	return entries, nil
}
