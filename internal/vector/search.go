package vector

import (
	"context"
	"fmt"
	"strings"

	"bookwyrm/internal/models"

	"github.com/jackc/pgx/v5"
)

type Searcher struct {
	q Queryer
}

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func NewSearcher(q Queryer) *Searcher {
	return &Searcher{q: q}
}

// Search returns the topK chunks closest to queryVec by cosine distance,
// optionally restricted to a single document name.
func (s *Searcher) Search(ctx context.Context, queryVec []float32, topK int, nameFilter string) ([]models.ChunkResult, error) {
	if topK <= 0 {
		topK = 8
	}
	args := []any{ToLiteral(queryVec), topK}
	filterSQL := ""
	if strings.TrimSpace(nameFilter) != "" {
		filterSQL = " AND name = $3"
		args = append(args, nameFilter)
	}

	query := `
SELECT name,
       content,
       1 - (embedding <=> $1::vector) AS score
FROM ai.pdf_documents
WHERE embedding IS NOT NULL` + filterSQL + `
ORDER BY embedding <=> $1::vector
LIMIT $2`

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	results := make([]models.ChunkResult, 0, topK)
	for rows.Next() {
		var r models.ChunkResult
		if err := rows.Scan(&r.Name, &r.Content, &r.Score); err != nil {
			return nil, fmt.Errorf("scan chunk result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}

func ToLiteral(v []float32) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, fmt.Sprintf("%f", x))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
