package index

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minervaai/minerva/internal/policy"
)

// PostgresQuerier serves hybrid retrieval from a pgvector table. Sparse
// vectors are not supported by this backend; queries run dense-only, which
// the retriever already tolerates.
type PostgresQuerier struct {
	pool *pgxpool.Pool
	dim  int
}

func NewPostgresQuerier(ctx context.Context, databaseURL string, embeddingDim int) (*PostgresQuerier, error) {
	if embeddingDim <= 0 {
		embeddingDim = 1536
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool, embeddingDim); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresQuerier{pool: pool, dim: embeddingDim}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool, dim int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector;`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS doc_chunks (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			parent_id TEXT NOT NULL DEFAULT '',
			employee BOOLEAN NOT NULL DEFAULT FALSE,
			manager BOOLEAN NOT NULL DEFAULT FALSE,
			hr BOOLEAN NOT NULL DEFAULT FALSE,
			embedding vector(%d)
		);`, dim),
		`CREATE INDEX IF NOT EXISTS idx_doc_chunks_parent ON doc_chunks (parent_id);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (q *PostgresQuerier) Query(ctx context.Context, query Query) ([]Match, error) {
	// The role name becomes a column identifier, so it must come from the
	// known-role set, never from the raw request.
	role, ok := policy.NormalizeRole(query.Role)
	if !ok {
		return nil, fmt.Errorf("unknown role %q", query.Role)
	}
	topK := query.TopK
	if topK <= 0 {
		topK = 10
	}

	sql := fmt.Sprintf(
		`SELECT id, text, parent_id, employee, manager, hr,
		        1 - (embedding <=> $1::vector) AS score
		 FROM doc_chunks
		 WHERE %s = TRUE AND embedding IS NOT NULL
		 ORDER BY embedding <=> $1::vector
		 LIMIT $2`, role)

	rows, err := q.pool.Query(ctx, sql, vectorLiteral(query.Dense), topK)
	if err != nil {
		return nil, fmt.Errorf("query doc chunks: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m                       Match
			employee, manager, byHR bool
		)
		if err := rows.Scan(&m.ID, &m.Text, &m.ParentID, &employee, &manager, &byHR, &m.Score); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		m.Metadata = map[string]any{
			"text":                m.Text,
			"parent_id":           m.ParentID,
			policy.RoleEmployee:   employee,
			policy.RoleManager:    manager,
			policy.RoleHR:         byHR,
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk rows: %w", err)
	}

	return matches, nil
}

func (q *PostgresQuerier) Close() error {
	q.pool.Close()
	return nil
}

// vectorLiteral renders a pgvector input literal, e.g. "[0.1,0.2]".
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
