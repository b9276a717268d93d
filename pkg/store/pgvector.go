package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/docuchat/docuchat/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// VectorStoreConfig represents the configuration for the pgvector store.
type VectorStoreConfig struct {
	ConnString  string
	VectorDim   int
	SearchLimit int
}

// VectorStore persists profiles, documents, and chunks in Postgres with a
// pgvector embedding column. Each chunk insert is a single statement, so
// concurrent writers never interleave a partial record.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if config.VectorDim == 0 {
		config.VectorDim = 1536
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 10
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			filename TEXT NOT NULL,
			mime_type TEXT,
			processed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			start_char INTEGER NOT NULL DEFAULT 0,
			end_char INTEGER NOT NULL DEFAULT 0,
			embedding vector(%d),
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, vs.config.VectorDim),
		`CREATE INDEX IF NOT EXISTS document_chunks_profile_idx
			ON document_chunks (profile_id)`,
		`CREATE INDEX IF NOT EXISTS document_chunks_embedding_idx
			ON document_chunks
			USING ivfflat (embedding vector_cosine_ops)
			WITH (lists = 100)`,
	}

	for _, stmt := range statements {
		if _, err := vs.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return nil
}

func (vs *VectorStore) EnsureProfile(ctx context.Context, profileID, name string) error {
	_, err := vs.pool.Exec(ctx, `
		INSERT INTO profiles (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
		profileID, name)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func (vs *VectorStore) ProfileName(ctx context.Context, profileID string) (string, error) {
	var name string
	err := vs.pool.QueryRow(ctx, `SELECT name FROM profiles WHERE id = $1`, profileID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: profile %s", ErrNotFound, profileID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load profile: %w", err)
	}
	return name, nil
}

func (vs *VectorStore) InsertDocument(ctx context.Context, doc models.Document) error {
	_, err := vs.pool.Exec(ctx, `
		INSERT INTO documents (id, profile_id, filename, mime_type, processed)
		VALUES ($1, $2, $3, $4, $5)`,
		doc.ID, doc.ProfileID, doc.Filename, doc.MimeType, doc.Processed)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (vs *VectorStore) MarkProcessed(ctx context.Context, documentID string) error {
	tag, err := vs.pool.Exec(ctx, `UPDATE documents SET processed = TRUE WHERE id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("failed to mark document processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: document %s", ErrNotFound, documentID)
	}
	return nil
}

// InsertChunk writes one chunk atomically. A chunk with no embedding is
// stored with a NULL vector and is invisible to similarity search until
// re-embedded.
func (vs *VectorStore) InsertChunk(ctx context.Context, chunk models.StoredChunk) (string, error) {
	var embedding interface{}
	if chunk.Embedding != nil {
		embedding = pgvector.NewVector(chunk.Embedding)
	}

	_, err := vs.pool.Exec(ctx, `
		INSERT INTO document_chunks
			(id, document_id, profile_id, chunk_index, content, start_char, end_char, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		chunk.ID, chunk.DocumentID, chunk.ProfileID, chunk.Index,
		sanitizeUTF8(chunk.Content), chunk.StartChar, chunk.EndChar,
		embedding, chunk.Metadata)
	if err != nil {
		return "", fmt.Errorf("failed to insert chunk: %w", err)
	}
	return chunk.ID, nil
}

const chunkColumns = `id, document_id, profile_id, chunk_index, content, start_char, end_char, embedding, metadata, created_at`

func (vs *VectorStore) GetChunk(ctx context.Context, id string) (models.StoredChunk, error) {
	row := vs.pool.QueryRow(ctx,
		`SELECT `+chunkColumns+` FROM document_chunks WHERE id = $1`, id)

	chunk, err := scanChunk(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.StoredChunk{}, fmt.Errorf("%w: chunk %s", ErrNotFound, id)
	}
	if err != nil {
		return models.StoredChunk{}, fmt.Errorf("failed to load chunk: %w", err)
	}
	return chunk, nil
}

func (vs *VectorStore) GetByDocument(ctx context.Context, documentID string) ([]models.StoredChunk, error) {
	rows, err := vs.pool.Query(ctx,
		`SELECT `+chunkColumns+` FROM document_chunks WHERE document_id = $1 ORDER BY chunk_index`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	return collectChunks(rows)
}

// Nearest returns up to k embedded chunks ordered by cosine distance from
// the query vector, scoped to the profile.
func (vs *VectorStore) Nearest(ctx context.Context, profileID string, query []float32, k int) ([]models.StoredChunk, []float64, error) {
	if k <= 0 {
		k = vs.config.SearchLimit
	}

	rows, err := vs.pool.Query(ctx, `
		SELECT `+chunkColumns+`, embedding <=> $2 AS distance
		FROM document_chunks
		WHERE profile_id = $1 AND embedding IS NOT NULL
		ORDER BY embedding <=> $2
		LIMIT $3`,
		profileID, pgvector.NewVector(query), k)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query nearest chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.StoredChunk
	var distances []float64
	for rows.Next() {
		var chunk models.StoredChunk
		var embedding *pgvector.Vector
		var distance float64
		err := rows.Scan(
			&chunk.ID, &chunk.DocumentID, &chunk.ProfileID, &chunk.Index,
			&chunk.Content, &chunk.StartChar, &chunk.EndChar,
			&embedding, &chunk.Metadata, &chunk.CreatedAt, &distance)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if embedding != nil {
			chunk.Embedding = embedding.Slice()
		}
		chunks = append(chunks, chunk)
		distances = append(distances, distance)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read nearest chunks: %w", err)
	}

	return chunks, distances, nil
}

// KeywordSearch returns up to limit chunks whose content contains any of
// the keywords, case-insensitively.
func (vs *VectorStore) KeywordSearch(ctx context.Context, profileID string, keywords []string, limit int) ([]models.StoredChunk, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = vs.config.SearchLimit
	}

	conditions := make([]string, 0, len(keywords))
	args := []interface{}{profileID}
	for _, keyword := range keywords {
		args = append(args, "%"+keyword+"%")
		conditions = append(conditions, fmt.Sprintf("content ILIKE $%d", len(args)))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT `+chunkColumns+`
		FROM document_chunks
		WHERE profile_id = $1 AND (%s)
		LIMIT $%d`,
		strings.Join(conditions, " OR "), len(args))

	rows, err := vs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run keyword search: %w", err)
	}
	defer rows.Close()

	return collectChunks(rows)
}

func (vs *VectorStore) CountChunks(ctx context.Context, profileID string, embeddedOnly bool) (int, error) {
	query := `SELECT count(*) FROM document_chunks WHERE profile_id = $1`
	if embeddedOnly {
		query += ` AND embedding IS NOT NULL`
	}

	var count int
	if err := vs.pool.QueryRow(ctx, query, profileID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

func (vs *VectorStore) CountDocuments(ctx context.Context, profileID string, processedOnly bool) (int, error) {
	query := `SELECT count(*) FROM documents WHERE profile_id = $1`
	if processedOnly {
		query += ` AND processed`
	}

	var count int
	if err := vs.pool.QueryRow(ctx, query, profileID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

func (vs *VectorStore) DocumentFilename(ctx context.Context, documentID string) (string, error) {
	var filename string
	err := vs.pool.QueryRow(ctx, `SELECT filename FROM documents WHERE id = $1`, documentID).Scan(&filename)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: document %s", ErrNotFound, documentID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load document: %w", err)
	}
	return filename, nil
}

// DeleteDocument removes the document; its chunks cascade.
func (vs *VectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := vs.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// DeleteProfile removes the profile; its documents and chunks cascade.
func (vs *VectorStore) DeleteProfile(ctx context.Context, profileID string) error {
	if _, err := vs.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, profileID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChunk(row rowScanner) (models.StoredChunk, error) {
	var chunk models.StoredChunk
	var embedding *pgvector.Vector
	err := row.Scan(
		&chunk.ID, &chunk.DocumentID, &chunk.ProfileID, &chunk.Index,
		&chunk.Content, &chunk.StartChar, &chunk.EndChar,
		&embedding, &chunk.Metadata, &chunk.CreatedAt)
	if err != nil {
		return models.StoredChunk{}, err
	}
	if embedding != nil {
		chunk.Embedding = embedding.Slice()
	}
	return chunk, nil
}

func collectChunks(rows pgx.Rows) ([]models.StoredChunk, error) {
	var chunks []models.StoredChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return chunks, nil
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
