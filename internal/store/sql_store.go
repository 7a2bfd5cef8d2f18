package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsletter/api/internal/newsletter"
)

type SQLStore struct {
	db  *DB
	now func() time.Time
}

func NewSQLStore(db *DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

func (s *SQLStore) DB() *DB {
	return s.db
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveNewsletter replaces the stored document wholesale and stamps it with the
// server time. The stored copy is returned.
func (s *SQLStore) SaveNewsletter(ctx context.Context, doc newsletter.Document) (newsletter.Document, error) {
	if strings.TrimSpace(doc.ID) == "" {
		return newsletter.Document{}, fmt.Errorf("save newsletter: missing id")
	}
	saved := doc.Clone()
	saved.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)

	body, err := json.Marshal(saved)
	if err != nil {
		return newsletter.Document{}, fmt.Errorf("marshal newsletter: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO newsletters (id, title, body, search_text, updated_at_ms)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			search_text = excluded.search_text,
			updated_at_ms = excluded.updated_at_ms
	`), saved.ID, saved.Title, string(body), searchText(saved), saved.UpdatedAt.UnixMilli())
	if err != nil {
		return newsletter.Document{}, fmt.Errorf("save newsletter: %w", err)
	}
	return saved, nil
}

// GetNewsletter returns nil when no document is stored under id.
func (s *SQLStore) GetNewsletter(ctx context.Context, id string) (*newsletter.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT body FROM newsletters WHERE id=$1`), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get newsletter: %w", err)
	}
	doc, err := decodeNewsletter(body)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListNewsletters returns every stored document, most recently updated first.
func (s *SQLStore) ListNewsletters(ctx context.Context) ([]newsletter.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM newsletters ORDER BY updated_at_ms DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list newsletters: %w", err)
	}
	defer rows.Close()

	items := []newsletter.Document{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan newsletter: %w", err)
		}
		doc, err := decodeNewsletter(body)
		if err != nil {
			return nil, err
		}
		items = append(items, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list newsletters: %w", err)
	}
	return items, nil
}

// SearchNewsletters is a case-insensitive substring match over title and
// block text. It returns one page of hits and the number of matches overall.
func (s *SQLStore) SearchNewsletters(ctx context.Context, query string, limit, offset int) ([]SearchHit, int, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []SearchHit{}, 0, nil
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	pattern := "%" + escapeLike(query) + "%"
	const match = `WHERE LOWER(title) LIKE $1 ESCAPE '\' OR LOWER(search_text) LIKE $2 ESCAPE '\'`

	var total int
	if err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT COUNT(*) FROM newsletters `+match), pattern, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count search hits: %w", err)
	}
	if total == 0 || offset >= total {
		return []SearchHit{}, total, nil
	}

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT id, title, search_text, updated_at_ms
		FROM newsletters
		`+match+`
		ORDER BY updated_at_ms DESC, id ASC
		LIMIT $3 OFFSET $4
	`), pattern, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search newsletters: %w", err)
	}
	defer rows.Close()

	hits := []SearchHit{}
	for rows.Next() {
		var (
			hit       SearchHit
			text      string
			updatedMs int64
		)
		if err := rows.Scan(&hit.ID, &hit.Title, &text, &updatedMs); err != nil {
			return nil, 0, fmt.Errorf("scan search hit: %w", err)
		}
		hit.Snippet = snippet(text, query, 120)
		hit.UpdatedAt = time.UnixMilli(updatedMs).UTC()
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("search newsletters: %w", err)
	}
	return hits, total, nil
}

func decodeNewsletter(body string) (newsletter.Document, error) {
	var doc newsletter.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return newsletter.Document{}, fmt.Errorf("decode newsletter: %w", err)
	}
	doc.Normalize()
	return doc, nil
}

func searchText(doc newsletter.Document) string {
	return strings.TrimSpace(doc.Title + "\n" + doc.Text())
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

func snippet(text, query string, width int) string {
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	start := 0
	lower := []rune(strings.ToLower(text))
	if len(lower) == len(runes) {
		if index := strings.Index(string(lower), query); index >= 0 {
			start = len([]rune(string(lower)[:index])) - width/2
		}
	}
	if start < 0 {
		start = 0
	}
	end := start + width
	if end > len(runes) {
		end = len(runes)
		start = end - width
	}
	return string(runes[start:end])
}
