package news

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNewsNotFound is returned when a stored news record does not exist.
var ErrNewsNotFound = errors.New("news not found")

// StoredNews represents a news record persisted in the database, as opposed
// to the ephemeral scraped Item.
type StoredNews struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewsUpdate represents the fields that can be changed on a stored record.
// Nil fields are left untouched.
type NewsUpdate struct {
	Title  *string
	Text   *string
	Source *string
	Tags   []string // nil leaves tags alone; empty slice clears them
}

// StoreFilter represents filtering options for listing stored news.
// Keyword and the exclude filters match the text column; Keywords matches
// text or title. All matching is a case-insensitive substring test.
type StoreFilter struct {
	Tag             string   // single tag name, exact match, case-insensitive
	Tags            []string // match any of these tag names
	Keyword         string
	Keywords        []string
	ExcludeKeyword  string
	ExcludeKeywords []string
	Limit           int
	Offset          int
}

// Store manages news records using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the news database at the given path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the news and tag tables if they don't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS news (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		text TEXT NOT NULL,
		source TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE
	);
	CREATE TABLE IF NOT EXISTS news_tags (
		news_id TEXT NOT NULL REFERENCES news(id) ON DELETE CASCADE,
		tag_id TEXT NOT NULL REFERENCES tags(id),
		PRIMARY KEY (news_id, tag_id)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// timeLayout is RFC 3339 with fixed-width nanoseconds so the stored strings
// sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Create inserts a news record with the given tags. Tags are created on
// first use and shared between records.
func (s *Store) Create(title, text, source string, tags []string) (*StoredNews, error) {
	now := time.Now().UTC()
	record := &StoredNews{
		ID:        uuid.New(),
		Title:     title,
		Text:      text,
		Source:    source,
		Tags:      normalizeTags(tags),
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO news (id, title, text, source, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID.String(), record.Title, record.Text, record.Source,
		now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert news: %w", err)
	}

	if err := setTags(tx, record.ID, record.Tags); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return record, nil
}

// Get retrieves a news record by ID.
func (s *Store) Get(id uuid.UUID) (*StoredNews, error) {
	row := s.db.QueryRow(
		`SELECT id, title, text, source, created_at, updated_at FROM news WHERE id = ?`,
		id.String(),
	)

	record, err := scanNews(row)
	if err == sql.ErrNoRows {
		return nil, ErrNewsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query news: %w", err)
	}

	if record.Tags, err = s.tagsFor(record.ID); err != nil {
		return nil, err
	}
	return record, nil
}

// Update applies the non-nil fields of the update to an existing record and
// bumps its updated_at timestamp.
func (s *Store) Update(id uuid.UUID, update NewsUpdate) (*StoredNews, error) {
	record, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		record.Title = *update.Title
	}
	if update.Text != nil {
		record.Text = *update.Text
	}
	if update.Source != nil {
		record.Source = *update.Source
	}
	record.UpdatedAt = time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE news SET title = ?, text = ?, source = ?, updated_at = ? WHERE id = ?`,
		record.Title, record.Text, record.Source,
		record.UpdatedAt.Format(timeLayout), id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update news: %w", err)
	}

	if update.Tags != nil {
		record.Tags = normalizeTags(update.Tags)
		if _, err := tx.Exec(`DELETE FROM news_tags WHERE news_id = ?`, id.String()); err != nil {
			return nil, fmt.Errorf("failed to clear tags: %w", err)
		}
		if err := setTags(tx, id, record.Tags); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return record, nil
}

// Delete removes a news record and its tag links.
func (s *Store) Delete(id uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM news_tags WHERE news_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete tag links: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM news WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete news: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNewsNotFound
	}

	return tx.Commit()
}

// List returns stored news matching the filter, newest first.
func (s *Store) List(filter StoreFilter) ([]StoredNews, error) {
	query := `SELECT DISTINCT n.id, n.title, n.text, n.source, n.created_at, n.updated_at FROM news n`
	var clauses []string
	var args []any

	if filter.Tag != "" {
		query += ` JOIN news_tags nt ON nt.news_id = n.id JOIN tags t ON t.id = nt.tag_id`
		clauses = append(clauses, `t.name = ? COLLATE NOCASE`)
		args = append(args, filter.Tag)
	} else if len(filter.Tags) > 0 {
		query += ` JOIN news_tags nt ON nt.news_id = n.id JOIN tags t ON t.id = nt.tag_id`
		placeholders := strings.Repeat("?,", len(filter.Tags))
		clauses = append(clauses, fmt.Sprintf(`t.name COLLATE NOCASE IN (%s)`, placeholders[:len(placeholders)-1]))
		for _, tag := range filter.Tags {
			args = append(args, tag)
		}
	}

	if filter.Keyword != "" {
		clauses = append(clauses, `instr(lower(n.text), lower(?)) > 0`)
		args = append(args, filter.Keyword)
	}
	if len(filter.Keywords) > 0 {
		var ors []string
		for _, k := range filter.Keywords {
			ors = append(ors, `(instr(lower(n.text), lower(?)) > 0 OR instr(lower(n.title), lower(?)) > 0)`)
			args = append(args, k, k)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}
	if filter.ExcludeKeyword != "" {
		clauses = append(clauses, `instr(lower(n.text), lower(?)) = 0`)
		args = append(args, filter.ExcludeKeyword)
	}
	for _, k := range filter.ExcludeKeywords {
		clauses = append(clauses, `instr(lower(n.text), lower(?)) = 0`)
		args = append(args, k)
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY n.created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query news: %w", err)
	}
	defer rows.Close()

	var records []StoredNews
	for rows.Next() {
		record, err := scanNews(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan news: %w", err)
		}
		if record.Tags, err = s.tagsFor(record.ID); err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// Count returns the number of stored news matching the filter, ignoring
// pagination.
func (s *Store) Count(filter StoreFilter) (int, error) {
	filter.Limit = 0
	filter.Offset = 0
	records, err := s.List(filter)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// scanner abstracts sql.Row and sql.Rows for scanNews.
type scanner interface {
	Scan(dest ...any) error
}

func scanNews(row scanner) (*StoredNews, error) {
	var idStr, title, text, source, createdAtStr, updatedAtStr string
	if err := row.Scan(&idStr, &title, &text, &source, &createdAtStr, &updatedAtStr); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid news id %q: %w", idStr, err)
	}
	createdAt, err := time.Parse(timeLayout, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAtStr, err)
	}
	updatedAt, err := time.Parse(timeLayout, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAtStr, err)
	}

	return &StoredNews{
		ID:        id,
		Title:     title,
		Text:      text,
		Source:    source,
		Tags:      []string{},
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// tagsFor returns the tag names linked to a news record.
func (s *Store) tagsFor(id uuid.UUID) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT t.name FROM tags t JOIN news_tags nt ON nt.tag_id = t.id WHERE nt.news_id = ? ORDER BY t.name`,
		id.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// setTags links the given tag names to a news record, creating tags that
// don't exist yet.
func setTags(tx *sql.Tx, newsID uuid.UUID, tags []string) error {
	for _, name := range tags {
		var tagID string
		err := tx.QueryRow(`SELECT id FROM tags WHERE name = ? COLLATE NOCASE`, name).Scan(&tagID)
		if err == sql.ErrNoRows {
			tagID = uuid.New().String()
			if _, err := tx.Exec(`INSERT INTO tags (id, name) VALUES (?, ?)`, tagID, name); err != nil {
				return fmt.Errorf("failed to insert tag: %w", err)
			}
		} else if err != nil {
			return fmt.Errorf("failed to query tag: %w", err)
		}

		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO news_tags (news_id, tag_id) VALUES (?, ?)`,
			newsID.String(), tagID,
		); err != nil {
			return fmt.Errorf("failed to link tag: %w", err)
		}
	}
	return nil
}

// normalizeTags trims whitespace and drops empty tag names.
func normalizeTags(tags []string) []string {
	normalized := []string{}
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			normalized = append(normalized, tag)
		}
	}
	return normalized
}
