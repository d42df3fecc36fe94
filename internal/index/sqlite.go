package index

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/awick/atompress/internal/atomdoc"
	"github.com/awick/atompress/internal/index/migrations"
	"github.com/awick/atompress/internal/query"
)

// SQLite is the relational index variant. It keeps a denormalized
// projection of entry metadata (one entries row per slug, child rows for
// categories and links) and resolves queries entirely in SQL, so Query
// never returns a residual. Consistency with the store is
// notification-driven; there is no foreign-key enforcement.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the projection database at path and
// applies pending schema migrations. The returned index owns the
// connection until Close.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// RewriteEntry keeps the document unchanged.
func (s *SQLite) RewriteEntry(string, *atomdoc.Document) (*atomdoc.Document, error) {
	return nil, nil
}

// EntryAdded inserts the projection rows for a new entry.
func (s *SQLite) EntryAdded(slug string, doc *atomdoc.Document) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := insertEntry(tx, slug, doc); err != nil {
		return err
	}
	return tx.Commit()
}

// EntryUpdated replaces the projection rows for an entry. Delete then
// reinsert within one transaction, so a concurrent query never observes a
// half-updated row set and no selective patching can drift.
func (s *SQLite) EntryUpdated(slug string, doc *atomdoc.Document) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteEntry(tx, slug); err != nil {
		return err
	}
	if err := insertEntry(tx, slug, doc); err != nil {
		return err
	}
	return tx.Commit()
}

// EntryDeleted removes all projection rows for slug. The document is not
// needed; cleanup is keyed by slug alone.
func (s *SQLite) EntryDeleted(slug string, _ *atomdoc.Document) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := deleteEntry(tx, slug); err != nil {
		return err
	}
	return tx.Commit()
}

// Clear empties the projection.
func (s *SQLite) Clear() error {
	for _, table := range []string{"entries", "categories", "links"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("index: clear %s: %w", table, err)
		}
	}
	return nil
}

func insertEntry(tx *sql.Tx, slug string, doc *atomdoc.Document) error {
	var name, email, uri, full any
	if doc.Author != nil {
		name, email, uri, full = doc.Author.Name, doc.Author.Email, doc.Author.URI, doc.Author.Full()
	}
	_, err := tx.Exec(`
		INSERT INTO entries (
			slug, id, title, published, updated, edited,
			content, full_content,
			author_email, author_name, author_uri, author_full)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, slug, doc.ID, doc.Title,
		dbDate(doc.Published), dbDate(doc.Updated), dbDate(doc.Edited),
		doc.ContentText(), doc.FullText(),
		email, name, uri, full)
	if err != nil {
		return fmt.Errorf("index: insert entry %s: %w", slug, err)
	}

	for _, c := range doc.Categories {
		if _, err := tx.Exec(`
			INSERT INTO categories (entry_slug, term, scheme, label)
			VALUES (?, ?, ?, ?)
		`, slug, c.Term, nullable(c.Scheme), nullable(c.Label)); err != nil {
			return fmt.Errorf("index: insert category for %s: %w", slug, err)
		}
	}
	for _, l := range doc.Links {
		rel := l.Rel
		if rel == "" {
			rel = "alternate"
		}
		if _, err := tx.Exec(`
			INSERT INTO links (entry_slug, href, rel, type, title)
			VALUES (?, ?, ?, ?, ?)
		`, slug, l.Href, rel, nullable(l.Type), nullable(l.Title)); err != nil {
			return fmt.Errorf("index: insert link for %s: %w", slug, err)
		}
	}
	return nil
}

func deleteEntry(tx *sql.Tx, slug string) error {
	for _, stmt := range []string{
		"DELETE FROM entries WHERE slug = ?",
		"DELETE FROM categories WHERE entry_slug = ?",
		"DELETE FROM links WHERE entry_slug = ?",
	} {
		if _, err := tx.Exec(stmt, slug); err != nil {
			return fmt.Errorf("index: delete rows for %s: %w", slug, err)
		}
	}
	return nil
}

// Query compiles q to SQL against the projection and resolves it fully:
// the residual is always nil.
func (s *SQLite) Query(q query.Query) (*query.Query, []string, error) {
	var items []string
	var args []any

	if q.Text != "" {
		clause, arg := likeClause("full_content", q.Text)
		items = append(items, clause)
		args = append(args, arg)
	}
	if q.Author != "" {
		clause, arg := likeClause("author_full", q.Author)
		items = append(items, clause)
		args = append(args, arg)
	}
	for _, rng := range []struct {
		column string
		r      query.DateRange
	}{{"updated", q.Updated}, {"published", q.Published}} {
		if !rng.r.From.IsZero() {
			items = append(items, fmt.Sprintf("date(%s) >= date(?)", rng.column))
			args = append(args, dbDate(rng.r.From))
		}
		if !rng.r.To.IsZero() {
			items = append(items, fmt.Sprintf("date(%s) <= date(?)", rng.column))
			args = append(args, dbDate(rng.r.To))
		}
	}
	if q.Categories != nil {
		clause, catArgs, err := categoryClause(q.Categories)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, clause)
		args = append(args, catArgs...)
	}
	if len(q.Links) > 0 {
		rels := make([]string, 0, len(q.Links))
		for rel := range q.Links {
			rels = append(rels, rel)
		}
		sort.Strings(rels)
		for _, rel := range rels {
			items = append(items, `EXISTS (
				SELECT 1 FROM links
				WHERE links.entry_slug = entries.slug
				  AND links.rel = ? AND links.href = ?)`)
			args = append(args, rel, q.Links[rel])
		}
	}

	where := "1=1"
	if len(items) == 1 {
		where = items[0]
	} else if len(items) > 1 {
		for i := range items {
			items[i] = "(" + items[i] + ")"
		}
		where = strings.Join(items, " AND ")
	}

	rows, err := s.db.Query(`
		SELECT slug FROM entries
		WHERE `+where+`
		ORDER BY edited DESC, slug ASC
	`, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("index: query: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var sl string
		if err := rows.Scan(&sl); err != nil {
			return nil, nil, err
		}
		slugs = append(slugs, sl)
	}
	return nil, slugs, rows.Err()
}

// MostRecent pages the projection by edited time, newest first, with an
// exact total from COUNT(*).
func (s *SQLite) MostRecent(startIndex, length int) (int, []string, error) {
	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&total); err != nil {
		return 0, nil, fmt.Errorf("index: count entries: %w", err)
	}
	if length < 0 {
		length = -1 // sqlite: LIMIT -1 is unlimited
	}
	rows, err := s.db.Query(`
		SELECT slug FROM entries
		ORDER BY edited DESC, slug ASC
		LIMIT ? OFFSET ?
	`, length, startIndex)
	if err != nil {
		return 0, nil, fmt.Errorf("index: most recent: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var sl string
		if err := rows.Scan(&sl); err != nil {
			return 0, nil, err
		}
		slugs = append(slugs, sl)
	}
	return total, slugs, rows.Err()
}

// Categories accepts any category.
func (s *SQLite) Categories() []atomdoc.Category { return nil }

// AcceptMedia accepts any media type.
func (s *SQLite) AcceptMedia() []string { return nil }

// likeClause implements the free-text heuristic in SQL: all-lowercase
// patterns use LIKE (case-insensitive for ASCII), anything else uses GLOB
// so case and * / ? wildcards are honored.
func likeClause(column, pattern string) (string, any) {
	if strings.ToLower(pattern) == pattern {
		escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(pattern)
		return column + ` LIKE ? ESCAPE '\'`, "%" + escaped + "%"
	}
	return column + " GLOB ?", "*" + pattern + "*"
}

// categoryClause compiles a category expression tree to EXISTS subqueries
// over the categories child table.
func categoryClause(expr query.CategoryExpr) (string, []any, error) {
	switch e := expr.(type) {
	case query.Term:
		switch {
		case e.Scheme == nil:
			return `EXISTS (
				SELECT 1 FROM categories
				WHERE categories.entry_slug = entries.slug
				  AND categories.term = ?)`, []any{e.Term}, nil
		case *e.Scheme == "":
			return `EXISTS (
				SELECT 1 FROM categories
				WHERE categories.entry_slug = entries.slug
				  AND categories.term = ?
				  AND (categories.scheme IS NULL OR categories.scheme = ''))`, []any{e.Term}, nil
		default:
			return `EXISTS (
				SELECT 1 FROM categories
				WHERE categories.entry_slug = entries.slug
				  AND categories.term = ?
				  AND categories.scheme = ?)`, []any{e.Term, *e.Scheme}, nil
		}
	case query.Not:
		inner, args, err := categoryClause(e.Expr)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + inner + ")", args, nil
	case query.And, query.Or:
		var exprs []query.CategoryExpr
		op := " AND "
		if or, ok := e.(query.Or); ok {
			exprs, op = or, " OR "
		} else {
			exprs = e.(query.And)
		}
		if len(exprs) == 0 {
			return "1=1", nil, nil
		}
		var items []string
		var args []any
		for _, sub := range exprs {
			item, subArgs, err := categoryClause(sub)
			if err != nil {
				return "", nil, err
			}
			items = append(items, "("+item+")")
			args = append(args, subArgs...)
		}
		return strings.Join(items, op), args, nil
	default:
		return "", nil, fmt.Errorf("index: unknown category expression %T", expr)
	}
}

const dbDateFormat = "2006-01-02T15:04:05"

// dbDate formats a timestamp for the projection, NULL when unset.
func dbDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(dbDateFormat)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
