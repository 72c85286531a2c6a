package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/teslashibe/go-voiceorder/pkg/order"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite stores the menu in a SQLite database (modernc.org/sqlite, no CGO).
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the catalog database at path.
// Use ":memory:" for an ephemeral database.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	for _, e := range entries {
		data, err := migrationsFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		if _, err := s.db.Exec(string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Import upserts items. Options of an imported item replace its stored options.
func (s *SQLite) Import(ctx context.Context, items []order.ItemDefinition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, item := range items {
		if err := Validate(item); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO items (name, base_price, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET base_price = excluded.base_price, updated_at = excluded.updated_at`,
			item.Name, int64(item.BasePrice), now,
		); err != nil {
			return fmt.Errorf("upsert item %s: %w", item.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM item_options WHERE item_name = ?`, item.Name); err != nil {
			return fmt.Errorf("clear options %s: %w", item.Name, err)
		}
		for cat, opts := range item.Options {
			for pos, opt := range opts {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO item_options (item_name, category, position, label, price_delta) VALUES (?, ?, ?, ?, ?)`,
					item.Name, string(cat), pos, opt.Label, int64(opt.PriceDelta),
				); err != nil {
					return fmt.Errorf("insert option %s/%s: %w", item.Name, cat, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// Get returns a single item by exact name.
func (s *SQLite) Get(ctx context.Context, name string) (order.ItemDefinition, error) {
	var def order.ItemDefinition
	var base int64
	err := s.db.QueryRowContext(ctx, `SELECT name, base_price FROM items WHERE name = ?`, name).Scan(&def.Name, &base)
	if errors.Is(err, sql.ErrNoRows) {
		return def, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return def, fmt.Errorf("get item %s: %w", name, err)
	}
	def.BasePrice = order.Price(base)

	opts, err := s.options(ctx, name)
	if err != nil {
		return def, err
	}
	def.Options = opts[name]
	return def, nil
}

// List returns all items sorted by name.
func (s *SQLite) List(ctx context.Context) ([]order.ItemDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, base_price FROM items ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []order.ItemDefinition
	for rows.Next() {
		var def order.ItemDefinition
		var base int64
		if err := rows.Scan(&def.Name, &base); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		def.BasePrice = order.Price(base)
		items = append(items, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	opts, err := s.options(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Options = opts[items[i].Name]
	}
	return items, nil
}

// Snapshot loads the whole menu into an in-memory catalog.
func (s *SQLite) Snapshot(ctx context.Context) (order.MapCatalog, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return order.NewMapCatalog(items...), nil
}

// options loads options grouped by item; an empty name loads all items.
func (s *SQLite) options(ctx context.Context, name string) (map[string]map[order.Category][]order.Option, error) {
	query := `SELECT item_name, category, position, label, price_delta FROM item_options`
	var args []any
	if name != "" {
		query += ` WHERE item_name = ?`
		args = append(args, name)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()

	type row struct {
		pos int
		opt order.Option
	}
	grouped := map[string]map[order.Category][]row{}
	for rows.Next() {
		var item, cat, label string
		var pos int
		var delta int64
		if err := rows.Scan(&item, &cat, &pos, &label, &delta); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		if grouped[item] == nil {
			grouped[item] = map[order.Category][]row{}
		}
		c := order.Category(cat)
		grouped[item][c] = append(grouped[item][c], row{pos: pos, opt: order.Option{Label: label, PriceDelta: order.Price(delta)}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}

	out := make(map[string]map[order.Category][]order.Option, len(grouped))
	for item, cats := range grouped {
		out[item] = make(map[order.Category][]order.Option, len(cats))
		for cat, rs := range cats {
			sort.Slice(rs, func(i, j int) bool { return rs[i].pos < rs[j].pos })
			opts := make([]order.Option, len(rs))
			for i, r := range rs {
				opts[i] = r.opt
			}
			out[item][cat] = opts
		}
	}
	return out, nil
}
