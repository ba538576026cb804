package storage

import (
	"context"
	"fmt"
	"log/slog"

	"impegni/internal/core"
)

// Category is an owner-scoped label attached to templates and occurrences.
type Category struct {
	ID    int64  `json:"id"`
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// EnsureCategory returns the id of the owner's category with the given
// name, creating it when missing.
func (r *Repository) EnsureCategory(ctx context.Context, owner, name string) (int64, error) {
	if err := core.ValidateDescription("name", name); err != nil {
		return 0, err
	}
	if _, err := r.queries.exec(ctx, `INSERT INTO categories (owner, name) VALUES (?, ?)
		ON CONFLICT (owner, name) DO NOTHING`, owner, name); err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}

	var id int64
	if err := r.queries.queryRow(ctx, `SELECT id FROM categories WHERE owner = ? AND name = ?`, owner, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("get category: %w", err)
	}

	slog.DebugContext(ctx, "Category ensured", "id", id, "owner", owner, "name", name)
	return id, nil
}

// GetCategory returns the owner's category with the given id.
func (r *Repository) GetCategory(ctx context.Context, owner string, id int64) (Category, error) {
	c := Category{ID: id, Owner: owner}
	err := r.queries.queryRow(ctx, `SELECT name FROM categories WHERE id = ? AND owner = ?`, id, owner).Scan(&c.Name)
	if isNoRows(err) {
		return Category{}, core.NotFound("category", id)
	}
	if err != nil {
		return Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context, owner string) ([]Category, error) {
	rows, err := r.queries.query(ctx, `SELECT id, owner, name FROM categories WHERE owner = ? ORDER BY name`, owner)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Owner, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}
