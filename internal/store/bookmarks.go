package store

import (
	"context"
	"fmt"
)

// Category groups bookmark pages. Lower priority sorts first.
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

// Page is one bookmark inside a category.
type Page struct {
	ID          int64   `json:"id"`
	CategoryID  int64   `json:"category_id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	URL         string  `json:"url"`
	Icon        *string `json:"icon,omitempty"`
}

// DirectoryEntry is a category with its pages, ready for rendering.
type DirectoryEntry struct {
	Category Category `json:"category"`
	Pages    []Page   `json:"pages"`
}

func (s *Store) CreateCategory(ctx context.Context, c *Category) error {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO categories (name, priority) VALUES (?, ?)
	`, c.Name, c.Priority)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	c.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, priority FROM categories ORDER BY priority, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCategory(ctx context.Context, c *Category) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE categories SET name = ?, priority = ? WHERE id = ?
	`, c.Name, c.Priority, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return requireRow(res)
}

func (s *Store) CreatePage(ctx context.Context, p *Page) error {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO pages (category_id, title, description, url, icon)
		VALUES (?, ?, ?, ?, ?)
	`, p.CategoryID, p.Title, p.Description, p.URL, p.Icon)
	if err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}
	p.ID, _ = res.LastInsertId()
	return nil
}

func (s *Store) ListPages(ctx context.Context, categoryID int64) ([]Page, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, category_id, title, description, url, icon
		FROM pages WHERE category_id = ? ORDER BY title
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var out []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Title, &p.Description, &p.URL, &p.Icon); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdatePage(ctx context.Context, p *Page) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE pages SET category_id = ?, title = ?, description = ?, url = ?, icon = ?
		WHERE id = ?
	`, p.CategoryID, p.Title, p.Description, p.URL, p.Icon, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeletePage(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	return requireRow(res)
}

// Directory returns every category with its pages, in display order.
func (s *Store) Directory(ctx context.Context) ([]DirectoryEntry, error) {
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DirectoryEntry, 0, len(cats))
	for _, c := range cats {
		pages, err := s.ListPages(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, DirectoryEntry{Category: c, Pages: pages})
	}
	return out, nil
}
