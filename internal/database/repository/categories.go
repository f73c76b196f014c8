package repository

import (
	"context"
	"database/sql"
)

// CategoryRepo handles the accounting-category taxonomy.
type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

func (r *CategoryRepo) Upsert(ctx context.Context, c Category) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO categories(code, label, category_group, pnl_line, sort_order)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(code) DO UPDATE SET
	 label=excluded.label,
	 category_group=excluded.category_group,
	 pnl_line=excluded.pnl_line,
	 sort_order=excluded.sort_order;
	`, c.Code, c.Label, c.Group, c.PnLLine, c.SortOrder)
	return err
}

func (r *CategoryRepo) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, label, category_group, pnl_line, sort_order FROM categories ORDER BY sort_order, code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		var pnl sql.NullString
		if err := rows.Scan(&c.Code, &c.Label, &c.Group, &pnl, &c.SortOrder); err != nil {
			return nil, err
		}
		if pnl.Valid {
			c.PnLLine = &pnl.String
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Exists reports whether a category code is a taxonomy member.
func (r *CategoryRepo) Exists(ctx context.Context, code string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM categories WHERE code = ?`, code).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
