package repository

import (
	"context"
	"database/sql"
	"strings"
)

// TransactionFilters defines list filters.
type TransactionFilters struct {
	Category string
	Month    string // "YYYY-MM"; empty = no month filter
	Search   string
	BatchID  string
	Limit    int
}

// TransactionRepo handles bank transactions.
type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

const txColumns = `id, transaction_date, amount, is_debit, beneficiary, bin, beneficiary_account,
 bik, knp, purpose, category, confidence, matched_rule, period_from, period_to, tx_hash,
 import_file, import_batch_id, created_at, updated_at`

// BulkInsert writes every transaction inside one database transaction so a
// failed commit applies nothing.
func (r *TransactionRepo) BulkInsert(ctx context.Context, txs []Transaction) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
	INSERT INTO bank_transactions(
	 id, transaction_date, amount, is_debit, beneficiary, bin, beneficiary_account,
	 bik, knp, purpose, category, confidence, matched_rule, period_from, period_to,
	 tx_hash, import_file, import_batch_id, created_at, updated_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP);
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, t := range txs {
		if _, err := stmt.ExecContext(ctx,
			t.ID, t.Date, t.Amount, t.IsDebit, t.Beneficiary, t.BIN, t.BeneficiaryAccount,
			t.BIK, t.KNP, t.Purpose, t.Category, t.Confidence, t.MatchedRule,
			t.PeriodFrom, t.PeriodTo, t.TxHash, t.ImportFile, t.ImportBatchID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ExistingHashes returns which of the given fingerprints are already persisted.
func (r *TransactionRepo) ExistingHashes(ctx context.Context, hashes []string) (map[string]bool, error) {
	out := make(map[string]bool, len(hashes))
	if len(hashes) == 0 {
		return out, nil
	}
	const chunk = 500 // sqlite parameter limit headroom
	for start := 0; start < len(hashes); start += chunk {
		end := start + chunk
		if end > len(hashes) {
			end = len(hashes)
		}
		part := hashes[start:end]
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(part)), ",")
		args := make([]interface{}, len(part))
		for i, h := range part {
			args[i] = h
		}
		rows, err := r.db.QueryContext(ctx,
			`SELECT DISTINCT tx_hash FROM bank_transactions WHERE tx_hash IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var h string
			if err := rows.Scan(&h); err != nil {
				rows.Close()
				return nil, err
			}
			out[h] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

// UpdateCategory records a manual category assignment. Manual assignments
// are never reclassified automatically afterwards.
func (r *TransactionRepo) UpdateCategory(ctx context.Context, id, category string) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE bank_transactions SET category = ?, confidence = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		category, ConfidenceManual, id)
	return err
}

// UpdatePeriod overrides the accounting period bounds of one transaction.
func (r *TransactionRepo) UpdatePeriod(ctx context.Context, id, periodFrom, periodTo string) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE bank_transactions SET period_from = ?, period_to = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		periodFrom, periodTo, id)
	return err
}

func (r *TransactionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM bank_transactions WHERE id = ?`, id)
	return err
}

// DeleteBatch removes several transactions in one statement.
func (r *TransactionRepo) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM bank_transactions WHERE id IN (`+placeholders+`)`, args...)
	return err
}

func (r *TransactionRepo) List(ctx context.Context, f TransactionFilters) ([]Transaction, error) {
	var where []string
	var args []interface{}

	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Month != "" {
		where = append(where, "transaction_date LIKE ?")
		args = append(args, f.Month+"-%")
	}
	if f.Search != "" {
		where = append(where, "(beneficiary LIKE ? OR purpose LIKE ?)")
		args = append(args, "%"+f.Search+"%", "%"+f.Search+"%")
	}
	if f.BatchID != "" {
		where = append(where, "import_batch_id = ?")
		args = append(args, f.BatchID)
	}

	query := "SELECT " + txColumns + " FROM bank_transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY transaction_date DESC, created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TransactionRepo) Get(ctx context.Context, id string) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+txColumns+" FROM bank_transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// scanTransaction handles nullable fields for both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	var matched sql.NullString
	if err := row.Scan(&t.ID, &t.Date, &t.Amount, &t.IsDebit, &t.Beneficiary, &t.BIN,
		&t.BeneficiaryAccount, &t.BIK, &t.KNP, &t.Purpose, &t.Category, &t.Confidence,
		&matched, &t.PeriodFrom, &t.PeriodTo, &t.TxHash, &t.ImportFile, &t.ImportBatchID,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	if matched.Valid {
		t.MatchedRule = &matched.String
	}
	return t, nil
}
