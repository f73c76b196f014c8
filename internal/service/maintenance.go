package service

import (
	"database/sql"
	"fmt"

	"github.com/myata/backoffice/internal/database"
)

// MaintenanceService owns destructive whole-database operations.
type MaintenanceService struct {
	DB *sql.DB
}

// Reset wipes all imported data, rules, and the taxonomy, then reclaims
// file space. Schema stays in place; callers reseed defaults afterwards.
func (s *MaintenanceService) Reset() error {
	err := database.WithTx(s.DB, func(tx *sql.Tx) error {
		for _, table := range []string{
			"bank_rule_conditions",
			"bank_rules",
			"bank_transactions",
			"categories",
		} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("clearing %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if _, err := s.DB.Exec("VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}
