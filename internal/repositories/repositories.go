package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/tunesync/internal/models"
)

var (
	_ models.Ledger[*models.Run]       = (*RunRepository)(nil)
	_ models.Ledger[*models.JobRecord] = (*JobRepository)(nil)
)

// sequenced lists the tables that own a "<table>_sequence" counter row.
var sequenced = map[string]bool{"runs": true}

// NextSequence bumps the counter of table and returns the new value. The run number printed by
// `tunesync history` comes from here.
func NextSequence(db *sql.DB, table string) (int, error) {
	if !sequenced[table] {
		return 0, fmt.Errorf("no sequence for table %q", table)
	}

	var n int
	query := fmt.Sprintf("UPDATE %s_sequence SET value = value + 1 WHERE id = 1 RETURNING value", table)
	if err := db.QueryRow(query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to advance %s sequence: %w", table, err)
	}
	return n, nil
}
