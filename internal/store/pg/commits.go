package pg

import (
	"context"

	"github.com/dropDatabas3/collabsql/internal/domain"
)

// AppendCommit inserta el registro con seq monótono por database.
// El MAX(seq)+1 corre dentro de la misma sentencia; el ledger serializa
// appends por proceso y la unique (database_id, seq) cierra la puerta a
// cualquier carrera residual entre procesos.
func (s *Store) AppendCommit(ctx context.Context, c *domain.CommitRecord) error {
	const q = `
		INSERT INTO commits
			(database_id, seq, user_id, commit_message, query_executed,
			 affected_tables, rows_affected, operation_type,
			 snapshot_before, snapshot_after)
		VALUES
			($1,
			 (SELECT COALESCE(MAX(seq), 0) + 1 FROM commits WHERE database_id = $1),
			 $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING seq, timestamp`
	return s.pool.QueryRow(ctx, q,
		c.DatabaseID, c.UserID, c.Message, c.Operation,
		c.AffectedTables, c.RowsAffected, c.Kind,
		c.SnapshotBefore, c.SnapshotAfter,
	).Scan(&c.ID, &c.Timestamp)
}

func (s *Store) ListCommits(ctx context.Context, databaseID string, limit, offset int) ([]domain.CommitRecord, error) {
	const q = `
		SELECT c.seq, c.database_id, c.user_id, u.username, c.commit_message,
		       c.query_executed, c.affected_tables, c.rows_affected,
		       c.operation_type, c.timestamp, c.snapshot_before, c.snapshot_after
		FROM commits c
		JOIN users u ON u.id = c.user_id
		WHERE c.database_id = $1
		ORDER BY c.timestamp DESC, c.seq DESC
		LIMIT $2 OFFSET $3`
	rows, err := s.pool.Query(ctx, q, databaseID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CommitRecord
	for rows.Next() {
		var c domain.CommitRecord
		if err := rows.Scan(&c.ID, &c.DatabaseID, &c.UserID, &c.Username, &c.Message,
			&c.Operation, &c.AffectedTables, &c.RowsAffected,
			&c.Kind, &c.Timestamp, &c.SnapshotBefore, &c.SnapshotAfter); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CommitStats(ctx context.Context, databaseID string) (*domain.CommitStats, error) {
	const q = `
		SELECT operation_type, COUNT(*)
		FROM commits
		WHERE database_id = $1
		GROUP BY operation_type`
	rows, err := s.pool.Query(ctx, q, databaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &domain.CommitStats{CountByKind: map[domain.CommitKind]int{}}
	for rows.Next() {
		var kind domain.CommitKind
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		stats.CountByKind[kind] = n
		stats.Total += n
	}
	return stats, rows.Err()
}
