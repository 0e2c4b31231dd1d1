package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	intconfig "trainbackend/internal/config"
	intdb "trainbackend/internal/db"
	"trainbackend/internal/domain"
	"trainbackend/internal/domain/models"
)

// SyncQueueRepository is the durable offline-operation log. The
// auto-increment primary key doubles as the FIFO sequence.
type SyncQueueRepository struct {
	DB *sql.DB
}

func (r SyncQueueRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// Enqueue appends a Pending operation and returns its queue id.
// Re-enqueues of the same client op id return the existing row instead
// of duplicating it.
func (r SyncQueueRepository) Enqueue(op models.SyncOperation) (int64, error) {
	db := r.db()
	if db == nil {
		return 0, domain.InternalError{Msg: "db not available"}
	}
	if err := r.ensureTable(); err != nil {
		return 0, domain.InternalError{Err: err}
	}

	if op.ClientOpID != "" {
		var existing int64
		err := db.QueryRow(`SELECT id FROM sync_operations WHERE client_op_id=? LIMIT 1`, op.ClientOpID).Scan(&existing)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
	}

	res, err := db.Exec(`
		INSERT INTO sync_operations (client_op_id, op_type, payload, status, created_at, updated_at)
		VALUES (?, ?, ?, 'Pending', NOW(), NOW())
	`, intdb.NullIfEmpty(op.ClientOpID), string(op.Type), []byte(op.Payload))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListPending returns Pending operations in enqueue (FIFO) order. Failed
// rows are deliberately excluded; they wait for manual retry.
func (r SyncQueueRepository) ListPending() ([]models.SyncOperation, error) {
	db := r.db()
	if !intdb.HasTable(db, "sync_operations") {
		return []models.SyncOperation{}, nil
	}
	rows, err := db.Query(`
		SELECT id, COALESCE(client_op_id, ''), op_type, payload, status, COALESCE(last_error, ''), created_at, updated_at
		FROM sync_operations
		WHERE status='Pending'
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOps(rows)
}

// ListFailed is the needs-attention view.
func (r SyncQueueRepository) ListFailed() ([]models.SyncOperation, error) {
	db := r.db()
	if !intdb.HasTable(db, "sync_operations") {
		return []models.SyncOperation{}, nil
	}
	rows, err := db.Query(`
		SELECT id, COALESCE(client_op_id, ''), op_type, payload, status, COALESCE(last_error, ''), created_at, updated_at
		FROM sync_operations
		WHERE status='Failed'
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOps(rows)
}

// Complete removes an operation after successful replay.
func (r SyncQueueRepository) Complete(id int64) error {
	_, err := r.db().Exec(`DELETE FROM sync_operations WHERE id=?`, id)
	return err
}

// MarkFailed keeps the operation for inspection; it will not be picked
// up again by ListPending.
func (r SyncQueueRepository) MarkFailed(id int64, cause string) error {
	_, err := r.db().Exec(`
		UPDATE sync_operations SET status='Failed', last_error=?, updated_at=NOW() WHERE id=?
	`, cause, id)
	return err
}

// RetryFailed flips one Failed operation back to Pending on explicit
// user request.
func (r SyncQueueRepository) RetryFailed(id int64) error {
	res, err := r.db().Exec(`
		UPDATE sync_operations SET status='Pending', last_error=NULL, updated_at=NOW()
		WHERE id=? AND status='Failed'
	`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "sync operation"}
	}
	return nil
}

func (r SyncQueueRepository) ensureTable() error {
	db := r.db()
	if db == nil {
		return fmt.Errorf("db not available")
	}
	if intdb.HasTable(db, "sync_operations") {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS sync_operations (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	client_op_id VARCHAR(64) NULL,
	op_type VARCHAR(40) NOT NULL,
	payload JSON NOT NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'Pending',
	last_error TEXT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	KEY idx_sync_status (status),
	UNIQUE KEY uq_client_op (client_op_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	_, err := db.Exec(ddl)
	return err
}

func collectOps(rows *sql.Rows) ([]models.SyncOperation, error) {
	out := []models.SyncOperation{}
	for rows.Next() {
		var op models.SyncOperation
		var opType, status string
		var payload []byte
		if err := rows.Scan(&op.ID, &op.ClientOpID, &opType, &payload, &status, &op.LastError, &op.CreatedAt, &op.UpdatedAt); err != nil {
			return out, err
		}
		op.Type = models.SyncOpType(opType)
		op.Status = models.SyncOpStatus(status)
		op.Payload = payload
		out = append(out, op)
	}
	return out, rows.Err()
}
