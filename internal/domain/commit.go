package domain

import (
	"strings"
	"time"
)

// CommitKind etiqueta la clase de mutación registrada en el ledger.
type CommitKind string

const (
	KindInsert CommitKind = "insert"
	KindUpdate CommitKind = "update"
	KindDelete CommitKind = "delete"
	KindCreate CommitKind = "create"
	KindSchema CommitKind = "schema"
	KindRead   CommitKind = "read"
)

// KindFromOperation clasifica una operación SQL por su primera palabra.
// Todo lo que no se reconoce se trata como update, igual que el origen.
func KindFromOperation(op string) CommitKind {
	head := strings.ToUpper(strings.TrimSpace(op))
	switch {
	case strings.HasPrefix(head, "INSERT"):
		return KindInsert
	case strings.HasPrefix(head, "DELETE"):
		return KindDelete
	case strings.HasPrefix(head, "CREATE"):
		return KindCreate
	case strings.HasPrefix(head, "ALTER"), strings.HasPrefix(head, "DROP"):
		return KindSchema
	case strings.HasPrefix(head, "SELECT"), strings.HasPrefix(head, "PRAGMA"):
		return KindRead
	default:
		return KindUpdate
	}
}

// CommitRecord es un registro inmutable del ledger de auditoría.
// Una vez escrito nunca se muta ni se borra desde este core.
//
// ID es monótono creciente por database; el orden total por database es
// (Timestamp, ID) con ID como desempate.
type CommitRecord struct {
	ID             int64      `json:"id"`
	DatabaseID     string     `json:"database_id"`
	UserID         string     `json:"user_id"`
	Username       string     `json:"username,omitempty"`
	Message        *string    `json:"message,omitempty"`
	Operation      string     `json:"operation"`
	AffectedTables []string   `json:"affected_tables"`
	RowsAffected   int        `json:"rows_affected"`
	Kind           CommitKind `json:"kind"`
	Timestamp      time.Time  `json:"timestamp"`
	SnapshotBefore []byte     `json:"snapshot_before,omitempty"`
	SnapshotAfter  []byte     `json:"snapshot_after,omitempty"`
}

// CommitStats son los agregados del ledger para una database.
type CommitStats struct {
	Total       int                `json:"total"`
	CountByKind map[CommitKind]int `json:"count_by_kind"`
}
