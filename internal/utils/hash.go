package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"github.com/MKhiriev/go-clinic-auth/models"
)

// HashToken returns the hex-encoded SHA-256 digest of a signed token. Only
// this digest is persisted for refresh tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// AuditAccountRef returns the immutable account reference stored next to
// account_id: the hex SHA-256 of the decimal id, or "" for no account.
func AuditAccountRef(accountID *int64) string {
	if accountID == nil {
		return ""
	}
	return HashToken(strconv.FormatInt(*accountID, 10))
}

// auditHashInput fixes the field order of the hashed audit representation.
// AccountID and the row id are left out: the former is nulled when an
// account is erased, the latter is assigned by the database. AccountRef
// binds the entry to its account instead.
type auditHashInput struct {
	CreatedAt    string            `json:"created_at"`
	AccountRef   string            `json:"account_ref"`
	AccountEmail string            `json:"account_email"`
	AccountRole  string            `json:"account_role"`
	Action       string            `json:"action"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
	IP           string            `json:"ip"`
	UserAgent    string            `json:"user_agent"`
	Method       string            `json:"method"`
	Path         string            `json:"path"`
	Status       string            `json:"status"`
	ErrorCode    string            `json:"error_code"`
	ErrorMessage string            `json:"error_message"`
	Metadata     map[string]string `json:"metadata"`
	PreviousHash string            `json:"previous_hash"`
}

// AuditTimestamp normalizes t to the precision PostgreSQL stores
// (microseconds, UTC) so a hash computed before insert matches one
// recomputed from the stored row.
func AuditTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// AuditContentHash computes the chain hash of an audit entry: SHA-256 over a
// canonical JSON encoding of its content and PreviousHash. Map keys are
// sorted by encoding/json, and the nil and empty metadata maps hash alike.
func AuditContentHash(entry models.AuditEntry) string {
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	input := auditHashInput{
		CreatedAt:    AuditTimestamp(entry.CreatedAt).Format(time.RFC3339Nano),
		AccountRef:   entry.AccountRef,
		AccountEmail: entry.AccountEmail,
		AccountRole:  entry.AccountRole,
		Action:       string(entry.Action),
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		IP:           entry.IP,
		UserAgent:    entry.UserAgent,
		Method:       entry.Method,
		Path:         entry.Path,
		Status:       string(entry.Status),
		ErrorCode:    entry.ErrorCode,
		ErrorMessage: entry.ErrorMessage,
		Metadata:     metadata,
		PreviousHash: entry.PreviousHash,
	}

	// a struct of strings and a string map cannot fail to marshal
	payload, _ := json.Marshal(input)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
