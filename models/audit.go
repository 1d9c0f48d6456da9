// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "time"

// AuditAction names a security-relevant event recorded in the audit ledger.
type AuditAction string

// Audit actions emitted by the authentication core.
const (
	AuditLoginSuccess      AuditAction = "auth.login.success"
	AuditLoginFailure      AuditAction = "auth.login.failure"
	AuditLoginBlocked      AuditAction = "auth.login.blocked"
	AuditAccountLocked     AuditAction = "auth.account.locked"
	AuditRefreshSuccess    AuditAction = "auth.refresh.success"
	AuditRefreshFailure    AuditAction = "auth.refresh.failure"
	AuditSessionTerminated AuditAction = "auth.session.terminated"
	AuditLogout            AuditAction = "auth.logout"
	AuditAccountDeleted    AuditAction = "account.deleted"
	AuditExport            AuditAction = "audit.export"
	AuditChainVerified     AuditAction = "audit.verify"
)

// AuditStatus is the outcome recorded with an audit entry.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
	AuditStatusBlocked AuditStatus = "blocked"
)

// GenesisHash is the previous_hash value of the first entry in the chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// AuditEntry is one row of the append-only, hash-chained audit ledger.
//
// Once stored, no field may change except AccountID, which the database sets
// to NULL when the referenced account is deleted. AccountRef is the hashed
// form of AccountID that survives the erasure and is covered by the content
// hash. AccountEmail and AccountRole are denormalized so the actor stays
// identifiable afterwards.
type AuditEntry struct {
	ID           int64             `json:"id"`
	CreatedAt    time.Time         `json:"created_at"`
	AccountID    *int64            `json:"account_id"`
	AccountRef   string            `json:"account_ref,omitempty"`
	AccountEmail string            `json:"account_email"`
	AccountRole  string            `json:"account_role"`
	Action       AuditAction       `json:"action"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
	IP           string            `json:"ip"`
	UserAgent    string            `json:"user_agent"`
	Method       string            `json:"method"`
	Path         string            `json:"path"`
	Status       AuditStatus       `json:"status"`
	ErrorCode    string            `json:"error_code,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	PreviousHash string            `json:"previous_hash"`
	ContentHash  string            `json:"content_hash"`
}

// TableName returns the name of the database table
// associated with the AuditEntry model.
func (e AuditEntry) TableName() string {
	return "audit_log"
}

// WithRequest copies the request metadata into the entry.
func (e AuditEntry) WithRequest(meta RequestMeta) AuditEntry {
	e.IP = meta.IP
	e.UserAgent = meta.UserAgent
	e.Method = meta.Method
	e.Path = meta.Path
	return e
}

// WithActor copies the actor identity into the entry.
func (e AuditEntry) WithActor(account Account) AuditEntry {
	if account.AccountID != 0 {
		id := account.AccountID
		e.AccountID = &id
	}
	e.AccountEmail = account.Email
	e.AccountRole = account.Role
	return e
}

// AuditFilter narrows an audit listing. Zero values mean "no filter".
type AuditFilter struct {
	AccountEmail string
	Action       AuditAction
	Status       AuditStatus
	// BeforeID returns entries with a smaller id (descending pagination).
	BeforeID int64
	Limit    uint64
}

// ChainReport is the result of recomputing the audit hash chain from genesis.
type ChainReport struct {
	Checked    int    `json:"checked"`
	Valid      bool   `json:"valid"`
	BrokenAtID int64  `json:"broken_at_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
}
