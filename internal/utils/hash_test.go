// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/MKhiriev/go-clinic-auth/models"
	"github.com/stretchr/testify/assert"
)

func sampleAuditEntry() models.AuditEntry {
	accountID := int64(12)
	return models.AuditEntry{
		ID:           99,
		CreatedAt:    time.Date(2026, 3, 4, 10, 11, 12, 123456789, time.FixedZone("CET", 3600)),
		AccountID:    &accountID,
		AccountRef:   AuditAccountRef(&accountID),
		AccountEmail: "n.ivanova@clinic.example",
		AccountRole:  models.RoleNurse,
		Action:       models.AuditLoginSuccess,
		ResourceType: "session",
		ResourceID:   "0192f0a4-7c1e-7000-8000-000000000001",
		IP:           "10.0.0.7",
		UserAgent:    "ward-terminal/2.1",
		Method:       "POST",
		Path:         "/api/auth/login",
		Status:       models.AuditStatusSuccess,
		Metadata:     map[string]string{"b": "2", "a": "1"},
		PreviousHash: models.GenesisHash,
	}
}

func TestHashToken(t *testing.T) {
	sum := sha256.Sum256([]byte("header.payload.sig"))
	expected := hex.EncodeToString(sum[:])

	if got := HashToken("header.payload.sig"); got != expected {
		t.Fatalf("unexpected token hash\nwant: %s\ngot:  %s", expected, got)
	}
	if HashToken("a") == HashToken("b") {
		t.Fatal("different tokens must hash differently")
	}
}

func TestAuditContentHash_Deterministic(t *testing.T) {
	e := sampleAuditEntry()

	h1 := AuditContentHash(e)
	h2 := AuditContentHash(e)

	assert.Len(t, h1, 64)
	assert.Equal(t, h1, h2)
}

func TestAuditContentHash_IgnoresAccountIDAndRowID(t *testing.T) {
	e := sampleAuditEntry()
	original := AuditContentHash(e)

	e.AccountID = nil
	e.ID = 1
	e.ContentHash = "anything"

	assert.Equal(t, original, AuditContentHash(e))
}

func TestAuditAccountRef(t *testing.T) {
	id := int64(42)
	sum := sha256.Sum256([]byte("42"))

	assert.Equal(t, hex.EncodeToString(sum[:]), AuditAccountRef(&id))
	assert.Empty(t, AuditAccountRef(nil))

	other := int64(7)
	assert.NotEqual(t, AuditAccountRef(&id), AuditAccountRef(&other))
}

func TestAuditContentHash_NormalizesTimestamp(t *testing.T) {
	e := sampleAuditEntry()
	original := AuditContentHash(e)

	// same instant, UTC, truncated to the microsecond as stored by postgres
	e.CreatedAt = e.CreatedAt.UTC().Truncate(time.Microsecond)

	assert.Equal(t, original, AuditContentHash(e))
}

func TestAuditContentHash_NilAndEmptyMetadataMatch(t *testing.T) {
	e := sampleAuditEntry()
	e.Metadata = nil
	withNil := AuditContentHash(e)

	e.Metadata = map[string]string{}
	assert.Equal(t, withNil, AuditContentHash(e))
}

func TestAuditContentHash_DetectsChanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *models.AuditEntry)
	}{
		{"email", func(e *models.AuditEntry) { e.AccountEmail = "someone@clinic.example" }},
		{"account ref", func(e *models.AuditEntry) { e.AccountRef = HashToken("13") }},
		{"action", func(e *models.AuditEntry) { e.Action = models.AuditLoginFailure }},
		{"status", func(e *models.AuditEntry) { e.Status = models.AuditStatusFailure }},
		{"timestamp", func(e *models.AuditEntry) { e.CreatedAt = e.CreatedAt.Add(time.Microsecond) }},
		{"metadata", func(e *models.AuditEntry) { e.Metadata["a"] = "3" }},
		{"previous hash", func(e *models.AuditEntry) { e.PreviousHash = HashToken("x") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := AuditContentHash(sampleAuditEntry())

			e := sampleAuditEntry()
			tt.mutate(&e)

			assert.NotEqual(t, original, AuditContentHash(e))
		})
	}
}
