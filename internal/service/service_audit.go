// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/MKhiriev/go-clinic-auth/internal/config"
	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/MKhiriev/go-clinic-auth/internal/store"
	"github.com/MKhiriev/go-clinic-auth/internal/utils"
	"github.com/MKhiriev/go-clinic-auth/internal/validators"
	"github.com/MKhiriev/go-clinic-auth/models"
)

// chainPageSize is the number of rows read per query while verifying the
// chain.
const chainPageSize uint64 = 500

// auditLedger is the concrete implementation of AuditLedger.
//
// Writes go through a circuit breaker: while the database keeps failing,
// Record stops waiting for it and drops entries immediately. Rejections
// raised by the immutability trigger or constraints do not count as
// failures, since they mean the database is up.
type auditLedger struct {
	audits    store.AuditRepository
	validator validators.Validator

	breaker      *gobreaker.CircuitBreaker
	classifier   store.ErrorClassificator
	writeTimeout time.Duration

	now    func() time.Time
	logger *logger.Logger
}

func NewAuditLedger(audits store.AuditRepository, cfg config.App, log *logger.Logger) AuditLedger {
	ledger := &auditLedger{
		audits:       audits,
		validator:    validators.NewAuthValidator(),
		classifier:   store.NewPostgresErrorClassifier(),
		writeTimeout: cfg.AuditWriteTimeout,
		now:          time.Now,
		logger:       log,
	}

	ledger.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "audit-ledger",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || ledger.classifier.Classify(err) == store.NonRetryable
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("audit write circuit breaker changed state")
		},
	})

	return ledger
}

// Record appends entry to the chain. Request metadata is taken from ctx when
// the entry carries none, and CreatedAt defaults to the current time. Text
// fields are sanitized first, so malformed client input is stored with
// replacement characters instead of being rejected by the database.
//
// The write is detached from the cancellation of ctx and bounded by the
// configured timeout. It is attempted once; any error is logged.
func (a *auditLedger) Record(ctx context.Context, entry models.AuditEntry) {
	log := logger.FromContext(ctx)

	if entry.Method == "" && entry.Path == "" {
		entry = entry.WithRequest(utils.GetRequestMetaFromContext(ctx))
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = a.now()
	}
	entry = utils.SanitizeAuditEntry(entry)

	_, err := a.breaker.Execute(func() (interface{}, error) {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.writeTimeout)
		defer cancel()

		return a.audits.AppendEntry(writeCtx, entry)
	})
	if err != nil {
		event := log.Error()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			event = log.Warn()
		}
		event.Err(err).
			Str("action", string(entry.Action)).
			Str("status", string(entry.Status)).
			Str("account_email", entry.AccountEmail).
			Msg("audit entry dropped")
	}
}

// List returns the entries matching filter, newest first, and records the
// export on behalf of actor.
func (a *auditLedger) List(ctx context.Context, actor models.Principal, filter models.AuditFilter) ([]models.AuditEntry, error) {
	log := logger.FromContext(ctx)

	if err := a.validator.Validate(ctx, filter); err != nil {
		return nil, newAuthError(KindInvalidInput, err)
	}

	entries, err := a.audits.ListEntries(ctx, filter)
	if err != nil {
		log.Err(err).Msg("error listing audit entries")
		return nil, newAuthError(KindUnavailable, err)
	}

	metadata := map[string]string{"count": strconv.Itoa(len(entries))}
	if filter.AccountEmail != "" {
		metadata["account_email"] = filter.AccountEmail
	}
	if filter.Action != "" {
		metadata["action"] = string(filter.Action)
	}
	if filter.Status != "" {
		metadata["status"] = string(filter.Status)
	}
	if filter.BeforeID > 0 {
		metadata["before_id"] = strconv.FormatInt(filter.BeforeID, 10)
	}

	a.Record(ctx, models.AuditEntry{
		Action:       models.AuditExport,
		ResourceType: models.AuditEntry{}.TableName(),
		Status:       models.AuditStatusSuccess,
		Metadata:     metadata,
	}.WithActor(actor.Account()))

	return entries, nil
}

// Verify recomputes the hash chain from genesis. A break is reported in the
// returned ChainReport, not as an error; errors mean the log could not be
// read.
func (a *auditLedger) Verify(ctx context.Context, actor models.Principal) (models.ChainReport, error) {
	log := logger.FromContext(ctx)

	report := models.ChainReport{Valid: true}
	previousHash := models.GenesisHash
	var afterID int64

	for report.Valid {
		entries, err := a.audits.ChainEntries(ctx, afterID, chainPageSize)
		if err != nil {
			log.Err(err).Int64("after_id", afterID).Msg("error reading audit chain")
			return models.ChainReport{}, newAuthError(KindUnavailable, err)
		}

		for _, entry := range entries {
			report.Checked++

			if entry.PreviousHash != previousHash {
				report.Valid = false
				report.BrokenAtID = entry.ID
				report.Reason = "previous hash does not match the preceding entry"
				break
			}

			if entry.AccountID != nil && utils.AuditAccountRef(entry.AccountID) != entry.AccountRef {
				report.Valid = false
				report.BrokenAtID = entry.ID
				report.Reason = "account id does not match the recorded account reference"
				break
			}

			recomputed := utils.AuditContentHash(entry)
			if recomputed != entry.ContentHash {
				report.Valid = false
				report.BrokenAtID = entry.ID
				report.Reason = "content hash does not match the entry content"
				break
			}

			previousHash = recomputed
			afterID = entry.ID
		}

		if uint64(len(entries)) < chainPageSize {
			break
		}
	}

	entry := models.AuditEntry{
		Action:       models.AuditChainVerified,
		ResourceType: models.AuditEntry{}.TableName(),
		Status:       models.AuditStatusSuccess,
		Metadata: map[string]string{
			"checked": strconv.Itoa(report.Checked),
			"valid":   strconv.FormatBool(report.Valid),
		},
	}.WithActor(actor.Account())
	if !report.Valid {
		entry.Status = models.AuditStatusFailure
		entry.ResourceID = strconv.FormatInt(report.BrokenAtID, 10)
		log.Error().Int64("broken_at_id", report.BrokenAtID).Str("reason", report.Reason).Msg("audit chain broken")
	}
	a.Record(ctx, entry)

	return report, nil
}
