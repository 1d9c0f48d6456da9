// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/MKhiriev/go-clinic-auth/internal/service"
	"github.com/MKhiriev/go-clinic-auth/internal/utils"
	"github.com/MKhiriev/go-clinic-auth/models"
)

// defaultAuditPageSize is used when the query carries no limit or limit=0.
const defaultAuditPageSize uint64 = 50

type auditEntriesResponse struct {
	Entries []models.AuditEntry `json:"entries"`

	// NextBeforeID is the cursor for the next (older) page, zero when the
	// page was not full.
	NextBeforeID int64 `json:"next_before_id,omitempty"`
}

// parseAuditFilter reads email, action, status, before_id and limit from the
// query string. Range checks are left to the audit ledger.
func parseAuditFilter(query url.Values) (models.AuditFilter, error) {
	filter := models.AuditFilter{
		AccountEmail: query.Get("email"),
		Action:       models.AuditAction(query.Get("action")),
		Status:       models.AuditStatus(query.Get("status")),
		Limit:        defaultAuditPageSize,
	}

	if raw := query.Get("before_id"); raw != "" {
		beforeID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return models.AuditFilter{}, invalidInput(errors.Join(ErrInvalidQuery, err))
		}
		filter.BeforeID = beforeID
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return models.AuditFilter{}, invalidInput(errors.Join(ErrInvalidQuery, err))
		}
		if limit > 0 {
			filter.Limit = limit
		}
	}

	return filter, nil
}

func (h *Handler) listAuditEntries(w http.ResponseWriter, r *http.Request) {
	principal, ok := utils.GetPrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, &service.AuthError{Kind: service.KindTokenInvalid, Err: ErrNoPrincipal})
		return
	}

	filter, err := parseAuditFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries, err := h.services.AuditLedger.List(r.Context(), principal, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := auditEntriesResponse{Entries: entries}
	if response.Entries == nil {
		response.Entries = []models.AuditEntry{}
	}
	if len(entries) > 0 && uint64(len(entries)) == filter.Limit {
		response.NextBeforeID = entries[len(entries)-1].ID
	}

	utils.WriteJSON(w, response, http.StatusOK)
}

func (h *Handler) verifyAuditChain(w http.ResponseWriter, r *http.Request) {
	principal, ok := utils.GetPrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, &service.AuthError{Kind: service.KindTokenInvalid, Err: ErrNoPrincipal})
		return
	}

	report, err := h.services.AuditLedger.Verify(r.Context(), principal)
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, report, http.StatusOK)
}
