package utils

import (
	"strings"
	"unicode/utf8"

	"github.com/MKhiriev/go-clinic-auth/models"
)

// Length caps, in runes, for caller-controlled audit fields.
const (
	MaxAuditIPLength        = 64
	MaxAuditMethodLength    = 16
	MaxAuditUserAgentLength = 512
	MaxAuditPathLength      = 2048
	MaxAuditTextLength      = 1024
)

// SanitizeAuditText makes s storable in a PostgreSQL TEXT column and stable
// under JSON encoding: invalid UTF-8 sequences become U+FFFD, NUL bytes are
// dropped and the result is cut to at most limit runes.
func SanitizeAuditText(s string, limit int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	s = strings.ReplaceAll(s, "\x00", "")

	if limit > 0 && utf8.RuneCountInString(s) > limit {
		runes := []rune(s)
		s = string(runes[:limit])
	}

	return s
}

// SanitizeRequestMeta applies [SanitizeAuditText] to every request attribute.
func SanitizeRequestMeta(meta models.RequestMeta) models.RequestMeta {
	return models.RequestMeta{
		IP:        SanitizeAuditText(meta.IP, MaxAuditIPLength),
		UserAgent: SanitizeAuditText(meta.UserAgent, MaxAuditUserAgentLength),
		Method:    SanitizeAuditText(meta.Method, MaxAuditMethodLength),
		Path:      SanitizeAuditText(meta.Path, MaxAuditPathLength),
	}
}

// SanitizeAuditEntry normalizes every free-text field of entry, metadata
// keys and values included, so the stored row and its content hash cover
// the same bytes.
func SanitizeAuditEntry(entry models.AuditEntry) models.AuditEntry {
	meta := SanitizeRequestMeta(models.RequestMeta{
		IP:        entry.IP,
		UserAgent: entry.UserAgent,
		Method:    entry.Method,
		Path:      entry.Path,
	})
	entry = entry.WithRequest(meta)

	entry.AccountEmail = SanitizeAuditText(entry.AccountEmail, MaxAuditTextLength)
	entry.AccountRole = SanitizeAuditText(entry.AccountRole, MaxAuditTextLength)
	entry.Action = models.AuditAction(SanitizeAuditText(string(entry.Action), MaxAuditTextLength))
	entry.ResourceType = SanitizeAuditText(entry.ResourceType, MaxAuditTextLength)
	entry.ResourceID = SanitizeAuditText(entry.ResourceID, MaxAuditTextLength)
	entry.ErrorCode = SanitizeAuditText(entry.ErrorCode, MaxAuditTextLength)
	entry.ErrorMessage = SanitizeAuditText(entry.ErrorMessage, MaxAuditTextLength)

	if len(entry.Metadata) > 0 {
		metadata := make(map[string]string, len(entry.Metadata))
		for k, v := range entry.Metadata {
			metadata[SanitizeAuditText(k, MaxAuditTextLength)] = SanitizeAuditText(v, MaxAuditTextLength)
		}
		entry.Metadata = metadata
	}

	return entry
}
