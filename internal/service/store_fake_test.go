package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MKhiriev/go-clinic-auth/internal/store"
	"github.com/MKhiriev/go-clinic-auth/internal/utils"
	"github.com/MKhiriev/go-clinic-auth/models"
)

// memStore is an in-memory stand-in for the three repositories. It follows
// the semantics of the SQL statements closely enough for flow tests: atomic
// counters, single live session per account, a hash-chained audit log and
// the cascade / set-null behavior of account deletion.
type memStore struct {
	mu sync.Mutex

	accounts map[int64]*models.Account
	deleted  map[int64]bool
	sessions map[string]*models.Session
	audit    []models.AuditEntry

	// injected failures
	findErr      error
	findErrOnce  bool
	clearErr     error
	isActiveErr  error
	isCurrentErr error
	appendErr    error
	deleteErr    error
}

func newMemStore(accounts ...models.Account) *memStore {
	s := &memStore{
		accounts: make(map[int64]*models.Account),
		deleted:  make(map[int64]bool),
		sessions: make(map[string]*models.Session),
	}
	for _, a := range accounts {
		a := a
		s.accounts[a.AccountID] = &a
	}
	return s
}

func copyAccount(a *models.Account) models.Account {
	c := *a
	if a.LockedUntil != nil {
		t := *a.LockedUntil
		c.LockedUntil = &t
	}
	return c
}

// ── AccountRepository ─────────────────────────────────────────────────────────

func (s *memStore) FindAccountByEmail(_ context.Context, email string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.findErr; err != nil {
		if s.findErrOnce {
			s.findErr = nil
		}
		return models.Account{}, err
	}
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) {
			return copyAccount(a), nil
		}
	}
	return models.Account{}, store.ErrAccountNotFound
}

func (s *memStore) FindAccountByID(_ context.Context, accountID int64) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return models.Account{}, store.ErrAccountNotFound
	}
	return copyAccount(a), nil
}

func (s *memStore) ClearExpiredLock(_ context.Context, accountID int64, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clearErr != nil {
		return false, s.clearErr
	}
	a, ok := s.accounts[accountID]
	if !ok || a.LockedUntil == nil || a.LockedUntil.After(now) {
		return false, nil
	}
	a.FailedAttempts = 0
	a.LockedUntil = nil
	return true, nil
}

func (s *memStore) RecordFailedAttempt(_ context.Context, accountID int64, threshold int, lockUntil time.Time) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return models.Account{}, store.ErrAccountNotFound
	}
	a.FailedAttempts++
	if a.FailedAttempts >= threshold {
		until := lockUntil
		a.LockedUntil = &until
	}
	return copyAccount(a), nil
}

func (s *memStore) ResetFailedAttempts(_ context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.accounts[accountID]; ok {
		a.FailedAttempts = 0
		a.LockedUntil = nil
	}
	return nil
}

func (s *memStore) DeleteAccount(_ context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.accounts[accountID]; !ok {
		return store.ErrAccountNotFound
	}
	delete(s.accounts, accountID)
	s.deleted[accountID] = true

	for id, session := range s.sessions {
		if session.AccountID == accountID {
			delete(s.sessions, id)
		}
	}
	for i := range s.audit {
		if s.audit[i].AccountID != nil && *s.audit[i].AccountID == accountID {
			s.audit[i].AccountID = nil
		}
	}
	return nil
}

// ── SessionRepository ─────────────────────────────────────────────────────────

func (s *memStore) ReplaceSession(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[session.AccountID]; !ok {
		return store.ErrAccountNotFound
	}
	for _, existing := range s.sessions {
		if existing.AccountID == session.AccountID && !existing.Revoked {
			revokedAt := session.IssuedAt
			existing.Revoked = true
			existing.RevokedAt = &revokedAt
		}
	}
	s.sessions[session.SessionID] = &session
	return nil
}

func (s *memStore) live(accountID int64, sessionID string, now time.Time) (*models.Session, bool) {
	session, ok := s.sessions[sessionID]
	if !ok || session.AccountID != accountID || !session.IsValidAt(now) {
		return nil, false
	}
	return session, true
}

func (s *memStore) IsCurrent(_ context.Context, accountID int64, sessionID, tokenHash string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isCurrentErr != nil {
		return false, s.isCurrentErr
	}
	session, ok := s.live(accountID, sessionID, now)
	return ok && session.TokenHash == tokenHash, nil
}

func (s *memStore) IsActive(_ context.Context, accountID int64, sessionID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isActiveErr != nil {
		return false, s.isActiveErr
	}
	_, ok := s.live(accountID, sessionID, now)
	return ok, nil
}

func (s *memStore) RotateSession(_ context.Context, sessionID, oldHash, newHash string, expiresAt, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || !session.IsValidAt(now) || session.TokenHash != oldHash {
		return store.ErrSessionNotFound
	}
	session.TokenHash = newHash
	session.ExpiresAt = expiresAt
	return nil
}

func (s *memStore) RevokeSessions(_ context.Context, accountID int64, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, session := range s.sessions {
		if session.AccountID == accountID && !session.Revoked {
			revokedAt := now
			session.Revoked = true
			session.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (s *memStore) PurgeSessions(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for id, session := range s.sessions {
		if (session.Revoked && session.RevokedAt.Before(cutoff)) || session.ExpiresAt.Before(cutoff) {
			delete(s.sessions, id)
			purged++
		}
	}
	return purged, nil
}

func (s *memStore) liveSessions(accountID int64, now time.Time) []models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var live []models.Session
	for _, session := range s.sessions {
		if session.AccountID == accountID && session.IsValidAt(now) {
			live = append(live, *session)
		}
	}
	return live
}

// ── AuditRepository ───────────────────────────────────────────────────────────

func (s *memStore) AppendEntry(_ context.Context, entry models.AuditEntry) (models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.appendErr != nil {
		return models.AuditEntry{}, s.appendErr
	}
	if !storableText(entry) {
		// what postgres answers for invalid UTF-8 or NUL in a TEXT value
		return models.AuditEntry{}, &pgconn.PgError{Code: pgerrcode.CharacterNotInRepertoire}
	}
	if entry.AccountID != nil && s.deleted[*entry.AccountID] {
		// audit_log.account_id references accounts
		return models.AuditEntry{}, &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}
	}

	entry.CreatedAt = utils.AuditTimestamp(entry.CreatedAt)
	if entry.AccountID != nil {
		entry.AccountRef = utils.AuditAccountRef(entry.AccountID)
	}
	entry.PreviousHash = models.GenesisHash
	if n := len(s.audit); n > 0 {
		entry.PreviousHash = s.audit[n-1].ContentHash
	}
	entry.ContentHash = utils.AuditContentHash(entry)
	entry.ID = int64(len(s.audit) + 1)

	s.audit = append(s.audit, entry)
	return entry, nil
}

func (s *memStore) ListEntries(_ context.Context, filter models.AuditFilter) ([]models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.AuditEntry
	for _, e := range s.audit {
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.AccountEmail != "" && !strings.EqualFold(e.AccountEmail, filter.AccountEmail) {
			continue
		}
		if filter.BeforeID > 0 && e.ID >= filter.BeforeID {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID > entries[j].ID })
	return entries, nil
}

func (s *memStore) ChainEntries(_ context.Context, afterID int64, limit uint64) ([]models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.AuditEntry
	for _, e := range s.audit {
		if e.ID > afterID && uint64(len(entries)) < limit {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func storableText(entry models.AuditEntry) bool {
	fields := []string{
		entry.AccountEmail, entry.AccountRole, string(entry.Action), entry.ResourceType, entry.ResourceID,
		entry.IP, entry.UserAgent, entry.Method, entry.Path, entry.ErrorCode, entry.ErrorMessage,
	}
	for k, v := range entry.Metadata {
		fields = append(fields, k, v)
	}
	for _, f := range fields {
		if !utf8.ValidString(f) || strings.ContainsRune(f, 0) {
			return false
		}
	}
	return true
}

// actions returns the recorded audit actions in insertion order.
func (s *memStore) actions() []models.AuditAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions := make([]models.AuditAction, 0, len(s.audit))
	for _, e := range s.audit {
		actions = append(actions, e.Action)
	}
	return actions
}

func (s *memStore) entries() []models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.AuditEntry(nil), s.audit...)
}
