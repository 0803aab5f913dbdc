package http

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ems-platform/auth-service/internal/domain/entity"
	domainErrors "github.com/ems-platform/auth-service/internal/domain/errors"
)

// In-memory stand-ins for the Postgres repositories, mirroring their filter
// semantics so handler tests exercise real flows end to end.

type memEmployeeRepo struct {
	mu   sync.Mutex
	byID map[int64]*entity.Employee
}

func newMemEmployeeRepo(employees ...*entity.Employee) *memEmployeeRepo {
	r := &memEmployeeRepo{byID: make(map[int64]*entity.Employee)}
	for _, e := range employees {
		r.byID[e.ID] = e
	}
	return r
}

func (r *memEmployeeRepo) FindByID(ctx context.Context, id int64) (*entity.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byID[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, domainErrors.ErrEmployeeNotFound
}

func (r *memEmployeeRepo) FindByEmail(ctx context.Context, email string) (*entity.Employee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.byID {
		if strings.EqualFold(e.Email, email) {
			copied := *e
			return &copied, nil
		}
	}
	return nil, domainErrors.ErrEmployeeNotFound
}

func (r *memEmployeeRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byID[id]
	if !ok {
		return domainErrors.ErrEmployeeNotFound
	}
	e.HashedPassword = &hash
	return nil
}

type memSessionRepo struct {
	mu   sync.Mutex
	seq  int64
	rows []*entity.Session
}

func (r *memSessionRepo) Create(ctx context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	session.ID = r.seq
	copied := *session
	r.rows = append(r.rows, &copied)
	return nil
}

func (r *memSessionRepo) FindActiveByToken(ctx context.Context, token string) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.SessionToken == token && s.Usable(time.Now()) {
			copied := *s
			return &copied, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (r *memSessionRepo) FindActiveByID(ctx context.Context, id int64) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.ID == id && s.Usable(time.Now()) {
			copied := *s
			return &copied, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (r *memSessionRepo) Revoke(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.ID == id && s.IsActive {
			now := time.Now()
			s.IsActive = false
			s.RevokedAt = &now
		}
	}
	return nil
}

func (r *memSessionRepo) RevokeAllForEmployee(ctx context.Context, employeeID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, s := range r.rows {
		if s.EmployeeID == employeeID && s.IsActive {
			now := time.Now()
			s.IsActive = false
			s.RevokedAt = &now
			count++
		}
	}
	return count, nil
}

func (r *memSessionRepo) FindActiveByEmployee(ctx context.Context, employeeID int64) ([]*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Session
	for i := len(r.rows) - 1; i >= 0; i-- {
		s := r.rows[i]
		if s.EmployeeID == employeeID && s.Usable(time.Now()) {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memSessionRepo) CleanupExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	now := time.Now()
	for _, s := range r.rows {
		if s.IsActive && s.ExpiresAt.Before(now) {
			s.IsActive = false
			s.RevokedAt = &now
			count++
		}
	}
	return count, nil
}

type memCodeRepo struct {
	mu   sync.Mutex
	seq  int64
	rows []*entity.VerificationCode
}

func (r *memCodeRepo) Create(ctx context.Context, code *entity.VerificationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	code.ID = r.seq
	copied := *code
	r.rows = append(r.rows, &copied)
	return nil
}

func (r *memCodeRepo) FindActive(ctx context.Context, employeeID int64, codeType entity.VerificationType) (*entity.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		c := r.rows[i]
		if c.EmployeeID == employeeID && c.Type == codeType && c.ExpiresAt.After(time.Now()) {
			copied := *c
			return &copied, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (r *memCodeRepo) FindValid(ctx context.Context, employeeID int64, code string, codeType entity.VerificationType) (*entity.VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		c := r.rows[i]
		if c.EmployeeID == employeeID && c.Code == code && c.Type == codeType && c.ExpiresAt.After(time.Now()) {
			copied := *c
			return &copied, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (r *memCodeRepo) MarkUsed(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.ID == id {
			c.ExpiresAt = time.Now()
			return nil
		}
	}
	return domainErrors.ErrNotFound
}

func (r *memCodeRepo) CleanupExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	var count int64
	for _, c := range r.rows {
		if c.ExpiresAt.Before(olderThan) {
			count++
			continue
		}
		kept = append(kept, c)
	}
	r.rows = kept
	return count, nil
}

// captureMailer records the last OTP handed to it instead of sending mail.
type captureMailer struct {
	mu       sync.Mutex
	lastCode string
	failNext bool
}

func (m *captureMailer) SendOTPEmail(ctx context.Context, recipient, fullName, otpCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext {
		m.failNext = false
		return errors.New("mail dispatch failed")
	}
	m.lastCode = otpCode
	return nil
}

func (m *captureMailer) capturedCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCode
}

// passthroughTx runs the function directly; the in-memory repositories have
// no transactions to join.
type passthroughTx struct{}

func (passthroughTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
