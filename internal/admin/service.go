// Package admin manages back-office accounts, their access codes and the
// super admin maintenance operations.
package admin

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"rnp-recruitment/internal/audit"
	"rnp-recruitment/internal/auth"
	"rnp-recruitment/internal/store"
	dErrors "rnp-recruitment/pkg/domain-errors"
	"rnp-recruitment/pkg/requestcontext"
)

const (
	codeAttempts        = 50
	defaultCodeIndexKey = "dev-code-index-key-change-in-production"
)

var errCodeTaken = errors.New("access code already assigned")

// SuperAdmin is the bootstrap identity read from configuration.
type SuperAdmin struct {
	Name  string
	Email string
	Code  string
}

// Service owns the admin accounts. Access codes are hashed and verified
// outside store transactions; transactions only write the result.
type Service struct {
	store      *store.Store
	audit      *audit.Log
	logger     *slog.Logger
	superAdmin SuperAdmin
	cost       int
	index      codeIndex
	newCode    func() (string, error)
	compare    func(hash, code []byte) error
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithSuperAdmin sets the identity EnsureSuperAdmin bootstraps.
func WithSuperAdmin(sa SuperAdmin) Option {
	return func(s *Service) {
		s.superAdmin = sa
	}
}

// WithBcryptCost overrides the access code hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

// WithCodeIndexKey sets the secret keying the access code lookup digests.
// An empty secret keeps the development key.
func WithCodeIndexKey(secret string) Option {
	return func(s *Service) {
		if secret != "" {
			s.index = newCodeIndex(secret)
		}
	}
}

func New(st *store.Store, auditLog *audit.Log, opts ...Option) *Service {
	s := &Service{
		store:      st,
		audit:      auditLog,
		logger:     slog.Default(),
		superAdmin: SuperAdmin{Name: "Commissioner", Email: "superadmin@police.gov.rw"},
		cost:       bcrypt.DefaultCost,
		index:      newCodeIndex(defaultCodeIndexKey),
		newCode:    randomCode,
		compare:    bcrypt.CompareHashAndPassword,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("RNP-ADMIN-%d", 1000+n.Int64()), nil
}

func loadUsers(tx *store.Tx) ([]User, error) {
	var users []User
	if err := tx.Load(store.AdminUsers, &users, []User{}); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Service) users(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.store.Load(ctx, store.AdminUsers, &users, []User{}); err != nil {
		return nil, err
	}
	return users, nil
}

// List returns every account in creation order.
func (s *Service) List(ctx context.Context) ([]View, error) {
	users, err := s.users(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]View, len(users))
	for i, u := range users {
		out[i] = u.View()
	}
	return out, nil
}

// Create adds a recruiter with a freshly generated access code. The plain
// code is returned only here.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Created, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	for range codeAttempts {
		user, code, err := s.prepare(ctx, req.Name, req.Email, auth.RoleRecruiter, "")
		if err != nil {
			return nil, err
		}
		err = s.store.RunInTx(ctx, []store.Collection{store.AdminUsers, store.SystemLogs}, func(tx *store.Tx) error {
			users, err := loadUsers(tx)
			if err != nil {
				return err
			}
			if slices.ContainsFunc(users, func(u User) bool { return u.Email == req.Email }) {
				return dErrors.New(dErrors.CodeConflict, "an admin with this email already exists")
			}
			if s.index.lookup(users, code) >= 0 {
				return errCodeTaken
			}
			if err := tx.Save(store.AdminUsers, append(users, user)); err != nil {
				return err
			}
			return s.audit.Append(tx, audit.ActionAddAdmin, "Created admin account for "+user.Email)
		})
		if errors.Is(err, errCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "admin account created", "admin_id", user.ID)
		return &Created{User: user.View(), AccessCode: code}, nil
	}
	return nil, dErrors.New(dErrors.CodeConflict, "could not allocate an access code")
}

// prepare builds an account for code, generating one when code is empty.
// It hashes outside any transaction.
func (s *Service) prepare(ctx context.Context, name, email string, role auth.Role, code string) (User, string, error) {
	if code == "" {
		var err error
		if code, err = s.newCode(); err != nil {
			return User{}, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate access code")
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return User{}, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash access code")
	}
	return User{
		ID:               uuid.NewString(),
		Name:             name,
		Email:            email,
		Role:             role,
		AccessCodeHash:   string(hash),
		AccessCodeDigest: s.index.digest(code),
		DateAdded:        requestcontext.Now(ctx).UTC(),
	}, code, nil
}

// Remove deletes a recruiter account. Super admins cannot be removed.
func (s *Service) Remove(ctx context.Context, id string) error {
	return s.store.RunInTx(ctx, []store.Collection{store.AdminUsers, store.SystemLogs}, func(tx *store.Tx) error {
		users, err := loadUsers(tx)
		if err != nil {
			return err
		}
		i := slices.IndexFunc(users, func(u User) bool { return u.ID == id })
		if i < 0 {
			return dErrors.New(dErrors.CodeNotFound, "admin not found")
		}
		if users[i].Role == auth.RoleSuperAdmin {
			return dErrors.New(dErrors.CodeForbidden, "super admin accounts cannot be removed")
		}
		email := users[i].Email
		if err := tx.Save(store.AdminUsers, slices.Delete(users, i, i+1)); err != nil {
			return err
		}
		return s.audit.Append(tx, audit.ActionRemoveAdmin, "Removed admin account for "+email)
	})
}

// IsPrincipalRevoked reports whether an admin token's subject no longer has
// an account with that role. Applicant sessions are never revoked here.
func (s *Service) IsPrincipalRevoked(ctx context.Context, subject, role string) (bool, error) {
	if auth.Role(role) != auth.RoleRecruiter && auth.Role(role) != auth.RoleSuperAdmin {
		return false, nil
	}
	users, err := s.users(ctx)
	if err != nil {
		return false, err
	}
	return !slices.ContainsFunc(users, func(u User) bool {
		return u.ID == subject && string(u.Role) == role
	}), nil
}

// Authenticate finds the account holding code and records the login. The
// account is located by its code digest and verified against its bcrypt hash
// before any lock is taken.
func (s *Service) Authenticate(ctx context.Context, code string) (*User, error) {
	if code == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid access code")
	}
	users, err := s.users(ctx)
	if err != nil {
		return nil, err
	}
	i := s.match(users, code)
	if i < 0 {
		s.loginFailed(ctx)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid access code")
	}

	id := users[i].ID
	var found User
	err = s.store.RunInTx(ctx, []store.Collection{store.AdminUsers, store.SystemLogs}, func(tx *store.Tx) error {
		users, err := loadUsers(tx)
		if err != nil {
			return err
		}
		j := slices.IndexFunc(users, func(u User) bool { return u.ID == id })
		if j < 0 {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid access code")
		}
		now := requestcontext.Now(ctx).UTC()
		users[j].LastLogin = &now
		if users[j].AccessCodeDigest == "" {
			users[j].AccessCodeDigest = s.index.digest(code)
		}
		found = users[j]
		if err := tx.Save(store.AdminUsers, users); err != nil {
			return err
		}
		return s.audit.AppendAs(tx, found.Name, audit.ActionLogin, fmt.Sprintf("%s logged in as %s", found.Name, found.Role))
	})
	if err != nil {
		s.loginFailed(ctx)
		return nil, err
	}
	return &found, nil
}

// match returns the index of the account holding code, or -1. Accounts
// stored without a digest are checked against their hashes.
func (s *Service) match(users []User, code string) int {
	if i := s.index.lookup(users, code); i >= 0 {
		if s.compare([]byte(users[i].AccessCodeHash), []byte(code)) == nil {
			return i
		}
		return -1
	}
	for i := range users {
		if users[i].AccessCodeDigest != "" {
			continue
		}
		if s.compare([]byte(users[i].AccessCodeHash), []byte(code)) == nil {
			return i
		}
	}
	return -1
}

func (s *Service) loginFailed(ctx context.Context) {
	s.logger.WarnContext(ctx, "admin login failed",
		"request_id", requestcontext.RequestID(ctx),
		"client_ip", requestcontext.ClientIP(ctx),
	)
}

// EnsureSuperAdmin creates the configured super admin when no account has
// that email. Without a configured code a random one is generated and
// returned so the operator can record it.
func (s *Service) EnsureSuperAdmin(ctx context.Context) (generatedCode string, err error) {
	return s.ensureSuperAdmin(ctx, []store.Collection{store.AdminUsers}, nil)
}

func (s *Service) ensureSuperAdmin(ctx context.Context, collections []store.Collection, then func(tx *store.Tx) error) (string, error) {
	for range codeAttempts {
		user, code, err := s.prepare(ctx, s.superAdmin.Name, s.superAdmin.Email, auth.RoleSuperAdmin, s.superAdmin.Code)
		if err != nil {
			return "", err
		}
		var created bool
		err = s.store.RunInTx(ctx, collections, func(tx *store.Tx) error {
			var err error
			if created, err = s.bootstrap(tx, user, code); err != nil {
				return err
			}
			if then != nil {
				return then(tx)
			}
			return nil
		})
		if errors.Is(err, errCodeTaken) {
			continue
		}
		if err != nil {
			return "", err
		}
		if created && s.superAdmin.Code == "" {
			return code, nil
		}
		return "", nil
	}
	return "", dErrors.New(dErrors.CodeConflict, "could not allocate an access code")
}

// bootstrap stores user unless a super admin with its email exists. A
// generated code already held by another account is refused.
func (s *Service) bootstrap(tx *store.Tx, user User, code string) (bool, error) {
	users, err := loadUsers(tx)
	if err != nil {
		return false, err
	}
	if slices.ContainsFunc(users, func(u User) bool {
		return u.Role == auth.RoleSuperAdmin && u.Email == user.Email
	}) {
		return false, nil
	}
	if s.superAdmin.Code == "" && s.index.lookup(users, code) >= 0 {
		return false, errCodeTaken
	}
	if err := tx.Save(store.AdminUsers, append(users, user)); err != nil {
		return false, err
	}
	s.logger.InfoContext(tx.Context(), "super admin bootstrapped", "email", user.Email)
	return true, nil
}

// ResetSystem wipes every collection, restores the super admin and records
// the reset as the first entry of the new log.
func (s *Service) ResetSystem(ctx context.Context) (generatedCode string, err error) {
	if err := s.store.Reset(ctx); err != nil {
		return "", err
	}
	generatedCode, err = s.ensureSuperAdmin(ctx, []store.Collection{store.AdminUsers, store.SystemLogs}, func(tx *store.Tx) error {
		return s.audit.Append(tx, audit.ActionSystemReset, "Performed Full System Factory Reset")
	})
	if err != nil {
		return "", err
	}
	s.logger.WarnContext(ctx, "system reset performed", "actor", requestcontext.Actor(ctx))
	return generatedCode, nil
}
