package user

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/ad-user-manager/internal"
	"github.com/frahmantamala/ad-user-manager/internal/directory"
	"github.com/go-ldap/ldap/v3"
)

const DefaultCacheTTL = 5 * time.Minute

var (
	listAttributes = []string{
		directory.AttrDisplayName,
		directory.AttrCommonName,
		directory.AttrSAMAccountName,
		directory.AttrMail,
		directory.AttrUserAccountControl,
	}
	detailAttributes = []string{
		directory.AttrDistinguishedName,
		directory.AttrDisplayName,
		directory.AttrCommonName,
		directory.AttrSAMAccountName,
		directory.AttrMail,
		directory.AttrTitle,
		directory.AttrDepartment,
		directory.AttrTelephoneNumber,
	}
)

// Directory is the part of directory.Client the user service reads from.
type Directory interface {
	SearchUsers(ctx context.Context, filter string, attributes []string) ([]*ldap.Entry, error)
	FindUser(ctx context.Context, username string, attributes []string) (*ldap.Entry, error)
}

type Config struct {
	TTL    time.Duration
	Locale string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service serves the user listing from a TTL cache and user detail straight
// from the directory. users and fetchedAt are always set and cleared
// together.
type Service struct {
	dir    Directory
	logger *slog.Logger
	ttl    time.Duration
	locale string
	now    func() time.Time

	mu        sync.Mutex
	users     []User
	fetchedAt time.Time
}

func NewService(dir Directory, cfg Config, logger *slog.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		dir:    dir,
		logger: logger,
		ttl:    cfg.TTL,
		locale: cfg.Locale,
		now:    cfg.Now,
	}
}

func (s *Service) cached(now time.Time) ([]User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.users == nil || now.Sub(s.fetchedAt) >= s.ttl {
		return nil, false
	}
	return append([]User(nil), s.users...), true
}

// GetUsers returns every user sorted by name. A listing younger than the TTL
// is served without contacting the directory.
func (s *Service) GetUsers(ctx context.Context) ([]User, error) {
	if users, ok := s.cached(s.now()); ok {
		s.logger.Debug("serving users from cache", "count", len(users))
		return users, nil
	}

	entries, err := s.dir.SearchUsers(ctx, directory.UsersFilter, listAttributes)
	if err != nil {
		s.logger.Error("failed to list users from directory", "error", err)
		return nil, err
	}
	if len(entries) == 0 {
		return nil, internal.NewNotFoundError("no users found", internal.ErrCodeNoUsersFound)
	}

	users := make([]User, 0, len(entries))
	for _, e := range entries {
		users = append(users, FromEntry(e))
	}
	SortByName(users, s.locale)

	s.mu.Lock()
	s.users = users
	s.fetchedAt = s.now()
	s.mu.Unlock()

	s.logger.Info("user cache refreshed", "count", len(users))
	return append([]User(nil), users...), nil
}

// Invalidate drops the cached listing; the next GetUsers goes to the
// directory.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.users = nil
	s.fetchedAt = time.Time{}
	s.mu.Unlock()

	s.logger.Info("user cache invalidated")
}

// GetUserDetail always queries the directory.
func (s *Service) GetUserDetail(ctx context.Context, username string) (*User, error) {
	entry, err := s.dir.FindUser(ctx, username, detailAttributes)
	if err != nil {
		s.logger.Warn("failed to get user detail", "username", username, "error", err)
		return nil, err
	}

	u := FromEntry(entry)
	return &u, nil
}
