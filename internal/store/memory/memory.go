// Package memory implementa store.Store en memoria.
// Pensado para desarrollo local y tests: una instancia fresca por test,
// sin estado ambiente compartido.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/collabsql/internal/domain"
	"github.com/dropDatabas3/collabsql/internal/store"
)

type Store struct {
	mu        sync.RWMutex
	users     map[string]*domain.User     // por id
	databases map[string]*domain.Database // por id
	grants    map[string]*domain.Grant    // por databaseID+"/"+userID
	commits   map[string][]domain.CommitRecord
	seq       map[string]int64 // seq por database
}

func New() *Store {
	return &Store{
		users:     map[string]*domain.User{},
		databases: map[string]*domain.Database{},
		grants:    map[string]*domain.Grant{},
		commits:   map[string][]domain.CommitRecord{},
		seq:       map[string]int64{},
	}
}

func grantKey(databaseID, userID string) string { return databaseID + "/" + userID }

// ===== Users =====

func (s *Store) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.users {
		if strings.EqualFold(ex.Email, u.Email) || ex.Username == u.Username {
			return store.ErrConflict
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) UpdateUserStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Status = status
	return nil
}

// ===== Databases =====

func (s *Store) CreateDatabase(_ context.Context, d *domain.Database) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.databases[d.ID]; ok {
		return store.ErrConflict
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	cp := *d
	s.databases[d.ID] = &cp
	return nil
}

func (s *Store) GetDatabase(_ context.Context, id string) (*domain.Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.databases[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *Store) ListDatabasesByOwner(_ context.Context, ownerID string) ([]domain.Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Database
	for _, d := range s.databases {
		if d.OwnerID == ownerID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ResolveOwner(_ context.Context, databaseID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.databases[databaseID]
	if !ok {
		return "", store.ErrNotFound
	}
	return d.OwnerID, nil
}

// ===== Grants =====

func (s *Store) UpsertGrant(_ context.Context, g *domain.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.GrantedAt.IsZero() {
		g.GrantedAt = time.Now().UTC()
	}
	cp := *g
	s.grants[grantKey(g.DatabaseID, g.UserID)] = &cp
	return nil
}

func (s *Store) DeleteGrant(_ context.Context, databaseID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, grantKey(databaseID, userID))
	return nil
}

func (s *Store) GetGrant(_ context.Context, databaseID, userID string) (*domain.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grants[grantKey(databaseID, userID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *Store) ListGrants(_ context.Context, databaseID string) ([]domain.Collaborator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Collaborator
	for _, g := range s.grants {
		if g.DatabaseID != databaseID {
			continue
		}
		c := domain.Collaborator{
			UserID:    g.UserID,
			Level:     g.Level,
			GrantedAt: g.GrantedAt,
		}
		if u, ok := s.users[g.UserID]; ok {
			c.Username = u.Username
			c.Email = u.Email
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GrantedAt.Before(out[j].GrantedAt) })
	return out, nil
}

// ===== Commits =====

func (s *Store) AppendCommit(_ context.Context, c *domain.CommitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[c.DatabaseID]++
	c.ID = s.seq[c.DatabaseID]
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	s.commits[c.DatabaseID] = append(s.commits[c.DatabaseID], *c)
	return nil
}

func (s *Store) ListCommits(_ context.Context, databaseID string, limit, offset int) ([]domain.CommitRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.commits[databaseID]
	// newest-first: recorremos desde el final
	out := make([]domain.CommitRecord, 0, limit)
	for i := len(all) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *Store) CommitStats(_ context.Context, databaseID string) (*domain.CommitStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &domain.CommitStats{CountByKind: map[domain.CommitKind]int{}}
	for _, c := range s.commits[databaseID] {
		stats.Total++
		stats.CountByKind[c.Kind]++
	}
	return stats, nil
}

// ===== Lifecycle =====

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close()                     {}
