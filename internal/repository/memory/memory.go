// Package memory holds map-backed repositories for tests of the layers above the database.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/asphalt-aid/backend/internal/models"
	"github.com/asphalt-aid/backend/internal/repository"
	"github.com/google/uuid"
)

// Store shares state between the repositories so cascades behave like the database.
type Store struct {
	mu      sync.Mutex
	users   map[uuid.UUID]models.User
	tokens  map[string]models.RefreshToken
	reports map[uuid.UUID]models.Report
	clock   time.Time
}

func NewStore() *Store {
	return &Store{
		users:   map[uuid.UUID]models.User{},
		tokens:  map[string]models.RefreshToken{},
		reports: map[uuid.UUID]models.Report{},
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// tick hands out strictly increasing timestamps so ordering is deterministic.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *Store) Users() repository.UserRepository     { return &users{s} }
func (s *Store) Tokens() repository.TokenRepository   { return &tokens{s} }
func (s *Store) Reports() repository.ReportRepository { return &reports{s} }

type users struct{ s *Store }

func (r *users) Create(_ context.Context, u *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	now := r.s.tick()
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.users[u.ID] = *u
	return nil
}

func (r *users) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *users) FindByUsername(_ context.Context, username string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *users) UsernameExists(_ context.Context, username string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (r *users) EmailExists(_ context.Context, email string, except uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ID != except && strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *users) Update(_ context.Context, id uuid.UUID, fields map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "email":
			u.Email = v.(string)
		case "first_name":
			u.FirstName = v.(string)
		case "last_name":
			u.LastName = v.(string)
		case "password":
			u.Password = v.(string)
		case "role":
			u.Role = v.(string)
		}
	}
	u.UpdatedAt = r.s.tick()
	r.s.users[id] = u
	return nil
}

func (r *users) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	for k, t := range r.s.tokens {
		if t.UserID == id {
			delete(r.s.tokens, k)
		}
	}
	for k, rep := range r.s.reports {
		if rep.UserID == id {
			delete(r.s.reports, k)
		}
	}
	delete(r.s.users, id)
	return nil
}

type tokens struct{ s *Store }

func (r *tokens) Create(_ context.Context, t *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = r.s.tick()
	r.s.tokens[t.TokenHash] = *t
	return nil
}

func (r *tokens) FindActive(_ context.Context, hash string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[hash]
	if !ok || t.Revoked {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *tokens) Revoke(_ context.Context, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tokens[hash]; ok {
		t.Revoked = true
		r.s.tokens[hash] = t
	}
	return nil
}

func (r *tokens) RevokeAllForUser(_ context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, t := range r.s.tokens {
		if t.UserID == userID {
			t.Revoked = true
			r.s.tokens[k] = t
		}
	}
	return nil
}

// ActiveTokens counts unrevoked tokens of a user.
func (s *Store) ActiveTokens(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tokens {
		if t.UserID == userID && !t.Revoked {
			n++
		}
	}
	return n
}

// ExpireTokens moves every token's expiry into the past.
func (s *Store) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.tokens {
		t.ExpiresAt = time.Now().Add(-time.Minute)
		s.tokens[k] = t
	}
}

type reports struct{ s *Store }

func (r *reports) withUser(rep models.Report) *models.Report {
	if u, ok := r.s.users[rep.UserID]; ok {
		rep.User = &u
	}
	return &rep
}

func (r *reports) Create(_ context.Context, rep *models.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	if rep.Status == "" {
		rep.Status = models.StatusPending
	}
	if rep.ReportType == "" {
		rep.ReportType = models.TypePothole
	}
	now := r.s.tick()
	rep.CreatedAt, rep.UpdatedAt = now, now
	stored := *rep
	stored.User = nil
	r.s.reports[rep.ID] = stored
	return nil
}

func (r *reports) FindByID(_ context.Context, id uuid.UUID) (*models.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep, ok := r.s.reports[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.withUser(rep), nil
}

func (r *reports) FindOwned(_ context.Context, id, ownerID uuid.UUID) (*models.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep, ok := r.s.reports[id]
	if !ok || rep.UserID != ownerID {
		return nil, repository.ErrNotFound
	}
	return &rep, nil
}

func (r *reports) sorted(keep func(models.Report) bool) []models.Report {
	var out []models.Report
	for _, rep := range r.s.reports {
		if keep(rep) {
			out = append(out, *r.withUser(rep))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *reports) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.sorted(func(rep models.Report) bool { return rep.UserID == ownerID })
	for i := range out {
		out[i].User = nil
	}
	return out, nil
}

func (r *reports) Search(_ context.Context, f repository.ReportFilter) ([]models.Report, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	all := r.sorted(func(rep models.Report) bool {
		if f.Status != "" && rep.Status != f.Status {
			return false
		}
		if f.ReportType != "" && rep.ReportType != f.ReportType {
			return false
		}
		if f.Severity != nil && rep.Severity != *f.Severity {
			return false
		}
		if f.CreatedAfter != nil && rep.CreatedAt.Before(*f.CreatedAfter) {
			return false
		}
		if f.CreatedBefore != nil && rep.CreatedAt.After(*f.CreatedBefore) {
			return false
		}
		if q != "" {
			owner := strings.ToLower(r.s.users[rep.UserID].Username)
			hay := []string{owner, strings.ToLower(rep.Description), strings.ToLower(rep.Address), strings.ToLower(rep.Name)}
			found := false
			for _, h := range hay {
				if strings.Contains(h, q) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	})

	limit, offset := repository.ClampPage(f.Limit, f.Offset)
	total := int64(len(all))
	if offset >= len(all) {
		return []models.Report{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *reports) Update(_ context.Context, id uuid.UUID, fields map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep, ok := r.s.reports[id]
	if !ok {
		return repository.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "name":
			rep.Name = v.(string)
		case "description":
			rep.Description = v.(string)
		case "address":
			rep.Address = v.(string)
		case "severity":
			rep.Severity = v.(int)
		case "analyzed_at":
			t := v.(time.Time)
			rep.AnalyzedAt = &t
		}
	}
	rep.UpdatedAt = r.s.tick()
	r.s.reports[id] = rep
	return nil
}

func (r *reports) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.ReportStatus, note string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rep, ok := r.s.reports[id]
	if !ok || rep.Status != from {
		return repository.ErrConflict
	}
	rep.Status = to
	rep.AdminNote = note
	rep.UpdatedAt = r.s.tick()
	r.s.reports[id] = rep
	return nil
}

func (r *reports) SetSeverity(ctx context.Context, id uuid.UUID, severity int, analyzedAt time.Time) error {
	return r.Update(ctx, id, map[string]interface{}{"severity": severity, "analyzed_at": analyzedAt})
}

func (r *reports) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reports[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.reports, id)
	return nil
}

func (r *reports) ImagesByOwner(_ context.Context, ownerID uuid.UUID) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []string
	for _, rep := range r.s.reports {
		if rep.UserID == ownerID && rep.Image != "" {
			out = append(out, rep.Image)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *reports) Stats(_ context.Context) (*repository.ReportStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := &repository.ReportStats{
		ByStatus:   map[string]int64{},
		ByType:     map[string]int64{},
		BySeverity: map[string]int64{},
	}
	for _, rep := range r.s.reports {
		stats.Total++
		stats.ByStatus[string(rep.Status)]++
		stats.ByType[string(rep.ReportType)]++
		stats.BySeverity[strconv.Itoa(rep.Severity)]++
	}
	return stats, nil
}
