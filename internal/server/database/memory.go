package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"olh/internal/domain"
)

// MemoryStore is an in-process implementation of the repository used for
// tests and for DATABASE_URL=memory. All methods are safe for concurrent use
// and return copies, never internal state.
type MemoryStore struct {
	mu            sync.RWMutex
	seq           int64
	users         map[string]*domain.User
	userSeq       map[string]int64
	materials     map[string]*domain.Material
	materialSeq   map[string]int64
	requests      map[string]*domain.Request
	requestSeq    map[string]int64
	notifications map[string]*domain.Notification
	notifySeq     map[string]int64
	subscriptions map[string]*domain.PushSubscription
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]*domain.User),
		userSeq:       make(map[string]int64),
		materials:     make(map[string]*domain.Material),
		materialSeq:   make(map[string]int64),
		requests:      make(map[string]*domain.Request),
		requestSeq:    make(map[string]int64),
		notifications: make(map[string]*domain.Notification),
		notifySeq:     make(map[string]int64),
		subscriptions: make(map[string]*domain.PushSubscription),
	}
}

func (s *MemoryStore) next() int64 {
	s.seq++
	return s.seq
}

// newestFirst orders by creation time, then by insertion order.
func newestFirst(at func(i int) (time.Time, int64)) func(i, j int) bool {
	return func(i, j int) bool {
		ti, si := at(i)
		tj, sj := at(j)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return si > sj
	}
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func copyMaterial(m *domain.Material) *domain.Material {
	c := *m
	c.Votes = append([]domain.Vote{}, m.Votes...)
	c.Favorites = append([]string{}, m.Favorites...)
	c.Reports = append([]domain.Report{}, m.Reports...)
	if m.LinkedRequest != nil {
		id := *m.LinkedRequest
		c.LinkedRequest = &id
	}
	return &c
}

func copyRequest(r *domain.Request) *domain.Request {
	c := *r
	if r.FulfilledBy != nil {
		id := *r.FulfilledBy
		c.FulfilledBy = &id
	}
	return &c
}

func (s *MemoryStore) username(id string) string {
	if u, ok := s.users[id]; ok {
		return u.Username
	}
	return ""
}

// --- Users ---

func (s *MemoryStore) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return ErrEmailTaken
		}
	}
	s.users[user.ID] = copyUser(user)
	s.userSeq[user.ID] = s.next()
	return nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, newestFirst(func(i int) (time.Time, int64) {
		return users[i].CreatedAt, s.userSeq[users[i].ID]
	}))
	return users, nil
}

func (s *MemoryStore) UpdateUserRole(_ context.Context, id string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	return nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	delete(s.userSeq, id)
	return nil
}

func (s *MemoryStore) GetStats(_ context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &Stats{TotalUsers: int64(len(s.users))}
	for _, m := range s.materials {
		switch m.VerificationStatus {
		case domain.StatusApproved:
			stats.TotalMaterials++
		case domain.StatusPending:
			stats.PendingMaterials++
		}
		if len(m.Reports) > 0 {
			stats.ReportedMaterials++
		}
	}
	return stats, nil
}

// --- Materials ---

func (s *MemoryStore) CreateMaterial(_ context.Context, m *domain.Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.materials {
		if existing.FileHash == m.FileHash {
			return ErrDuplicateHash
		}
	}
	c := copyMaterial(m)
	c.UploaderName = ""
	s.materials[m.ID] = c
	s.materialSeq[m.ID] = s.next()
	return nil
}

func (s *MemoryStore) material(id string) *domain.Material {
	m, ok := s.materials[id]
	if !ok {
		return nil
	}
	c := copyMaterial(m)
	c.UploaderName = s.username(m.UploadedBy)
	return c
}

func (s *MemoryStore) GetMaterial(_ context.Context, id string) (*domain.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.material(id)
	if m == nil {
		return nil, ErrNotFound
	}
	return m, nil
}

func (s *MemoryStore) GetMaterialByHash(_ context.Context, hash string) (*domain.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, m := range s.materials {
		if m.FileHash == hash {
			return s.material(id), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) FileKeyExists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.materials {
		if m.FileKey == key {
			return true, nil
		}
	}
	return false, nil
}

func (f MaterialFilter) matches(m *domain.Material) bool {
	if f.Status != "" && m.VerificationStatus != f.Status {
		return false
	}
	if f.UploadedBy != "" && m.UploadedBy != f.UploadedBy {
		return false
	}
	if f.FavoritedBy != "" && !m.FavoritedBy(f.FavoritedBy) {
		return false
	}
	if f.Reported && len(m.Reports) == 0 {
		return false
	}
	if f.Subject != "" && m.Subject != f.Subject {
		return false
	}
	if f.RegulationYear != "" && m.RegulationYear != f.RegulationYear {
		return false
	}
	if f.MaterialType != "" && m.MaterialType != f.MaterialType {
		return false
	}
	if q := strings.TrimSpace(f.Query); q != "" &&
		!strings.Contains(strings.ToLower(m.Title), strings.ToLower(q)) {
		return false
	}
	return true
}

func latestReport(m *domain.Material) time.Time {
	var latest time.Time
	for _, r := range m.Reports {
		if r.CreatedAt.After(latest) {
			latest = r.CreatedAt
		}
	}
	return latest
}

func (s *MemoryStore) ListMaterials(_ context.Context, filter MaterialFilter) ([]*domain.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	materials := []*domain.Material{}
	for id, m := range s.materials {
		if filter.matches(m) {
			materials = append(materials, s.material(id))
		}
	}
	sort.Slice(materials, newestFirst(func(i int) (time.Time, int64) {
		if filter.Reported {
			return latestReport(materials[i]), s.materialSeq[materials[i].ID]
		}
		return materials[i].CreatedAt, s.materialSeq[materials[i].ID]
	}))
	if filter.Limit > 0 && len(materials) > filter.Limit {
		materials = materials[:filter.Limit]
	}
	return materials, nil
}

func (s *MemoryStore) CountMaterials(_ context.Context, filter MaterialFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.materials {
		if filter.matches(m) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) UpdateVerificationStatus(_ context.Context, id string, from, to domain.VerificationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[id]
	if !ok {
		return ErrNotFound
	}
	if m.VerificationStatus != from {
		return ErrStatusConflict
	}
	m.VerificationStatus = to
	m.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) IncrementViews(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[id]
	if !ok {
		return 0, ErrNotFound
	}
	m.Views++
	return m.Views, nil
}

func (s *MemoryStore) AddVote(_ context.Context, materialID string, vote domain.Vote) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[materialID]
	if !ok {
		return 0, ErrNotFound
	}
	if _, voted := m.VoteBy(vote.UserID); voted {
		return 0, ErrAlreadyVoted
	}
	m.Votes = append(m.Votes, vote)
	m.TrustScore = domain.TrustScore(m.Votes)
	m.UpdatedAt = time.Now().UTC()
	return m.TrustScore, nil
}

func (s *MemoryStore) ToggleFavorite(_ context.Context, materialID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[materialID]
	if !ok {
		return false, ErrNotFound
	}
	for i, id := range m.Favorites {
		if id == userID {
			m.Favorites = append(m.Favorites[:i], m.Favorites[i+1:]...)
			return false, nil
		}
	}
	m.Favorites = append(m.Favorites, userID)
	return true, nil
}

func (s *MemoryStore) AddReport(_ context.Context, materialID string, report domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[materialID]
	if !ok {
		return ErrNotFound
	}
	if m.ReportedBy(report.ReportedBy) {
		return ErrAlreadyReported
	}
	m.Reports = append(m.Reports, report)
	return nil
}

func (s *MemoryStore) ClearReports(_ context.Context, materialID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.materials[materialID]; ok {
		m.Reports = []domain.Report{}
	}
	return nil
}

func (s *MemoryStore) DeleteMaterial(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.materials[id]; !ok {
		return ErrNotFound
	}
	delete(s.materials, id)
	delete(s.materialSeq, id)
	return nil
}

// --- Requests ---

func (s *MemoryStore) CreateRequest(_ context.Context, req *domain.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := copyRequest(req)
	c.RequesterName = ""
	s.requests[req.ID] = c
	s.requestSeq[req.ID] = s.next()
	return nil
}

func (s *MemoryStore) request(id string) *domain.Request {
	req, ok := s.requests[id]
	if !ok {
		return nil
	}
	c := copyRequest(req)
	c.RequesterName = s.username(req.RequestedBy)
	return c
}

func (s *MemoryStore) GetRequest(_ context.Context, id string) (*domain.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req := s.request(id)
	if req == nil {
		return nil, ErrNotFound
	}
	return req, nil
}

func (s *MemoryStore) ListRequests(_ context.Context, filter RequestFilter) ([]*domain.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	requests := []*domain.Request{}
	for id, req := range s.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.RequestedBy != "" && req.RequestedBy != filter.RequestedBy {
			continue
		}
		requests = append(requests, s.request(id))
	}
	sort.Slice(requests, newestFirst(func(i int) (time.Time, int64) {
		return requests[i].CreatedAt, s.requestSeq[requests[i].ID]
	}))
	return requests, nil
}

func (s *MemoryStore) TransitionRequest(_ context.Context, id string, status domain.RequestStatus, fulfilledBy *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return ErrNotFound
	}
	if req.Status != domain.RequestOpen {
		return ErrRequestNotOpen
	}
	req.Status = status
	if fulfilledBy != nil {
		materialID := *fulfilledBy
		req.FulfilledBy = &materialID
	}
	return nil
}

func (s *MemoryStore) DeleteRequest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[id]; !ok {
		return ErrNotFound
	}
	delete(s.requests, id)
	delete(s.requestSeq, id)
	return nil
}

// --- Notifications ---

func (s *MemoryStore) CreateNotification(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *n
	c.ActionByName = ""
	s.notifications[n.ID] = &c
	s.notifySeq[n.ID] = s.next()
	return nil
}

func (s *MemoryStore) ListNotifications(_ context.Context, recipient string, limit int) ([]*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Notification{}
	for _, n := range s.notifications {
		if n.Recipient != recipient {
			continue
		}
		c := *n
		c.ActionByName = s.username(n.ActionBy)
		out = append(out, &c)
	}
	sort.Slice(out, newestFirst(func(i int) (time.Time, int64) {
		return out[i].CreatedAt, s.notifySeq[out[i].ID]
	}))
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CountUnread(_ context.Context, recipient string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, n := range s.notifications {
		if n.Recipient == recipient && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) MarkNotificationRead(_ context.Context, id, recipient string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.Recipient != recipient {
		return ErrNotFound
	}
	n.Read = true
	return nil
}

func (s *MemoryStore) MarkAllNotificationsRead(_ context.Context, recipient string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.Recipient == recipient {
			n.Read = true
		}
	}
	return nil
}

// --- Push subscriptions ---

func (s *MemoryStore) UpsertPushSubscription(_ context.Context, sub *domain.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.subscriptions[sub.UserID]; ok {
		existing.Token = sub.Token
		existing.UpdatedAt = sub.UpdatedAt
		*sub = *existing
		return nil
	}
	c := *sub
	c.CreatedAt = sub.UpdatedAt
	s.subscriptions[sub.UserID] = &c
	*sub = c
	return nil
}

func (s *MemoryStore) GetPushSubscription(_ context.Context, userID string) (*domain.PushSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subscriptions[userID]
	if !ok {
		return nil, nil
	}
	c := *sub
	return &c, nil
}

func (s *MemoryStore) DeletePushSubscription(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, userID)
	return nil
}

// HealthCheck always succeeds.
func (s *MemoryStore) HealthCheck(context.Context) error {
	return nil
}
