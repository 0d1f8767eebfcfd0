// Package memory implements every repository in package db over process
// memory. It backs the memory storage driver and the service tests.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/techagentng/wastewatch/db"
	"github.com/techagentng/wastewatch/models"
)

// Store is one mutex-guarded dataset shared by the repository views.
type Store struct {
	mu sync.RWMutex

	citizens      map[uuid.UUID]*models.Citizen
	authorities   map[uuid.UUID]*models.Authority
	authorityList []uuid.UUID // registration order, used for tie-breaks
	reports       map[uuid.UUID]*models.Report
	notifications []*models.Notification
	rewards       map[uuid.UUID]*models.Reward // keyed by report id
	blacklist     map[string]time.Time

	now  func() time.Time
	last time.Time
}

func New() *Store {
	return &Store{
		citizens:    make(map[uuid.UUID]*models.Citizen),
		authorities: make(map[uuid.UUID]*models.Authority),
		reports:     make(map[uuid.UUID]*models.Report),
		rewards:     make(map[uuid.UUID]*models.Reward),
		blacklist:   make(map[string]time.Time),
		now:         time.Now,
	}
}

// Repositories returns the store's views in the same order as db.GormRepositories.
func (s *Store) Repositories() (db.ReportRepository, db.DirectoryRepository, db.NotificationRepository, db.RewardRepository, db.AuthRepository) {
	return s.Reports(), s.Directory(), s.Notifications(), s.Rewards(), s.Auth()
}

func (s *Store) Reports() db.ReportRepository             { return &reportRepo{s} }
func (s *Store) Directory() db.DirectoryRepository         { return &directoryRepo{s} }
func (s *Store) Notifications() db.NotificationRepository { return &notificationRepo{s} }
func (s *Store) Rewards() db.RewardRepository             { return &rewardRepo{s} }
func (s *Store) Auth() db.AuthRepository                   { return &authRepo{s} }

// stamp fills identity and timestamps the way gorm would on insert.
func (s *Store) stamp(m *models.Model) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := s.tick()
	m.CreatedAt = now
	m.UpdatedAt = now
}

// tick is a strictly increasing clock so creation order is total even when
// two inserts land within the same clock reading. Callers hold mu.
func (s *Store) tick() time.Time {
	t := s.now()
	if !t.After(s.last) {
		t = s.last.Add(time.Nanosecond)
	}
	s.last = t
	return t
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneCitizen(c *models.Citizen) *models.Citizen {
	out := *c
	out.ReportIDs = copyStrings(c.ReportIDs)
	return &out
}

func cloneAuthority(a *models.Authority) *models.Authority {
	out := *a
	out.ReportIDs = copyStrings(a.ReportIDs)
	return &out
}

func cloneReport(r *models.Report) *models.Report {
	out := *r
	return &out
}

func cloneNotification(n *models.Notification) models.Notification {
	out := *n
	if n.AudienceID != nil {
		id := *n.AudienceID
		out.AudienceID = &id
	}
	return out
}
