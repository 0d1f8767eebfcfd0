package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/techagentng/wastewatch/db"
	"github.com/techagentng/wastewatch/geo"
	"github.com/techagentng/wastewatch/models"
)

type reportRepo struct{ s *Store }

func (r *reportRepo) Create(_ context.Context, report *models.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.reports[report.ID]; ok && report.ID != uuid.Nil {
		return db.ErrDuplicate
	}
	r.s.stamp(&report.Model)
	if report.Status == "" {
		report.Status = models.StatusPending
	}
	r.s.reports[report.ID] = cloneReport(report)
	return nil
}

func (r *reportRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Report, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	report, ok := r.s.reports[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return cloneReport(report), nil
}

func (r *reportRepo) List(_ context.Context, scope models.ReportScope, q models.ReportQuery) ([]models.Report, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Report, 0)
	for _, report := range r.s.reports {
		if scope.ReportedBy != nil && report.ReportedBy != *scope.ReportedBy {
			continue
		}
		if scope.AssignedTo != nil && report.AssignedTo != *scope.AssignedTo {
			continue
		}
		if q.Status != "" && report.Status != q.Status {
			continue
		}
		if q.Category != "" && report.Category != q.Category {
			continue
		}
		out = append(out, *report)
	}
	sort.Slice(out, func(i, j int) bool {
		if q.Ascending {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *reportRepo) UpdateStatus(_ context.Context, id uuid.UUID, expected, next models.Status) (*models.Report, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	report, err := r.s.swapStatus(id, expected, next)
	if err != nil {
		return nil, err
	}
	return cloneReport(report), nil
}

func (r *reportRepo) ResolveAndReward(_ context.Context, id uuid.UUID, expected models.Status) (*models.Report, *models.Reward, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.reports[id]
	if !ok {
		return nil, nil, db.ErrNotFound
	}
	if current.Status != expected {
		return nil, nil, db.ErrStatusConflict
	}
	if _, dup := r.s.rewards[id]; dup {
		return nil, nil, db.ErrStatusConflict
	}
	citizen, ok := r.s.citizens[current.ReportedBy]
	if !ok {
		return nil, nil, db.ErrNotFound
	}

	report, err := r.s.swapStatus(id, expected, models.StatusResolved)
	if err != nil {
		return nil, nil, err
	}
	citizen.RewardBalance += citizen.RewardPerResolution
	citizen.UpdatedAt = r.s.tick()

	reward := &models.Reward{
		ReportID:     id,
		CitizenID:    citizen.ID,
		Points:       citizen.RewardPerResolution,
		BalanceAfter: citizen.RewardBalance,
	}
	r.s.stamp(&reward.Model)
	r.s.rewards[id] = reward

	out := *reward
	return cloneReport(report), &out, nil
}

// swapStatus requires mu held for writing.
func (s *Store) swapStatus(id uuid.UUID, expected, next models.Status) (*models.Report, error) {
	report, ok := s.reports[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if report.Status != expected {
		return nil, db.ErrStatusConflict
	}
	report.Status = next
	report.UpdatedAt = s.tick()
	return report, nil
}

type directoryRepo struct{ s *Store }

func (d *directoryRepo) CreateCitizen(_ context.Context, citizen *models.Citizen) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	for _, c := range d.s.citizens {
		if citizen.Email != "" && c.Email == citizen.Email {
			return db.ErrDuplicate
		}
	}
	d.s.stamp(&citizen.Model)
	d.s.citizens[citizen.ID] = cloneCitizen(citizen)
	return nil
}

func (d *directoryRepo) FindCitizenByID(_ context.Context, id uuid.UUID) (*models.Citizen, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	c, ok := d.s.citizens[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return cloneCitizen(c), nil
}

func (d *directoryRepo) ReserveSubmission(_ context.Context, citizenID uuid.UUID) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	c, ok := d.s.citizens[citizenID]
	if !ok {
		return db.ErrNotFound
	}
	if c.SubmissionCount >= c.SubmissionLimit {
		return db.ErrQuotaExceeded
	}
	c.SubmissionCount++
	c.UpdatedAt = d.s.tick()
	return nil
}

func (d *directoryRepo) ReleaseSubmission(_ context.Context, citizenID uuid.UUID) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	c, ok := d.s.citizens[citizenID]
	if !ok {
		return db.ErrNotFound
	}
	if c.SubmissionCount > 0 {
		c.SubmissionCount--
	}
	return nil
}

func (d *directoryRepo) AppendCitizenReport(_ context.Context, citizenID, reportID uuid.UUID) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	c, ok := d.s.citizens[citizenID]
	if !ok {
		return db.ErrNotFound
	}
	c.ReportIDs = append(c.ReportIDs, reportID.String())
	return nil
}

func (d *directoryRepo) CreateAuthority(_ context.Context, authority *models.Authority) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	for _, a := range d.s.authorities {
		if a.Email == authority.Email {
			return db.ErrDuplicate
		}
	}
	if authority.ApprovalStatus == "" {
		authority.ApprovalStatus = models.ApprovalPending
	}
	d.s.stamp(&authority.Model)
	d.s.authorities[authority.ID] = cloneAuthority(authority)
	d.s.authorityList = append(d.s.authorityList, authority.ID)
	return nil
}

func (d *directoryRepo) FindAuthorityByID(_ context.Context, id uuid.UUID) (*models.Authority, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	a, ok := d.s.authorities[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return cloneAuthority(a), nil
}

func (d *directoryRepo) ListAuthorities(_ context.Context, q models.AuthorityQuery) (*models.AuthorityPage, error) {
	d.s.mu.RLock()
	matched := make([]models.AuthorityListing, 0, len(d.s.authorityList))
	for _, id := range d.s.authorityList {
		a := d.s.authorities[id]
		if q.Status != "" && a.ApprovalStatus != q.Status {
			continue
		}
		if q.City != "" && !strings.Contains(strings.ToLower(a.Address), strings.ToLower(q.City)) {
			continue
		}
		entry := models.AuthorityListing{Authority: *cloneAuthority(a)}
		if q.Near != nil {
			dist := geo.Distance(*q.Near, a.Point())
			if dist > q.Radius {
				continue
			}
			entry.Distance = &dist
		}
		matched = append(matched, entry)
	}
	d.s.mu.RUnlock()

	if q.Near != nil {
		// stable keeps registration order among equal distances
		sort.SliceStable(matched, func(i, j int) bool {
			return *matched[i].Distance < *matched[j].Distance
		})
	} else {
		slices.Reverse(matched)
	}

	page := &models.AuthorityPage{Total: int64(len(matched)), Page: q.Page, Limit: q.Limit}
	start := min(q.Offset(), len(matched))
	end := min(start+q.Limit, len(matched))
	page.Authorities = matched[start:end]
	return page, nil
}

func (d *directoryRepo) SetApprovalStatus(_ context.Context, id uuid.UUID, status models.ApprovalStatus) (*models.Authority, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	a, ok := d.s.authorities[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	a.ApprovalStatus = status
	a.UpdatedAt = d.s.tick()
	return cloneAuthority(a), nil
}

func (d *directoryRepo) AppendAuthorityReport(_ context.Context, authorityID, reportID uuid.UUID) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	a, ok := d.s.authorities[authorityID]
	if !ok {
		return db.ErrNotFound
	}
	a.ReportIDs = append(a.ReportIDs, reportID.String())
	return nil
}

// FindNearestApprovedAuthority scans in registration order and keeps the first
// strictly closer match, so equal distances resolve to the earliest registered.
func (d *directoryRepo) FindNearestApprovedAuthority(ctx context.Context, p geo.Point) (*models.Authority, float64, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	var (
		best     *models.Authority
		bestDist float64
	)
	for _, id := range d.s.authorityList {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		a := d.s.authorities[id]
		if !a.Eligible() {
			continue
		}
		dist := geo.Distance(p, a.Point())
		if best == nil || dist < bestDist {
			best, bestDist = a, dist
		}
	}
	if best == nil {
		return nil, 0, db.ErrNotFound
	}
	return cloneAuthority(best), bestDist, nil
}

type notificationRepo struct{ s *Store }

func inScope(n *models.Notification, role models.Role, subject uuid.UUID) bool {
	if n.AudienceRole != role {
		return false
	}
	return n.Broadcast() || *n.AudienceID == subject
}

func (n *notificationRepo) Create(_ context.Context, notification *models.Notification) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	n.s.stamp(&notification.Model)
	stored := cloneNotification(notification)
	n.s.notifications = append(n.s.notifications, &stored)
	return nil
}

func (n *notificationRepo) List(_ context.Context, role models.Role, subject uuid.UUID, limit int) ([]models.Notification, error) {
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()
	out := make([]models.Notification, 0)
	for i := len(n.s.notifications) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if inScope(n.s.notifications[i], role, subject) {
			out = append(out, cloneNotification(n.s.notifications[i]))
		}
	}
	return out, nil
}

func (n *notificationRepo) DeleteAll(_ context.Context, role models.Role, subject uuid.UUID) (int64, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	kept := n.s.notifications[:0]
	var removed int64
	for _, item := range n.s.notifications {
		if inScope(item, role, subject) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	n.s.notifications = kept
	return removed, nil
}

func (n *notificationRepo) DeleteOne(_ context.Context, role models.Role, subject, id uuid.UUID) (bool, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	for i, item := range n.s.notifications {
		if item.ID == id && inScope(item, role, subject) {
			n.s.notifications = append(n.s.notifications[:i], n.s.notifications[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (n *notificationRepo) MarkRead(_ context.Context, role models.Role, subject, id uuid.UUID) (bool, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	for _, item := range n.s.notifications {
		if item.ID == id && inScope(item, role, subject) {
			item.Read = true
			return true, nil
		}
	}
	return false, nil
}

func (n *notificationRepo) MarkAllRead(_ context.Context, role models.Role, subject uuid.UUID) (int64, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	var updated int64
	for _, item := range n.s.notifications {
		if !item.Read && inScope(item, role, subject) {
			item.Read = true
			updated++
		}
	}
	return updated, nil
}

type rewardRepo struct{ s *Store }

func (r *rewardRepo) GetRewardByReportID(_ context.Context, reportID uuid.UUID) (*models.Reward, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	reward, ok := r.s.rewards[reportID]
	if !ok {
		return nil, db.ErrNotFound
	}
	out := *reward
	return &out, nil
}

func (r *rewardRepo) ListByCitizen(_ context.Context, citizenID uuid.UUID) ([]models.Reward, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Reward, 0)
	for _, reward := range r.s.rewards {
		if reward.CitizenID == citizenID {
			out = append(out, *reward)
		}
	}
	sortRewards(out)
	return out, nil
}

func (r *rewardRepo) GetAllRewards(_ context.Context) ([]models.Reward, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Reward, 0, len(r.s.rewards))
	for _, reward := range r.s.rewards {
		out = append(out, *reward)
	}
	sortRewards(out)
	return out, nil
}

func (r *rewardRepo) SumAllRewards(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	total := 0
	for _, reward := range r.s.rewards {
		total += reward.Points
	}
	return total, nil
}

func sortRewards(rewards []models.Reward) {
	sort.Slice(rewards, func(i, j int) bool {
		return rewards[i].CreatedAt.After(rewards[j].CreatedAt)
	})
}

type authRepo struct{ s *Store }

func (a *authRepo) AddToBlackList(_ context.Context, blacklist *models.Blacklist) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	a.s.blacklist[blacklist.Token] = blacklist.ExpiresAt
	return nil
}

func (a *authRepo) IsTokenInBlacklist(_ context.Context, token string) bool {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	_, ok := a.s.blacklist[token]
	return ok
}

func (a *authRepo) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	var removed int64
	for token, exp := range a.s.blacklist {
		if exp.Before(now) {
			delete(a.s.blacklist, token)
			removed++
		}
	}
	return removed, nil
}
