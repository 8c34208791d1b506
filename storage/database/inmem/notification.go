package inmemdb

import (
	"context"

	"github.com/gleeworld/gleeworld/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) CreateNotifications(_ context.Context, ns ...notification.Notification) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for i := range ns {
		n := ns[i]
		repo.db.table = append(repo.db.table, &n)
	}
	return nil
}

// QueryNotifications returns the member's notifications, newest first.
func (repo *notificationRepository) QueryNotifications(_ context.Context, memberID string, unreadOnly bool) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ns := make([]notification.Notification, 0)
	for i := len(repo.db.table) - 1; i >= 0; i-- {
		n := repo.db.table[i]
		if n.MemberID == memberID && !(unreadOnly && n.IsRead) {
			ns = append(ns, *n)
		}
	}
	return ns, nil
}

func (repo *notificationRepository) MarkRead(_ context.Context, memberID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, n := range repo.db.table {
		if n.ID == id && n.MemberID == memberID {
			n.IsRead = true
			return nil
		}
	}
	return notification.ErrNotFound
}

func (repo *notificationRepository) MarkAllRead(_ context.Context, memberID string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	var count int
	for _, n := range repo.db.table {
		if n.MemberID == memberID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (repo *notificationRepository) CountUnread(_ context.Context, memberID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	var count int
	for _, n := range repo.db.table {
		if n.MemberID == memberID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (repo *notificationRepository) CreateCampaign(_ context.Context, c notification.Campaign) (notification.Campaign, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.campaigns = append(repo.db.campaigns, c)
	return c, nil
}

func (repo *notificationRepository) QueryCampaigns(_ context.Context) ([]notification.Campaign, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	cs := make([]notification.Campaign, 0, len(repo.db.campaigns))
	for i := len(repo.db.campaigns) - 1; i >= 0; i-- {
		cs = append(cs, repo.db.campaigns[i])
	}
	return cs, nil
}
