package stores

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/notify"
	"github.com/dmitrijs2005/docvault/internal/client/repositories/reminders"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/logging"
)

type RemindersState struct {
	Status
	Reminders []models.Reminder
	// ItemReminders are the reminders of the item last passed to FetchForItem.
	ItemReminders []models.Reminder
	itemID        string
}

// RemindersStore keeps reminders in notify-at order and a local
// notification armed for each unsent future one.
type RemindersStore struct {
	st       state[RemindersState]
	repo     reminders.Repository
	notifier notify.Scheduler
	log      logging.Logger
	now      func() time.Time
}

func NewRemindersStore(repo reminders.Repository, notifier notify.Scheduler, log logging.Logger) *RemindersStore {
	return &RemindersStore{repo: repo, notifier: notifier, log: log.With("store", "reminders"), now: time.Now}
}

func (s *RemindersStore) Snapshot() RemindersState { return s.st.Snapshot() }

func (s *RemindersStore) Subscribe(fn func(RemindersState)) func() { return s.st.Subscribe(fn) }

func reminderID(r models.Reminder) string { return r.ID }

func reminderLess(a, b models.Reminder) bool {
	if !a.NotifyAt.Equal(b.NotifyAt) {
		return a.NotifyAt.Before(b.NotifyAt)
	}
	return a.ID < b.ID
}

// notificationID keys the local notification of a reminder.
func notificationID(reminderID string) string { return "reminder:" + reminderID }

// FetchAll replaces the held reminders and arms notifications for them.
func (s *RemindersStore) FetchAll(ctx context.Context, ownerID string) {
	s.st.update(func(v *RemindersState) { v.begin() })

	list, err := s.repo.List(ctx, ownerID, reminders.ListOptions{})
	if err != nil {
		s.log.Error(ctx, "fetch reminders", "error", err)
	}

	s.st.update(func(v *RemindersState) {
		if err == nil {
			v.Reminders = list
		}
		v.finish(err)
	})
	for _, r := range list {
		s.schedule(ctx, r)
	}
}

// FetchForItem loads one item's reminders into ItemReminders. The bool is
// false when the load failed.
func (s *RemindersStore) FetchForItem(ctx context.Context, ownerID, itemID string) ([]models.Reminder, bool) {
	list, err := s.repo.List(ctx, ownerID, reminders.ListOptions{ItemID: itemID})
	if err != nil {
		s.log.Error(ctx, "fetch item reminders", "item", itemID, "error", err)
		fail(&s.st, err)
		return nil, false
	}
	succeed(&s.st, func(v *RemindersState) {
		v.ItemReminders = list
		v.itemID = itemID
	})
	return list, true
}

func (s *RemindersStore) Create(ctx context.Context, ownerID string, in models.ReminderInput) *models.Reminder {
	if err := models.ValidateReminder(&in); err != nil {
		fail(&s.st, err)
		return nil
	}

	r, err := s.repo.Create(ctx, ownerID, in)
	if err != nil {
		s.log.Error(ctx, "create reminder", "item", in.ItemID, "error", err)
		fail(&s.st, err)
		return nil
	}

	s.apply(*r)
	s.schedule(ctx, *r)
	return r
}

// Update changes the reminder and re-arms its notification.
func (s *RemindersStore) Update(ctx context.Context, ownerID, id string, patch models.ReminderPatch) *models.Reminder {
	if err := models.Validate(&patch); err != nil {
		fail(&s.st, err)
		return nil
	}

	r, err := s.repo.Update(ctx, ownerID, id, patch)
	if err == nil && r == nil {
		err = fmt.Errorf("reminder %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		s.log.Error(ctx, "update reminder", "id", id, "error", err)
		fail(&s.st, err)
		return nil
	}

	s.apply(*r)
	s.cancel(ctx, id)
	s.schedule(ctx, *r)
	return r
}

func (s *RemindersStore) Delete(ctx context.Context, ownerID, id string) bool {
	deleted, err := s.repo.Delete(ctx, ownerID, id)
	if err == nil && !deleted {
		err = fmt.Errorf("reminder %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		s.log.Error(ctx, "delete reminder", "id", id, "error", err)
		fail(&s.st, err)
		return false
	}

	succeed(&s.st, func(v *RemindersState) {
		v.Reminders = without(v.Reminders, id, reminderID)
		v.ItemReminders = without(v.ItemReminders, id, reminderID)
	})
	s.cancel(ctx, id)
	return true
}

// MarkSent records that the reminder's notification was delivered.
func (s *RemindersStore) MarkSent(ctx context.Context, ownerID, id string) bool {
	ok, err := s.repo.MarkSent(ctx, ownerID, id)
	if err == nil && !ok {
		err = fmt.Errorf("reminder %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		s.log.Error(ctx, "mark reminder sent", "id", id, "error", err)
		fail(&s.st, err)
		return false
	}

	succeed(&s.st, func(v *RemindersState) {
		v.Reminders = markSent(v.Reminders, id)
		v.ItemReminders = markSent(v.ItemReminders, id)
	})
	s.cancel(ctx, id)
	return true
}

// ForgetItem drops the reminders of a deleted item.
func (s *RemindersStore) ForgetItem(ctx context.Context, itemID string) {
	var gone []string
	s.st.update(func(v *RemindersState) {
		keep := make([]models.Reminder, 0, len(v.Reminders))
		for _, r := range v.Reminders {
			if r.ItemID == itemID {
				gone = append(gone, r.ID)
				continue
			}
			keep = append(keep, r)
		}
		v.Reminders = keep
		if v.itemID == itemID {
			v.ItemReminders = nil
		}
	})
	for _, id := range gone {
		s.cancel(ctx, id)
	}
}

// Grouped buckets the unsent reminders against now, in display order.
// Empty buckets are left out.
func (s *RemindersStore) Grouped(now time.Time) []models.ReminderGroup {
	byBucket := map[models.ReminderBucket][]models.Reminder{}
	for _, r := range s.Snapshot().Reminders {
		if r.Sent {
			continue
		}
		b := models.ClassifyReminder(now, r.NotifyAt)
		byBucket[b] = append(byBucket[b], r)
	}

	var out []models.ReminderGroup
	for _, b := range models.Buckets {
		list := byBucket[b]
		if len(list) == 0 {
			continue
		}
		sort.SliceStable(list, func(i, j int) bool { return reminderLess(list[i], list[j]) })
		out = append(out, models.ReminderGroup{Bucket: b, Reminders: list})
	}
	return out
}

// Reset clears the store and cancels the notifications it armed.
func (s *RemindersStore) Reset() {
	held := s.Snapshot().Reminders
	s.st.set(RemindersState{})
	for _, r := range held {
		s.cancel(context.Background(), r.ID)
	}
}

func (s *RemindersStore) apply(r models.Reminder) {
	succeed(&s.st, func(v *RemindersState) {
		v.Reminders = upsertSorted(v.Reminders, r, reminderID, reminderLess)
		if v.itemID == r.ItemID {
			v.ItemReminders = upsertSorted(v.ItemReminders, r, reminderID, reminderLess)
		}
	})
}

// schedule arms the reminder's notification. Sent or past reminders and a
// missing permission are skipped without error.
func (s *RemindersStore) schedule(ctx context.Context, r models.Reminder) {
	if s.notifier == nil || r.Sent || !r.NotifyAt.After(s.now()) {
		return
	}

	perm := s.notifier.Permission(ctx)
	if perm == notify.PermissionUndetermined {
		perm = s.notifier.RequestPermission(ctx)
	}
	if perm != notify.PermissionGranted {
		s.log.Debug(ctx, "notification skipped", "reminder", r.ID, "permission", perm.String())
		return
	}

	title := "Reminder"
	if r.ItemTitle != "" {
		title = r.ItemTitle
	}
	body := ""
	if r.Note != nil {
		body = *r.Note
	}

	_, err := s.notifier.Schedule(ctx, notify.Notification{
		ID:         notificationID(r.ID),
		ReminderID: r.ID,
		ItemID:     r.ItemID,
		Title:      title,
		Body:       body,
		At:         r.NotifyAt,
	})
	if err != nil {
		s.log.Warn(ctx, "schedule notification", "reminder", r.ID, "error", err)
	}
}

func (s *RemindersStore) cancel(ctx context.Context, id string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Cancel(ctx, notificationID(id)); err != nil {
		s.log.Warn(ctx, "cancel notification", "reminder", id, "error", err)
	}
}

func markSent(list []models.Reminder, id string) []models.Reminder {
	out := make([]models.Reminder, len(list))
	for i, r := range list {
		if r.ID == id {
			r.Sent = true
		}
		out[i] = r
	}
	return out
}
