package catalog

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"umrah_catalog/internal/adapters/observability"
	"umrah_catalog/internal/domain"
)

const (
	NoticeInfo  = "info"
	NoticeError = "error"
)

type Notification struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type notificationSnapshot struct {
	Notifications []Notification `json:"notifications"`
}

// Notifications is the transient-message slice (the toast analog).
// Persisted under its own namespaced key with a single allow-listed
// field.
type Notifications struct {
	mu    sync.Mutex
	seq   int64
	items []Notification
	snap  domain.Snapshotter
}

func NewNotifications(snap domain.Snapshotter) *Notifications {
	return &Notifications{snap: snap}
}

func (n *Notifications) Rehydrate(ctx context.Context) error {
	var ns notificationSnapshot
	ok, err := n.snap.Load(ctx, SliceNotification, &ns)
	if err != nil {
		return err
	}
	if ok {
		n.mu.Lock()
		n.items = ns.Notifications
		n.mu.Unlock()
		observability.ObserveSnapshot(SliceNotification, "load")
	}
	return nil
}

func (n *Notifications) Push(ctx context.Context, level, message string) Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seq++
	notice := Notification{
		ID:        strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatInt(n.seq, 10),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	n.items = append(n.items, notice)
	n.persistLocked(ctx)
	return notice
}

// Dismiss removes a notification by id; a missing id is a no-op.
func (n *Notifications) Dismiss(ctx context.Context, id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = removeByID(n.items, id, func(x Notification) string { return x.ID })
	n.persistLocked(ctx)
}

func (n *Notifications) List() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.items...)
}

func (n *Notifications) persistLocked(ctx context.Context) {
	if err := n.snap.Save(ctx, SliceNotification, notificationSnapshot{Notifications: n.items}); err != nil {
		log.Warn().Err(err).Msg("notification snapshot failed")
		return
	}
	observability.ObserveSnapshot(SliceNotification, "save")
}
