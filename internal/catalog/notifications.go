package catalog

import (
	"context"
	"net/url"

	"github.com/theLastOfCats/storefront/internal/apiclient"
	"github.com/theLastOfCats/storefront/internal/model"
)

// Notifications is the signed-in user's inbox. It pages like a collection
// but has no "new" subset or categories.
type Notifications struct {
	list *Collection[model.Notification]
}

func NewNotifications(api Caller) *Notifications {
	return &Notifications{list: newCollection[model.Notification](api, "/notifications", false)}
}

func (n *Notifications) SetLimit(limit int) {
	n.list.SetLimit(limit)
}

func (n *Notifications) SetPage(ctx context.Context, page int) error {
	return n.list.SetPage(ctx, page)
}

func (n *Notifications) Load(ctx context.Context) error {
	return n.list.Load(ctx)
}

func (n *Notifications) Snapshot() State[model.Notification] {
	return n.list.Snapshot()
}

func (n *Notifications) Get(id string) (model.Notification, bool) {
	return n.list.Get(id)
}

func (n *Notifications) UnreadCount() int {
	n.list.mu.Lock()
	defer n.list.mu.Unlock()
	return n.list.unread
}

func (n *Notifications) MarkRead(ctx context.Context, id string) error {
	res := n.list.api.Call(ctx, apiclient.Request{Endpoint: "/notifications/" + url.PathEscape(id) + "/read", Method: "PUT"})
	if err := res.Err(); err != nil {
		return err
	}

	n.list.mu.Lock()
	defer n.list.mu.Unlock()
	items := n.list.state.Items
	for i := range items {
		if items[i].ID == id && !items[i].Read {
			items[i].Read = true
			if n.list.unread > 0 {
				n.list.unread--
			}
		}
	}
	return nil
}

func (n *Notifications) MarkAllRead(ctx context.Context) error {
	res := n.list.api.Call(ctx, apiclient.Request{Endpoint: "/notifications/read-all", Method: "PUT"})
	if err := res.Err(); err != nil {
		return err
	}

	n.list.mu.Lock()
	defer n.list.mu.Unlock()
	for i := range n.list.state.Items {
		n.list.state.Items[i].Read = true
	}
	n.list.unread = 0
	return nil
}
