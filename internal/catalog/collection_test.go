package catalog

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/theLastOfCats/storefront/internal/api/apitest"
	"github.com/theLastOfCats/storefront/internal/apiclient"
	"github.com/theLastOfCats/storefront/internal/model"
	"github.com/theLastOfCats/storefront/internal/testutil"
	"github.com/theLastOfCats/storefront/internal/tokenstore"
)

type recorder struct {
	mu       sync.Mutex
	requests []apiclient.Request
	respond  func(req apiclient.Request) apiclient.Result
}

func (r *recorder) Call(_ context.Context, req apiclient.Request) apiclient.Result {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()
	return r.respond(req)
}

func (r *recorder) last() apiclient.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[len(r.requests)-1]
}

func pageOf(page, limit, total int, ids ...string) apiclient.Result {
	items := make([]model.Product, 0, len(ids))
	for _, id := range ids {
		items = append(items, model.Product{ID: id, Catalog: model.CatalogProduct})
	}
	raw, _ := json.Marshal(model.ListPage[model.Product]{Items: items, Pagination: model.NewPagination(page, limit, total)})
	return apiclient.Result{Success: true, Status: 200, Data: raw}
}

func TestFilterChangeResetsPage(t *testing.T) {
	rec := &recorder{respond: func(req apiclient.Request) apiclient.Result {
		return pageOf(req.Params["page"].(int), 10, 50, "x")
	}}
	c := NewProducts(rec)
	ctx := context.Background()

	c.SetPage(ctx, 4)
	if s := c.Snapshot(); s.CurrentPage != 4 {
		t.Fatalf("expected page 4, got %d", s.CurrentPage)
	}

	c.SetSearchQuery(ctx, "rice")
	if s := c.Snapshot(); s.CurrentPage != 1 {
		t.Errorf("search should reset page to 1, got %d", s.CurrentPage)
	}
	if req := rec.last(); req.Params["search"] != "rice" || req.Params["page"] != 1 {
		t.Errorf("search reload: got params %v", req.Params)
	}

	c.SetPage(ctx, 3)
	c.SetSelectedCategory(ctx, "cat-9")
	if s := c.Snapshot(); s.CurrentPage != 1 || s.SelectedCategory != "cat-9" {
		t.Errorf("category should reset page to 1, got %+v", s)
	}
	if req := rec.last(); req.Params["category"] != "cat-9" || req.Params["search"] != "rice" || req.Endpoint != "/products" {
		t.Errorf("category reload: got %+v", req)
	}
	if n := len(rec.requests); n != 4 {
		t.Errorf("every change should issue exactly one request, got %d", n)
	}
}

func TestStalePageIsDropped(t *testing.T) {
	slow := make(chan struct{})
	inFlight := make(chan struct{})
	rec := &recorder{respond: func(req apiclient.Request) apiclient.Result {
		if req.Params["page"] == 1 {
			close(inFlight)
			<-slow
			return pageOf(1, 10, 30, "page-1")
		}
		return pageOf(2, 10, 30, "page-2")
	}}
	c := NewProducts(rec)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Load(ctx)
	}()
	<-inFlight

	c.SetPage(ctx, 2)
	close(slow)
	<-done

	s := c.Snapshot()
	if len(s.Items) != 1 || s.Items[0].ID != "page-2" || s.CurrentPage != 2 {
		t.Errorf("stale page clobbered newer one: %+v", s)
	}
	if s.Loading {
		t.Error("loading should be cleared")
	}
}

func TestLoadErrorIsRecorded(t *testing.T) {
	rec := &recorder{respond: func(apiclient.Request) apiclient.Result {
		return apiclient.Result{Status: 500, Kind: apiclient.KindHTTP, Error: "HTTP 500"}
	}}
	c := NewSlider(rec)

	if err := c.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if s := c.Snapshot(); s.Error != "HTTP 500" || s.Loading {
		t.Errorf("expected recorded error, got %+v", s)
	}
}

func liveClient(t *testing.T) (*apitest.Server, *apiclient.Client, *model.User) {
	t.Helper()
	srv := apitest.NewServer(t)
	user := srv.CreateUser(t, "A", "a@b.com", "secret")
	tokens := tokenstore.New(testutil.NewMemoryStore(), testutil.NewMemoryStore())
	tokens.SetToken(context.Background(), srv.Token(t, user.ID))
	return srv, apiclient.New(srv.URL, tokens), user
}

func TestProductsAgainstServer(t *testing.T) {
	srv, client, _ := liveClient(t)
	ctx := context.Background()
	testutil.SeedProducts(t, srv.DB, model.CatalogNNDT, "n", 15)
	srv.DB.InsertCategory(model.Category{ID: "hydro", Name: "Hydroponics", Catalog: "productnndt"})

	c := NewNNDT(client)
	c.SetLimit(5)
	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s := c.Snapshot()
	if len(s.Items) != 5 || s.Total != 15 || s.TotalPages != 3 || s.CurrentPage != 1 {
		t.Errorf("first page: got %d items, %+v", len(s.Items), s)
	}

	if err := c.LoadNew(ctx, 2); err != nil {
		t.Fatalf("LoadNew failed: %v", err)
	}
	if s := c.Snapshot(); len(s.NewItems) != 2 || s.NewItems[0].ID != "n-15" {
		t.Errorf("new items: got %+v", s.NewItems)
	}
	c.RefreshNew(ctx)
	if s := c.Snapshot(); len(s.NewItems) != 2 {
		t.Errorf("refresh should keep the limit, got %d", len(s.NewItems))
	}

	if err := c.LoadCategories(ctx); err != nil {
		t.Fatalf("LoadCategories failed: %v", err)
	}
	if s := c.Snapshot(); len(s.Categories) != 1 || s.Categories[0].ID != "hydro" {
		t.Errorf("categories: got %+v", s.Categories)
	}

	// n-15 is in NewItems, n-15..n-11 are on page 1, n-1 is loaded nowhere.
	if p, ok := c.Get("n-15"); !ok || p.Name != "n 15" {
		t.Errorf("Get(n-15): got %+v, %v", p, ok)
	}
	if _, ok := c.Get("n-1"); ok {
		t.Error("Get must not find items that were never loaded")
	}

	c.SetSearchQuery(ctx, "n 1")
	if s := c.Snapshot(); s.Total != 7 {
		// n 1, n 10..n 15
		t.Errorf("search total: expected 7, got %d", s.Total)
	}
}

func TestPostsAndSlides(t *testing.T) {
	srv, client, _ := liveClient(t)
	ctx := context.Background()
	srv.DB.InsertPost(model.Post{ID: "a1", Kind: "thuvien", Title: "Composting", Content: "..."})
	srv.DB.InsertPost(model.Post{ID: "b1", Kind: "bsct", Title: "Aphids", Content: "..."})
	srv.DB.InsertSlide(model.Slide{ID: "s1", Title: "Spring", Image: "spring.png", SortKey: 2})
	srv.DB.InsertSlide(model.Slide{ID: "s2", Title: "Summer", Image: "summer.png", SortKey: 1})

	lib := NewThuVien(client)
	lib.Load(ctx)
	if s := lib.Snapshot(); len(s.Items) != 1 || s.Items[0].ID != "a1" {
		t.Errorf("thuvien: got %+v", s.Items)
	}

	slider := NewSlider(client)
	slider.Load(ctx)
	s := slider.Snapshot()
	if len(s.Items) != 2 || s.Items[0].ID != "s2" {
		t.Errorf("slides should be ordered by sort key, got %+v", s.Items)
	}
	if err := slider.LoadCategories(ctx); err != nil || len(slider.Snapshot().Categories) != 0 {
		t.Errorf("slider has no categories, got %v", err)
	}
}

func TestNotificationsReadState(t *testing.T) {
	srv, client, user := liveClient(t)
	ctx := context.Background()
	first, _ := srv.DB.CreateNotification(user.ID, "Shipped", "Your order shipped")
	srv.DB.CreateNotification(user.ID, "Sale", "20% off")

	n := NewNotifications(client)
	if err := n.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if n.UnreadCount() != 2 {
		t.Fatalf("expected 2 unread, got %d", n.UnreadCount())
	}

	if err := n.MarkRead(ctx, first.ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if n.UnreadCount() != 1 {
		t.Errorf("expected 1 unread, got %d", n.UnreadCount())
	}
	if item, ok := n.Get(first.ID); !ok || !item.Read {
		t.Errorf("local copy should be read, got %+v", item)
	}
	// Marking again is not double counted.
	n.MarkRead(ctx, first.ID)
	if n.UnreadCount() != 1 {
		t.Errorf("expected 1 unread after repeat, got %d", n.UnreadCount())
	}

	if err := n.MarkRead(ctx, "missing"); err == nil {
		t.Error("expected error for unknown notification")
	}

	if err := n.MarkAllRead(ctx); err != nil {
		t.Fatalf("MarkAllRead failed: %v", err)
	}
	if n.UnreadCount() != 0 {
		t.Errorf("expected 0 unread, got %d", n.UnreadCount())
	}
	n.Load(ctx)
	if n.UnreadCount() != 0 {
		t.Errorf("server should agree, got %d unread", n.UnreadCount())
	}
}

func TestNotificationsEndpoints(t *testing.T) {
	rec := &recorder{respond: func(apiclient.Request) apiclient.Result {
		return apiclient.Result{Success: true, Status: 200, Data: json.RawMessage(`{"message":"ok"}`)}
	}}
	n := NewNotifications(rec)

	if err := n.MarkRead(context.Background(), "a/b c"); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if got := rec.last().Endpoint; got != "/notifications/a%2Fb%20c/read" {
		t.Errorf("id should be path-escaped, got %q", got)
	}

	// The inbox has no "new" or categories routes on the server.
	if _, ok := any(n).(interface {
		LoadNew(context.Context, int) error
	}); ok {
		t.Error("inbox should not expose LoadNew")
	}
	if _, ok := any(n).(interface {
		LoadCategories(context.Context) error
	}); ok {
		t.Error("inbox should not expose LoadCategories")
	}
}
