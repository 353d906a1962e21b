package favourites

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/theLastOfCats/storefront/internal/api/apitest"
	"github.com/theLastOfCats/storefront/internal/apiclient"
	"github.com/theLastOfCats/storefront/internal/model"
	"github.com/theLastOfCats/storefront/internal/session"
	"github.com/theLastOfCats/storefront/internal/testutil"
	"github.com/theLastOfCats/storefront/internal/tokenstore"
)

// fakeAPI answers calls through respond and records every request.
type fakeAPI struct {
	mu       sync.Mutex
	loggedIn bool
	requests []apiclient.Request
	respond  func(req apiclient.Request) apiclient.Result
}

func (f *fakeAPI) HasCredential(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loggedIn
}

func (f *fakeAPI) Call(_ context.Context, req apiclient.Request) apiclient.Result {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	respond := f.respond
	f.mu.Unlock()
	return respond(req)
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func ok(body string) apiclient.Result {
	return apiclient.Result{Success: true, Status: 200, Data: json.RawMessage(body)}
}

func fail(msg string) apiclient.Result {
	return apiclient.Result{Status: 500, Kind: apiclient.KindHTTP, Error: msg}
}

func listBody(page, limit, total int, ids ...string) string {
	entries := make([]model.FavouriteEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, model.FavouriteEntry{Product: model.Product{ID: id, Catalog: model.CatalogProduct}, FavouriteID: "f-" + id})
	}
	raw, _ := json.Marshal(model.FavouriteList{Products: entries, Pagination: model.NewPagination(page, limit, total)})
	return string(raw)
}

func toggleBody(added bool) string {
	action := model.ActionRemoved
	if added {
		action = model.ActionAdded
	}
	raw, _ := json.Marshal(model.ToggleResponse{IsFavourite: added, Action: action})
	return string(raw)
}

// liveCache returns a cache talking to a real server as a fresh user.
func liveCache(t *testing.T) (*Cache, *apitest.Server, *model.User, *tokenstore.Store) {
	t.Helper()
	srv := apitest.NewServer(t)
	user := srv.CreateUser(t, "A", "a@b.com", "secret")
	tokens := tokenstore.New(testutil.NewMemoryStore(), testutil.NewMemoryStore())
	tokens.SetToken(context.Background(), srv.Token(t, user.ID))
	return New(apiclient.New(srv.URL, tokens)), srv, user, tokens
}

func TestToggleAddRefetches(t *testing.T) {
	c, srv, _, _ := liveCache(t)
	ctx := context.Background()
	testutil.SeedProduct(t, srv.DB, model.ProductOf("p1"), "Rice seeds", 1)
	ref := model.ProductOf("p1")

	if c.IsFavourite(ref) {
		t.Fatal("unknown product should not be a favourite")
	}

	resp, err := c.Toggle(ctx, ref)
	if err != nil || resp.Action != model.ActionAdded {
		t.Fatalf("Toggle: got %+v, %v", resp, err)
	}
	if !c.IsFavourite(ref) {
		t.Error("added product should be a favourite")
	}

	s := c.Snapshot()
	if len(s.Favourites) != 1 || s.Favourites[0].Ref() != ref || s.Count != 1 {
		t.Errorf("list should contain p1 after add, got %+v", s)
	}
	if s.Loading || s.Refreshing {
		t.Errorf("flags should be cleared, got %+v", s)
	}
}

func TestToggleFailureRollsBack(t *testing.T) {
	c, _, _, _ := liveCache(t)
	ctx := context.Background()
	ref := model.ProductOf("does-not-exist")

	if _, err := c.Toggle(ctx, ref); err == nil {
		t.Fatal("expected toggle of a missing product to fail")
	}
	if c.IsFavourite(ref) {
		t.Error("failed add must roll back to false")
	}
	s := c.Snapshot()
	if len(s.Favourites) != 0 || s.Error != "Product not found" {
		t.Errorf("expected empty list and error, got %+v", s)
	}
}

func TestToggleRemoveFiltersLocally(t *testing.T) {
	c, srv, user, _ := liveCache(t)
	ctx := context.Background()
	for _, p := range testutil.SeedProducts(t, srv.DB, model.CatalogCTGD, "c", 3) {
		srv.DB.ToggleFavourite(ctx, user.ID, model.CTGDOf(p.ID))
	}

	if err := c.GetFavourites(ctx, DefaultQuery()); err != nil {
		t.Fatalf("GetFavourites failed: %v", err)
	}
	if s := c.Snapshot(); s.Count != 3 {
		t.Fatalf("expected 3 favourites, got %d", s.Count)
	}

	ref := model.CTGDOf("c-2")
	resp, err := c.Toggle(ctx, ref)
	if err != nil || resp.Action != model.ActionRemoved {
		t.Fatalf("Toggle: got %+v, %v", resp, err)
	}

	s := c.Snapshot()
	if len(s.Favourites) != 2 || s.Count != 2 || s.Pagination.Total != 2 {
		t.Errorf("expected 2 remaining, got %+v", s)
	}
	for _, e := range s.Favourites {
		if e.Ref() == ref {
			t.Error("removed entry still listed")
		}
	}
	if c.IsFavourite(ref) {
		t.Error("removed product should not be a favourite")
	}
}

func TestRollbackRestoresFavourite(t *testing.T) {
	api := &fakeAPI{loggedIn: true}
	api.respond = func(req apiclient.Request) apiclient.Result {
		if req.Endpoint == "/favourite/toggle" {
			return fail("Network request failed")
		}
		return ok(listBody(1, 10, 1, "p1"))
	}
	c := New(api)
	ctx := context.Background()
	ref := model.ProductOf("p1")

	c.GetFavourites(ctx, DefaultQuery())
	if !c.IsFavourite(ref) {
		t.Fatal("listed product should be a favourite")
	}

	if _, err := c.Toggle(ctx, ref); err == nil {
		t.Fatal("expected toggle error")
	}
	if !c.IsFavourite(ref) {
		t.Error("failed removal must restore true")
	}
	if s := c.Snapshot(); s.Error != "Network request failed" || len(s.Favourites) != 1 {
		t.Errorf("expected error and untouched list, got %+v", s)
	}
}

func TestNoCredentialMakesNoRequests(t *testing.T) {
	api := &fakeAPI{respond: func(apiclient.Request) apiclient.Result {
		t.Error("unexpected request")
		return fail("unexpected")
	}}
	c := New(api)
	ctx := context.Background()
	ref := model.ProductOf("p1")

	if err := c.GetFavourites(ctx, DefaultQuery()); err != nil {
		t.Errorf("GetFavourites without session should not fail, got %v", err)
	}
	if s := c.Snapshot(); len(s.Favourites) != 0 || s.Count != 0 || s.Error != "" {
		t.Errorf("expected empty state, got %+v", s)
	}

	if _, err := c.Toggle(ctx, ref); err != ErrNotLoggedIn {
		t.Errorf("expected ErrNotLoggedIn, got %v", err)
	}
	if c.IsFavourite(ref) {
		t.Error("status must be unchanged")
	}
	if c.Check(ctx, ref) {
		t.Error("Check without session must be false")
	}
	if api.count() != 0 {
		t.Errorf("expected no requests, got %d", api.count())
	}
}

func TestPaginationInvariant(t *testing.T) {
	c, srv, user, _ := liveCache(t)
	ctx := context.Background()
	for _, p := range testutil.SeedProducts(t, srv.DB, model.CatalogProduct, "p", 23) {
		srv.DB.ToggleFavourite(ctx, user.ID, model.ProductOf(p.ID))
	}

	for _, q := range []Query{
		{Page: 1, Limit: 10},
		{Page: 3, Limit: 10},
		{Page: 99, Limit: 10},
		{Page: 1, Limit: 7},
		{Page: 0, Limit: 0},
		{Page: 1, Limit: 10, Catalog: model.CatalogNNDT},
	} {
		if err := c.GetFavourites(ctx, q); err != nil {
			t.Fatalf("%+v: GetFavourites failed: %v", q, err)
		}
		p := c.Snapshot().Pagination
		pages := (p.Total + p.Limit - 1) / p.Limit
		if p.Pages != pages {
			t.Errorf("%+v: pages %d != ceil(%d/%d)", q, p.Pages, p.Total, p.Limit)
		}
		if p.Page < 1 || p.Page > max(p.Pages, 1) {
			t.Errorf("%+v: page %d out of range [1,%d]", q, p.Page, max(p.Pages, 1))
		}
	}

	c.GetFavourites(ctx, Query{Page: 3, Limit: 10})
	if s := c.Snapshot(); len(s.Favourites) != 3 || s.Count != 23 {
		t.Errorf("last page: expected 3 of 23, got %d of %d", len(s.Favourites), s.Count)
	}
}

func TestLoadMoreAppends(t *testing.T) {
	c, srv, user, _ := liveCache(t)
	ctx := context.Background()
	for _, p := range testutil.SeedProducts(t, srv.DB, model.CatalogProduct, "p", 23) {
		srv.DB.ToggleFavourite(ctx, user.ID, model.ProductOf(p.ID))
	}

	c.GetFavourites(ctx, DefaultQuery())
	for _, want := range []int{20, 23, 23} {
		if err := c.LoadMore(ctx); err != nil {
			t.Fatalf("LoadMore failed: %v", err)
		}
		if got := len(c.Snapshot().Favourites); got != want {
			t.Errorf("expected %d entries, got %d", want, got)
		}
	}

	// A plain fetch replaces the accumulated pages.
	c.GetFavourites(ctx, DefaultQuery())
	if got := len(c.Snapshot().Favourites); got != 10 {
		t.Errorf("GetFavourites should replace, got %d entries", got)
	}
}

func TestRemoveOutsideCatalogFilterKeepsCount(t *testing.T) {
	c, srv, user, _ := liveCache(t)
	ctx := context.Background()
	testutil.SeedProduct(t, srv.DB, model.CTGDOf("c1"), "Fertiliser", 1)
	testutil.SeedProduct(t, srv.DB, model.ProductOf("p1"), "Rice seeds", 2)
	srv.DB.ToggleFavourite(ctx, user.ID, model.CTGDOf("c1"))
	srv.DB.ToggleFavourite(ctx, user.ID, model.ProductOf("p1"))

	q := DefaultQuery()
	q.Catalog = model.CatalogCTGD
	if err := c.GetFavourites(ctx, q); err != nil {
		t.Fatalf("GetFavourites failed: %v", err)
	}
	if s := c.Snapshot(); s.Count != 1 || len(s.Favourites) != 1 {
		t.Fatalf("expected one CTGD favourite, got %+v", s)
	}

	resp, err := c.Toggle(ctx, model.ProductOf("p1"))
	if err != nil || resp.Action != model.ActionRemoved {
		t.Fatalf("Toggle: got %+v, %v", resp, err)
	}

	s := c.Snapshot()
	if s.Count != 1 || s.Pagination.Total != 1 || len(s.Favourites) != 1 {
		t.Errorf("removing a product outside the filter changed the list totals: %+v", s)
	}
	if c.IsFavourite(model.ProductOf("p1")) {
		t.Error("removed product should not be a favourite")
	}
}

func TestToggleRaceLastResolvedWins(t *testing.T) {
	for _, tc := range []struct {
		name      string
		firstDone bool // whether call 1 resolves before call 2
		want      bool
	}{
		{"second resolves last", true, false},
		{"first resolves last", false, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			started := make(chan int, 2)
			release := []chan apiclient.Result{make(chan apiclient.Result), make(chan apiclient.Result)}
			var mu sync.Mutex
			toggles := 0

			api := &fakeAPI{loggedIn: true}
			api.respond = func(req apiclient.Request) apiclient.Result {
				if req.Endpoint != "/favourite/toggle" {
					return ok(listBody(1, 10, 0))
				}
				mu.Lock()
				i := toggles
				toggles++
				mu.Unlock()
				started <- i
				return <-release[i]
			}
			c := New(api)
			ctx := context.Background()
			ref := model.ProductOf("p1")

			done := []chan struct{}{make(chan struct{}), make(chan struct{})}
			for i := range 2 {
				go func() {
					defer close(done[i])
					c.Toggle(ctx, ref)
				}()
				<-started
			}

			// Both optimistic flips have happened: false -> true -> false.
			if c.IsFavourite(ref) {
				t.Fatal("two optimistic flips should land back on false")
			}

			// Server confirms call 1 as added and call 2 as removed.
			order := []int{1, 0}
			if tc.firstDone {
				order = []int{0, 1}
			}
			for _, i := range order {
				release[i] <- ok(toggleBody(i == 0))
				<-done[i]
			}

			if got := c.IsFavourite(ref); got != tc.want {
				t.Errorf("expected last-resolved value %v, got %v", tc.want, got)
			}
		})
	}
}

func TestStaleListResponseIsDropped(t *testing.T) {
	slow := make(chan struct{})
	api := &fakeAPI{loggedIn: true}
	api.respond = func(req apiclient.Request) apiclient.Result {
		page := req.Params["page"].(int)
		if page == 1 {
			<-slow
			return ok(listBody(1, 1, 2, "old"))
		}
		return ok(listBody(2, 1, 2, "new"))
	}
	c := New(api)
	ctx := context.Background()

	first := make(chan struct{})
	go func() {
		defer close(first)
		c.GetFavourites(ctx, Query{Page: 1, Limit: 1})
	}()
	// Wait for the slow request to be in flight.
	for api.count() == 0 {
		runtime.Gosched()
	}

	if err := c.GetFavourites(ctx, Query{Page: 2, Limit: 1}); err != nil {
		t.Fatalf("GetFavourites failed: %v", err)
	}
	close(slow)
	<-first

	s := c.Snapshot()
	if len(s.Favourites) != 1 || s.Favourites[0].ID != "new" || s.Pagination.Page != 2 {
		t.Errorf("stale page 1 clobbered page 2: %+v", s)
	}
	if s.Loading {
		t.Error("loading should be cleared once both requests finish")
	}
	if c.IsFavourite(model.ProductOf("old")) {
		t.Error("stale response must not mark its entries")
	}
}

func TestCheckIsFailClosed(t *testing.T) {
	c, srv, _, _ := liveCache(t)
	ctx := context.Background()
	testutil.SeedProduct(t, srv.DB, model.NNDTOf("n1"), "Kit", 1)
	ref := model.NNDTOf("n1")

	if c.Check(ctx, ref) {
		t.Error("not yet favourited")
	}
	c.Toggle(ctx, ref)
	if !c.Check(ctx, ref) {
		t.Error("expected favourite after toggle")
	}

	// Same id in a different catalog is a different product.
	if c.IsFavourite(model.ProductOf("n1")) {
		t.Error("status must be keyed by catalog and id")
	}

	srv.Close()
	if c.Check(ctx, ref) {
		t.Error("unreachable server must report false")
	}
}

func TestCheckAcrossResetIsDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{loggedIn: true}
	api.respond = func(apiclient.Request) apiclient.Result {
		close(started)
		<-release
		return ok(`{"isFavourite":true}`)
	}
	c := New(api)
	ref := model.ProductOf("p1")

	done := make(chan bool)
	go func() { done <- c.Check(context.Background(), ref) }()
	<-started
	c.Reset()
	close(release)

	if !<-done {
		t.Error("Check should still report the server answer")
	}
	if c.IsFavourite(ref) {
		t.Error("a check issued before Reset must not repopulate the status")
	}
}

func TestLogoutResetsCache(t *testing.T) {
	srv := apitest.NewServer(t)
	user := srv.CreateUser(t, "A", "a@b.com", "secret")
	ctx := context.Background()
	for i, p := range testutil.SeedProducts(t, srv.DB, model.CatalogProduct, "p", 4) {
		if i%2 == 0 {
			srv.DB.ToggleFavourite(ctx, user.ID, model.ProductOf(p.ID))
		}
	}

	secure, general := testutil.NewMemoryStore(), testutil.NewMemoryStore()
	tokens := tokenstore.New(secure, general)
	client := apiclient.New(srv.URL, tokens)
	m := session.New(client, tokens)
	c := New(client)
	c.Follow(m)

	if _, err := m.Login(ctx, "a@b.com", "secret"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	c.GetFavourites(ctx, DefaultQuery())
	if s := c.Snapshot(); s.Count != 2 {
		t.Fatalf("expected 2 favourites, got %d", s.Count)
	}

	m.Logout(ctx)

	if secure.Has(tokenstore.KeyToken) || general.Has(tokenstore.KeyToken) {
		t.Error("credential should be gone from both stores")
	}
	s := c.Snapshot()
	if s.Count != 0 || len(s.Favourites) != 0 {
		t.Errorf("expected empty cache after logout, got %+v", s)
	}
	if c.IsFavourite(model.ProductOf("p-1")) {
		t.Error("status map should be cleared")
	}
}

func TestQueryParams(t *testing.T) {
	q := Query{Page: 2, Limit: 5, SortBy: "price", Catalog: model.CatalogCTGD}
	got := fmt.Sprint(q.params())
	want := "map[limit:5 page:2 productType:ProductConTrungGiaDung sortBy:price]"
	if got != want {
		t.Errorf("params: got %s, want %s", got, want)
	}
}
