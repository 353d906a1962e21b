//go:build integration

package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/theLastOfCats/storefront/internal/auth"
	"github.com/theLastOfCats/storefront/internal/model"
	"github.com/theLastOfCats/storefront/internal/templates"
	"github.com/theLastOfCats/storefront/internal/testutil"
)

func newMySQLEnv(t *testing.T) *testEnv {
	t.Helper()
	database := testutil.SetupMySQLTestDB(t)
	tokens := auth.NewIssuer("test-secret", time.Hour)
	mailer := &testutil.MockMailSender{}
	router := NewRouter(Deps{DB: database, Tokens: tokens, Mailer: mailer, Templates: templates.Default(), BaseURL: "http://test"})
	return &testEnv{db: database, tokens: tokens, mailer: mailer, router: router}
}

func TestFavouriteToggleMySQL(t *testing.T) {
	env := newMySQLEnv(t)
	_, token := env.user(t, "fav-mysql@example.com")
	testutil.SeedProducts(t, env.db, model.CatalogProduct, "p", 3)

	for _, id := range []string{"p-1", "p-2", "p-3"} {
		rr := env.do(t, "POST", "/favourite/toggle", token, model.ProductOf(id).TogglePayload())
		if rr.Code != http.StatusOK {
			t.Fatalf("toggle %s: got %d %s", id, rr.Code, rr.Body.String())
		}
	}
	env.do(t, "POST", "/favourite/toggle", token, model.ProductOf("p-2").TogglePayload())

	rr := env.do(t, "GET", "/favourite?limit=1", token, nil)
	var list model.FavouriteList
	json.NewDecoder(rr.Body).Decode(&list)
	want := model.Pagination{Page: 1, Limit: 1, Total: 2, Pages: 2}
	if list.Pagination != want {
		t.Errorf("pagination: expected %+v, got %+v", want, list.Pagination)
	}
}

func TestDeviceUpsertMySQL(t *testing.T) {
	env := newMySQLEnv(t)
	user, token := env.user(t, "device-mysql@example.com")

	env.do(t, "POST", "/devices/register", token, map[string]string{"deviceId": "d1", "pushToken": "a"})
	env.do(t, "POST", "/devices/register", token, map[string]string{"deviceId": "d1", "pushToken": "b"})

	devices, err := env.db.ListDevices(user.ID)
	if err != nil || len(devices) != 1 || devices[0].PushToken != "b" {
		t.Fatalf("expected one device with token b, got %+v, %v", devices, err)
	}
}

func TestNotificationReadTwiceMySQL(t *testing.T) {
	env := newMySQLEnv(t)
	user, token := env.user(t, "notify-mysql@example.com")
	n, err := env.db.CreateNotification(user.ID, "Hi", "there")
	if err != nil {
		t.Fatalf("CreateNotification failed: %v", err)
	}

	// MySQL reports zero affected rows the second time; it must not be a 404.
	for range 2 {
		if rr := env.do(t, "PUT", "/notifications/"+n.ID+"/read", token, nil); rr.Code != http.StatusOK {
			t.Fatalf("mark read: got %d", rr.Code)
		}
	}
	if err := env.db.MarkAllNotificationsRead(user.ID); err != nil {
		t.Errorf("MarkAllNotificationsRead failed: %v", err)
	}
}
