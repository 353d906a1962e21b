package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/theLastOfCats/storefront/internal/auth"
	"github.com/theLastOfCats/storefront/internal/db"
	"github.com/theLastOfCats/storefront/internal/mail"
	"github.com/theLastOfCats/storefront/internal/templates"
)

type Deps struct {
	DB        *db.DB
	Tokens    *auth.Issuer
	Mailer    mail.MailSender
	Templates *templates.Manager
	BaseURL   string
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Alive"))
}

// NewRouter wires every storefront route behind request logging.
func NewRouter(d Deps) http.Handler {
	authHandler := &AuthHandler{DB: d.DB, Tokens: d.Tokens, Mailer: d.Mailer, Templates: d.Templates, BaseURL: d.BaseURL}
	deviceHandler := &DeviceHandler{DB: d.DB}
	favouriteHandler := &FavouriteHandler{DB: d.DB}
	catalogHandler := &CatalogHandler{DB: d.DB}
	notificationHandler := &NotificationHandler{DB: d.DB}
	mw := &Middleware{DB: d.DB, Tokens: d.Tokens}

	protected := func(fn func(w http.ResponseWriter, r *http.Request, userID string)) http.Handler {
		return mw.AuthMiddleware(withUser(fn))
	}

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /{$}", Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.HandleFunc("POST /auth/register", authHandler.Register)

	for path, catalog := range productRoutes {
		mux.HandleFunc("GET /"+path, catalogHandler.ListProducts(catalog))
		mux.HandleFunc("GET /"+path+"/new", catalogHandler.NewProducts(catalog))
		mux.HandleFunc("GET /"+path+"/categories", catalogHandler.Categories(path))
	}
	for _, kind := range postRoutes {
		mux.HandleFunc("GET /"+kind, catalogHandler.ListPosts(kind))
		mux.HandleFunc("GET /"+kind+"/new", catalogHandler.NewPosts(kind))
		mux.HandleFunc("GET /"+kind+"/categories", catalogHandler.Categories(kind))
	}
	mux.HandleFunc("GET /slider", catalogHandler.ListSlides)
	mux.HandleFunc("GET /slider/new", catalogHandler.NewSlides)
	mux.HandleFunc("GET /slider/categories", catalogHandler.Categories("slider"))

	// Protected Routes
	mux.Handle("GET /auth/me", protected(authHandler.Me))
	mux.Handle("PUT /auth/change-password", protected(authHandler.ChangePassword))
	mux.Handle("POST /auth/logout", protected(authHandler.Logout))
	mux.Handle("POST /devices/register", protected(deviceHandler.Register))

	mux.Handle("GET /favourite", protected(favouriteHandler.List))
	mux.Handle("POST /favourite/toggle", protected(favouriteHandler.Toggle))
	mux.Handle("GET /favourite/check", protected(favouriteHandler.Check))

	mux.Handle("GET /notifications", protected(notificationHandler.List))
	mux.Handle("PUT /notifications/read-all", protected(notificationHandler.MarkAllRead))
	mux.Handle("PUT /notifications/{id}/read", protected(notificationHandler.MarkRead))

	return LoggingMiddleware(metrics, mux)
}
