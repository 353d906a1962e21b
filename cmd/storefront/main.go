// Command storefront drives the storefront client from a terminal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/theLastOfCats/storefront/internal/apiclient"
	"github.com/theLastOfCats/storefront/internal/config"
	"github.com/theLastOfCats/storefront/internal/favourites"
	"github.com/theLastOfCats/storefront/internal/kv"
	"github.com/theLastOfCats/storefront/internal/logger"
	"github.com/theLastOfCats/storefront/internal/securestore"
	"github.com/theLastOfCats/storefront/internal/session"
	"github.com/theLastOfCats/storefront/internal/tokenstore"
)

const usage = `usage: storefront <command> [flags] [args]

commands:
  login <email> <password>
  register <name> <email> <password>
  logout
  whoami
  change-password <old> <new>
  favourites [-page N] [-limit N] [-type T] [-sort F] [-order asc|desc] [-all]
  toggle <productType> <id>
  check <productType> <id>
  browse [-catalog C] [-search Q] [-category ID] [-page N] [-new N] [-categories]
  notifications [-read ID] [-read-all]
  theme [light|dark|system]
`

// envPush hands the configured push token to the session manager.
type envPush string

func (p envPush) PushToken(context.Context) (string, error) {
	if p == "" {
		return "", errors.New("no push token configured")
	}
	return string(p), nil
}

type app struct {
	client     *apiclient.Client
	tokens     *tokenstore.Store
	session    *session.Manager
	favourites *favourites.Cache
}

func main() {
	os.Exit(run())
}

func run() int {
	logger.InitTo(os.Stderr, "storefront-cli", true)
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	cfg, err := config.LoadClient()
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	general, closeGeneral, err := kv.Open(ctx, cfg.StoreDSN)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to open local store")
		return 1
	}
	defer closeGeneral()

	secure, err := securestore.New(cfg.SecureStorePath, cfg.SecureStoreKey)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to open secure store")
		return 1
	}

	tokens := tokenstore.New(secure, general)
	client := apiclient.New(cfg.APIBaseURL, tokens)
	client.HTTP = &http.Client{Timeout: cfg.HTTPTimeout}

	var opts []session.Option
	if cfg.PushToken != "" {
		opts = append(opts, session.WithPush(envPush(cfg.PushToken), cfg.Platform))
	}
	sess := session.New(client, tokens, opts...)
	client.OnUnauthorized(sess.ForceLogout)

	favs := favourites.New(client)
	favs.Follow(sess)

	a := &app{client: client, tokens: tokens, session: sess, favourites: favs}
	a.session.Bootstrap(ctx)

	err = a.run(ctx, os.Args[1], os.Args[2:])
	a.session.Wait()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
