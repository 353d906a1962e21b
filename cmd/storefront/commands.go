package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/theLastOfCats/storefront/internal/catalog"
	"github.com/theLastOfCats/storefront/internal/favourites"
	"github.com/theLastOfCats/storefront/internal/model"
	"github.com/theLastOfCats/storefront/internal/tokenstore"
)

var errUsage = errors.New("invalid arguments, run without arguments for usage")

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		if len(args) != 2 {
			return errUsage
		}
		user, err := a.session.Login(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(user)

	case "register":
		if len(args) != 3 {
			return errUsage
		}
		if err := a.session.Register(ctx, args[0], args[1], args[2]); err != nil {
			return err
		}
		fmt.Println("Registered. Log in with: storefront login", args[1], "<password>")
		return nil

	case "logout":
		a.session.Logout(ctx)
		fmt.Println("Logged out")
		return nil

	case "whoami":
		s := a.session.Session()
		if !s.IsLoggedIn {
			return errors.New("not logged in")
		}
		return printJSON(s.User)

	case "change-password":
		if len(args) != 2 {
			return errUsage
		}
		out := a.session.ChangePassword(ctx, args[0], args[1])
		if out.SessionExpired {
			return errors.New("session expired, log in again")
		}
		if !out.Success {
			return errors.New(out.Message)
		}
		fmt.Println(out.Message)
		return nil

	case "favourites":
		return a.listFavourites(ctx, args)

	case "toggle", "check":
		if len(args) != 2 {
			return errUsage
		}
		ref, err := model.RefOf(args[0], args[1])
		if err != nil {
			return err
		}
		if cmd == "check" {
			return printJSON(model.CheckResponse{IsFavourite: a.favourites.Check(ctx, ref)})
		}
		resp, err := a.favourites.Toggle(ctx, ref)
		if err != nil {
			return err
		}
		return printJSON(resp)

	case "browse":
		return a.browse(ctx, args)

	case "notifications":
		return a.notifications(ctx, args)

	case "theme":
		if len(args) == 0 {
			fmt.Println(a.tokens.ThemeMode(ctx))
			return nil
		}
		return a.tokens.SetThemeMode(ctx, tokenstore.ThemeMode(args[0]))

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) listFavourites(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("favourites", flag.ContinueOnError)
	q := favourites.DefaultQuery()
	fs.IntVar(&q.Page, "page", q.Page, "page number")
	fs.IntVar(&q.Limit, "limit", q.Limit, "page size")
	fs.StringVar(&q.SortBy, "sort", q.SortBy, "createdAt, name or price")
	fs.StringVar(&q.SortOrder, "order", q.SortOrder, "asc or desc")
	productType := fs.String("type", "", "restrict to one product type")
	all := fs.Bool("all", false, "load every page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *productType != "" {
		c, err := model.ParseCatalog(*productType)
		if err != nil {
			return err
		}
		q.Catalog = c
	}

	if err := a.favourites.GetFavourites(ctx, q); err != nil {
		return err
	}
	for *all && a.favourites.Snapshot().Pagination.HasNext() {
		if err := a.favourites.LoadMore(ctx); err != nil {
			return err
		}
	}

	s := a.favourites.Snapshot()
	return printJSON(model.FavouriteList{Products: s.Favourites, Pagination: s.Pagination})
}

func (a *app) browse(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("browse", flag.ContinueOnError)
	name := fs.String("catalog", "products", "products, productnndt, productctgd, bsct, thuvien or slider")
	search := fs.String("search", "", "search text")
	category := fs.String("category", "", "category id")
	page := fs.Int("page", 1, "page number")
	newest := fs.Int("new", 0, "show the N newest items instead of a page")
	categories := fs.Bool("categories", false, "list categories")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch *name {
	case "products":
		return show(ctx, catalog.NewProducts(a.client), *search, *category, *page, *newest, *categories)
	case "productnndt":
		return show(ctx, catalog.NewNNDT(a.client), *search, *category, *page, *newest, *categories)
	case "productctgd":
		return show(ctx, catalog.NewCTGD(a.client), *search, *category, *page, *newest, *categories)
	case "bsct":
		return show(ctx, catalog.NewBSCT(a.client), *search, *category, *page, *newest, *categories)
	case "thuvien":
		return show(ctx, catalog.NewThuVien(a.client), *search, *category, *page, *newest, *categories)
	case "slider":
		return show(ctx, catalog.NewSlider(a.client), *search, *category, *page, *newest, *categories)
	default:
		return fmt.Errorf("unknown catalog %q", *name)
	}
}

func show[T catalog.Item](ctx context.Context, c *catalog.Collection[T], search, category string, page, newest int, categories bool) error {
	switch {
	case categories:
		if err := c.LoadCategories(ctx); err != nil {
			return err
		}
		return printJSON(c.Snapshot().Categories)
	case newest > 0:
		if err := c.LoadNew(ctx, newest); err != nil {
			return err
		}
		return printJSON(c.Snapshot().NewItems)
	}

	loaded := false
	if search != "" {
		if err := c.SetSearchQuery(ctx, search); err != nil {
			return err
		}
		loaded = true
	}
	if category != "" {
		if err := c.SetSelectedCategory(ctx, category); err != nil {
			return err
		}
		loaded = true
	}
	if !loaded || page != 1 {
		if err := c.SetPage(ctx, page); err != nil {
			return err
		}
	}

	s := c.Snapshot()
	return printJSON(model.ListPage[T]{
		Items:      s.Items,
		Pagination: model.Pagination{Page: s.CurrentPage, Limit: model.DefaultLimit, Total: s.Total, Pages: s.TotalPages},
	})
}

func (a *app) notifications(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("notifications", flag.ContinueOnError)
	read := fs.String("read", "", "mark one notification as read")
	readAll := fs.Bool("read-all", false, "mark every notification as read")
	if err := fs.Parse(args); err != nil {
		return err
	}

	n := catalog.NewNotifications(a.client)
	switch {
	case *readAll:
		if err := n.MarkAllRead(ctx); err != nil {
			return err
		}
	case *read != "":
		if err := n.MarkRead(ctx, *read); err != nil {
			return err
		}
	}

	if err := n.Load(ctx); err != nil {
		return err
	}
	s := n.Snapshot()
	unread := n.UnreadCount()
	return printJSON(model.ListPage[model.Notification]{
		Items:       s.Items,
		Pagination:  model.Pagination{Page: s.CurrentPage, Limit: model.DefaultLimit, Total: s.Total, Pages: s.TotalPages},
		UnreadCount: &unread,
	})
}
