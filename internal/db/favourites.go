package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/theLastOfCats/storefront/internal/model"
)

// FavouriteQuery selects one page of a user's favourites.
type FavouriteQuery struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Catalog   model.Catalog
}

var favouriteSortColumns = map[string]string{
	"createdAt": "f.created_at",
	"name":      "p.name",
	"price":     "p.price",
}

func (q FavouriteQuery) orderBy() string {
	column, ok := favouriteSortColumns[q.SortBy]
	if !ok {
		column = "f.created_at"
	}
	direction := "DESC"
	if q.SortOrder == "asc" {
		direction = "ASC"
	}
	return column + " " + direction + ", f.id"
}

func (db *DB) ListFavourites(userID string, q FavouriteQuery) ([]model.FavouriteEntry, model.Pagination, error) {
	where := " WHERE f.user_id = ?"
	args := []any{userID}
	if q.Catalog != "" {
		where += " AND p.catalog = ?"
		args = append(args, string(q.Catalog))
	}

	from := ` FROM favourites f JOIN products p ON p.id = f.product_id`

	var total int
	if err := db.QueryRow(`SELECT COUNT(*)`+from+where, args...).Scan(&total); err != nil {
		return nil, model.Pagination{}, err
	}
	page := model.NewPagination(q.Page, q.Limit, total)

	rows, err := db.Query(`SELECT p.id, p.name, p.description, p.price, p.image, p.category_id, p.catalog, p.created_at, f.id, f.created_at`+
		from+where+` ORDER BY `+q.orderBy()+` LIMIT ? OFFSET ?`, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	defer rows.Close()

	entries := []model.FavouriteEntry{}
	for rows.Next() {
		var e model.FavouriteEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.Price, &e.Image, &e.CategoryID, &e.Catalog, &e.CreatedAt,
			&e.FavouriteID, &e.FavouriteAt); err != nil {
			return nil, model.Pagination{}, err
		}
		entries = append(entries, e)
	}
	return entries, page, rows.Err()
}

// FindFavourite returns the favourite id for the product, or ErrNotFound.
func (db *DB) FindFavourite(userID string, ref model.ProductRef) (string, error) {
	var id string
	err := db.QueryRow(`SELECT f.id FROM favourites f JOIN products p ON p.id = f.product_id
		WHERE f.user_id = ? AND p.id = ? AND p.catalog = ?`, userID, ref.ID, string(ref.Catalog)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return id, err
}

// ToggleFavourite flips the favourite state inside one transaction and
// reports the new state plus the favourite id when one was created.
func (db *DB) ToggleFavourite(ctx context.Context, userID string, ref model.ProductRef) (bool, string, error) {
	var added bool
	var favouriteID string

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM products WHERE id = ? AND catalog = ?)`, ref.ID, string(ref.Catalog)).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}

		var current string
		err := tx.QueryRow(`SELECT id FROM favourites WHERE user_id = ? AND product_id = ?`, userID, ref.ID).Scan(&current)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			favouriteID = uuid.NewString()
			added = true
			_, err = tx.Exec(`INSERT INTO favourites (id, user_id, product_id, created_at) VALUES (?, ?, ?, ?)`,
				favouriteID, userID, ref.ID, time.Now().UnixMilli())
			return err
		case err != nil:
			return err
		default:
			_, err = tx.Exec(`DELETE FROM favourites WHERE id = ?`, current)
			return err
		}
	})
	if err != nil {
		return false, "", err
	}
	return added, favouriteID, nil
}
