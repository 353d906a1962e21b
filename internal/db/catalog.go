package db

import (
	"strings"

	"github.com/theLastOfCats/storefront/internal/model"
)

// ListFilter narrows a catalog listing. Zero values mean "no filter".
type ListFilter struct {
	Search     string
	CategoryID string
	Page       int
	Limit      int
}

func (f ListFilter) where(base string, args []any, searchColumn string) (string, []any) {
	clauses := []string{base}
	if f.Search != "" {
		clauses = append(clauses, "LOWER("+searchColumn+") LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Search)+"%")
	}
	if f.CategoryID != "" {
		clauses = append(clauses, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

const productColumns = `id, name, description, price, image, category_id, catalog, created_at`

func scanProducts(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]model.Product, error) {
	products := []model.Product{}
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Image, &p.CategoryID, &p.Catalog, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ListProducts returns one page of a catalog, newest first, and the filtered total.
func (db *DB) ListProducts(catalog model.Catalog, f ListFilter) ([]model.Product, model.Pagination, error) {
	where, args := f.where("catalog = ?", []any{string(catalog)}, "name")

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, model.Pagination{}, err
	}
	page := model.NewPagination(f.Page, f.Limit, total)

	rows, err := db.Query(`SELECT `+productColumns+` FROM products`+where+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	return products, page, err
}

func (db *DB) NewProducts(catalog model.Catalog, limit int) ([]model.Product, error) {
	rows, err := db.Query(`SELECT `+productColumns+` FROM products WHERE catalog = ? ORDER BY created_at DESC, id LIMIT ?`, string(catalog), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (db *DB) GetProduct(ref model.ProductRef) (*model.Product, error) {
	rows, err := db.Query(`SELECT `+productColumns+` FROM products WHERE id = ? AND catalog = ?`, ref.ID, string(ref.Catalog))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNotFound
	}
	return &products[0], nil
}

func (db *DB) InsertProduct(p model.Product) error {
	_, err := db.Exec(`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Price, p.Image, p.CategoryID, string(p.Catalog), p.CreatedAt)
	return err
}

func (db *DB) ListCategories(catalog string) ([]model.Category, error) {
	rows, err := db.Query(`SELECT id, name, catalog, image FROM categories WHERE catalog = ? ORDER BY name`, catalog)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Catalog, &c.Image); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (db *DB) InsertCategory(c model.Category) error {
	_, err := db.Exec(`INSERT INTO categories (id, name, catalog, image) VALUES (?, ?, ?, ?)`, c.ID, c.Name, c.Catalog, c.Image)
	return err
}

const postColumns = `id, kind, title, summary, content, image, category_id, created_at`

func (db *DB) queryPosts(query string, args ...any) ([]model.Post, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.Kind, &p.Title, &p.Summary, &p.Content, &p.Image, &p.CategoryID, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (db *DB) ListPosts(kind string, f ListFilter) ([]model.Post, model.Pagination, error) {
	where, args := f.where("kind = ?", []any{kind}, "title")

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM posts`+where, args...).Scan(&total); err != nil {
		return nil, model.Pagination{}, err
	}
	page := model.NewPagination(f.Page, f.Limit, total)

	posts, err := db.queryPosts(`SELECT `+postColumns+` FROM posts`+where+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		append(args, page.Limit, page.Offset())...)
	return posts, page, err
}

func (db *DB) NewPosts(kind string, limit int) ([]model.Post, error) {
	return db.queryPosts(`SELECT `+postColumns+` FROM posts WHERE kind = ? ORDER BY created_at DESC, id LIMIT ?`, kind, limit)
}

func (db *DB) InsertPost(p model.Post) error {
	_, err := db.Exec(`INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Kind, p.Title, p.Summary, p.Content, p.Image, p.CategoryID, p.CreatedAt)
	return err
}

func (db *DB) ListSlides(f ListFilter) ([]model.Slide, model.Pagination, error) {
	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM slides`).Scan(&total); err != nil {
		return nil, model.Pagination{}, err
	}
	page := model.NewPagination(f.Page, f.Limit, total)

	rows, err := db.Query(`SELECT id, title, image, link, sort_key, created_at FROM slides ORDER BY sort_key, id LIMIT ? OFFSET ?`,
		page.Limit, page.Offset())
	if err != nil {
		return nil, model.Pagination{}, err
	}
	defer rows.Close()

	slides := []model.Slide{}
	for rows.Next() {
		var s model.Slide
		if err := rows.Scan(&s.ID, &s.Title, &s.Image, &s.Link, &s.SortKey, &s.CreatedAt); err != nil {
			return nil, model.Pagination{}, err
		}
		slides = append(slides, s)
	}
	return slides, page, rows.Err()
}

func (db *DB) InsertSlide(s model.Slide) error {
	_, err := db.Exec(`INSERT INTO slides (id, title, image, link, sort_key, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Title, s.Image, s.Link, s.SortKey, s.CreatedAt)
	return err
}
