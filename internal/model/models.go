package model

type User struct {
	ID           string `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
}

type Category struct {
	ID      string  `json:"id" db:"id"`
	Name    string  `json:"name" db:"name"`
	Catalog string  `json:"catalog" db:"catalog"`
	Image   *string `json:"image,omitempty" db:"image"`
}

type Product struct {
	ID          string  `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Description *string `json:"description,omitempty" db:"description"`
	Price       float64 `json:"price" db:"price"`
	Image       *string `json:"image,omitempty" db:"image"`
	CategoryID  *string `json:"categoryId,omitempty" db:"category_id"`
	Catalog     Catalog `json:"productType" db:"catalog"`
	CreatedAt   int64   `json:"createdAt" db:"created_at"`
}

func (p Product) ItemID() string { return p.ID }

// Post is an article-like record: plant-doctor answers (bsct) and library entries (thuvien).
type Post struct {
	ID         string  `json:"id" db:"id"`
	Kind       string  `json:"kind" db:"kind"`
	Title      string  `json:"title" db:"title"`
	Summary    *string `json:"summary,omitempty" db:"summary"`
	Content    string  `json:"content" db:"content"`
	Image      *string `json:"image,omitempty" db:"image"`
	CategoryID *string `json:"categoryId,omitempty" db:"category_id"`
	CreatedAt  int64   `json:"createdAt" db:"created_at"`
}

func (p Post) ItemID() string { return p.ID }

type Slide struct {
	ID        string  `json:"id" db:"id"`
	Title     string  `json:"title" db:"title"`
	Image     string  `json:"image" db:"image"`
	Link      *string `json:"link,omitempty" db:"link"`
	SortKey   int     `json:"sortKey" db:"sort_key"`
	CreatedAt int64   `json:"createdAt" db:"created_at"`
}

func (s Slide) ItemID() string { return s.ID }

type Notification struct {
	ID        string `json:"id" db:"id"`
	UserID    string `json:"userId" db:"user_id"`
	Title     string `json:"title" db:"title"`
	Body      string `json:"body" db:"body"`
	Read      bool   `json:"read" db:"is_read"`
	CreatedAt int64  `json:"createdAt" db:"created_at"`
}

func (n Notification) ItemID() string { return n.ID }

// FavouriteEntry is a favourited product as returned by the favourites list.
type FavouriteEntry struct {
	Product
	FavouriteID string `json:"favouriteId" db:"favourite_id"`
	FavouriteAt int64  `json:"favouriteAt" db:"favourite_at"`
}

func (e FavouriteEntry) Ref() ProductRef {
	return ProductRef{Catalog: e.Catalog, ID: e.ID}
}

type FavouriteList struct {
	Products   []FavouriteEntry `json:"products"`
	Pagination Pagination       `json:"pagination"`
}

type ToggleAction string

const (
	ActionAdded   ToggleAction = "added"
	ActionRemoved ToggleAction = "removed"
)

type ToggleResponse struct {
	Message     string       `json:"message"`
	IsFavourite bool         `json:"isFavourite"`
	Action      ToggleAction `json:"action"`
	FavouriteID string       `json:"favouriteId,omitempty"`
}

type CheckResponse struct {
	IsFavourite bool `json:"isFavourite"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

type Device struct {
	ID        string `json:"deviceId" db:"id"`
	UserID    string `json:"userId" db:"user_id"`
	PushToken string `json:"pushToken" db:"push_token"`
	Platform  string `json:"platform" db:"platform"`
	UpdatedAt int64  `json:"updatedAt" db:"updated_at"`
}
