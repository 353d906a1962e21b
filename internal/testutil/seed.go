package testutil

import (
	"strconv"
	"testing"
	"time"

	"github.com/theLastOfCats/storefront/internal/db"
	"github.com/theLastOfCats/storefront/internal/model"
)

// SeedProduct inserts a product; created is used as the creation timestamp
// so listing order is deterministic.
func SeedProduct(t *testing.T, database *db.DB, ref model.ProductRef, name string, created int64) model.Product {
	t.Helper()
	p := model.Product{ID: ref.ID, Name: name, Price: 10, Catalog: ref.Catalog, CreatedAt: created}
	if err := database.InsertProduct(p); err != nil {
		t.Fatalf("Failed to seed product %s: %v", ref, err)
	}
	return p
}

// SeedProducts inserts n products named "<prefix> i" with ids "<prefix>-i".
func SeedProducts(t *testing.T, database *db.DB, catalog model.Catalog, prefix string, n int) []model.Product {
	t.Helper()
	base := time.Now().UnixMilli()
	products := make([]model.Product, 0, n)
	for i := 1; i <= n; i++ {
		ref := model.ProductRef{Catalog: catalog, ID: prefix + "-" + strconv.Itoa(i)}
		products = append(products, SeedProduct(t, database, ref, prefix+" "+strconv.Itoa(i), base+int64(i)))
	}
	return products
}
