package model

import (
	"errors"
	"fmt"
)

// Catalog discriminates the three product catalogs sharing the favourites feature.
type Catalog string

const (
	CatalogProduct Catalog = "Product"
	CatalogNNDT    Catalog = "ProductNongNghiepDoThi"
	CatalogCTGD    Catalog = "ProductConTrungGiaDung"
)

var ErrUnknownCatalog = errors.New("unknown product type")

func ParseCatalog(s string) (Catalog, error) {
	switch c := Catalog(s); c {
	case CatalogProduct, CatalogNNDT, CatalogCTGD:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCatalog, s)
}

// field is the toggle payload field carrying the id for this catalog.
func (c Catalog) field() string {
	switch c {
	case CatalogNNDT:
		return "productnndtId"
	case CatalogCTGD:
		return "productctgdId"
	default:
		return "productId"
	}
}

// ProductRef identifies a product within its catalog. Build it with
// ProductOf, NNDTOf or CTGDOf so the catalog is always one of the three.
type ProductRef struct {
	Catalog Catalog
	ID      string
}

func ProductOf(id string) ProductRef { return ProductRef{Catalog: CatalogProduct, ID: id} }
func NNDTOf(id string) ProductRef    { return ProductRef{Catalog: CatalogNNDT, ID: id} }
func CTGDOf(id string) ProductRef    { return ProductRef{Catalog: CatalogCTGD, ID: id} }

// RefOf builds a ProductRef from an untyped discriminator.
func RefOf(productType, id string) (ProductRef, error) {
	c, err := ParseCatalog(productType)
	if err != nil {
		return ProductRef{}, err
	}
	return ProductRef{Catalog: c, ID: id}, nil
}

// Key is the composite cache key, so equal ids from different catalogs never collide.
func (r ProductRef) Key() string {
	return string(r.Catalog) + ":" + r.ID
}

func (r ProductRef) String() string { return r.Key() }

// ToggleRequest is the POST /favourite/toggle body. Exactly one id field is set.
type ToggleRequest struct {
	ProductType   Catalog `json:"productType"`
	ProductID     string  `json:"productId,omitempty"`
	ProductNNDTID string  `json:"productnndtId,omitempty"`
	ProductCTGDID string  `json:"productctgdId,omitempty"`
}

func (r ProductRef) TogglePayload() ToggleRequest {
	req := ToggleRequest{ProductType: r.Catalog}
	switch r.Catalog.field() {
	case "productnndtId":
		req.ProductNNDTID = r.ID
	case "productctgdId":
		req.ProductCTGDID = r.ID
	default:
		req.ProductID = r.ID
	}
	return req
}

var ErrMismatchedProductField = errors.New("product id field does not match product type")

// Ref validates the request and returns the product it points at.
func (t ToggleRequest) Ref() (ProductRef, error) {
	c, err := ParseCatalog(string(t.ProductType))
	if err != nil {
		return ProductRef{}, err
	}

	set := map[string]string{}
	if t.ProductID != "" {
		set["productId"] = t.ProductID
	}
	if t.ProductNNDTID != "" {
		set["productnndtId"] = t.ProductNNDTID
	}
	if t.ProductCTGDID != "" {
		set["productctgdId"] = t.ProductCTGDID
	}

	id, ok := set[c.field()]
	if !ok || len(set) != 1 {
		return ProductRef{}, ErrMismatchedProductField
	}
	return ProductRef{Catalog: c, ID: id}, nil
}
