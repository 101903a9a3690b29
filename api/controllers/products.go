package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velesmarket/backend/api/responses"
	"github.com/velesmarket/backend/api/validators"
	productsvc "github.com/velesmarket/backend/internal/products"
	pkgerrors "github.com/velesmarket/backend/pkg/errors"
	"github.com/velesmarket/backend/pkg/logger"
	"github.com/velesmarket/backend/pkg/pagination"
)

// ProductCreate handles creation of a product price profile.
func ProductCreate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), payload.toCreateInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// ProductUpdate applies a partial mutation to a profile.
func ProductUpdate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := productIDFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), productID, payload.toUpdateInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

func ProductDelete(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := productIDFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func ProductGet(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := productIDFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := validators.SanitizeString(r.URL.Query().Get("cursor"), 256)

		page, err := svc.ListProducts(r.Context(), pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// ProductAutoPrice toggles automatic repricing for one profile.
func ProductAutoPrice(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := productIDFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload autoPriceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetAutoPrice(r.Context(), productID, *payload.Enabled); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"autoPriceEnabled": *payload.Enabled})
	}
}

type priceRangeRequest struct {
	MinQuantity int             `json:"minQuantity" validate:"required,min=1"`
	MaxQuantity *int            `json:"maxQuantity,omitempty" validate:"omitempty,min=1"`
	Price       decimal.Decimal `json:"price" validate:"required"`
}

type createProductRequest struct {
	Name             string              `json:"name" validate:"required"`
	SKU              string              `json:"sku" validate:"required"`
	NmID             *int64              `json:"nmId,omitempty" validate:"omitempty,min=1"`
	OzonProductID    *int64              `json:"ozonProductId,omitempty" validate:"omitempty,min=1"`
	ListPrice        decimal.Decimal     `json:"listPrice" validate:"required"`
	MinPrice         *decimal.Decimal    `json:"minPrice,omitempty"`
	RecommendedPrice *decimal.Decimal    `json:"recommendedPrice,omitempty"`
	MaxPrice         *decimal.Decimal    `json:"maxPrice,omitempty"`
	AutoPriceEnabled bool                `json:"autoPriceEnabled"`
	MaxChangePercent *decimal.Decimal    `json:"maxChangePercent,omitempty"`
	PriceRanges      []priceRangeRequest `json:"priceRanges,omitempty" validate:"omitempty,dive"`
}

type updateProductRequest struct {
	Name             *string              `json:"name,omitempty"`
	SKU              *string              `json:"sku,omitempty"`
	NmID             *int64               `json:"nmId,omitempty" validate:"omitempty,min=1"`
	OzonProductID    *int64               `json:"ozonProductId,omitempty" validate:"omitempty,min=1"`
	ListPrice        *decimal.Decimal     `json:"listPrice,omitempty"`
	MinPrice         *decimal.Decimal     `json:"minPrice,omitempty"`
	RecommendedPrice *decimal.Decimal     `json:"recommendedPrice,omitempty"`
	MaxPrice         *decimal.Decimal     `json:"maxPrice,omitempty"`
	AutoPriceEnabled *bool                `json:"autoPriceEnabled,omitempty"`
	MaxChangePercent *decimal.Decimal     `json:"maxChangePercent,omitempty"`
	PriceRanges      *[]priceRangeRequest `json:"priceRanges,omitempty" validate:"omitempty,dive"`
}

type autoPriceRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (p createProductRequest) toCreateInput() productsvc.CreateProductInput {
	return productsvc.CreateProductInput{
		Name:             p.Name,
		SKU:              p.SKU,
		NmID:             p.NmID,
		OzonProductID:    p.OzonProductID,
		ListPrice:        p.ListPrice,
		MinPrice:         p.MinPrice,
		RecommendedPrice: p.RecommendedPrice,
		MaxPrice:         p.MaxPrice,
		AutoPriceEnabled: p.AutoPriceEnabled,
		MaxChangePercent: p.MaxChangePercent,
		PriceRanges:      toRangeInputs(p.PriceRanges),
	}
}

func (p updateProductRequest) toUpdateInput() productsvc.UpdateProductInput {
	input := productsvc.UpdateProductInput{
		Name:             p.Name,
		SKU:              p.SKU,
		NmID:             p.NmID,
		OzonProductID:    p.OzonProductID,
		ListPrice:        p.ListPrice,
		MinPrice:         p.MinPrice,
		RecommendedPrice: p.RecommendedPrice,
		MaxPrice:         p.MaxPrice,
		AutoPriceEnabled: p.AutoPriceEnabled,
		MaxChangePercent: p.MaxChangePercent,
	}
	if p.PriceRanges != nil {
		ranges := toRangeInputs(*p.PriceRanges)
		input.PriceRanges = &ranges
	}
	return input
}

func toRangeInputs(ranges []priceRangeRequest) []productsvc.PriceRangeInput {
	inputs := make([]productsvc.PriceRangeInput, 0, len(ranges))
	for _, r := range ranges {
		inputs = append(inputs, productsvc.PriceRangeInput{
			MinQty:    r.MinQuantity,
			MaxQty:    r.MaxQuantity,
			UnitPrice: r.Price,
		})
	}
	return inputs
}

func productIDFromRoute(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "productId")
	productID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
	}
	return productID, nil
}
