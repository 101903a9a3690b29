package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velesmarket/backend/pkg/db/models"
)

// PriceRangeDTO is the API view of one quantity bracket.
type PriceRangeDTO struct {
	MinQty    int             `json:"minQuantity"`
	MaxQty    *int            `json:"maxQuantity"`
	UnitPrice decimal.Decimal `json:"price"`
}

// ProductDTO is the API view of a product price profile.
type ProductDTO struct {
	ID                uuid.UUID        `json:"id"`
	Name              string           `json:"name"`
	SKU               string           `json:"sku"`
	NmID              *int64           `json:"nmId,omitempty"`
	OzonProductID     *int64           `json:"ozonProductId,omitempty"`
	ListPrice         decimal.Decimal  `json:"listPrice"`
	MinPrice          *decimal.Decimal `json:"minPrice,omitempty"`
	RecommendedPrice  *decimal.Decimal `json:"recommendedPrice,omitempty"`
	MaxPrice          *decimal.Decimal `json:"maxPrice,omitempty"`
	AutoPriceEnabled  bool             `json:"autoPriceEnabled"`
	MaxChangePercent  *decimal.Decimal `json:"maxChangePercent,omitempty"`
	LastMarketPrice   *decimal.Decimal `json:"lastMarketPrice,omitempty"`
	LastPriceUpdateAt *time.Time       `json:"lastPriceUpdateAt,omitempty"`
	PriceRanges       []PriceRangeDTO  `json:"priceRanges"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

func toDTO(product *models.Product) *ProductDTO {
	ranges := make([]PriceRangeDTO, 0, len(product.PriceRanges))
	for _, r := range product.PriceRanges {
		ranges = append(ranges, PriceRangeDTO{
			MinQty:    r.MinQty,
			MaxQty:    r.MaxQty,
			UnitPrice: r.UnitPrice,
		})
	}
	return &ProductDTO{
		ID:                product.ID,
		Name:              product.Name,
		SKU:               product.SKU,
		NmID:              product.NmID,
		OzonProductID:     product.OzonProductID,
		ListPrice:         product.ListPrice,
		MinPrice:          product.MinPrice,
		RecommendedPrice:  product.RecommendedPrice,
		MaxPrice:          product.MaxPrice,
		AutoPriceEnabled:  product.AutoPriceEnabled,
		MaxChangePercent:  product.MaxChangePercent,
		LastMarketPrice:   product.LastMarketPrice,
		LastPriceUpdateAt: product.LastPriceUpdateAt,
		PriceRanges:       ranges,
		CreatedAt:         product.CreatedAt,
		UpdatedAt:         product.UpdatedAt,
	}
}

// ProductPage is one cursor-bounded slice of the profile list.
type ProductPage struct {
	Items      []ProductDTO `json:"items"`
	NextCursor string       `json:"nextCursor,omitempty"`
}
