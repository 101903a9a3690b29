package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/velesmarket/backend/api/responses"
	"github.com/velesmarket/backend/api/validators"
	reconcilesvc "github.com/velesmarket/backend/internal/reconcile"
	pkgerrors "github.com/velesmarket/backend/pkg/errors"
	"github.com/velesmarket/backend/pkg/logger"
)

// PriceCheckRun fetches live marketplace prices for one account and
// returns the fresh reconciliation report.
func PriceCheckRun(svc reconcilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		marketplace, accountName, err := accountKeyFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.CheckPrices(r.Context(), marketplace, accountName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}

// PriceCheckLatest serves the most recent cached report without
// touching the marketplace API.
func PriceCheckLatest(svc reconcilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		marketplace, accountName, err := accountKeyFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.LatestReport(r.Context(), marketplace, accountName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}

// PriceUpdateRun pushes a batch of new prices to the marketplace.
func PriceUpdateRun(svc reconcilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconcile service unavailable"))
			return
		}

		marketplace, accountName, err := accountKeyFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload priceUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updates := make([]reconcilesvc.PriceUpdate, 0, len(payload.Updates))
		for _, update := range payload.Updates {
			updates = append(updates, reconcilesvc.PriceUpdate{
				ExternalID: update.ExternalID,
				NewPrice:   update.NewPrice,
			})
		}

		report, err := svc.UpdatePrices(r.Context(), marketplace, accountName, updates)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}

type priceUpdateItemRequest struct {
	ExternalID int64           `json:"externalId" validate:"required,min=1"`
	NewPrice   decimal.Decimal `json:"newPrice" validate:"required"`
}

type priceUpdateRequest struct {
	Updates []priceUpdateItemRequest `json:"updates" validate:"required,min=1,dive"`
}
