package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/velesmarket/backend/api/responses"
	"github.com/velesmarket/backend/api/validators"
	"github.com/velesmarket/backend/internal/pricing"
	settingssvc "github.com/velesmarket/backend/internal/settings"
	"github.com/velesmarket/backend/pkg/db/models"
	pkgerrors "github.com/velesmarket/backend/pkg/errors"
	"github.com/velesmarket/backend/pkg/logger"
)

// OrderMinimumsGet returns the configured minimum order totals.
func OrderMinimumsGet(svc settingssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		minimums, err := svc.OrderMinimums(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderMinimumsResponse{Retail: minimums.Retail, Wholesale: minimums.Wholesale})
	}
}

// OrderMinimumsPut replaces both minimum order totals.
func OrderMinimumsPut(svc settingssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		var payload orderMinimumsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		minimums := pricing.OrderMinimums{Retail: payload.Retail, Wholesale: payload.Wholesale}
		if err := svc.SetOrderMinimums(r.Context(), minimums); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderMinimumsResponse{Retail: minimums.Retail, Wholesale: minimums.Wholesale})
	}
}

// GradationRulesGet returns the discount ladder ordered by position.
func GradationRulesGet(svc settingssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		rules, err := svc.GradationRules(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, toGradationResponses(rules))
	}
}

// GradationRulesPut replaces the whole discount ladder atomically.
func GradationRulesPut(svc settingssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		var payload gradationRulesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rules := make([]models.GradationRule, 0, len(payload.Rules))
		for i, rule := range payload.Rules {
			active := true
			if rule.Active != nil {
				active = *rule.Active
			}
			rules = append(rules, models.GradationRule{
				Amount:          rule.Amount,
				DiscountPercent: rule.DiscountPercent,
				Position:        i,
				Active:          active,
			})
		}

		if err := svc.ReplaceGradationRules(r.Context(), rules); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int{"count": len(rules)})
	}
}

type orderMinimumsRequest struct {
	Retail    decimal.Decimal `json:"retail" validate:"required"`
	Wholesale decimal.Decimal `json:"wholesale" validate:"required"`
}

type orderMinimumsResponse struct {
	Retail    decimal.Decimal `json:"retail"`
	Wholesale decimal.Decimal `json:"wholesale"`
}

type gradationRuleRequest struct {
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	DiscountPercent decimal.Decimal `json:"discountPercent" validate:"required"`
	Active          *bool           `json:"active,omitempty"`
}

type gradationRulesRequest struct {
	Rules []gradationRuleRequest `json:"rules" validate:"dive"`
}

type gradationRuleResponse struct {
	Amount          decimal.Decimal `json:"amount"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Position        int             `json:"position"`
	Active          bool            `json:"active"`
}

func toGradationResponses(rules []models.GradationRule) []gradationRuleResponse {
	out := make([]gradationRuleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, gradationRuleResponse{
			Amount:          rule.Amount,
			DiscountPercent: rule.DiscountPercent,
			Position:        rule.Position,
			Active:          rule.Active,
		})
	}
	return out
}
