package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/velesmarket/backend/api/responses"
	"github.com/velesmarket/backend/api/validators"
	marketplacesvc "github.com/velesmarket/backend/internal/marketplace"
	"github.com/velesmarket/backend/pkg/enums"
	pkgerrors "github.com/velesmarket/backend/pkg/errors"
	"github.com/velesmarket/backend/pkg/logger"
)

// AccountCreate registers a marketplace account with its credentials.
func AccountCreate(svc marketplacesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		var payload createAccountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.CreateAccount(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, account)
	}
}

// AccountList returns accounts, optionally filtered by marketplace.
func AccountList(svc marketplacesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		var marketplace enums.MarketplaceType
		if raw := validators.SanitizeString(r.URL.Query().Get("marketplace"), 32); raw != "" {
			parsed, err := enums.ParseMarketplaceType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid marketplace filter"))
				return
			}
			marketplace = parsed
		}

		accounts, err := svc.ListAccounts(r.Context(), marketplace)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, accounts)
	}
}

func AccountGet(svc marketplacesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		marketplace, accountName, err := accountKeyFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.GetAccount(r.Context(), marketplace, accountName)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, account)
	}
}

// AccountUpdate applies a partial mutation to an account.
func AccountUpdate(svc marketplacesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		marketplace, accountName, err := accountKeyFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateAccountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.UpdateAccount(r.Context(), marketplace, accountName, marketplacesvc.UpdateAccountInput{
			ClientID:            payload.ClientID,
			IsActive:            payload.IsActive,
			SyncIntervalMinutes: payload.SyncIntervalMinutes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, account)
	}
}

func AccountDelete(svc marketplacesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		marketplace, accountName, err := accountKeyFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteAccount(r.Context(), marketplace, accountName); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// CredentialSet stores or replaces one capability token.
func CredentialSet(svc marketplacesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		marketplace, accountName, err := accountKeyFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		capability, err := capabilityFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setCredentialRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetCredential(r.Context(), marketplace, accountName, capability, payload.Token); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"capability": string(capability), "status": "stored"})
	}
}

func CredentialRemove(svc marketplacesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		marketplace, accountName, err := accountKeyFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		capability, err := capabilityFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveCredential(r.Context(), marketplace, accountName, capability); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"capability": string(capability), "status": "removed"})
	}
}

// AccountTestConnection verifies the stored credentials against the
// live marketplace API.
func AccountTestConnection(svc marketplacesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "marketplace service unavailable"))
			return
		}

		marketplace, accountName, err := accountKeyFromRoute(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.TestConnection(r.Context(), marketplace, accountName); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "connected"})
	}
}

type createAccountRequest struct {
	Marketplace         string            `json:"marketplace" validate:"required"`
	AccountName         string            `json:"accountName" validate:"required"`
	ClientID            string            `json:"clientId,omitempty"`
	IsActive            *bool             `json:"isActive,omitempty"`
	SyncIntervalMinutes int               `json:"syncIntervalMinutes,omitempty" validate:"omitempty,min=1"`
	Credentials         map[string]string `json:"credentials,omitempty"`
}

type updateAccountRequest struct {
	ClientID            *string `json:"clientId,omitempty"`
	IsActive            *bool   `json:"isActive,omitempty"`
	SyncIntervalMinutes *int    `json:"syncIntervalMinutes,omitempty" validate:"omitempty,min=1"`
}

type setCredentialRequest struct {
	Token string `json:"token" validate:"required"`
}

func (p createAccountRequest) toCreateInput() (marketplacesvc.CreateAccountInput, error) {
	marketplace, err := enums.ParseMarketplaceType(p.Marketplace)
	if err != nil {
		return marketplacesvc.CreateAccountInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid marketplace")
	}

	credentials := make(map[enums.Capability]string, len(p.Credentials))
	for rawCap, token := range p.Credentials {
		capability, err := enums.ParseCapability(rawCap)
		if err != nil {
			return marketplacesvc.CreateAccountInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid capability")
		}
		credentials[capability] = token
	}

	isActive := true
	if p.IsActive != nil {
		isActive = *p.IsActive
	}

	return marketplacesvc.CreateAccountInput{
		Marketplace:         marketplace,
		AccountName:         validators.SanitizeString(p.AccountName, 128),
		ClientID:            validators.SanitizeString(p.ClientID, 128),
		IsActive:            isActive,
		SyncIntervalMinutes: p.SyncIntervalMinutes,
		Credentials:         credentials,
	}, nil
}

func accountKeyFromRoute(r *http.Request) (enums.MarketplaceType, string, error) {
	marketplace, err := enums.ParseMarketplaceType(chi.URLParam(r, "marketplace"))
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid marketplace")
	}
	accountName := validators.SanitizeString(chi.URLParam(r, "accountName"), 128)
	if accountName == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "account name required")
	}
	return marketplace, accountName, nil
}

func capabilityFromRoute(r *http.Request) (enums.Capability, error) {
	capability, err := enums.ParseCapability(chi.URLParam(r, "capability"))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid capability")
	}
	return capability, nil
}
