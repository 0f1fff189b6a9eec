package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/botpanel/internal/service"
)

// AccountHandler exposes the caller's own accounts.
//
// Ownership is enforced by AccountService, not here. The handler only turns
// the request into (Caller, id, body) and the result into JSON.
type AccountHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

func NewAccountHandler(accounts *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

// createAccountRequest is the body of POST /api/accounts.
type createAccountRequest struct {
	Token string `json:"token" validate:"required,max=512"`
}

// HandleList returns the caller's accounts.
//
// HTTP: GET /api/accounts
func (h *AccountHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	accounts, err := h.accounts.List(r.Context(), caller)
	if err != nil {
		h.logger.Error("listing accounts failed", slog.String("userID", caller.UserID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// HandleCreate links a new token to the caller.
//
// HTTP: POST /api/accounts
// REQUEST BODY: {"token": "..."}
func (h *AccountHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	var req createAccountRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	account, err := h.accounts.Create(r.Context(), caller, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// HandleGet returns one account.
//
// HTTP: GET /api/accounts/{id}
func (h *AccountHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	account, err := h.accounts.Get(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// HandleDelete removes an account. 204 also when it was already gone.
//
// HTTP: DELETE /api/accounts/{id}
func (h *AccountHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	if err := h.accounts.Delete(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStart starts the account's instance.
//
// HTTP: POST /api/accounts/{id}/start
func (h *AccountHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	account, err := h.accounts.Start(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// HandleStop stops the account's instance.
//
// HTTP: POST /api/accounts/{id}/stop
func (h *AccountHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	account, err := h.accounts.Stop(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// HandleValidate re-checks one account against Discord.
//
// HTTP: POST /api/accounts/{id}/validate
// RESPONSE: {"account": {...}, "valid": true}
func (h *AccountHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	res, err := h.accounts.Validate(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleValidateAll re-checks all of the caller's accounts.
//
// HTTP: POST /api/accounts/validate
// RESPONSE: {"message": "Validation complete"}
func (h *AccountHandler) HandleValidateAll(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	msg, err := h.accounts.ValidateAll(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}
