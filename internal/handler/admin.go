package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/botpanel/internal/service"
)

// AdminHandler serves the admin console. Routes are mounted behind
// auth.RequireAdmin.
type AdminHandler struct {
	admin  *service.AdminService
	logger *slog.Logger
}

func NewAdminHandler(admin *service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

// hostManualRequest is the body of POST /api/admin/host-manual. The id must
// look like a Discord snowflake, which also keeps it a safe instance name.
type hostManualRequest struct {
	DiscordID string `json:"discordId" validate:"required,numeric,min=17,max=20"`
}

// HandleListUsers → GET /api/admin/users
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	users, err := h.admin.ListUsers(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleListAccounts → GET /api/admin/accounts
func (h *AdminHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	accounts, err := h.admin.ListAccounts(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// HandleAuthorizeUser → POST /api/admin/users/{id}/auth
func (h *AdminHandler) HandleAuthorizeUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	user, err := h.admin.AuthorizeUser(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleDeleteUser → DELETE /api/admin/users/{id}
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	if err := h.admin.DeleteUser(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleValidateAll → POST /api/admin/accounts/validate
func (h *AdminHandler) HandleValidateAll(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	msg, err := h.admin.ValidateAllAccounts(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// HandleHostManual → POST /api/admin/host-manual {"discordId": "..."}
func (h *AdminHandler) HandleHostManual(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	var req hostManualRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	res, err := h.admin.HostManual(r.Context(), caller, req.DiscordID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleListActivity → GET /api/admin/logs?limit=N
func (h *AdminHandler) HandleListActivity(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "limit must be a number",
			})
			return
		}
		limit = n
	}

	entries, err := h.admin.ListActivity(r.Context(), caller, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
