package http

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/export"
	"github.com/robertarktes/event-registrations/internal/registration"
)

func (h *Handlers) AdminRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.registrations.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

type verifyPaymentRequest struct {
	TicketID string `json:"ticketId" validate:"required"`
	Action   string `json:"action" validate:"required,oneof=approve reject"`
}

func (h *Handlers) AdminVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reg, err := h.registrations.SetStatus(r.Context(), req.TicketID, req.Action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "Payment approved"
	if req.Action == registration.ActionReject {
		msg = "Payment rejected"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      msg,
		"registration": reg,
	})
}

func (h *Handlers) AdminDeleteRegistration(w http.ResponseWriter, r *http.Request) {
	if err := h.registrations.DeleteOne(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Registration deleted"})
}

func (h *Handlers) AdminDeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.registrations.DeleteAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "All registrations deleted", "deleted": n})
}

func (h *Handlers) AdminExport(w http.ResponseWriter, r *http.Request) {
	regs, err := h.registrations.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, regs); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="registrations.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handlers) AdminAudit(w http.ResponseWriter, r *http.Request) {
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, r, domain.Validationf("limit must be a number"))
			return
		}
		limit = n
	}
	entries, err := h.registrations.AuditLog(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
