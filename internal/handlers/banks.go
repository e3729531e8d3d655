package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetBank(w http.ResponseWriter, r *http.Request) {
	bank, err := h.Banks.Resolve(r.Context(), strings.ToLower(chi.URLParam(r, "slug")))
	if err != nil {
		respondErr(w, r, err, "Failed to get bank")
		return
	}
	respondJSON(w, http.StatusOK, "Bank", bank)
}
