package handlers

import (
	"net/http"

	"github.com/Dosada05/esports-arena/services"
)

type HallOfFameHandler struct {
	hallOfFameService services.HallOfFameService
}

func NewHallOfFameHandler(s services.HallOfFameService) *HallOfFameHandler {
	return &HallOfFameHandler{hallOfFameService: s}
}

func (h *HallOfFameHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.hallOfFameService.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"records": records})
}
