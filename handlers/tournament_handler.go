package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/Dosada05/esports-arena/services"
)

// stageDateLayout is the day-first date format clients send for stage deadlines.
const stageDateLayout = "02-01-2006"

type TournamentHandler struct {
	tournamentService services.TournamentService
	bracketService    services.BracketService
	stageService      services.StageService
}

func NewTournamentHandler(ts services.TournamentService, bs services.BracketService, ss services.StageService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: ts,
		bracketService:    bs,
		stageService:      ss,
	}
}

type endDateInput struct {
	Date string `json:"date"`
}

type matchWinnerInput struct {
	Winner *int `json:"winner"`
}

// parseStageDate accepts dd-mm-yyyy or RFC 3339.
func parseStageDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, services.MissingFieldError("date")
	}
	if d, err := time.Parse(stageDateLayout, raw); err == nil {
		return d, nil
	}
	if d, err := time.Parse(time.RFC3339, raw); err == nil {
		return d, nil
	}
	return time.Time{}, services.ValidationError("date", "date must be dd-mm-yyyy or RFC 3339")
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.tournamentService.GetAll(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"tournaments": tournaments})
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, jsonResponse{"tournament": tournament})
}

func (h *TournamentHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r, "name")
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetByName(r.Context(), name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{"tournament": tournament})
}

// byName runs op for the named tournament on behalf of the current user.
func (h *TournamentHandler) byName(w http.ResponseWriter, r *http.Request, op func(userID, name string) (interface{}, error), key string) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	name, err := nameParam(r, "name")
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	result, err := op(userID, name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, jsonResponse{key: result})
}

func (h *TournamentHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.byName(w, r, func(userID, name string) (interface{}, error) {
		return h.tournamentService.Start(r.Context(), userID, name)
	}, "tournament")
}

func (h *TournamentHandler) End(w http.ResponseWriter, r *http.Request) {
	h.byName(w, r, func(userID, name string) (interface{}, error) {
		return h.tournamentService.End(r.Context(), userID, name)
	}, "tournament")
}

func (h *TournamentHandler) SetNextStage(w http.ResponseWriter, r *http.Request) {
	h.byName(w, r, func(userID, name string) (interface{}, error) {
		return h.stageService.SetNextStage(r.Context(), userID, name)
	}, "result")
}

func (h *TournamentHandler) TryResolveMatches(w http.ResponseWriter, r *http.Request) {
	h.byName(w, r, func(userID, name string) (interface{}, error) {
		return h.bracketService.TryResolveMatches(r.Context(), userID, name)
	}, "result")
}

func (h *TournamentHandler) SetEndDate(w http.ResponseWriter, r *http.Request) {
	var input endDateInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	date, err := parseStageDate(input.Date)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.byName(w, r, func(userID, name string) (interface{}, error) {
		return h.stageService.SetEndDate(r.Context(), userID, name, date)
	}, "stage")
}

func (h *TournamentHandler) ResolveMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "id")
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	var input matchWinnerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Winner == nil {
		mapServiceErrorToHTTP(w, r, services.MissingFieldError("winner"))
		return
	}

	h.byName(w, r, func(userID, name string) (interface{}, error) {
		return h.bracketService.ResolveMatch(r.Context(), userID, name, matchID, *input.Winner)
	}, "match")
}
