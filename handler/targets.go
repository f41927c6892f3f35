package handler

import (
	"net/http"

	"github.com/counciljobs/ingestion-service/common/config"
	"github.com/counciljobs/ingestion-service/common/db"
	"github.com/counciljobs/ingestion-service/common/utils"
	"github.com/counciljobs/ingestion-service/repository"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

type TargetHandler struct {
	db     *db.DB
	router *chi.Mux
	cfg    config.Config
}

func NewTargetHandler(db *db.DB, cfg config.Config) *TargetHandler {
	router := chi.NewRouter()

	h := &TargetHandler{
		db:     db,
		router: router,
		cfg:    cfg,
	}

	router.Get("/", h.handleListTargets)
	return h
}

func (h *TargetHandler) Router() *chi.Mux {
	return h.router
}

// TargetView is a publish target without its credentials blob.
type TargetView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Endpoint string `json:"endpoint"`
	Active   bool   `json:"active"`
}

// handleListTargets godoc
// @Summary List active publish targets
// @Tags targets
// @Produce json
// @Success 200 {array} handler.TargetView
// @Router /v1/targets [get]
func (h *TargetHandler) handleListTargets(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Queries.GetActivePublishTargets(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list publish targets")
		utils.WriteError(w, http.StatusInternalServerError, "Failed to list publish targets")
		return
	}

	views := lo.Map(rows, func(row repository.PublishTarget, _ int) TargetView {
		return TargetView{
			ID:       row.ID,
			Name:     row.Name,
			Kind:     row.Kind,
			Endpoint: row.Endpoint,
			Active:   row.Active,
		}
	})

	utils.WriteJSON(w, http.StatusOK, views)
}
