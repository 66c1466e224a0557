package controllers

import (
	"errors"
	"net/http"

	"go_signals_project/models"
	"go_signals_project/services"

	"github.com/gin-gonic/gin"
)

// SignalController handles asset and schedule-entry submissions
type SignalController struct {
	store services.SignalStore
	hub   *services.EventHub
}

// NewSignalController creates a new signal controller
func NewSignalController(store services.SignalStore, hub *services.EventHub) *SignalController {
	return &SignalController{store: store, hub: hub}
}

type addAssetRequest struct {
	Ativo string `json:"ativo"`
}

type addEntryRequest struct {
	Horario string `json:"horario"`
	Ativo   string `json:"ativo"`
	Direcao string `json:"direcao"`
}

// GetAssets returns the configured asset identifiers
// GET /api/ativos
func (sc *SignalController) GetAssets(c *gin.Context) {
	assets, err := sc.store.ListAssets()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to read assets."})
		return
	}
	c.JSON(http.StatusOK, assets)
}

// AddAsset adds a new asset identifier
// POST /api/ativos
func (sc *SignalController) AddAsset(c *gin.Context) {
	var req addAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid request body."})
		return
	}

	assets, err := sc.store.AddAsset(req.Ativo)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateAsset), errors.Is(err, services.ErrInvalidAsset):
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Ativo inválido ou já existe."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to save asset."})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "ativos": assets})
}

// GetEntries returns the pending schedule entries
// GET /api/disparos
func (sc *SignalController) GetEntries(c *gin.Context) {
	entries, err := sc.store.ListPendingEntries()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to read entries."})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// AddEntry schedules a new signal entry
// POST /api/disparos
func (sc *SignalController) AddEntry(c *gin.Context) {
	var req addEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid request body."})
		return
	}

	entry := models.ScheduleEntry{
		Horario: req.Horario,
		Ativo:   req.Ativo,
		Direcao: models.Direction(req.Direcao),
	}
	if err := entry.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	entries, err := sc.store.AddEntry(entry)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateEntry):
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Disparo já agendado."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Failed to save entry."})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "disparos": entries})
}

// LiveFeed upgrades the connection into the signal event stream
// GET /ws/signals
func (sc *SignalController) LiveFeed(c *gin.Context) {
	sc.hub.HandleWebSocket(c.Writer, c.Request)
}
