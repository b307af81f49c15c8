package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"kilnbazaar/pkg/models"
)

func (h *handler) listProviders(c *gin.Context) {
	filter := models.ProviderFilter{
		Location:     c.Query("location"),
		ItemType:     c.Query("item_type"),
		Search:       c.Query("q"),
		VerifiedOnly: cast.ToBool(c.Query("verified")),
		Limit:        cast.ToInt(c.Query("limit")),
		Offset:       cast.ToInt(c.Query("offset")),
	}
	providers, err := h.svc.Provider().List(c.Request.Context(), kindOf(c), filter)
	if err != nil {
		h.abort(c, err)
		return
	}
	if providers == nil {
		providers = []*models.Provider{}
	}
	c.JSON(http.StatusOK, providers)
}

func (h *handler) getProvider(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Provider().Get(c.Request.Context(), kindOf(c), id)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handler) registerProvider(c *gin.Context) {
	var p models.Provider
	if !h.bind(c, &p) {
		return
	}
	p.ID = 0
	created, err := h.svc.Provider().Register(c.Request.Context(), kindOf(c), userOf(c), &p)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *handler) updateProvider(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var p models.Provider
	if !h.bind(c, &p) {
		return
	}
	p.ID = id
	updated, err := h.svc.Provider().Update(c.Request.Context(), kindOf(c), userOf(c), &p)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *handler) myProviders(c *gin.Context) {
	providers, err := h.svc.Provider().Mine(c.Request.Context(), kindOf(c), userOf(c))
	if err != nil {
		h.abort(c, err)
		return
	}
	if providers == nil {
		providers = []*models.Provider{}
	}
	c.JSON(http.StatusOK, providers)
}
