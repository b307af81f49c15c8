package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kilnbazaar/pkg/models"
	"kilnbazaar/service"
)

func (h *handler) providerRequests(c *gin.Context) {
	providerID, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	snap, err := h.svc.Dashboard().FetchForProvider(c.Request.Context(), kindOf(c), userOf(c), providerID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *handler) respondInquiry(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req service.InquiryResponse
	if !h.bind(c, &req) {
		return
	}
	if err := h.svc.Request().RespondInquiry(c.Request.Context(), kindOf(c), userOf(c), id, req); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) respondQuotation(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req models.QuotationResponse
	if !h.bind(c, &req) {
		return
	}
	if err := h.svc.Request().RespondQuotation(c.Request.Context(), kindOf(c), userOf(c), id, req); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) confirmOrder(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req models.OrderConfirmation
	if !h.bind(c, &req) {
		return
	}
	if err := h.svc.Request().ConfirmOrder(c.Request.Context(), kindOf(c), userOf(c), id, req); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) markDelivered(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Request().MarkDelivered(c.Request.Context(), kindOf(c), userOf(c), id); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
