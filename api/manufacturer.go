package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kilnbazaar/pkg/export"
	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids" binding:"required"`
}

type bulkDeleteResponse struct {
	Deleted  int64             `json:"deleted"`
	Requests *service.Snapshot `json:"requests"`
}

type paymentRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}

func (h *handler) manufacturerRequests(c *gin.Context) {
	snap, err := h.svc.Dashboard().FetchAll(c.Request.Context(), kindOf(c), userOf(c))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *handler) exportRequests(c *gin.Context) {
	kind := kindOf(c)
	snap, err := h.svc.Dashboard().FetchAll(c.Request.Context(), kind, userOf(c))
	if err != nil {
		h.abort(c, err)
		return
	}
	name := fmt.Sprintf("%s-requests-%s.xlsx", kind, time.Now().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if err := export.Write(c.Writer, kind, snap); err != nil {
		h.log.Error("xlsx export failed", logger.String("request_id", c.GetString(ctxRequestID)), logger.Error(err))
	}
}

func (h *handler) submitRequest(c *gin.Context) {
	ctx := c.Request.Context()
	kind, manufacturerID := kindOf(c), userOf(c)
	requests := h.svc.Request()

	var (
		created interface{}
		err     error
	)
	switch listOf(c) {
	case models.ListInquiries:
		var d service.InquiryDraft
		if !h.bind(c, &d) {
			return
		}
		created, err = requests.SubmitInquiry(ctx, kind, manufacturerID, d)
	case models.ListQuotations:
		var d service.PurchaseDraft
		if !h.bind(c, &d) {
			return
		}
		created, err = requests.SubmitQuotation(ctx, kind, manufacturerID, d)
	case models.ListOrders:
		var d service.PurchaseDraft
		if !h.bind(c, &d) {
			return
		}
		created, err = requests.SubmitOrder(ctx, kind, manufacturerID, d)
	case models.ListRatings:
		var d service.RatingDraft
		if !h.bind(c, &d) {
			return
		}
		// ratings are resolved against the manufacturer's current orders
		snap, ferr := h.svc.Dashboard().FetchAll(ctx, kind, manufacturerID)
		if ferr != nil {
			h.abort(c, ferr)
			return
		}
		created, err = requests.SubmitRating(ctx, kind, manufacturerID, d, snap.OrderModels())
	}
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *handler) deleteRequest(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Dashboard().Delete(c.Request.Context(), kindOf(c), listOf(c), userOf(c), id); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bulkDelete removes the given ids in one statement and answers with a fresh
// copy of all four lists.
func (h *handler) bulkDelete(c *gin.Context) {
	var req bulkDeleteRequest
	if !h.bind(c, &req) {
		return
	}
	ctx := c.Request.Context()
	kind, manufacturerID := kindOf(c), userOf(c)

	deleted, err := h.svc.Dashboard().DeleteMany(ctx, kind, listOf(c), manufacturerID, req.IDs)
	if err != nil {
		h.abort(c, err)
		return
	}
	if deleted == 0 {
		h.abort(c, service.ErrDeleteFailed)
		return
	}
	snap, err := h.svc.Dashboard().FetchAll(ctx, kind, manufacturerID)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, bulkDeleteResponse{Deleted: deleted, Requests: snap})
}

func (h *handler) setPaymentStatus(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.svc.Request().SetPaymentStatus(c.Request.Context(), kindOf(c), userOf(c), id, req.PaymentStatus); err != nil {
		h.abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
