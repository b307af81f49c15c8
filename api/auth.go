package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kilnbazaar/pkg/models"
)

type otpRequest struct {
	Phone string `json:"phone" binding:"required"`
}

type verifyRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Code     string `json:"code" binding:"required"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type tokenResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *handler) requestOTP(c *gin.Context) {
	var req otpRequest
	if !h.bind(c, &req) {
		return
	}
	if err := h.svc.Auth().RequestOTP(c.Request.Context(), req.Phone); err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

func (h *handler) verifyOTP(c *gin.Context) {
	var req verifyRequest
	if !h.bind(c, &req) {
		return
	}
	user, token, err := h.svc.Auth().VerifyOTP(c.Request.Context(), req.Phone, req.Code, req.FullName, req.Role)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{Token: token, User: user})
}

func (h *handler) me(c *gin.Context) {
	user, err := h.svc.Auth().Me(c.Request.Context(), userOf(c))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
