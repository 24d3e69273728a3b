package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ilyosdev/smeta-api/middleware"
	"github.com/ilyosdev/smeta-api/models"
	"github.com/ilyosdev/smeta-api/services"
)

// RequestHandler exposes the procurement request lifecycle over HTTP. All
// business rules live in the service; the handler binds input, passes the
// tenant context through and broadcasts lifecycle events to the org's
// websocket listeners.
type RequestHandler struct {
	Service *services.RequestService
	WS      *WSHandler
}

func NewRequestHandler(service *services.RequestService, ws *WSHandler) *RequestHandler {
	return &RequestHandler{Service: service, WS: ws}
}

func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var input models.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tctx := middleware.GetTenant(c)
	req, err := h.Service.Create(c.Request.Context(), input, tctx)
	if err != nil {
		respondError(c, err)
		return
	}

	h.WS.BroadcastUpdate(tctx.OrgID, "request_created", tctx.UserID)
	c.JSON(http.StatusCreated, req.View())
}

func (h *RequestHandler) ListRequests(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	filter := models.RequestFilter{
		Status:      c.Query("status"),
		SmetaItemID: c.Query("smeta_item_id"),
		ProjectID:   c.Query("project_id"),
	}
	if raw := c.Query("statuses"); raw != "" {
		filter.Statuses = strings.Split(raw, ",")
	}

	result, err := h.Service.List(c.Request.Context(), filter,
		models.Page{Page: page, Limit: limit}, middleware.GetTenant(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *RequestHandler) GetRequest(c *gin.Context) {
	req, err := h.Service.Get(c.Request.Context(), c.Param("id"), middleware.GetTenant(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req.View())
}

func (h *RequestHandler) UpdateRequest(c *gin.Context) {
	var input models.UpdateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.Service.Update(c.Request.Context(), c.Param("id"), input, middleware.GetTenant(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req.View())
}

func (h *RequestHandler) ApproveRequest(c *gin.Context) {
	tctx := middleware.GetTenant(c)
	req, err := h.Service.Approve(c.Request.Context(), c.Param("id"), tctx)
	if err != nil {
		respondError(c, err)
		return
	}

	h.WS.BroadcastUpdate(tctx.OrgID, "request_approved", tctx.UserID)
	c.JSON(http.StatusOK, req.View())
}

func (h *RequestHandler) RejectRequest(c *gin.Context) {
	var input models.RejectRequestInput
	if err := c.ShouldBindJSON(&input); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tctx := middleware.GetTenant(c)
	req, err := h.Service.Reject(c.Request.Context(), c.Param("id"), input.Reason, tctx)
	if err != nil {
		respondError(c, err)
		return
	}

	h.WS.BroadcastUpdate(tctx.OrgID, "request_rejected", tctx.UserID)
	c.JSON(http.StatusOK, req.View())
}

func (h *RequestHandler) FulfillRequest(c *gin.Context) {
	var input models.FulfillRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tctx := middleware.GetTenant(c)
	req, err := h.Service.Fulfill(c.Request.Context(), c.Param("id"), input, tctx)
	if err != nil {
		respondError(c, err)
		return
	}

	h.WS.BroadcastUpdate(tctx.OrgID, "request_fulfilled", tctx.UserID)
	c.JSON(http.StatusOK, req.View())
}

func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	tctx := middleware.GetTenant(c)
	if err := h.Service.Delete(c.Request.Context(), c.Param("id"), tctx); err != nil {
		respondError(c, err)
		return
	}

	h.WS.BroadcastUpdate(tctx.OrgID, "request_deleted", tctx.UserID)
	c.JSON(http.StatusOK, gin.H{"message": "Request deleted successfully"})
}

// ============================================================================
// FULFILLMENT SUB-FLOW
// ============================================================================

func (h *RequestHandler) ApproveAndAssign(c *gin.Context) {
	var input models.ApproveAndAssignInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tctx := middleware.GetTenant(c)
	req, err := h.Service.ApproveAndAssign(c.Request.Context(), c.Param("id"), input, tctx)
	if err != nil {
		respondError(c, err)
		return
	}

	h.WS.BroadcastUpdate(tctx.OrgID, "request_assigned", tctx.UserID)
	c.JSON(http.StatusOK, req.View())
}

func (h *RequestHandler) MarkCollected(c *gin.Context) {
	h.checkpoint(c, "request_collected", h.Service.MarkCollected)
}

func (h *RequestHandler) MarkDelivered(c *gin.Context) {
	h.checkpoint(c, "request_delivered", h.Service.MarkDelivered)
}

func (h *RequestHandler) ConfirmReceipt(c *gin.Context) {
	h.checkpoint(c, "request_received", h.Service.ConfirmReceipt)
}

func (h *RequestHandler) checkpoint(c *gin.Context, event string,
	op func(ctx context.Context, id string, input models.CheckpointInput, tctx models.TenantContext) (*models.PurchaseRequest, error)) {
	var input models.CheckpointInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tctx := middleware.GetTenant(c)
	req, err := op(c.Request.Context(), c.Param("id"), input, tctx)
	if err != nil {
		respondError(c, err)
		return
	}

	h.WS.BroadcastUpdate(tctx.OrgID, event, tctx.UserID)
	c.JSON(http.StatusOK, req.View())
}

func (h *RequestHandler) FinalizeRequest(c *gin.Context) {
	var input models.FinalizeRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tctx := middleware.GetTenant(c)
	req, err := h.Service.Finalize(c.Request.Context(), c.Param("id"), input, tctx)
	if err != nil {
		respondError(c, err)
		return
	}

	h.WS.BroadcastUpdate(tctx.OrgID, "request_finalized", tctx.UserID)
	c.JSON(http.StatusOK, req.View())
}
