package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ilyosdev/smeta-api/middleware"
	"github.com/ilyosdev/smeta-api/models"
	"github.com/ilyosdev/smeta-api/services"
)

// SmetaHandler manages the budget document chain: projects, smetas and the
// smeta items (budget lines) purchase requests draw from.
type SmetaHandler struct {
	Service *services.SmetaService
}

func NewSmetaHandler(service *services.SmetaService) *SmetaHandler {
	return &SmetaHandler{Service: service}
}

func (h *SmetaHandler) CreateProject(c *gin.Context) {
	var input struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.Service.CreateProject(c.Request.Context(), input.Name, middleware.GetTenant(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *SmetaHandler) ListProjects(c *gin.Context) {
	projects, err := h.Service.ListProjects(c.Request.Context(), middleware.GetTenant(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *SmetaHandler) CreateSmeta(c *gin.Context) {
	var input models.CreateSmetaRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	smeta, err := h.Service.CreateSmeta(c.Request.Context(), input, middleware.GetTenant(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, smeta)
}

func (h *SmetaHandler) CreateItem(c *gin.Context) {
	var input models.CreateSmetaItemRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.Service.CreateItem(c.Request.Context(), input, middleware.GetTenant(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *SmetaHandler) GetItem(c *gin.Context) {
	item, err := h.Service.GetItem(c.Request.Context(), c.Param("id"), middleware.GetTenant(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *SmetaHandler) ListItems(c *gin.Context) {
	items, err := h.Service.ListItems(c.Request.Context(), c.Param("id"), middleware.GetTenant(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *SmetaHandler) UpdateItem(c *gin.Context) {
	var input models.UpdateSmetaItemRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.Service.UpdateItem(c.Request.Context(), c.Param("id"), input, middleware.GetTenant(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *SmetaHandler) DeleteItem(c *gin.Context) {
	if err := h.Service.DeleteItem(c.Request.Context(), c.Param("id"), middleware.GetTenant(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully"})
}

// GetItemRemaining reports the remaining quantity and amount of one line.
func (h *SmetaHandler) GetItemRemaining(c *gin.Context) {
	remaining, err := h.Service.ItemRemaining(c.Request.Context(), c.Param("id"), middleware.GetTenant(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, remaining)
}
