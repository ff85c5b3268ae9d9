// Package handler contains the gin HTTP handlers for each service.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"grocerly/internal/middleware"
	"grocerly/internal/services"
	"grocerly/internal/transport/httpdto"
)

type CatalogHandler struct {
	service *services.CatalogService
}

func NewCatalogHandler(service *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// RegisterRoutes mounts the catalog routes on an authenticated group.
func (h *CatalogHandler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/categories", h.CreateCategory)
	r.GET("/categories", h.ListCategories)
	r.GET("/categories/:sku", h.GetCategory)
	r.PUT("/categories/:sku", h.UpdateCategory)
	r.DELETE("/categories/:sku", h.DeleteCategory)

	r.POST("/items", h.CreateItem)
	r.GET("/items", h.ListItems)
	r.GET("/items/:sku", h.GetItem)
	r.PUT("/items/:sku", h.UpdateItem)
	r.DELETE("/items/:sku", h.DeleteItem)

	r.POST("/seed", h.Seed)
}

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req httpdto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	category, err := h.service.CreateCategory(c.Request.Context(), middleware.RequestContext(c), req.Name)
	if err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(category))
}

func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context(), middleware.RequestContext(c))
	if err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"categories": categories}))
}

func (h *CatalogHandler) GetCategory(c *gin.Context) {
	sku, err := uuid.Parse(c.Param("sku"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid category sku", "INVALID_REQUEST"))
		return
	}
	category, err := h.service.GetCategory(c.Request.Context(), middleware.RequestContext(c), sku)
	if err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(category))
}

func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	sku, err := uuid.Parse(c.Param("sku"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid category sku", "INVALID_REQUEST"))
		return
	}
	var req httpdto.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	category, err := h.service.UpdateCategory(c.Request.Context(), middleware.RequestContext(c), sku, req.Name)
	if err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(category))
}

func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	sku, err := uuid.Parse(c.Param("sku"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid category sku", "INVALID_REQUEST"))
		return
	}
	if err := h.service.DeleteCategory(c.Request.Context(), middleware.RequestContext(c), sku); err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *CatalogHandler) CreateItem(c *gin.Context) {
	var req httpdto.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	categorySku, err := uuid.Parse(req.CategorySku)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid category sku", "INVALID_REQUEST"))
		return
	}
	item, err := h.service.CreateItem(c.Request.Context(), middleware.RequestContext(c), req.Name, categorySku)
	if err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(item))
}

func (h *CatalogHandler) ListItems(c *gin.Context) {
	items, err := h.service.ListItems(c.Request.Context(), middleware.RequestContext(c))
	if err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"items": items}))
}

func (h *CatalogHandler) GetItem(c *gin.Context) {
	sku, err := uuid.Parse(c.Param("sku"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid item sku", "INVALID_REQUEST"))
		return
	}
	item, err := h.service.GetItem(c.Request.Context(), middleware.RequestContext(c), sku)
	if err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(item))
}

func (h *CatalogHandler) UpdateItem(c *gin.Context) {
	sku, err := uuid.Parse(c.Param("sku"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid item sku", "INVALID_REQUEST"))
		return
	}
	var req httpdto.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	categorySku, err := uuid.Parse(req.CategorySku)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid category sku", "INVALID_REQUEST"))
		return
	}
	item, err := h.service.UpdateItem(c.Request.Context(), middleware.RequestContext(c), sku, req.Name, categorySku)
	if err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(item))
}

func (h *CatalogHandler) DeleteItem(c *gin.Context) {
	sku, err := uuid.Parse(c.Param("sku"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid item sku", "INVALID_REQUEST"))
		return
	}
	if err := h.service.DeleteItem(c.Request.Context(), middleware.RequestContext(c), sku); err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *CatalogHandler) Seed(c *gin.Context) {
	seeded, err := h.service.SeedDefaults(c.Request.Context(), middleware.RequestContext(c))
	if err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.SeedResponse{Seeded: seeded}))
}
