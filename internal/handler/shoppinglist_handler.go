package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"grocerly/internal/middleware"
	"grocerly/internal/services"
	"grocerly/internal/transport/httpdto"
)

type ShoppingListHandler struct {
	service *services.ShoppingListService
}

func NewShoppingListHandler(service *services.ShoppingListService) *ShoppingListHandler {
	return &ShoppingListHandler{service: service}
}

func (h *ShoppingListHandler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/lists", h.CreateList)
	r.GET("/lists", h.ListLists)
	r.GET("/lists/:id", h.GetList)
	r.PUT("/lists/:id", h.RenameList)
	r.DELETE("/lists/:id", h.DeleteList)

	r.POST("/lists/:id/items", h.AddItem)
	r.PUT("/lists/:id/items/:itemId", h.UpdateItem)
	r.DELETE("/lists/:id/items/:itemId", h.RemoveItem)

	r.GET("/catalog", h.Catalog)
}

func (h *ShoppingListHandler) CreateList(c *gin.Context) {
	var req httpdto.CreateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	list, err := h.service.CreateList(c.Request.Context(), middleware.RequestContext(c), req.Name)
	if err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(list))
}

func (h *ShoppingListHandler) ListLists(c *gin.Context) {
	lists, err := h.service.ListLists(c.Request.Context(), middleware.RequestContext(c))
	if err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"lists": lists}))
}

func (h *ShoppingListHandler) GetList(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid list id", "INVALID_REQUEST"))
		return
	}
	list, items, err := h.service.GetList(c.Request.Context(), middleware.RequestContext(c), id)
	if err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListDetailResponse{List: list, Items: items}))
}

func (h *ShoppingListHandler) RenameList(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid list id", "INVALID_REQUEST"))
		return
	}
	var req httpdto.RenameListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	list, err := h.service.RenameList(c.Request.Context(), middleware.RequestContext(c), id, req.Name)
	if err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(list))
}

func (h *ShoppingListHandler) DeleteList(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid list id", "INVALID_REQUEST"))
		return
	}
	if err := h.service.DeleteList(c.Request.Context(), middleware.RequestContext(c), id); err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *ShoppingListHandler) AddItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid list id", "INVALID_REQUEST"))
		return
	}
	var req httpdto.AddListItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	itemSku, err := uuid.Parse(req.ItemSku)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid item sku", "INVALID_REQUEST"))
		return
	}
	line, err := h.service.AddItem(c.Request.Context(), middleware.RequestContext(c), id, itemSku, req.Quantity)
	if err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(line))
}

func (h *ShoppingListHandler) UpdateItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid list id", "INVALID_REQUEST"))
		return
	}
	lineID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid list item id", "INVALID_REQUEST"))
		return
	}
	var req httpdto.UpdateListItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	line, err := h.service.UpdateItem(c.Request.Context(), middleware.RequestContext(c), id, lineID, req.Quantity, req.Picked)
	if err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(line))
}

func (h *ShoppingListHandler) RemoveItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid list id", "INVALID_REQUEST"))
		return
	}
	lineID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid list item id", "INVALID_REQUEST"))
		return
	}
	if err := h.service.RemoveItem(c.Request.Context(), middleware.RequestContext(c), id, lineID); err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

// Catalog exposes the service's local catalog copy for list composition.
func (h *ShoppingListHandler) Catalog(c *gin.Context) {
	items, err := h.service.Catalog(c.Request.Context(), middleware.RequestContext(c))
	if err != nil {
		c.JSON(services.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"items": items}))
}
