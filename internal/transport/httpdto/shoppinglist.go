package httpdto

import "grocerly/internal/domain/shoppinglist"

// CreateListRequest is used for POST /lists
type CreateListRequest struct {
	Name string `json:"name" binding:"required"`
}

// RenameListRequest is used for PUT /lists/:id
type RenameListRequest struct {
	Name string `json:"name" binding:"required"`
}

// AddListItemRequest is used for POST /lists/:id/items
type AddListItemRequest struct {
	ItemSku  string `json:"item_sku" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
}

// UpdateListItemRequest is used for PUT /lists/:id/items/:itemId
type UpdateListItemRequest struct {
	Quantity int  `json:"quantity" binding:"required"`
	Picked   bool `json:"picked"`
}

// ListDetailResponse is returned by GET /lists/:id
type ListDetailResponse struct {
	List  shoppinglist.ShoppingList `json:"list"`
	Items []shoppinglist.ListItem   `json:"items"`
}
