package httpdto

// CreateCategoryRequest is used for POST /categories
type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateCategoryRequest is used for PUT /categories/:sku
type UpdateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateItemRequest is used for POST /items
type CreateItemRequest struct {
	Name        string `json:"name" binding:"required"`
	CategorySku string `json:"category_sku" binding:"required"`
}

// UpdateItemRequest is used for PUT /items/:sku
type UpdateItemRequest struct {
	Name        string `json:"name" binding:"required"`
	CategorySku string `json:"category_sku" binding:"required"`
}

// SeedResponse is returned by POST /seed
type SeedResponse struct {
	Seeded bool `json:"seeded"`
}
