package httpdto

// RegisterRequest is used for POST /auth/register. An empty family starts a
// new household; a family id joins an existing one.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Family      string `json:"family,omitempty"`
}

// LoginRequest is used for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}
