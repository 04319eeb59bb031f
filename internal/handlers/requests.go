package handlers

import "katalog/internal/services"

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6,maxbytes=72"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// ForgotPasswordRequest is the body of POST /forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

// ResetPasswordRequest is the body of POST /reset/:token.
type ResetPasswordRequest struct {
	Password string `json:"password" form:"password" validate:"required,min=6,maxbytes=72"`
}

// ProductRequest is the non-file part of the add and update forms.
type ProductRequest struct {
	Name        string  `json:"name" form:"name" validate:"required,max=100"`
	Description string  `json:"description" form:"description" validate:"max=1000"`
	Price       float64 `json:"price" form:"price" validate:"gte=0"`
	Unit        string  `json:"unit" form:"unit" validate:"required,max=32"`
	Stock       int     `json:"stock" form:"stock" validate:"gte=0"`
}

func (r ProductRequest) input() services.ProductInput {
	return services.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Unit:        r.Unit,
		Stock:       r.Stock,
	}
}
