package dto

import "time"

// CreateCompanyRequest payload for POST /companies.
type CreateCompanyRequest struct {
	Name      string `json:"name" validate:"required,max=160"`
	TradeName string `json:"trade_name" validate:"max=160"`
	TaxID     string `json:"tax_id" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"max=40"`
}

// UpdateCompanyRequest carries optional company changes.
type UpdateCompanyRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=160"`
	TradeName *string `json:"trade_name" validate:"omitempty,max=160"`
	TaxID     *string `json:"tax_id" validate:"omitempty,min=14"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone" validate:"omitempty,max=40"`
	Active    *bool   `json:"active"`
}

// CompanyResponse is a company record.
type CompanyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TradeName string    `json:"trade_name"`
	TaxID     string    `json:"tax_id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
