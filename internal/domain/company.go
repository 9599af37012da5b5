package domain

import "time"

// Company is a customer organisation whose clients open calls.
type Company struct {
	ID        string
	Name      string
	TradeName string
	TaxID     string
	Email     string
	Phone     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegistryCompany is the subset of the public company registry record we use
// to prefill company data.
type RegistryCompany struct {
	TaxID     string `json:"tax_id"`
	Name      string `json:"name"`
	TradeName string `json:"trade_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Status    string `json:"status"`
	City      string `json:"city"`
	State     string `json:"state"`
}
