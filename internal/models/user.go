package models

import "strings"

type Customer struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PaymentToken string `json:"stripe_customer_id,omitempty"`
}

// HasEmail reports whether the customer can be messaged.
func (c *Customer) HasEmail() bool {
	return c != nil && strings.TrimSpace(c.Email) != ""
}

// Provider is the service-delivering party (a chef) receiving payouts.
type Provider struct {
	ID              string `json:"id"`
	DisplayName     string `json:"full_name,omitempty"`
	PayoutAccountID string `json:"stripe_chef_id,omitempty"`
}

// PayoutAccount returns the trimmed payout account; empty means there is none.
func (p *Provider) PayoutAccount() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.PayoutAccountID)
}

// Name falls back to the id when no display name is stored.
func (p *Provider) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return "Chef ID: " + p.ID
}

type Admin struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
