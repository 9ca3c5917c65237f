package entities

import "strings"

// Recipient is a recipient household or partner organization profile.
type Recipient struct {
	Keys

	RecipientID         string   `dynamodbav:"recipient_id" json:"recipient_id"`
	Name                string   `dynamodbav:"name" json:"name"`
	ContactEmail        string   `dynamodbav:"contact_email,omitempty" json:"contact_email,omitempty"`
	ContactPhone        string   `dynamodbav:"contact_phone,omitempty" json:"contact_phone,omitempty"`
	Address             string   `dynamodbav:"address,omitempty" json:"address,omitempty"`
	HouseholdSize       int      `dynamodbav:"household_size" json:"household_size"`
	DietaryRestrictions []string `dynamodbav:"dietary_restrictions,omitempty" json:"dietary_restrictions,omitempty"`
	Needs               []string `dynamodbav:"needs,omitempty" json:"needs,omitempty"`
	Notes               string   `dynamodbav:"notes,omitempty" json:"notes,omitempty"`
	Active              bool     `dynamodbav:"active" json:"active"`
	CreatedAt           string   `dynamodbav:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt           string   `dynamodbav:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// RecipientKey returns the primary key of a recipient profile.
func RecipientKey(recipientID string) (pk, sk string) {
	return RecipientPrefix + recipientID, SKProfile
}

// SetKeys populates the key block. GSI1 orders recipients by name.
func (r *Recipient) SetKeys() {
	r.PK, r.SK = RecipientKey(r.RecipientID)
	r.GSI1PK = CollectionRecipients
	r.GSI1SK = strings.ToLower(r.Name)
}
