package entities

import "strings"

// DonorType classifies where a donation comes from.
type DonorType string

const (
	DonorTypeBusiness     DonorType = "business"
	DonorTypeIndividual   DonorType = "individual"
	DonorTypeOrganization DonorType = "organization"
)

// DonorTypes lists the accepted donor_type values.
var DonorTypes = []string{
	string(DonorTypeBusiness),
	string(DonorTypeIndividual),
	string(DonorTypeOrganization),
}

// Donor is a donor profile record. Donors are never hard-deleted;
// deactivation flips Active so historical donations keep their reference.
type Donor struct {
	Keys

	DonorID      string    `dynamodbav:"donor_id" json:"donor_id"`
	Name         string    `dynamodbav:"name" json:"name"`
	DonorType    DonorType `dynamodbav:"donor_type" json:"donor_type"`
	ContactEmail string    `dynamodbav:"contact_email,omitempty" json:"contact_email,omitempty"`
	ContactPhone string    `dynamodbav:"contact_phone,omitempty" json:"contact_phone,omitempty"`
	Address      string    `dynamodbav:"address,omitempty" json:"address,omitempty"`
	Notes        string    `dynamodbav:"notes,omitempty" json:"notes,omitempty"`
	Active       bool      `dynamodbav:"active" json:"active"`
	CreatedAt    string    `dynamodbav:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt    string    `dynamodbav:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// DonorKey returns the primary key of a donor profile.
func DonorKey(donorID string) (pk, sk string) {
	return DonorPrefix + donorID, SKProfile
}

// SetKeys populates the key block. GSI1 orders donors by name for the
// list endpoint.
func (d *Donor) SetKeys() {
	d.PK, d.SK = DonorKey(d.DonorID)
	d.GSI1PK = CollectionDonors
	d.GSI1SK = strings.ToLower(d.Name)
}
