package entities

import "fmt"

// DonationStatus tracks a donation through its lifecycle.
type DonationStatus string

const (
	DonationStatusPending     DonationStatus = "pending"
	DonationStatusReceived    DonationStatus = "received"
	DonationStatusDistributed DonationStatus = "distributed"
)

// DonationStatuses lists the accepted donation status values.
var DonationStatuses = []string{
	string(DonationStatusPending),
	string(DonationStatusReceived),
	string(DonationStatusDistributed),
}

// donationTransitions encodes the allowed status moves. A donation only
// moves forward: pending -> received -> distributed.
var donationTransitions = map[DonationStatus][]DonationStatus{
	DonationStatusPending:  {DonationStatusReceived},
	DonationStatusReceived: {DonationStatusDistributed},
}

// ValidDonationTransition reports whether from -> to is an allowed
// status change.
func ValidDonationTransition(from, to DonationStatus) bool {
	if from == to {
		return true
	}
	for _, next := range donationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Donation is the metadata record of a donation. Line items live as
// sibling records in the same partition.
type Donation struct {
	Keys

	DonationID   string         `dynamodbav:"donation_id" json:"donation_id"`
	DonorID      string         `dynamodbav:"donor_id" json:"donor_id"`
	DonorName    string         `dynamodbav:"donor_name,omitempty" json:"donor_name,omitempty"`
	DonationDate string         `dynamodbav:"donation_date" json:"donation_date"`
	Status       DonationStatus `dynamodbav:"status" json:"status"`
	TotalWeight  float64        `dynamodbav:"total_weight,omitempty" json:"total_weight,omitempty"`
	ItemCount    int            `dynamodbav:"item_count" json:"item_count"`
	Notes        string         `dynamodbav:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt    string         `dynamodbav:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt    string         `dynamodbav:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// DonationItem is one line item of a donation, stored under the
// donation's partition with a zero-padded index so items list in the
// order they were submitted.
type DonationItem struct {
	Keys

	DonationID     string  `dynamodbav:"donation_id" json:"donation_id"`
	ItemIndex      int     `dynamodbav:"item_index" json:"item_index"`
	Name           string  `dynamodbav:"name" json:"name"`
	Category       string  `dynamodbav:"category" json:"category"`
	Quantity       float64 `dynamodbav:"quantity" json:"quantity"`
	Unit           string  `dynamodbav:"unit" json:"unit"`
	Weight         float64 `dynamodbav:"weight,omitempty" json:"weight,omitempty"`
	ExpirationDate string  `dynamodbav:"expiration_date,omitempty" json:"expiration_date,omitempty"`
	CreatedAt      string  `dynamodbav:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt      string  `dynamodbav:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// DonationKey returns the primary key of a donation metadata record.
func DonationKey(donationID string) (pk, sk string) {
	return DonationPrefix + donationID, SKMetadata
}

// DonationItemSK returns the sort key of the item at index. Zero padding
// keeps lexical order equal to submission order up to 10000 items.
func DonationItemSK(index int) string {
	return fmt.Sprintf("ITEM#%04d", index)
}

// SetKeys populates the key block. GSI1 serves by-donor queries, GSI2
// the by-date collection.
func (d *Donation) SetKeys() {
	d.PK, d.SK = DonationKey(d.DonationID)
	d.GSI1PK = DonorPrefix + d.DonorID
	d.GSI1SK = d.DonationDate
	d.GSI2PK = CollectionDonations
	d.GSI2SK = d.DonationDate
}

// SetKeys populates the key block. GSI3 indexes the item by expiration
// date when it has one; items without an expiration never appear in
// expiring-soon queries.
func (i *DonationItem) SetKeys() {
	i.PK = DonationPrefix + i.DonationID
	i.SK = DonationItemSK(i.ItemIndex)
	if i.ExpirationDate != "" {
		i.GSI3PK = CollectionItems
		i.GSI3SK = i.ExpirationDate
	}
}
