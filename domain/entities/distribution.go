package entities

// DistributionStatus tracks a distribution through its lifecycle.
type DistributionStatus string

const (
	DistributionStatusScheduled  DistributionStatus = "scheduled"
	DistributionStatusInProgress DistributionStatus = "in_progress"
	DistributionStatusCompleted  DistributionStatus = "completed"
	DistributionStatusCancelled  DistributionStatus = "cancelled"
)

// DistributionStatuses lists the accepted distribution status values.
var DistributionStatuses = []string{
	string(DistributionStatusScheduled),
	string(DistributionStatusInProgress),
	string(DistributionStatusCompleted),
	string(DistributionStatusCancelled),
}

// DistributedItem is one line of a distribution, either as scheduled or
// as actually handed out.
type DistributedItem struct {
	Name     string  `dynamodbav:"name" json:"name"`
	Category string  `dynamodbav:"category" json:"category"`
	Quantity float64 `dynamodbav:"quantity" json:"quantity"`
	Unit     string  `dynamodbav:"unit" json:"unit"`
}

// Distribution is the metadata record of a distribution. A mirror record
// in the same partition carries the by-recipient index keys so recipient
// history queries never touch metadata attributes.
type Distribution struct {
	Keys

	DistributionID   string             `dynamodbav:"distribution_id" json:"distribution_id"`
	RecipientID      string             `dynamodbav:"recipient_id" json:"recipient_id"`
	RecipientName    string             `dynamodbav:"recipient_name,omitempty" json:"recipient_name,omitempty"`
	DistributionDate string             `dynamodbav:"distribution_date" json:"distribution_date"`
	Status           DistributionStatus `dynamodbav:"status" json:"status"`
	ScheduledItems   []DistributedItem  `dynamodbav:"scheduled_items,omitempty" json:"scheduled_items,omitempty"`
	ActualItems      []DistributedItem  `dynamodbav:"actual_items,omitempty" json:"actual_items,omitempty"`
	Notes            string             `dynamodbav:"notes,omitempty" json:"notes,omitempty"`
	CompletedAt      string             `dynamodbav:"completed_at,omitempty" json:"completed_at,omitempty"`
	CompletedBy      string             `dynamodbav:"completed_by,omitempty" json:"completed_by,omitempty"`
	CreatedAt        string             `dynamodbav:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt        string             `dynamodbav:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// DistributionMirror is the recipient-facing projection of a
// distribution. It holds only what recipient history listings render.
type DistributionMirror struct {
	Keys

	DistributionID   string             `dynamodbav:"distribution_id" json:"distribution_id"`
	RecipientID      string             `dynamodbav:"recipient_id" json:"recipient_id"`
	DistributionDate string             `dynamodbav:"distribution_date" json:"distribution_date"`
	Status           DistributionStatus `dynamodbav:"status" json:"status"`
	ItemCount        int                `dynamodbav:"item_count" json:"item_count"`
	CreatedAt        string             `dynamodbav:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt        string             `dynamodbav:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// DistributionKey returns the primary key of a distribution metadata record.
func DistributionKey(distributionID string) (pk, sk string) {
	return DistributionPrefix + distributionID, SKMetadata
}

// DistributionMirrorKey returns the primary key of the recipient mirror.
func DistributionMirrorKey(distributionID, recipientID string) (pk, sk string) {
	return DistributionPrefix + distributionID, RecipientPrefix + recipientID
}

// SetKeys populates the key block. GSI2 serves the by-date collection.
func (d *Distribution) SetKeys() {
	d.PK, d.SK = DistributionKey(d.DistributionID)
	d.GSI2PK = CollectionDistributions
	d.GSI2SK = d.DistributionDate
}

// SetKeys populates the key block. GSI1 serves recipient history queries.
func (m *DistributionMirror) SetKeys() {
	m.PK, m.SK = DistributionMirrorKey(m.DistributionID, m.RecipientID)
	m.GSI1PK = RecipientPrefix + m.RecipientID
	m.GSI1SK = m.DistributionDate
}
