// Package entities defines the stored records of the donation-tracking
// table and their composite-key layout.
// The table is single-table: every record carries PK/SK plus up to three
// GSI key pairs. The same physical GSI attributes serve different query
// paths per record type:
//
//	GSI1  relation and name ordering (donations by donor, distributions
//	      by recipient, inventory by category, donors/recipients by name)
//	GSI2  date collections (all donations by date, all distributions by date)
//	GSI3  expiration windows (donation items, inventory items)
package entities

const (
	// Partition key prefixes.
	DonorPrefix        = "DONOR#"
	DonationPrefix     = "DONATION#"
	RecipientPrefix    = "RECIPIENT#"
	DistributionPrefix = "DISTRIBUTION#"
	InventoryPrefix    = "INVENTORY#"
	UserPrefix         = "USER#"
	AuditPrefix        = "AUDIT#"

	// Sort keys.
	SKProfile  = "PROFILE"
	SKMetadata = "METADATA"

	// GSI partition constants for whole-collection paths.
	CollectionDonors        = "DONORS"
	CollectionDonations     = "DONATIONS"
	CollectionRecipients    = "RECIPIENTS"
	CollectionDistributions = "DISTRIBUTIONS"
	CollectionUsers         = "USERS"
	CollectionItems         = "ITEMS"
	CollectionInventory     = "INVENTORY"
	CategoryPrefix          = "CATEGORY#"
)

// Key attribute names shared by every record.
const (
	AttrPK     = "PK"
	AttrSK     = "SK"
	AttrGSI1PK = "GSI1PK"
	AttrGSI1SK = "GSI1SK"
	AttrGSI2PK = "GSI2PK"
	AttrGSI2SK = "GSI2SK"
	AttrGSI3PK = "GSI3PK"
	AttrGSI3SK = "GSI3SK"
)

// KeyAttributes lists every key attribute, in the order PK, SK, GSIs.
// Handlers strip these from responses so clients never see table wiring.
var KeyAttributes = []string{
	AttrPK, AttrSK,
	AttrGSI1PK, AttrGSI1SK,
	AttrGSI2PK, AttrGSI2SK,
	AttrGSI3PK, AttrGSI3SK,
}

// Keys is the embedded key block every stored record carries. Key
// attributes never appear in JSON responses.
type Keys struct {
	PK     string `dynamodbav:"PK" json:"-"`
	SK     string `dynamodbav:"SK" json:"-"`
	GSI1PK string `dynamodbav:"GSI1PK,omitempty" json:"-"`
	GSI1SK string `dynamodbav:"GSI1SK,omitempty" json:"-"`
	GSI2PK string `dynamodbav:"GSI2PK,omitempty" json:"-"`
	GSI2SK string `dynamodbav:"GSI2SK,omitempty" json:"-"`
	GSI3PK string `dynamodbav:"GSI3PK,omitempty" json:"-"`
	GSI3SK string `dynamodbav:"GSI3SK,omitempty" json:"-"`
}
