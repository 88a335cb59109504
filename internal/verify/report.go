// Package verify is the read path of the provenance tracker: it joins a
// product, its stage records and its ledger into one ordered report, and
// best-effort logs which customers looked a product up.
package verify

import (
	"encoding/json"
	"time"
)

// ProvenanceReport is the composed, read-only snapshot returned to a
// verifier. Absent stage views mean "not yet reached", never an error.
// Identifiers are rendered as strings so the report marshals cleanly for
// both HTTP responses and the cache.
type ProvenanceReport struct {
	ProductID    string           `json:"product_id"`
	QRCode       string           `json:"qr_code"`
	ProductName  string           `json:"product_name"`
	Category     string           `json:"category"`
	CurrentStage string           `json:"current_stage"`
	Farmer       *FarmerView      `json:"farmer"`
	Distributor  *DistributorView `json:"distributor"`
	Retailer     *RetailerView    `json:"retailer"`
	Customer     *CustomerView    `json:"customer"`
	Tracking     []TrackingEvent  `json:"tracking"`
}

// FarmerView is the farmer record as shown to verifiers.
type FarmerView struct {
	FarmerName    string    `json:"farmer_name"`
	Quantity      float64   `json:"quantity"`
	Unit          string    `json:"unit"`
	FarmerPrice   float64   `json:"farmer_price"`
	FarmLocation  string    `json:"farm_location"`
	HarvestDate   string    `json:"harvest_date"`
	FarmingMethod string    `json:"farming_method,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// DistributorView is the distributor record as shown to verifiers.
type DistributorView struct {
	DistributorUserName string    `json:"distributor_user_name"`
	DistributorName     string    `json:"distributor_name"`
	StorageLocation     string    `json:"storage_location"`
	DistributorMargin   float64   `json:"distributor_margin"`
	TransportDate       string    `json:"transport_date"`
	RecordedAt          time.Time `json:"recorded_at"`
}

// RetailerView is the retailer record as shown to verifiers.
type RetailerView struct {
	RetailerUserName string    `json:"retailer_user_name"`
	ShopName         string    `json:"shop_name"`
	FinalPrice       float64   `json:"final_price"`
	RetailLocation   string    `json:"retail_location"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// CustomerView is the terminal confirmation as shown to verifiers.
type CustomerView struct {
	CustomerName     string    `json:"customer_name"`
	PurchaseLocation string    `json:"purchase_location,omitempty"`
	Note             string    `json:"note,omitempty"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// TrackingEvent is one ledger entry as shown to verifiers, in write order.
type TrackingEvent struct {
	Seq       int64           `json:"seq"`
	Stage     string          `json:"stage"`
	Action    string          `json:"action"`
	ActorName string          `json:"actor_name"`
	Details   json.RawMessage `json:"details,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
