// Package custody implements the chain-of-custody engine: the stage
// transition state machine, the per-stage records each participant attaches,
// and the atomic write path that keeps product stage, stage record and ledger
// entry consistent.
package custody

import (
	"time"

	"krishichain/pkg/domain"
	dErrors "krishichain/pkg/domain-errors"
)

// StageAttributes is the tagged union of per-stage payloads. Each variant
// knows which stage it belongs to and validates its own required fields, so
// untyped payloads never reach the engine.
type StageAttributes interface {
	Stage() domain.Stage
	Validate() error
}

// FarmerAttributes is attached at registration time.
type FarmerAttributes struct {
	Quantity      float64 `json:"quantity"`
	Unit          string  `json:"unit"`
	FarmerPrice   float64 `json:"farmer_price"`
	FarmLocation  string  `json:"farm_location"`
	HarvestDate   string  `json:"harvest_date"`
	FarmingMethod string  `json:"farming_method,omitempty"`
}

func (FarmerAttributes) Stage() domain.Stage { return domain.StageFarmer }

func (a FarmerAttributes) Validate() error {
	if a.Quantity <= 0 {
		return dErrors.New(dErrors.CodeValidation, "quantity must be positive")
	}
	if a.FarmerPrice <= 0 {
		return dErrors.New(dErrors.CodeValidation, "farmer_price must be positive")
	}
	if a.FarmLocation == "" || a.HarvestDate == "" {
		return dErrors.New(dErrors.CodeValidation, "farm_location and harvest_date are required")
	}
	return nil
}

// DistributorAttributes is attached when a distributor takes custody.
type DistributorAttributes struct {
	DistributorName   string  `json:"distributor_name"`
	StorageLocation   string  `json:"storage_location"`
	DistributorMargin float64 `json:"distributor_margin"`
	TransportDate     string  `json:"transport_date"`
}

func (DistributorAttributes) Stage() domain.Stage { return domain.StageDistributor }

func (a DistributorAttributes) Validate() error {
	if a.DistributorName == "" || a.StorageLocation == "" || a.TransportDate == "" {
		return dErrors.New(dErrors.CodeValidation, "distributor_name, storage_location and transport_date are required")
	}
	if a.DistributorMargin < 0 {
		return dErrors.New(dErrors.CodeValidation, "distributor_margin cannot be negative")
	}
	return nil
}

// RetailerAttributes is attached when a retailer takes custody.
type RetailerAttributes struct {
	ShopName       string  `json:"shop_name"`
	FinalPrice     float64 `json:"final_price"`
	RetailLocation string  `json:"retail_location"`
}

func (RetailerAttributes) Stage() domain.Stage { return domain.StageRetailer }

func (a RetailerAttributes) Validate() error {
	if a.ShopName == "" || a.RetailLocation == "" {
		return dErrors.New(dErrors.CodeValidation, "shop_name and retail_location are required")
	}
	if a.FinalPrice <= 0 {
		return dErrors.New(dErrors.CodeValidation, "final_price must be positive")
	}
	return nil
}

// CustomerAttributes closes the chain when a customer confirms the purchase.
// Both fields are optional notes.
type CustomerAttributes struct {
	PurchaseLocation string `json:"purchase_location,omitempty"`
	Note             string `json:"note,omitempty"`
}

func (CustomerAttributes) Stage() domain.Stage { return domain.StageCustomer }

func (CustomerAttributes) Validate() error { return nil }

// FarmerRecord is the stage record written at registration. At most one
// exists per product.
type FarmerRecord struct {
	ProductID domain.ProductID
	FarmerID  domain.ParticipantID
	FarmerAttributes
	CreatedAt time.Time
}

// DistributorRecord is the distributor's stage record. At most one exists per
// product.
type DistributorRecord struct {
	ProductID     domain.ProductID
	DistributorID domain.ParticipantID
	DistributorAttributes
	CreatedAt time.Time
}

// RetailerRecord is the retailer's stage record. At most one exists per
// product.
type RetailerRecord struct {
	ProductID  domain.ProductID
	RetailerID domain.ParticipantID
	RetailerAttributes
	CreatedAt time.Time
}

// CustomerRecord is the terminal confirmation. At most one exists per product.
type CustomerRecord struct {
	ProductID  domain.ProductID
	CustomerID domain.ParticipantID
	CustomerAttributes
	CreatedAt time.Time
}

// RegisterProductInput carries everything a farmer submits when registering a
// product.
type RegisterProductInput struct {
	Name       string
	Category   string
	Attributes FarmerAttributes
}
