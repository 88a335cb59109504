// Package product is the registry of tracked items. The custody engine is the
// only writer of CurrentStage, and only ever moves it forward.
package product

import (
	"time"

	"krishichain/pkg/domain"
)

// Product is one tracked item. QRCode is the opaque scannable token printed
// on the label; it is externally unique and carries no meaning beyond lookup.
type Product struct {
	ID           domain.ProductID
	QRCode       string
	Name         string
	Category     string
	CurrentStage domain.Stage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
