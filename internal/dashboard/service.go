// Package dashboard lists the products the acting participant has touched,
// with that role's own record attributes alongside the registry entry.
package dashboard

import (
	"context"
	"errors"
	"sort"
	"time"

	"krishichain/internal/custody"
	"krishichain/pkg/domain"
	dErrors "krishichain/pkg/domain-errors"
	"krishichain/pkg/platform/sentinel"
	"krishichain/pkg/requestcontext"
)

// Dashboard is the role-scoped product listing returned to a participant.
type Dashboard struct {
	Role     string         `json:"role"`
	Products []ProductEntry `json:"products"`
}

// ProductEntry pairs a registry row with the caller's stage attributes.
// Exactly one of the attribute fields is set, matching the caller's role.
type ProductEntry struct {
	QRCode       string                         `json:"qr_code"`
	Name         string                         `json:"name"`
	Category     string                         `json:"category"`
	CurrentStage string                         `json:"current_stage"`
	RecordedAt   time.Time                      `json:"recorded_at"`
	Farmer       *custody.FarmerAttributes      `json:"farmer,omitempty"`
	Distributor  *custody.DistributorAttributes `json:"distributor,omitempty"`
	Retailer     *custody.RetailerAttributes    `json:"retailer,omitempty"`
}

// Service builds dashboards from the custody stores.
type Service struct {
	products custody.ProductStore
	records  custody.RecordStore
}

func NewService(products custody.ProductStore, records custody.RecordStore) *Service {
	return &Service{products: products, records: records}
}

// ForCaller returns the dashboard for the authenticated participant.
// Customers have nothing to list; they get an empty dashboard.
// Errors: CodeUnauthorized without a caller.
func (s *Service) ForCaller(ctx context.Context) (*Dashboard, error) {
	actor, ok := requestcontext.CurrentParticipant(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	d := &Dashboard{Role: actor.Role.String(), Products: []ProductEntry{}}
	var err error
	switch actor.Role {
	case domain.RoleFarmer:
		err = s.fillFarmer(ctx, d, actor.ID)
	case domain.RoleDistributor:
		err = s.fillDistributor(ctx, d, actor.ID)
	case domain.RoleRetailer:
		err = s.fillRetailer(ctx, d, actor.ID)
	}
	if err != nil {
		return nil, err
	}

	// Newest first, matching the source ordering for every role.
	sort.Slice(d.Products, func(i, j int) bool {
		return d.Products[i].RecordedAt.After(d.Products[j].RecordedAt)
	})
	return d, nil
}

func (s *Service) fillFarmer(ctx context.Context, d *Dashboard, id domain.ParticipantID) error {
	records, err := s.records.ListFarmerRecordsByFarmer(ctx, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "list farmer records")
	}
	for i := range records {
		r := records[i]
		entry, err := s.baseEntry(ctx, r.ProductID, r.CreatedAt)
		if err != nil {
			return err
		}
		if entry == nil {
			continue
		}
		attrs := r.FarmerAttributes
		entry.Farmer = &attrs
		d.Products = append(d.Products, *entry)
	}
	return nil
}

func (s *Service) fillDistributor(ctx context.Context, d *Dashboard, id domain.ParticipantID) error {
	records, err := s.records.ListDistributorRecordsByDistributor(ctx, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "list distributor records")
	}
	for i := range records {
		r := records[i]
		entry, err := s.baseEntry(ctx, r.ProductID, r.CreatedAt)
		if err != nil {
			return err
		}
		if entry == nil {
			continue
		}
		attrs := r.DistributorAttributes
		entry.Distributor = &attrs
		d.Products = append(d.Products, *entry)
	}
	return nil
}

func (s *Service) fillRetailer(ctx context.Context, d *Dashboard, id domain.ParticipantID) error {
	records, err := s.records.ListRetailerRecordsByRetailer(ctx, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "list retailer records")
	}
	for i := range records {
		r := records[i]
		entry, err := s.baseEntry(ctx, r.ProductID, r.CreatedAt)
		if err != nil {
			return err
		}
		if entry == nil {
			continue
		}
		attrs := r.RetailerAttributes
		entry.Retailer = &attrs
		d.Products = append(d.Products, *entry)
	}
	return nil
}

// baseEntry resolves the registry row behind a record. A missing product
// (should not happen given referential consistency) is skipped, not fatal.
func (s *Service) baseEntry(ctx context.Context, productID domain.ProductID, recordedAt time.Time) (*ProductEntry, error) {
	p, err := s.products.FindByID(ctx, productID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find product")
	}
	return &ProductEntry{
		QRCode:       p.QRCode,
		Name:         p.Name,
		Category:     p.Category,
		CurrentStage: p.CurrentStage.String(),
		RecordedAt:   recordedAt,
	}, nil
}
