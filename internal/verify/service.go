package verify

import (
	"context"
	"errors"
	"log/slog"

	"krishichain/internal/custody"
	"krishichain/internal/identity"
	"krishichain/internal/ledger"
	"krishichain/internal/platform/metrics"
	"krishichain/internal/product"
	"krishichain/pkg/domain"
	dErrors "krishichain/pkg/domain-errors"
	"krishichain/pkg/platform/sentinel"
	"krishichain/pkg/requestcontext"
)

// ParticipantDirectory resolves participant ids to their registered details
// so reports can show names instead of ids.
type ParticipantDirectory interface {
	FindByID(ctx context.Context, id domain.ParticipantID) (*identity.Participant, error)
}

// Assembler composes provenance reports. Reads run under the same per-product
// boundary the engine writes under, so a report never mixes a stage record
// with a ledger that does not yet include it.
type Assembler struct {
	tx        custody.Tx
	directory ParticipantDirectory
	cache     *ReportCache
	queue     chan VerificationEvent
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewAssembler builds the read path. cache may be nil. queueSize bounds the
// verification event queue; sends beyond it are dropped, not blocked on.
func NewAssembler(tx custody.Tx, directory ParticipantDirectory, cache *ReportCache, queueSize int, logger *slog.Logger, m *metrics.Metrics) *Assembler {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Assembler{
		tx:        tx,
		directory: directory,
		cache:     cache,
		queue:     make(chan VerificationEvent, queueSize),
		logger:    logger,
		metrics:   m,
	}
}

// Events exposes the verification event queue for the background worker.
func (a *Assembler) Events() <-chan VerificationEvent { return a.queue }

// Verify returns the full provenance report for a QR token.
// Errors: CodeNotFound for unknown tokens. When the caller is an
// authenticated customer the lookup is additionally recorded, best-effort;
// that side effect can never fail or delay the read.
func (a *Assembler) Verify(ctx context.Context, qrCode string) (*ProvenanceReport, error) {
	if cached, ok := a.cache.Get(ctx, qrCode); ok {
		a.finishVerify(ctx, cached)
		return cached, nil
	}

	var snap snapshot
	err := a.tx.RunInTx(ctx, qrCode, func(ctx context.Context, stores custody.Stores) error {
		p, err := stores.Products.FindByQRCode(ctx, qrCode)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "unknown qr code")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "find product")
		}
		snap.product = p

		if snap.farmer, err = stores.Records.FarmerRecordByProduct(ctx, p.ID); ignorableNotFound(err) != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load farmer record")
		}
		if snap.distributor, err = stores.Records.DistributorRecordByProduct(ctx, p.ID); ignorableNotFound(err) != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load distributor record")
		}
		if snap.retailer, err = stores.Records.RetailerRecordByProduct(ctx, p.ID); ignorableNotFound(err) != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load retailer record")
		}
		if snap.customer, err = stores.Records.CustomerRecordByProduct(ctx, p.ID); ignorableNotFound(err) != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load customer record")
		}

		if snap.entries, err = stores.Ledger.ListByProduct(ctx, p.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load ledger")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report := a.assemble(ctx, snap)
	a.cache.Set(ctx, report)
	a.finishVerify(ctx, report)
	return report, nil
}

type snapshot struct {
	product     *product.Product
	farmer      *custody.FarmerRecord
	distributor *custody.DistributorRecord
	retailer    *custody.RetailerRecord
	customer    *custody.CustomerRecord
	entries     []ledger.Entry
}

// ignorableNotFound maps "stage not yet reached" to nil so only real store
// failures propagate.
func ignorableNotFound(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	return err
}

// assemble joins the snapshot with participant names. Name resolution happens
// outside the snapshot boundary: participants are immutable once registered.
func (a *Assembler) assemble(ctx context.Context, snap snapshot) *ProvenanceReport {
	report := &ProvenanceReport{
		ProductID:    snap.product.ID.String(),
		QRCode:       snap.product.QRCode,
		ProductName:  snap.product.Name,
		Category:     snap.product.Category,
		CurrentStage: snap.product.CurrentStage.String(),
	}

	if r := snap.farmer; r != nil {
		report.Farmer = &FarmerView{
			FarmerName:    a.nameOf(ctx, r.FarmerID),
			Quantity:      r.Quantity,
			Unit:          r.Unit,
			FarmerPrice:   r.FarmerPrice,
			FarmLocation:  r.FarmLocation,
			HarvestDate:   r.HarvestDate,
			FarmingMethod: r.FarmingMethod,
			RecordedAt:    r.CreatedAt,
		}
	}
	if r := snap.distributor; r != nil {
		report.Distributor = &DistributorView{
			DistributorUserName: a.nameOf(ctx, r.DistributorID),
			DistributorName:     r.DistributorName,
			StorageLocation:     r.StorageLocation,
			DistributorMargin:   r.DistributorMargin,
			TransportDate:       r.TransportDate,
			RecordedAt:          r.CreatedAt,
		}
	}
	if r := snap.retailer; r != nil {
		report.Retailer = &RetailerView{
			RetailerUserName: a.nameOf(ctx, r.RetailerID),
			ShopName:         r.ShopName,
			FinalPrice:       r.FinalPrice,
			RetailLocation:   r.RetailLocation,
			RecordedAt:       r.CreatedAt,
		}
	}
	if r := snap.customer; r != nil {
		report.Customer = &CustomerView{
			CustomerName:     a.nameOf(ctx, r.CustomerID),
			PurchaseLocation: r.PurchaseLocation,
			Note:             r.Note,
			RecordedAt:       r.CreatedAt,
		}
	}

	report.Tracking = make([]TrackingEvent, 0, len(snap.entries))
	for _, e := range snap.entries {
		report.Tracking = append(report.Tracking, TrackingEvent{
			Seq:       e.Seq,
			Stage:     e.Stage.String(),
			Action:    e.Action,
			ActorName: a.nameOf(ctx, e.ActorID),
			Details:   e.Details,
			Timestamp: e.Timestamp,
		})
	}
	return report
}

func (a *Assembler) nameOf(ctx context.Context, id domain.ParticipantID) string {
	p, err := a.directory.FindByID(ctx, id)
	if err != nil {
		a.logger.WarnContext(ctx, "resolve participant name", "error", err, "participant_id", id.String())
		return ""
	}
	return p.FullName
}

// finishVerify counts the read and, for authenticated customers, enqueues the
// verification event without blocking.
func (a *Assembler) finishVerify(ctx context.Context, report *ProvenanceReport) {
	a.metrics.Verifications.Inc()

	actor, ok := requestcontext.CurrentParticipant(ctx)
	if !ok || actor.Role != domain.RoleCustomer {
		return
	}
	productID, err := domain.ParseProductID(report.ProductID)
	if err != nil {
		return
	}
	event := VerificationEvent{
		ProductID:  productID,
		CustomerID: actor.ID,
		VerifiedAt: requestcontext.Now(ctx),
	}
	select {
	case a.queue <- event:
	default:
		a.metrics.VerificationEventsDropped.Inc()
		a.logger.WarnContext(ctx, "verification event dropped, queue full",
			"qr_code", report.QRCode)
	}
}
