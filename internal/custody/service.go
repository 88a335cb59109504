package custody

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"krishichain/internal/ledger"
	"krishichain/internal/platform/metrics"
	"krishichain/internal/product"
	"krishichain/pkg/domain"
	dErrors "krishichain/pkg/domain-errors"
	"krishichain/pkg/platform/sentinel"
	"krishichain/pkg/qrtoken"
	"krishichain/pkg/requestcontext"
)

// ReportInvalidator drops cached provenance reports after a committed write.
// The verify path owns the cache; the engine only tells it when the chain
// moved.
type ReportInvalidator interface {
	Invalidate(ctx context.Context, qrCode string)
}

// EntryPublisher streams committed ledger entries to external consumers.
// Implementations must be fire-and-forget.
type EntryPublisher interface {
	Publish(ctx context.Context, entry ledger.Entry)
}

// Engine enforces the chain-of-custody state machine. Every accepted write
// commits the stage record, the product's stage and exactly one ledger entry
// as a single unit; callers never observe partial state.
type Engine struct {
	tx        Tx
	logger    *slog.Logger
	metrics   *metrics.Metrics
	cache     ReportInvalidator
	publisher EntryPublisher
	tracer    trace.Tracer
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithReportInvalidator attaches a report cache to invalidate on writes.
func WithReportInvalidator(inv ReportInvalidator) Option {
	return func(e *Engine) { e.cache = inv }
}

// WithEntryPublisher attaches a ledger entry publisher.
func WithEntryPublisher(p EntryPublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func NewEngine(tx Tx, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Engine {
	e := &Engine{
		tx:      tx,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("krishichain/custody"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterProduct creates a product at the farmer stage together with its
// farmer record and the first ledger entry, atomically. The caller must be an
// authenticated farmer.
// Errors: CodeUnauthorized without a caller, CodeForbidden for non-farmers,
// CodeValidation on missing attributes.
func (e *Engine) RegisterProduct(ctx context.Context, in RegisterProductInput) (*product.Product, error) {
	ctx, span := e.tracer.Start(ctx, "custody.RegisterProduct")
	defer span.End()

	actor, ok := requestcontext.CurrentParticipant(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if actor.Role != domain.RoleFarmer {
		return nil, dErrors.New(dErrors.CodeForbidden, "only farmers may register products")
	}
	if in.Name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "product name is required")
	}
	if err := in.Attributes.Validate(); err != nil {
		return nil, err
	}

	qrCode, err := qrtoken.New()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "generate qr token")
	}
	span.SetAttributes(attribute.String("product.qr_code", qrCode))

	now := requestcontext.Now(ctx)
	unit := in.Attributes.Unit
	if unit == "" {
		unit = "kg"
	}

	p := &product.Product{
		ID:           domain.NewProductID(),
		QRCode:       qrCode,
		Name:         in.Name,
		Category:     in.Category,
		CurrentStage: domain.StageFarmer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	record := &FarmerRecord{
		ProductID:        p.ID,
		FarmerID:         actor.ID,
		FarmerAttributes: in.Attributes,
		CreatedAt:        now,
	}
	record.Unit = unit

	var entry ledger.Entry
	err = e.tx.RunInTx(ctx, qrCode, func(ctx context.Context, stores Stores) error {
		if err := stores.Products.Create(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create product")
		}
		if err := stores.Records.CreateFarmerRecord(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "create farmer record")
		}
		entry = newEntry(p.ID, domain.StageFarmer, actor.ID, ledger.ActionProductRegistered, record.FarmerAttributes, now)
		if err := stores.Ledger.Append(ctx, &entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "append ledger entry")
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	e.afterCommit(ctx, p.QRCode, entry)
	e.metrics.ProductsRegistered.Inc()
	e.logger.InfoContext(ctx, "product registered",
		"qr_code", p.QRCode,
		"product_id", p.ID.String(),
		"farmer_id", actor.ID.String(),
	)
	return p, nil
}

// AdvanceStage moves a product one step along the custody order, writing the
// stage record, the stage change and one ledger entry atomically.
// Errors: CodeUnauthorized without a caller, CodeForbidden when the caller's
// role does not match the target stage, CodeNotFound for unknown tokens,
// CodeValidation for bad attributes, CodeInvalidTransition for out-of-order
// targets and already-recorded stages, CodeConflict when a concurrent
// advancer won the race.
func (e *Engine) AdvanceStage(ctx context.Context, qrCode string, target domain.Stage, attrs StageAttributes) (*product.Product, error) {
	ctx, span := e.tracer.Start(ctx, "custody.AdvanceStage",
		trace.WithAttributes(attribute.String("custody.target_stage", target.String())))
	defer span.End()

	actor, ok := requestcontext.CurrentParticipant(ctx)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !target.IsValid() || target == domain.StageFarmer {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid target stage")
	}
	if actor.Role != target.RequiredRole() {
		return nil, dErrors.Newf(dErrors.CodeForbidden, "role %s may not record the %s stage", actor.Role, target)
	}
	if attrs == nil || attrs.Stage() != target {
		return nil, dErrors.New(dErrors.CodeValidation, "attributes do not match target stage")
	}
	if err := attrs.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)

	var (
		p     *product.Product
		entry ledger.Entry
	)
	err := e.tx.RunInTx(ctx, qrCode, func(ctx context.Context, stores Stores) error {
		found, err := stores.Products.FindByQRCode(ctx, qrCode)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "unknown qr code")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "find product")
		}
		p = found

		if !p.CurrentStage.CanAdvanceTo(target) {
			return dErrors.Newf(dErrors.CodeInvalidTransition,
				"cannot advance from %s to %s", p.CurrentStage, target)
		}

		if err := e.createStageRecord(ctx, stores, p.ID, actor.ID, attrs, now); err != nil {
			if errors.Is(err, sentinel.ErrDuplicate) {
				// A record for this stage already exists. Re-recording a
				// completed stage is rejected rather than overwritten so the
				// ledger stays an exact account of what happened.
				return dErrors.Newf(dErrors.CodeInvalidTransition, "stage %s already recorded", target)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "create stage record")
		}

		if err := stores.Products.AdvanceStage(ctx, p.ID, p.CurrentStage, target, now); err != nil {
			if errors.Is(err, sentinel.ErrStaleStage) {
				return dErrors.New(dErrors.CodeConflict, "product stage changed concurrently")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "advance product stage")
		}

		entry = newEntry(p.ID, target, actor.ID, actionFor(target), attrs, now)
		if err := stores.Ledger.Append(ctx, &entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "append ledger entry")
		}

		p.CurrentStage = target
		p.UpdatedAt = now
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if dErrors.HasCode(err, dErrors.CodeInvalidTransition) {
			e.metrics.InvalidTransitions.Inc()
		}
		return nil, err
	}

	e.afterCommit(ctx, qrCode, entry)
	e.metrics.IncStageAdvance(target.String())
	e.logger.InfoContext(ctx, "stage advanced",
		"qr_code", qrCode,
		"stage", target.String(),
		"actor_id", actor.ID.String(),
	)
	return p, nil
}

func (e *Engine) createStageRecord(ctx context.Context, stores Stores, productID domain.ProductID, actorID domain.ParticipantID, attrs StageAttributes, now time.Time) error {
	switch a := attrs.(type) {
	case DistributorAttributes:
		return stores.Records.CreateDistributorRecord(ctx, &DistributorRecord{
			ProductID: productID, DistributorID: actorID, DistributorAttributes: a, CreatedAt: now,
		})
	case RetailerAttributes:
		return stores.Records.CreateRetailerRecord(ctx, &RetailerRecord{
			ProductID: productID, RetailerID: actorID, RetailerAttributes: a, CreatedAt: now,
		})
	case CustomerAttributes:
		return stores.Records.CreateCustomerRecord(ctx, &CustomerRecord{
			ProductID: productID, CustomerID: actorID, CustomerAttributes: a, CreatedAt: now,
		})
	default:
		return dErrors.New(dErrors.CodeValidation, "unsupported stage attributes")
	}
}

// afterCommit runs the best-effort side effects of a committed write. None of
// them can fail the operation.
func (e *Engine) afterCommit(ctx context.Context, qrCode string, entry ledger.Entry) {
	if e.cache != nil {
		e.cache.Invalidate(ctx, qrCode)
	}
	if e.publisher != nil {
		e.publisher.Publish(ctx, entry)
	}
}

func actionFor(stage domain.Stage) string {
	switch stage {
	case domain.StageDistributor:
		return ledger.ActionDistributorRecordAdded
	case domain.StageRetailer:
		return ledger.ActionRetailerRecordAdded
	default:
		return ledger.ActionCustomerVerified
	}
}

func newEntry(productID domain.ProductID, stage domain.Stage, actorID domain.ParticipantID, action string, attrs any, now time.Time) ledger.Entry {
	details, err := json.Marshal(attrs)
	if err != nil {
		// Attribute structs are plain data; marshaling cannot realistically
		// fail, but the entry must exist regardless.
		details = nil
	}
	return ledger.Entry{
		ID:        uuid.New(),
		ProductID: productID,
		Stage:     stage,
		ActorID:   actorID,
		Action:    action,
		Details:   details,
		Timestamp: now,
	}
}
