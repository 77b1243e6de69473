package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	domcatalog "github.com/whatseat/fulfillment/internal/domain/catalog"
	dominv "github.com/whatseat/fulfillment/internal/domain/inventory"
	domain "github.com/whatseat/fulfillment/internal/domain/order"
	domshipping "github.com/whatseat/fulfillment/internal/domain/shipping"
	"github.com/whatseat/fulfillment/internal/observability"
	"github.com/whatseat/fulfillment/internal/observability/logctx"
)

const defaultQuoteTimeout = 3 * time.Second

// LineRequest is a transient checkout input line. Never persisted.
type LineRequest struct {
	ProductID string
	Quantity  int
}

type DecomposeInput struct {
	CustomerID        string
	Lines             []LineRequest
	ShippingProfileID string
	PaymentMethodID   string
	ServiceID         int
}

// Decomposer groups validated line requests by vendor into draft orders.
// It reads the catalog and the fee resolver but has no write side effects:
// every failure aborts with the partial groups discarded in memory.
type Decomposer struct {
	catalog      domcatalog.Gateway
	profiles     ProfileDirectory
	fees         domshipping.FeeResolver
	quoteTimeout time.Duration
	log          observability.Logger
}

func NewDecomposer(
	gateway domcatalog.Gateway,
	profiles ProfileDirectory,
	fees domshipping.FeeResolver,
	quoteTimeout time.Duration,
	logger observability.Logger,
) *Decomposer {
	if quoteTimeout <= 0 {
		quoteTimeout = defaultQuoteTimeout
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Decomposer{
		catalog:      gateway,
		profiles:     profiles,
		fees:         fees,
		quoteTimeout: quoteTimeout,
		log:          logger.With(observability.F("component", "decomposer")),
	}
}

// Decompose returns one draft per distinct vendor, in vendor-first-seen
// order. The stock comparison here is an advisory fast-fail against the
// catalog snapshot; the inventory ledger performs the authoritative
// conditional decrement at commit time.
func (d *Decomposer) Decompose(ctx context.Context, in DecomposeInput) ([]*domain.Draft, error) {
	logger := logctx.FromOr(ctx, d.log)

	destCode, err := d.profiles.DestinationCode(ctx, in.ShippingProfileID)
	if err != nil {
		// Only a genuine miss maps to not-found; a directory outage is an
		// infrastructure failure, not a bad request.
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("resolve shipping profile %s: %w", in.ShippingProfileID, err)
	}

	var drafts []*domain.Draft
	index := make(map[string]int)

	for _, req := range in.Lines {
		if req.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}

		product, err := d.catalog.GetProduct(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, domcatalog.ErrProductNotFound) {
				return nil, &domcatalog.ProductNotFoundError{ProductID: req.ProductID}
			}
			return nil, err
		}
		if req.Quantity > product.InStock {
			return nil, &dominv.InsufficientStockError{
				ProductID: product.ProductID,
				Requested: req.Quantity,
				Available: product.InStock,
			}
		}

		i, seen := index[product.VendorID]
		if !seen {
			fee, err := d.quote(ctx, product.OriginCode, destCode, in.ServiceID)
			if err != nil || fee < 0 {
				logger.Warn("shipping_quote_failed",
					observability.F("vendor_id", product.VendorID),
					observability.F("error", err),
				)
				return nil, &domshipping.FeeUnavailableError{VendorID: product.VendorID, Cause: err}
			}
			drafts = append(drafts, &domain.Draft{VendorID: product.VendorID, ShippingFee: fee})
			i = len(drafts) - 1
			index[product.VendorID] = i
		}

		drafts[i].AppendLine(domain.Line{
			ProductID: product.ProductID,
			Quantity:  req.Quantity,
			UnitPrice: product.UnitPrice,
		})
	}

	return drafts, nil
}

// quote bounds the resolver call: a timeout aborts the checkout the same way
// a negative quote does, with no automatic retry.
func (d *Decomposer) quote(ctx context.Context, originCode, destCode string, serviceID int) (int64, error) {
	quoteCtx, cancel := context.WithTimeout(ctx, d.quoteTimeout)
	defer cancel()
	return d.fees.Quote(quoteCtx, originCode, destCode, serviceID)
}
