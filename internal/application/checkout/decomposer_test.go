package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	domcatalog "github.com/whatseat/fulfillment/internal/domain/catalog"
	dominv "github.com/whatseat/fulfillment/internal/domain/inventory"
	domshipping "github.com/whatseat/fulfillment/internal/domain/shipping"
)

type stubCatalog struct {
	products map[string]*domcatalog.Product
}

func (s *stubCatalog) GetProduct(_ context.Context, id string) (*domcatalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, domcatalog.ErrProductNotFound
	}
	clone := *p
	return &clone, nil
}

type stubProfiles struct {
	dest string
	err  error
}

func (s *stubProfiles) DestinationCode(context.Context, string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.dest == "" {
		return "", ErrProfileNotFound
	}
	return s.dest, nil
}

type stubFees struct {
	fee   int64
	err   error
	calls []string // origin codes, one per quoted vendor
	block time.Duration
}

func (s *stubFees) Quote(ctx context.Context, origin, _ string, _ int) (int64, error) {
	s.calls = append(s.calls, origin)
	if s.block > 0 {
		select {
		case <-time.After(s.block):
		case <-ctx.Done():
			return -1, ctx.Err()
		}
	}
	return s.fee, s.err
}

func testProducts() map[string]*domcatalog.Product {
	return map[string]*domcatalog.Product{
		"p-1": {ProductID: "p-1", VendorID: "v-1", UnitPrice: 10, InStock: 5, OriginCode: "100"},
		"p-2": {ProductID: "p-2", VendorID: "v-2", UnitPrice: 5, InStock: 3, OriginCode: "200"},
		"p-3": {ProductID: "p-3", VendorID: "v-1", UnitPrice: 7, InStock: 9, OriginCode: "100"},
	}
}

func testInput(lines []LineRequest) DecomposeInput {
	return DecomposeInput{
		CustomerID:        "c-1",
		Lines:             lines,
		ShippingProfileID: "sp-1",
		PaymentMethodID:   "pm-1",
		ServiceID:         2,
	}
}

func TestDecompose_GroupsByVendorFirstSeen(t *testing.T) {
	t.Parallel()

	catalog := &stubCatalog{products: testProducts()}
	fees := &stubFees{fee: 15}
	d := NewDecomposer(catalog, &stubProfiles{dest: "999"}, fees, 0, nil)

	drafts, err := d.Decompose(context.Background(), testInput([]LineRequest{
		{ProductID: "p-1", Quantity: 2},
		{ProductID: "p-2", Quantity: 1},
		{ProductID: "p-3", Quantity: 3},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(drafts))
	}
	if drafts[0].VendorID != "v-1" || drafts[1].VendorID != "v-2" {
		t.Fatalf("vendor order not first-seen: %s, %s", drafts[0].VendorID, drafts[1].VendorID)
	}
	if len(drafts[0].Lines) != 2 || len(drafts[1].Lines) != 1 {
		t.Fatalf("line grouping wrong: %d/%d", len(drafts[0].Lines), len(drafts[1].Lines))
	}
	if drafts[0].ShippingFee != 15 || drafts[1].ShippingFee != 15 {
		t.Fatalf("fees not applied: %d/%d", drafts[0].ShippingFee, drafts[1].ShippingFee)
	}
	// One quote per vendor, not per line.
	if len(fees.calls) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(fees.calls))
	}
}

func TestDecompose_SnapshotsUnitPrice(t *testing.T) {
	t.Parallel()

	products := testProducts()
	catalog := &stubCatalog{products: products}
	d := NewDecomposer(catalog, &stubProfiles{dest: "999"}, &stubFees{fee: 0}, 0, nil)

	drafts, err := d.Decompose(context.Background(), testInput([]LineRequest{
		{ProductID: "p-1", Quantity: 2},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A later catalog price change must not affect the drafted line.
	products["p-1"].UnitPrice = 99

	if got := drafts[0].Lines[0].UnitPrice; got != 10 {
		t.Fatalf("expected snapshotted price 10, got %d", got)
	}
}

func TestDecompose_ProductNotFound(t *testing.T) {
	t.Parallel()

	d := NewDecomposer(&stubCatalog{products: testProducts()}, &stubProfiles{dest: "999"}, &stubFees{fee: 1}, 0, nil)

	_, err := d.Decompose(context.Background(), testInput([]LineRequest{
		{ProductID: "p-1", Quantity: 1},
		{ProductID: "missing", Quantity: 1},
	}))
	if !errors.Is(err, domcatalog.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	var detail *domcatalog.ProductNotFoundError
	if !errors.As(err, &detail) || detail.ProductID != "missing" {
		t.Fatalf("expected detail for 'missing', got %+v", detail)
	}
}

func TestDecompose_InsufficientStockPreCheck(t *testing.T) {
	t.Parallel()

	fees := &stubFees{fee: 1}
	d := NewDecomposer(&stubCatalog{products: testProducts()}, &stubProfiles{dest: "999"}, fees, 0, nil)

	_, err := d.Decompose(context.Background(), testInput([]LineRequest{
		{ProductID: "p-2", Quantity: 4}, // stock is 3
	}))

	var detail *dominv.InsufficientStockError
	if !errors.As(err, &detail) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if detail.ProductID != "p-2" || detail.Requested != 4 || detail.Available != 3 {
		t.Fatalf("wrong detail: %+v", detail)
	}
	// Fail fast: the pre-check exists to avoid paying for a quote.
	if len(fees.calls) != 0 {
		t.Fatalf("expected no quote calls, got %d", len(fees.calls))
	}
}

func TestDecompose_FeeFailureAbortsWholeCheckout(t *testing.T) {
	t.Parallel()

	d := NewDecomposer(&stubCatalog{products: testProducts()}, &stubProfiles{dest: "999"},
		&stubFees{fee: -1, err: errors.New("upstream down")}, 0, nil)

	drafts, err := d.Decompose(context.Background(), testInput([]LineRequest{
		{ProductID: "p-1", Quantity: 1},
		{ProductID: "p-2", Quantity: 1},
	}))
	if !errors.Is(err, domshipping.ErrFeeUnavailable) {
		t.Fatalf("expected ErrFeeUnavailable, got %v", err)
	}
	if drafts != nil {
		t.Fatal("partial drafts must be discarded")
	}

	var detail *domshipping.FeeUnavailableError
	if !errors.As(err, &detail) || detail.VendorID != "v-1" {
		t.Fatalf("expected vendor v-1 in detail, got %+v", detail)
	}
}

func TestDecompose_NegativeFeeWithoutError(t *testing.T) {
	t.Parallel()

	d := NewDecomposer(&stubCatalog{products: testProducts()}, &stubProfiles{dest: "999"},
		&stubFees{fee: -7}, 0, nil)

	_, err := d.Decompose(context.Background(), testInput([]LineRequest{
		{ProductID: "p-1", Quantity: 1},
	}))
	if !errors.Is(err, domshipping.ErrFeeUnavailable) {
		t.Fatalf("negative fee must be a failed quote, got %v", err)
	}
}

func TestDecompose_QuoteTimeout(t *testing.T) {
	t.Parallel()

	d := NewDecomposer(&stubCatalog{products: testProducts()}, &stubProfiles{dest: "999"},
		&stubFees{fee: 10, block: 5 * time.Second}, 50*time.Millisecond, nil)

	start := time.Now()
	_, err := d.Decompose(context.Background(), testInput([]LineRequest{
		{ProductID: "p-1", Quantity: 1},
	}))
	if !errors.Is(err, domshipping.ErrFeeUnavailable) {
		t.Fatalf("timeout must surface as ErrFeeUnavailable, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("quote was not bounded by the timeout")
	}
}

func TestDecompose_UnknownProfile(t *testing.T) {
	t.Parallel()

	d := NewDecomposer(&stubCatalog{products: testProducts()}, &stubProfiles{}, &stubFees{fee: 1}, 0, nil)

	_, err := d.Decompose(context.Background(), testInput([]LineRequest{
		{ProductID: "p-1", Quantity: 1},
	}))
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestDecompose_ProfileDirectoryFailureIsNotNotFound(t *testing.T) {
	t.Parallel()

	outage := errors.New("directory timeout")
	d := NewDecomposer(&stubCatalog{products: testProducts()}, &stubProfiles{err: outage}, &stubFees{fee: 1}, 0, nil)

	_, err := d.Decompose(context.Background(), testInput([]LineRequest{
		{ProductID: "p-1", Quantity: 1},
	}))
	if errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("directory outage must not look like an unknown profile: %v", err)
	}
	if !errors.Is(err, outage) {
		t.Fatalf("expected the directory failure to pass through, got %v", err)
	}
}
