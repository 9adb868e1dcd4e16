package coupon

import (
	"context"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator checks a coupon code against an order subtotal and returns the
// coupon when it is redeemable. Validation has no side effects; the usage
// counter is incremented inside the order reservation transaction.
type Validator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Coupon, error)
}

// CodeFilter is a bloom-filter prefilter over known coupon codes. A definite
// miss short-circuits validation without a repository lookup; a possible hit
// still requires the authoritative lookup. Codes written after warm-up must
// be fed back in via Add or the filter would reject them outright.
type CodeFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

const codeFilterFPR = 0.001

// NewCodeFilter builds a prefilter from the given (already normalized or raw)
// codes.
func NewCodeFilter(codes []string) *CodeFilter {
	n := uint(len(codes))
	if n < 64 {
		n = 64
	}
	f := bloom.NewWithEstimates(n, codeFilterFPR)
	for _, c := range codes {
		f.AddString(NormalizeCode(c))
	}
	return &CodeFilter{filter: f}
}

// Add records a new code. Bloom filters only grow, so a code that is later
// deactivated keeps hitting the fast path and is rejected by the lookup.
func (f *CodeFilter) Add(code string) {
	f.mu.Lock()
	f.filter.AddString(NormalizeCode(code))
	f.mu.Unlock()
}

// MayContain reports whether the code could be a known coupon code.
func (f *CodeFilter) MayContain(code string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(NormalizeCode(code))
}

// FilterSyncRepository decorates a Repository so codes created or re-coded
// through admin writes reach the prefilter immediately. Without it a coupon
// added after warm-up would be a definite miss at checkout until restart.
type FilterSyncRepository struct {
	Repository
	filter *CodeFilter
}

// WithFilterSync wraps repo so successful Create and Update calls add the
// coupon's code to filter. A nil filter returns repo unchanged.
func WithFilterSync(repo Repository, filter *CodeFilter) Repository {
	if filter == nil {
		return repo
	}
	return &FilterSyncRepository{Repository: repo, filter: filter}
}

func (r *FilterSyncRepository) Create(ctx context.Context, c *Coupon) error {
	if err := r.Repository.Create(ctx, c); err != nil {
		return err
	}
	r.filter.Add(c.Code)
	return nil
}

func (r *FilterSyncRepository) Update(ctx context.Context, c *Coupon) error {
	if err := r.Repository.Update(ctx, c); err != nil {
		return err
	}
	r.filter.Add(c.Code)
	return nil
}

// RepoValidator implements Validator against a Repository, with an optional
// CodeFilter in front of it.
type RepoValidator struct {
	repo   Repository
	filter *CodeFilter
	now    func() time.Time
}

// NewRepoValidator creates a RepoValidator. filter may be nil.
func NewRepoValidator(repo Repository, filter *CodeFilter) *RepoValidator {
	return &RepoValidator{repo: repo, filter: filter, now: time.Now}
}

// Validate resolves the code and checks activity, validity window, usage
// limit, and the minimum order amount against the subtotal.
func (v *RepoValidator) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*Coupon, error) {
	normalized := NormalizeCode(code)

	if v.filter != nil && !v.filter.MayContain(normalized) {
		return nil, ErrInvalidCoupon
	}

	c, err := v.repo.FindActiveByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	now := v.now()
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return nil, ErrCouponExpired
	}

	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return nil, ErrUsageLimitReached
	}

	if subtotal.LessThan(c.MinOrderAmount) {
		return nil, &MinOrderAmountError{Code: c.Code, Required: c.MinOrderAmount}
	}

	return c, nil
}
