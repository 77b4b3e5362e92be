package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/shweretail/shop_backend/config"
	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

var CountryCode = "MM"

var validate = validator.New()

// ValidateStruct runs the shared validator instance over a payload and
// maps the first tag failure to a ValidationError.
func ValidateStruct(payload interface{}) error {
	if err := validate.Struct(payload); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			ve := verrs[0]
			return NewValidationError(ve.Field(), "failed on "+ve.Tag())
		}
		return err
	}
	return nil
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err
	}
	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}
	return nil
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func DereferencePtr[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// DecimalMax returns the larger of a and b.
func DecimalMax(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// ProductLock serializes multi-step stock flows per product across
// instances. Best-effort only: correctness does not depend on Redis, the
// conditional stock decrement is the real guard. The caller must release
// the returned lock.
func ProductLock(ctx context.Context, productId int, moduleName string, functionName string) (*redislock.Lock, error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		// Redis not up yet; proceed without the advisory lock.
		return nil, nil
	}
	lockKey := fmt.Sprintf("stockLock:product:%d", productId)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 10),
	})
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain lock for product", productId, err)
		return nil, errors.New("could not obtain stock lock for product")
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining lock for product", productId, err)
		return nil, err
	}
	return lock, nil
}

// ReleaseProductLock is nil-safe so callers can defer it unconditionally.
func ReleaseProductLock(ctx context.Context, lock *redislock.Lock) {
	if lock == nil {
		return
	}
	_ = lock.Release(ctx)
}
