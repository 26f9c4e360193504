package entry

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// storeRetryDelay spaces the single retry so a broken connection has a moment
// to be replaced in the pool.
const storeRetryDelay = 100 * time.Millisecond

// withRetry runs op and repeats it once when the failure looks like a
// short-lived connection problem. Every caller passes an idempotent op:
// unique keys and conditional updates make a replayed write harmless.
func (s *Service) withRetry(ctx context.Context, op func() error) error {
	err := op()
	if err == nil || !isTransientStoreError(err) || ctx.Err() != nil {
		return err
	}
	log.Warnf("[Entry] transient store error, retrying once: %v", err)
	time.Sleep(storeRetryDelay)
	return op()
}

// isTransientStoreError reports whether err is a connection-class failure
// worth one retry. Context errors and constraint violations are not.
func isTransientStoreError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
