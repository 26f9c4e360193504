package controllers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/rokcupza/nats-registry/internal/pkg/payfast"
)

// The gateway retries on anything but a timely 200, so processing gets a hard
// budget and every non-signature failure is recorded and acknowledged.
const webhookTimeBudget = 20 * time.Second

// HandlePayfastNotify processes one gateway ITN delivery. Only a signature
// failure is rejected with 400; any error after verification lands in the
// failed-notification log and still returns 200 to stop the retry storm.
func HandlePayfastNotify(c *fiber.Ctx) error {
	rawBody := make([]byte, len(c.Body()))
	copy(rawBody, c.Body())

	notification, err := gateway.VerifyAndParse(rawBody)
	if err != nil {
		if errors.Is(err, payfast.ErrSignatureInvalid) {
			log.Warnf("[Webhook] rejected ITN with invalid signature from %s", c.IP())
			return c.Status(fiber.StatusBadRequest).SendString("invalid signature")
		}
		entrySvc.RecordFailedNotification(err.Error(), string(rawBody), webhookHeaders(c))
		return c.SendStatus(fiber.StatusOK)
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeBudget)
	defer cancel()

	if err := entrySvc.ReconcileNotification(ctx, notification); err != nil {
		log.Errorf("[Webhook] reconcile failed for %s: %v", notification.PaymentReference, err)
		entrySvc.RecordFailedNotification(err.Error(), string(rawBody), webhookHeaders(c))
	}

	return c.SendStatus(fiber.StatusOK)
}

func webhookHeaders(c *fiber.Ctx) string {
	return fmt.Sprintf("remote=%s user-agent=%q content-type=%q", c.IP(), c.Get("User-Agent"), c.Get("Content-Type"))
}
