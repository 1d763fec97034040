package middleware

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// IdempotencyMiddleware replays the cached response of a mutating request carrying an
// X-Correlation-ID already seen within ttl. Keys are scoped to the authenticated user.
func IdempotencyMiddleware(redisClient *redis.Client, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Only apply to mutating methods
		if c.Method() != fiber.MethodPost && c.Method() != fiber.MethodPatch && c.Method() != fiber.MethodPut {
			return c.Next()
		}

		correlationID := c.Get("X-Correlation-ID")
		if correlationID == "" || redisClient == nil {
			return c.Next()
		}

		key := fmt.Sprintf("idempotency:%s:%s:%s", UserID(c), c.Path(), correlationID)
		ctx := c.UserContext()

		cached, err := redisClient.Get(ctx, key).Bytes()
		if err == nil && len(cached) > 0 {
			c.Set("X-Idempotent-Replay", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(cached)
		}

		if err := c.Next(); err != nil {
			return err
		}

		// Cache successful responses (2xx status codes)
		statusCode := c.Response().StatusCode()
		if statusCode >= 200 && statusCode < 300 {
			body := append([]byte(nil), c.Response().Body()...)
			if len(body) > 0 {
				if err := redisClient.Set(ctx, key, body, ttl).Err(); err != nil {
					log.Printf("[Idempotency] Warning: failed to cache response for %s: %v", correlationID, err)
				}
			}
		}

		return nil
	}
}
