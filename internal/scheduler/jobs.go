package scheduler

import (
	"context"

	"techatlas/internal/models"

	"go.uber.org/zap"
)

// Expirer retires listings whose date has passed.
type Expirer interface {
	Run(ctx context.Context) (map[models.Kind]int, error)
}

// ExpiryJob wraps an Expirer and logs how many listings moved.
func ExpiryJob(expirer Expirer, logger *zap.Logger) Job {
	return func(ctx context.Context) error {
		moved, err := expirer.Run(ctx)
		if err != nil {
			return err
		}
		total := 0
		fields := make([]zap.Field, 0, len(moved)+1)
		for kind, n := range moved {
			total += n
			if n > 0 {
				fields = append(fields, zap.Int(string(kind), n))
			}
		}
		if total > 0 {
			logger.Info("expired listings", append(fields, zap.Int("total", total))...)
		}
		return nil
	}
}
