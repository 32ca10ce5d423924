package service

import (
	"context"
	"errors"

	retry "github.com/avast/retry-go/v4"
)

// maxUniqueAttempts bounds generate-until-unique loops. Random 256-bit tokens
// practically never collide; the bound only guards against a broken source.
const maxUniqueAttempts = 5

var (
	errNoUniqueValue = errors.New("no unique value within attempt limit")
	errValueTaken    = errors.New("value taken")
)

// generateUnique draws candidates from next until exists reports one as free.
// Only collisions are retried; errors from next or exists end the loop.
func generateUnique(
	ctx context.Context,
	attempts int,
	next func() (string, error),
	exists func(ctx context.Context, v string) (bool, error),
) (string, error) {
	if attempts <= 0 {
		attempts = maxUniqueAttempts
	}

	v, err := retry.DoWithData(
		func() (string, error) {
			v, err := next()
			if err != nil {
				return "", err
			}
			taken, err := exists(ctx, v)
			if err != nil {
				return "", err
			}
			if taken {
				return "", errValueTaken
			}
			return v, nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errValueTaken) }),
	)
	if errors.Is(err, errValueTaken) {
		return "", errNoUniqueValue
	}
	return v, err
}
