package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
	"github.com/aussiebroadwan/bakeboard/internal/admin/metrics"
	"github.com/aussiebroadwan/bakeboard/internal/admin/store"
	"github.com/aussiebroadwan/bakeboard/pkg/slogx"
)

// defaultNumberAttempts bounds how many already-taken numbers Next skips
// before giving up.
const defaultNumberAttempts = 10

// NumberingService hands out human-readable reference numbers such as
// ORD-20261017-0001. The per-period counter row is locked for the duration
// of the transaction, and numbers already present in the ledger are skipped.
type NumberingService struct {
	Store       store.Store
	MaxAttempts int
	Now         func() time.Time
}

func (s *NumberingService) Next(ctx context.Context, kindName string) (domain.IssuedNumber, error) {
	kind, ok := domain.LookupSequenceKind(kindName)
	if !ok {
		return domain.IssuedNumber{}, ErrUnknownSequence
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	scope := kind.Scope(now)

	var issued domain.IssuedNumber
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		last, err := tx.Sequences().LockSequence(ctx, scope)
		if err != nil {
			return err
		}

		value := last
		number, err := generateUnique(ctx, s.attempts(),
			func() (string, error) {
				value++
				return kind.Format(now, value), nil
			},
			tx.Sequences().NumberExists,
		)
		if err != nil {
			if errors.Is(err, errNoUniqueValue) {
				return ErrSequenceExhausted
			}
			return err
		}

		if err := tx.Sequences().SetSequence(ctx, scope, value); err != nil {
			return err
		}
		issued = domain.IssuedNumber{Number: number, Kind: kind.Name, IssuedAt: now}
		return tx.Sequences().RecordNumber(ctx, issued)
	})
	if err != nil {
		slogx.FromContext(ctx).Error("failed to issue sequence number",
			slog.String("kind", kind.Name),
			slog.String("scope", scope),
			slog.Any("error", err),
		)
		return domain.IssuedNumber{}, err
	}

	metrics.RecordNumberIssued(kind.Name)
	slogx.FromContext(ctx).Debug("sequence number issued",
		slog.String("kind", kind.Name),
		slog.String("number", issued.Number),
	)
	return issued, nil
}

func (s *NumberingService) attempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return defaultNumberAttempts
}
