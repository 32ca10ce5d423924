package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/bakeboard/internal/admin/domain"
	"github.com/stretchr/testify/require"
)

func TestNumberingNext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := &NumberingService{Store: f.store, Now: f.clock.Now}

	first, err := svc.Next(ctx, "order")
	require.NoError(t, err)
	require.Equal(t, "ORD-20261017-0001", first.Number)
	require.Equal(t, "order", first.Kind)

	second, err := svc.Next(ctx, "order")
	require.NoError(t, err)
	require.Equal(t, "ORD-20261017-0002", second.Number)

	inv, err := svc.Next(ctx, "invoice")
	require.NoError(t, err)
	require.Equal(t, "INV-2026-00001", inv.Number)

	t.Run("taken numbers are skipped", func(t *testing.T) {
		require.NoError(t, f.store.Sequences().RecordNumber(ctx, domain.IssuedNumber{
			Number: "ORD-20261017-0003", Kind: "order", IssuedAt: f.clock.Now(),
		}))
		n, err := svc.Next(ctx, "order")
		require.NoError(t, err)
		require.Equal(t, "ORD-20261017-0004", n.Number)
	})

	t.Run("daily scope restarts", func(t *testing.T) {
		f.clock.Advance(24 * time.Hour)
		n, err := svc.Next(ctx, "order")
		require.NoError(t, err)
		require.Equal(t, "ORD-20261018-0001", n.Number)

		n, err = svc.Next(ctx, "invoice")
		require.NoError(t, err)
		require.Equal(t, "INV-2026-00002", n.Number, "invoices count per year")
	})

	t.Run("exhausted", func(t *testing.T) {
		tight := &NumberingService{Store: f.store, Now: f.clock.Now, MaxAttempts: 2}
		for _, num := range []string{"BAT-20261018-001", "BAT-20261018-002"} {
			require.NoError(t, f.store.Sequences().RecordNumber(ctx, domain.IssuedNumber{Number: num, Kind: "batch", IssuedAt: f.clock.Now()}))
		}
		_, err := tight.Next(ctx, "batch")
		require.ErrorIs(t, err, ErrSequenceExhausted)

		n, err := svc.Next(ctx, "batch")
		require.NoError(t, err)
		require.Equal(t, "BAT-20261018-003", n.Number, "failed attempt left the counter untouched")
	})

	_, err = svc.Next(ctx, "cake")
	require.ErrorIs(t, err, ErrUnknownSequence)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestNumberingConcurrent(t *testing.T) {
	f := newFixture(t)
	svc := &NumberingService{Store: f.store, Now: f.clock.Now}

	const n = 12
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got = map[string]bool{}
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := svc.Next(context.Background(), "delivery")
			if err != nil {
				return
			}
			mu.Lock()
			got[num.Number] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, got, n, "every caller gets a distinct number")
	require.True(t, got["DN-20261017-0012"])
}

func TestGenerateUnique(t *testing.T) {
	ctx := context.Background()
	calls := 0
	v, err := generateUnique(ctx, 3,
		func() (string, error) { calls++; return string(rune('a' + calls)), nil },
		func(_ context.Context, v string) (bool, error) { return v != "c", nil },
	)
	require.NoError(t, err)
	require.Equal(t, "c", v)
	require.Equal(t, 2, calls)

	calls = 0
	_, err = generateUnique(ctx, 3,
		func() (string, error) { calls++; return "x", nil },
		func(context.Context, string) (bool, error) { return true, nil },
	)
	require.ErrorIs(t, err, errNoUniqueValue)
	require.Equal(t, 3, calls, "stops at the attempt limit")

	calls = 0
	boom := errors.New("boom")
	_, err = generateUnique(ctx, 3,
		func() (string, error) { calls++; return "x", nil },
		func(context.Context, string) (bool, error) { return false, boom },
	)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls, "lookup failures are not retried")

	calls = 0
	_, err = generateUnique(ctx, 0,
		func() (string, error) { calls++; return "x", nil },
		func(context.Context, string) (bool, error) { return true, nil },
	)
	require.ErrorIs(t, err, errNoUniqueValue)
	require.Equal(t, maxUniqueAttempts, calls)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = generateUnique(cancelled, 3,
		func() (string, error) { return "x", nil },
		func(context.Context, string) (bool, error) { return false, nil },
	)
	require.ErrorIs(t, err, context.Canceled)
}
