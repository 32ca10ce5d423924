package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSequenceKindFormat(t *testing.T) {
	at := time.Date(2026, 10, 17, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		kind  string
		n     int64
		scope string
		want  string
	}{
		{kind: "order", n: 1, scope: "order:20261017", want: "ORD-20261017-0001"},
		{kind: "invoice", n: 42, scope: "invoice:2026", want: "INV-2026-00042"},
		{kind: "batch", n: 7, scope: "batch:20261017", want: "BAT-20261017-007"},
		{kind: "purchase", n: 12345, scope: "purchase:20261017", want: "PO-20261017-12345"},
		{kind: "delivery", n: 3, scope: "delivery:20261017", want: "DN-20261017-0003"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			k, ok := LookupSequenceKind(tt.kind)
			require.True(t, ok)
			require.Equal(t, tt.scope, k.Scope(at))
			require.Equal(t, tt.want, k.Format(at, tt.n))
		})
	}

	_, ok := LookupSequenceKind("receipt")
	require.False(t, ok)
	require.Equal(t, []string{"batch", "delivery", "invoice", "order", "purchase"}, SequenceKindNames())
}
