package domain

import (
	"fmt"
	"sort"
	"time"
)

// SequencePeriod controls how often a sequence counter starts over.
type SequencePeriod int

const (
	PeriodDaily SequencePeriod = iota
	PeriodYearly
)

func (p SequencePeriod) key(at time.Time) string {
	if p == PeriodYearly {
		return at.Format("2006")
	}
	return at.Format("20060102")
}

// SequenceKind describes one family of human-readable reference numbers,
// e.g. ORD-20261017-0001 or INV-2026-00042.
type SequenceKind struct {
	Name   string
	Prefix string
	Period SequencePeriod
	Width  int
}

// Scope is the counter row a number issued at the given time belongs to.
func (k SequenceKind) Scope(at time.Time) string {
	return k.Name + ":" + k.Period.key(at)
}

// Format renders the n-th number of the period containing at.
func (k SequenceKind) Format(at time.Time, n int64) string {
	return fmt.Sprintf("%s-%s-%0*d", k.Prefix, k.Period.key(at), k.Width, n)
}

var sequenceKinds = map[string]SequenceKind{
	"order":    {Name: "order", Prefix: "ORD", Period: PeriodDaily, Width: 4},
	"invoice":  {Name: "invoice", Prefix: "INV", Period: PeriodYearly, Width: 5},
	"batch":    {Name: "batch", Prefix: "BAT", Period: PeriodDaily, Width: 3},
	"purchase": {Name: "purchase", Prefix: "PO", Period: PeriodDaily, Width: 4},
	"delivery": {Name: "delivery", Prefix: "DN", Period: PeriodDaily, Width: 4},
}

// LookupSequenceKind returns the registered kind with the given name.
func LookupSequenceKind(name string) (SequenceKind, bool) {
	k, ok := sequenceKinds[name]
	return k, ok
}

// SequenceKindNames lists registered kinds in a stable order.
func SequenceKindNames() []string {
	names := make([]string, 0, len(sequenceKinds))
	for name := range sequenceKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IssuedNumber records a number handed out by the numbering service.
type IssuedNumber struct {
	Number   string
	Kind     string
	IssuedAt time.Time
}
