package market

import (
	"errors"
	"testing"
	"time"

	"asmm-quoter/errs"
)

func TestNewSnapshot(t *testing.T) {
	s, err := NewSnapshot(d("99.5"), d("100.5"), 3_600_000, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.MidPrice.Equal(d("100")) {
		t.Fatalf("unexpected mid %s", s.MidPrice)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected validate error: %v", err)
	}
}

func TestNewSnapshotRejectsBadBook(t *testing.T) {
	if _, err := NewSnapshot(d("0"), d("1"), 1, time.Now()); !errors.Is(err, errs.ErrInvalidMarketState) {
		t.Fatalf("expected InvalidMarketState, got %v", err)
	}
	if _, err := NewSnapshot(d("101"), d("100"), 1, time.Now()); !errors.Is(err, errs.ErrInvalidMarketState) {
		t.Fatalf("expected InvalidMarketState for crossed book, got %v", err)
	}
}

func TestSnapshotValidate(t *testing.T) {
	s := Snapshot{MidPrice: d("-1")}
	if err := s.Validate(); !errors.Is(err, errs.ErrInvalidMarketState) {
		t.Fatalf("expected InvalidMarketState, got %v", err)
	}
}
