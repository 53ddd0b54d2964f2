package memory

import (
	"context"
	"testing"
	"time"

	"mamaboss/internal/core"
)

func TestMemoryStoreAppendAndList(t *testing.T) {
	s := New()
	ctx := context.Background()

	oct := core.Finance{ID: "1", Type: core.Income, Category: "vendas", Amount: core.Money{Cents: 1000},
		Description: "Venda", Date: time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)}
	nov := oct
	nov.ID = "2"
	nov.Date = time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)

	for _, f := range []core.Finance{oct, nov} {
		if _, err := s.AppendFinance(ctx, f); err != nil {
			t.Fatalf("AppendFinance() error = %v", err)
		}
	}

	got, err := s.ListFinances(ctx, 2026, 10)
	if err != nil {
		t.Fatalf("ListFinances() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("ListFinances() = %+v", got)
	}
	if len(s.Rows()) != 2 {
		t.Errorf("Rows() = %d, want 2", len(s.Rows()))
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	s := New()
	if _, err := s.AppendFinance(context.Background(), core.Finance{}); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := s.ListFinances(context.Background(), 2026, 0); err == nil {
		t.Fatal("expected month error")
	}
}
