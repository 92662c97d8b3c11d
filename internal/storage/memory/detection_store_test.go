package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/storage"
)

func detection(id, account string, slot, detectedAt int64) *domain.Detection {
	return &domain.Detection{
		DetectionID: id,
		Protocol:    domain.ProtocolAmmV4,
		Account:     account,
		MintA:       "So11111111111111111111111111111111111111112",
		MintB:       "mintB",
		Slot:        slot,
		DetectedAt:  detectedAt,
	}
}

func TestDetectionStore_InsertAndGet(t *testing.T) {
	store := NewDetectionStore()
	ctx := context.Background()

	d := detection("abc123", "pool1", 100, 1704067200000)
	if err := store.Insert(ctx, d); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Account != d.Account {
		t.Errorf("Account mismatch: got %s, want %s", got.Account, d.Account)
	}

	// Returned records are copies
	got.Account = "mutated"
	again, _ := store.GetByID(ctx, "abc123")
	if again.Account != "pool1" {
		t.Errorf("store was mutated through returned record")
	}
}

func TestDetectionStore_DuplicateKey(t *testing.T) {
	store := NewDetectionStore()
	ctx := context.Background()

	d := detection("abc123", "pool1", 100, 1)
	if err := store.Insert(ctx, d); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	if err := store.Insert(ctx, d); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestDetectionStore_InvalidInput(t *testing.T) {
	store := NewDetectionStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.Detection{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty ID, got %v", err)
	}
}

func TestDetectionStore_NotFound(t *testing.T) {
	store := NewDetectionStore()

	if _, err := store.GetByID(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDetectionStore_GetByAccount(t *testing.T) {
	store := NewDetectionStore()
	ctx := context.Background()

	for _, d := range []*domain.Detection{
		detection("c", "pool1", 300, 3),
		detection("a", "pool1", 100, 1),
		detection("x", "pool2", 200, 2),
		detection("b", "pool1", 200, 2),
	} {
		if err := store.Insert(ctx, d); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByAccount(ctx, "pool1")
	if err != nil {
		t.Fatalf("GetByAccount failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 detections, got %d", len(got))
	}
	for i, want := range []int64{100, 200, 300} {
		if got[i].Slot != want {
			t.Errorf("position %d: slot %d, want %d", i, got[i].Slot, want)
		}
	}
}

func TestDetectionStore_GetByTimeRange(t *testing.T) {
	store := NewDetectionStore()
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		d := detection(fmt.Sprintf("id-%d", i), "pool", i, i*1000)
		if err := store.Insert(ctx, d); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByTimeRange(ctx, 2000, 4000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 detections (inclusive bounds), got %d", len(got))
	}
	if got[0].DetectedAt != 2000 || got[2].DetectedAt != 4000 {
		t.Errorf("unexpected bounds: %d..%d", got[0].DetectedAt, got[2].DetectedAt)
	}
}

func TestDetectionStore_ConcurrentInsert(t *testing.T) {
	store := NewDetectionStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Insert(ctx, detection("same", "pool", 1, 1)); err == nil {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if inserted != 1 {
		t.Errorf("expected exactly one successful insert, got %d", inserted)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 stored detection, got %d", store.Len())
	}
}
