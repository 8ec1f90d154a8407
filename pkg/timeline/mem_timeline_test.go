package timeline

import (
	"errors"
	"testing"

	"github.com/nainya/pageserver/pkg/storagekey"
)

func TestPutGetReturnsLatestAtOrBeforeLSN(t *testing.T) {
	tl := NewMemTimeline()
	key := storagekey.Key{F1: 0x00, F2: 1}

	if err := tl.Put(key, 10, storagekey.Image("v10")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := tl.Put(key, 20, storagekey.Image("v20")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	for lsn, want := range map[uint64]string{10: "v10", 15: "v10", 20: "v20", 100: "v20"} {
		got, err := tl.Get(key, lsn)
		if err != nil {
			t.Fatalf("Get(@%d): %v", lsn, err)
		}
		if string(got) != want {
			t.Errorf("Get(@%d) = %q, want %q", lsn, got, want)
		}
	}
}

func TestGetBeforeFirstWriteIsNotFound(t *testing.T) {
	tl := NewMemTimeline()
	key := storagekey.Key{F1: 0x00, F2: 1}
	tl.Put(key, 10, storagekey.Image("v10"))

	if _, err := tl.Get(key, 5); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Get(@5) error = %v, want ErrKeyNotFound", err)
	}
}

func TestDeleteRemovesKeysInRangeAsOfLSN(t *testing.T) {
	tl := NewMemTimeline()
	k1 := storagekey.Key{F1: 0x00, F2: 1}
	k2 := storagekey.Key{F1: 0x00, F2: 2}
	tl.Put(k1, 10, storagekey.Image("a"))
	tl.Put(k2, 10, storagekey.Image("b"))

	r := storagekey.Range{Start: storagekey.Key{F1: 0x00}, End: storagekey.Key{F1: 0x01}}
	if err := tl.Delete(r, 20); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := tl.Get(k1, 20); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get(k1@20) after delete = %v, want ErrKeyNotFound", err)
	}
	if got, err := tl.Get(k1, 15); err != nil || string(got) != "a" {
		t.Errorf("Get(k1@15) = %q, %v, want \"a\", nil", got, err)
	}
}

func TestAdvanceLastRecordLSNMustStrictlyIncrease(t *testing.T) {
	tl := NewMemTimeline()
	if err := tl.AdvanceLastRecordLSN(10); err != nil {
		t.Fatalf("AdvanceLastRecordLSN(10): %v", err)
	}
	if err := tl.AdvanceLastRecordLSN(10); !errors.Is(err, ErrNonMonotonicLSN) {
		t.Fatalf("AdvanceLastRecordLSN(10) again = %v, want ErrNonMonotonicLSN", err)
	}
	if err := tl.AdvanceLastRecordLSN(5); !errors.Is(err, ErrNonMonotonicLSN) {
		t.Fatalf("AdvanceLastRecordLSN(5) = %v, want ErrNonMonotonicLSN", err)
	}
	if got := tl.LastRecordLSN(); got != 10 {
		t.Fatalf("LastRecordLSN() = %d, want 10", got)
	}
}

func TestGetOnWalRecordIsUnsupported(t *testing.T) {
	tl := NewMemTimeline()
	key := storagekey.Key{F1: 0x00, F2: 1}
	tl.Put(key, 10, storagekey.WalRecord("some wal record"))

	if _, err := tl.Get(key, 10); !errors.Is(err, ErrWalRecordUnsupported) {
		t.Fatalf("Get over a WalRecord = %v, want ErrWalRecordUnsupported", err)
	}
}
