package wal

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/nainya/pageserver/pkg/storagekey"
)

func recoveryTestKey(n uint32) storagekey.Key {
	return storagekey.Key{F1: 0x01, F2: n}
}

func TestRecoveryCommittedTransactions(t *testing.T) {
	dir := t.TempDir()

	walPath := filepath.Join(dir, "test.wal")
	w := &WAL{Path: walPath}
	if err := w.Open(); err != nil {
		t.Fatal(err)
	}

	for txn := 0; txn < 3; txn++ {
		w.Write(Entry{
			LSN:    w.NextLSN(),
			TxnID:  uint64(txn),
			OpType: OpPut,
			Key:    recoveryTestKey(uint32(txn)),
			Value:  storagekey.Image(fmt.Sprintf("value-%d", txn)),
		})
		w.Write(Entry{
			LSN:    w.NextLSN(),
			TxnID:  uint64(txn),
			OpType: OpCommit,
		})
	}
	w.Fsync()
	w.Close()

	w2 := &WAL{Path: walPath}
	w2.Open()
	defer w2.Close()

	recovery := NewRecovery(w2)
	replayed := make(map[storagekey.Key]string)

	err := recovery.Recover(func(entry *Entry) error {
		if entry.OpType == OpPut {
			img, _ := storagekey.AsImage(entry.Value)
			replayed[entry.Key] = string(img)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(replayed) != 3 {
		t.Errorf("expected 3 replayed operations, got %d", len(replayed))
	}

	for i := 0; i < 3; i++ {
		key := recoveryTestKey(uint32(i))
		expectedValue := fmt.Sprintf("value-%d", i)
		if replayed[key] != expectedValue {
			t.Errorf("key %s: expected %s, got %s", key, expectedValue, replayed[key])
		}
	}
}

func TestRecoveryUncommittedTransactions(t *testing.T) {
	dir := t.TempDir()

	walPath := filepath.Join(dir, "test.wal")
	w := &WAL{Path: walPath}
	if err := w.Open(); err != nil {
		t.Fatal(err)
	}

	committedKey := recoveryTestKey(0)
	uncommittedKey := recoveryTestKey(1)

	// Transaction 0: committed.
	w.Write(Entry{
		LSN:    w.NextLSN(),
		TxnID:  0,
		OpType: OpPut,
		Key:    committedKey,
		Value:  storagekey.Image("committed-value"),
	})
	w.Write(Entry{
		LSN:    w.NextLSN(),
		TxnID:  0,
		OpType: OpCommit,
	})

	// Transaction 1: uncommitted, no COMMIT marker.
	w.Write(Entry{
		LSN:    w.NextLSN(),
		TxnID:  1,
		OpType: OpPut,
		Key:    uncommittedKey,
		Value:  storagekey.Image("uncommitted-value"),
	})

	w.Fsync()
	w.Close()

	w2 := &WAL{Path: walPath}
	w2.Open()
	defer w2.Close()

	recovery := NewRecovery(w2)
	replayed := make(map[storagekey.Key]string)

	err := recovery.Recover(func(entry *Entry) error {
		if entry.OpType == OpPut {
			img, _ := storagekey.AsImage(entry.Value)
			replayed[entry.Key] = string(img)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(replayed) != 1 {
		t.Errorf("expected 1 replayed operation, got %d", len(replayed))
	}

	if replayed[committedKey] != "committed-value" {
		t.Errorf("committed transaction not replayed correctly")
	}

	if _, exists := replayed[uncommittedKey]; exists {
		t.Errorf("uncommitted transaction should not be replayed")
	}
}

func TestRecoveryAfterCheckpoint(t *testing.T) {
	dir := t.TempDir()

	walPath := filepath.Join(dir, "test.wal")
	w := &WAL{Path: walPath}
	if err := w.Open(); err != nil {
		t.Fatal(err)
	}

	beforeKey := recoveryTestKey(0)
	afterKey := recoveryTestKey(1)

	w.Write(Entry{
		LSN:    w.NextLSN(),
		TxnID:  0,
		OpType: OpPut,
		Key:    beforeKey,
		Value:  storagekey.Image("value-0"),
	})
	w.Write(Entry{
		LSN:    w.NextLSN(),
		TxnID:  0,
		OpType: OpCommit,
	})

	w.Write(Entry{
		LSN:    w.NextLSN(),
		TxnID:  0,
		OpType: OpCheckpoint,
	})

	w.Write(Entry{
		LSN:    w.NextLSN(),
		TxnID:  1,
		OpType: OpPut,
		Key:    afterKey,
		Value:  storagekey.Image("value-1"),
	})
	w.Write(Entry{
		LSN:    w.NextLSN(),
		TxnID:  1,
		OpType: OpCommit,
	})

	w.Fsync()
	w.Close()

	w2 := &WAL{Path: walPath}
	w2.Open()
	defer w2.Close()

	recovery := NewRecovery(w2)
	replayed := make(map[storagekey.Key]string)

	err := recovery.Recover(func(entry *Entry) error {
		if entry.OpType == OpPut {
			img, _ := storagekey.AsImage(entry.Value)
			replayed[entry.Key] = string(img)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, exists := replayed[beforeKey]; exists {
		t.Errorf("entries before checkpoint should not be replayed")
	}

	if replayed[afterKey] != "value-1" {
		t.Errorf("entries after checkpoint should be replayed")
	}
}

func TestRecoveryWithStats(t *testing.T) {
	dir := t.TempDir()

	walPath := filepath.Join(dir, "test.wal")
	w := &WAL{Path: walPath}
	if err := w.Open(); err != nil {
		t.Fatal(err)
	}

	for txn := 0; txn < 3; txn++ {
		w.Write(Entry{
			LSN:    w.NextLSN(),
			TxnID:  uint64(txn),
			OpType: OpPut,
			Key:    recoveryTestKey(uint32(txn)),
			Value:  storagekey.Image(fmt.Sprintf("value-%d", txn)),
		})

		// Only commit the first 2.
		if txn < 2 {
			w.Write(Entry{
				LSN:    w.NextLSN(),
				TxnID:  uint64(txn),
				OpType: OpCommit,
			})
		}
	}
	w.Fsync()
	w.Close()

	w2 := &WAL{Path: walPath}
	w2.Open()
	defer w2.Close()

	recovery := NewRecovery(w2)
	stats, err := recovery.RecoverWithStats(func(entry *Entry) error {
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if stats.CommittedTxns != 2 {
		t.Errorf("expected 2 committed txns, got %d", stats.CommittedTxns)
	}
	if stats.UncommittedTxns != 1 {
		t.Errorf("expected 1 uncommitted txn, got %d", stats.UncommittedTxns)
	}
	if stats.ReplayedOperations != 2 {
		t.Errorf("expected 2 replayed operations, got %d", stats.ReplayedOperations)
	}
}

func TestRecoveryDeleteOperations(t *testing.T) {
	dir := t.TempDir()

	walPath := filepath.Join(dir, "test.wal")
	w := &WAL{Path: walPath}
	if err := w.Open(); err != nil {
		t.Fatal(err)
	}

	key := recoveryTestKey(0)
	rangeEnd := recoveryTestKey(1)

	w.Write(Entry{
		LSN:    w.NextLSN(),
		TxnID:  0,
		OpType: OpPut,
		Key:    key,
		Value:  storagekey.Image("test-value"),
	})
	w.Write(Entry{
		LSN:    w.NextLSN(),
		TxnID:  0,
		OpType: OpCommit,
	})

	w.Write(Entry{
		LSN:    w.NextLSN(),
		TxnID:  1,
		OpType: OpDelete,
		Key:    key,
		EndKey: rangeEnd,
	})
	w.Write(Entry{
		LSN:    w.NextLSN(),
		TxnID:  1,
		OpType: OpCommit,
	})

	w.Fsync()
	w.Close()

	w2 := &WAL{Path: walPath}
	w2.Open()
	defer w2.Close()

	recovery := NewRecovery(w2)
	var operations []string

	err := recovery.Recover(func(entry *Entry) error {
		switch entry.OpType {
		case OpPut:
			operations = append(operations, fmt.Sprintf("PUT:%s", entry.Key))
		case OpDelete:
			operations = append(operations, fmt.Sprintf("DELETE:%s-%s", entry.Key, entry.EndKey))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(operations) != 2 {
		t.Errorf("expected 2 operations, got %d", len(operations))
	}
	if operations[0] != fmt.Sprintf("PUT:%s", key) {
		t.Errorf("expected PUT operation first, got %s", operations[0])
	}
	if operations[1] != fmt.Sprintf("DELETE:%s-%s", key, rangeEnd) {
		t.Errorf("expected DELETE operation second, got %s", operations[1])
	}
}

func TestRecoveryEmptyWAL(t *testing.T) {
	dir := t.TempDir()

	walPath := filepath.Join(dir, "test.wal")
	w := &WAL{Path: walPath}
	if err := w.Open(); err != nil {
		t.Fatal(err)
	}
	w.Close()

	w2 := &WAL{Path: walPath}
	if err := w2.Open(); err != nil {
		t.Fatal(err)
	}
	defer w2.Close()

	recovery := NewRecovery(w2)
	err := recovery.Recover(func(entry *Entry) error {
		t.Error("should not replay any operations for empty WAL")
		return nil
	})

	if err != nil {
		t.Errorf("recovery of empty WAL should succeed, got error: %v", err)
	}
}
