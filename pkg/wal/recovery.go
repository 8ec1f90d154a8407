package wal

import (
	"fmt"
	"os"
)

// ReplayFunc is called for each OpPut/OpDelete entry in a committed
// transaction, in LSN order. entry.Key/EndKey/Value are already decoded
// storagekey types, so a caller over a multi-version store (MemTimeline)
// applies the operation directly, with no further key/value decoding of
// its own.
type ReplayFunc func(entry *Entry) error

// Recovery replays a WAL's committed transactions.
type Recovery struct {
	wal *WAL
}

// NewRecovery creates a recovery manager over wal.
func NewRecovery(wal *WAL) *Recovery {
	return &Recovery{wal: wal}
}

// Recover replays every committed transaction after the last checkpoint,
// in the order its entries were written.
func (r *Recovery) Recover(replay ReplayFunc) error {
	files, err := r.wal.findLogFiles()
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No WAL files = fresh start
		}
		return err
	}

	entries, err := ReadAll(files)
	if err != nil {
		return fmt.Errorf("failed to read WAL entries: %w", err)
	}

	transactions := r.groupByTransaction(entries)
	lastCheckpoint := r.findLastCheckpoint(entries)

	for _, txn := range transactions {
		if lastCheckpoint != nil && txn.StartLSN < lastCheckpoint.LSN {
			continue
		}
		if !txn.Committed {
			continue
		}
		for _, entry := range txn.Entries {
			if entry.OpType == OpPut || entry.OpType == OpDelete {
				if err := replay(entry); err != nil {
					return fmt.Errorf("replay failed at LSN %d: %w", entry.LSN, err)
				}
			}
		}
	}

	return nil
}

// Transaction groups the WAL entries sharing one transaction ID.
type Transaction struct {
	TxnID     uint64
	StartLSN  uint64
	Entries   []*Entry
	Committed bool
}

// groupByTransaction groups WAL entries by transaction ID.
func (r *Recovery) groupByTransaction(entries []*Entry) []*Transaction {
	txnMap := make(map[uint64]*Transaction)
	var txnList []*Transaction

	for _, entry := range entries {
		if entry.OpType == OpCheckpoint {
			continue
		}

		txn, exists := txnMap[entry.TxnID]
		if !exists {
			txn = &Transaction{
				TxnID:    entry.TxnID,
				StartLSN: entry.LSN,
				Entries:  make([]*Entry, 0),
			}
			txnMap[entry.TxnID] = txn
			txnList = append(txnList, txn)
		}

		if entry.OpType == OpCommit {
			txn.Committed = true
		} else {
			txn.Entries = append(txn.Entries, entry)
		}
	}

	return txnList
}

// findLastCheckpoint finds the last checkpoint entry.
func (r *Recovery) findLastCheckpoint(entries []*Entry) *Entry {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].OpType == OpCheckpoint {
			return entries[i]
		}
	}
	return nil
}

// RecoveryStats summarizes what a recovery pass found and replayed.
type RecoveryStats struct {
	TotalEntries       int
	CommittedTxns      int
	UncommittedTxns    int
	ReplayedOperations int
	LastCheckpointLSN  uint64
}

// RecoverWithStats performs recovery and returns statistics alongside it.
func (r *Recovery) RecoverWithStats(replay ReplayFunc) (*RecoveryStats, error) {
	stats := &RecoveryStats{}

	files, err := r.wal.findLogFiles()
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return nil, err
	}

	entries, err := ReadAll(files)
	if err != nil {
		return nil, err
	}

	stats.TotalEntries = len(entries)

	transactions := r.groupByTransaction(entries)

	lastCheckpoint := r.findLastCheckpoint(entries)
	if lastCheckpoint != nil {
		stats.LastCheckpointLSN = lastCheckpoint.LSN
	}

	for _, txn := range transactions {
		if lastCheckpoint != nil && txn.StartLSN < lastCheckpoint.LSN {
			continue
		}

		if txn.Committed {
			stats.CommittedTxns++
			for _, entry := range txn.Entries {
				if entry.OpType == OpPut || entry.OpType == OpDelete {
					if err := replay(entry); err != nil {
						return stats, err
					}
					stats.ReplayedOperations++
				}
			}
		} else {
			stats.UncommittedTxns++
		}
	}

	return stats, nil
}
