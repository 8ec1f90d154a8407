package datadir

import (
	"fmt"

	"github.com/nainya/pageserver/internal/logger"
	"github.com/nainya/pageserver/pkg/directory"
	"github.com/nainya/pageserver/pkg/keyspace"
	"github.com/nainya/pageserver/pkg/storagekey"
	"github.com/nainya/pageserver/pkg/txbuffer"
)

// Writer composes a single transaction's worth of semantic datadir
// mutations on top of a txbuffer.Buffer: each Put*/Drop* call reads the
// relevant directory through the buffer (so it sees this transaction's
// own prior writes), mutates it, and writes it back, before finally
// putting or range-deleting the value keys themselves. Finish commits
// everything at once through the underlying buffer.
type Writer struct {
	buf *txbuffer.Buffer
	log *logger.Logger
}

// NewWriter returns a Writer accumulating mutations into buf. log may be
// nil; when non-nil it receives warn-then-continue diagnostics for
// drops of entries that were already missing.
func NewWriter(buf *txbuffer.Buffer, log *logger.Logger) *Writer {
	return &Writer{buf: buf, log: log}
}

// InitEmpty writes the zero-state for a fresh timeline: an empty
// DbDirectory, an empty TwoPhaseDirectory, an empty SlruSegmentDirectory
// for each SLRU kind, and an empty (zero-length) control file/checkpoint
// pair.
func (w *Writer) InitEmpty() error {
	if err := w.putDbDirectory(directory.NewDbDirectory()); err != nil {
		return err
	}
	if err := w.putTwoPhaseDirectory(directory.NewTwoPhaseDirectory()); err != nil {
		return err
	}
	for _, kind := range []keyspace.SlruKind{keyspace.SlruClog, keyspace.SlruMultiXactMembers, keyspace.SlruMultiXactOffsets} {
		if err := w.putSlruSegmentDirectory(kind, directory.NewSlruSegmentDirectory()); err != nil {
			return err
		}
	}
	if err := w.PutControlFile(nil); err != nil {
		return err
	}
	return w.PutCheckpoint(nil)
}

// PutRelWalRecord buffers a WAL record against an existing page. It does
// not implicitly extend the relation; the caller must ensure the
// relation's size already covers blknum.
func (w *Writer) PutRelWalRecord(rel keyspace.RelTag, blknum uint32, rec []byte) error {
	return w.buf.Put(keyspace.RelBlockToKey(rel, blknum), storagekey.WalRecord(rec))
}

// PutSlruWalRecord buffers a WAL record against an existing SLRU block.
func (w *Writer) PutSlruWalRecord(kind keyspace.SlruKind, segno, blknum uint32, rec []byte) error {
	return w.buf.Put(keyspace.SlruBlockToKey(kind, segno, blknum), storagekey.WalRecord(rec))
}

// PutRelPageImage buffers a ready-made page image.
func (w *Writer) PutRelPageImage(rel keyspace.RelTag, blknum uint32, img []byte) error {
	return w.buf.Put(keyspace.RelBlockToKey(rel, blknum), storagekey.Image(img))
}

// PutSlruPageImage buffers a ready-made SLRU block image.
func (w *Writer) PutSlruPageImage(kind keyspace.SlruKind, segno, blknum uint32, img []byte) error {
	return w.buf.Put(keyspace.SlruBlockToKey(kind, segno, blknum), storagekey.Image(img))
}

// PutRelMapFile buffers a relmap file, registering (spcnode, dbnode) in
// the DbDirectory if this is the first time it is seen.
func (w *Writer) PutRelMapFile(spcnode, dbnode uint32, img []byte) error {
	dir, err := w.getDbDirectory()
	if err != nil {
		return err
	}
	if dir.Insert(spcnode, dbnode) {
		if err := w.putDbDirectory(dir); err != nil {
			return err
		}
	}
	return w.buf.Put(keyspace.RelMapFileKey(spcnode, dbnode), storagekey.Image(img))
}

// PutTwoPhaseFile buffers a 2PC state file for xid. Inserting a xid
// already present in the TwoPhaseDirectory is a hard duplicate-insert
// error, checked before the file key is written rather than after.
func (w *Writer) PutTwoPhaseFile(xid uint32, img []byte) error {
	dir, err := w.getTwoPhaseDirectory()
	if err != nil {
		return err
	}
	if !dir.Insert(xid) {
		return fmt.Errorf("datadir: twophase file for xid %d already exists: %w", xid, directory.ErrDuplicateInsert)
	}
	if err := w.putTwoPhaseDirectory(dir); err != nil {
		return err
	}
	return w.buf.Put(keyspace.TwoPhaseFileKey(xid), storagekey.Image(img))
}

// PutControlFile buffers the raw control file bytes.
func (w *Writer) PutControlFile(img []byte) error {
	return w.buf.Put(keyspace.ControlFileKey(), storagekey.Image(img))
}

// PutCheckpoint buffers the raw checkpoint bytes.
func (w *Writer) PutCheckpoint(img []byte) error {
	return w.buf.Put(keyspace.CheckpointKey(), storagekey.Image(img))
}

// PutDbDirCreation registers (spcnode, dbnode) as an existing database
// by writing a fresh, empty RelDirectory for it. It does not touch the
// DbDirectory itself; callers combine this with PutRelMapFile or call it
// directly once the DbDirectory entry already exists by other means.
func (w *Writer) PutDbDirCreation(spcnode, dbnode uint32) error {
	return w.putRelDirectory(spcnode, dbnode, directory.NewRelDirectory())
}

// DropDbDir removes (spcnode, dbnode) from the DbDirectory and range-
// deletes every relation, fork, block, and relmap file under it. A
// database missing from the directory is logged, not failed, and the
// range delete still proceeds.
func (w *Writer) DropDbDir(spcnode, dbnode uint32) error {
	dir, err := w.getDbDirectory()
	if err != nil {
		return err
	}
	if dir.Remove(spcnode, dbnode) {
		if err := w.putDbDirectory(dir); err != nil {
			return err
		}
	} else if w.log != nil {
		w.log.Warn("datadir: dropped dbdir did not exist in db directory").
			Uint32("spcnode", spcnode).Uint32("dbnode", dbnode).Send()
	}
	return w.buf.Delete(keyspace.DBDirKeyRange(spcnode, dbnode))
}

// PutRelCreation registers rel as existing and writes its initial size.
// A rel already present in its RelDirectory is a hard duplicate-insert
// error.
func (w *Writer) PutRelCreation(rel keyspace.RelTag, nblocks uint32) error {
	dir, err := w.getRelDirectory(rel.SpcNode, rel.DbNode)
	if err != nil {
		return err
	}
	if !dir.Insert(rel.RelNode, rel.ForkNum) {
		return fmt.Errorf("datadir: rel %s already exists: %w", rel, directory.ErrDuplicateInsert)
	}
	if err := w.putRelDirectory(rel.SpcNode, rel.DbNode, dir); err != nil {
		return err
	}
	return w.buf.Put(keyspace.RelSizeToKey(rel), storagekey.Image(encodeNBlocks(nblocks)))
}

// PutRelTruncation rewrites rel's size key. It does not itself delete
// any now-out-of-range block keys; those are simply no longer reachable
// through GetRelSize's bound.
func (w *Writer) PutRelTruncation(rel keyspace.RelTag, nblocks uint32) error {
	return w.buf.Put(keyspace.RelSizeToKey(rel), storagekey.Image(encodeNBlocks(nblocks)))
}

// PutSlruSegmentCreation registers an SLRU segment as existing and
// writes its initial size. A segment already present is a hard
// duplicate-insert error.
func (w *Writer) PutSlruSegmentCreation(kind keyspace.SlruKind, segno, nblocks uint32) error {
	dir, err := w.getSlruSegmentDirectory(kind)
	if err != nil {
		return err
	}
	if !dir.Insert(segno) {
		return fmt.Errorf("datadir: slru segment %s/%d already exists: %w", kind, segno, directory.ErrDuplicateInsert)
	}
	if err := w.putSlruSegmentDirectory(kind, dir); err != nil {
		return err
	}
	return w.buf.Put(keyspace.SlruSegmentSizeToKey(kind, segno), storagekey.Image(encodeNBlocks(nblocks)))
}

// PutSlruExtend rewrites an SLRU segment's size key.
func (w *Writer) PutSlruExtend(kind keyspace.SlruKind, segno, nblocks uint32) error {
	return w.buf.Put(keyspace.SlruSegmentSizeToKey(kind, segno), storagekey.Image(encodeNBlocks(nblocks)))
}

// PutRelExtend rewrites rel's size key.
func (w *Writer) PutRelExtend(rel keyspace.RelTag, nblocks uint32) error {
	return w.buf.Put(keyspace.RelSizeToKey(rel), storagekey.Image(encodeNBlocks(nblocks)))
}

// PutRelDrop removes rel from its RelDirectory and range-deletes its
// size key and every block. A rel missing from the directory is logged,
// not failed, and the range delete still proceeds. DropSlruSegment and
// DropTwoPhaseFile follow the same warn-then-delete shape.
func (w *Writer) PutRelDrop(rel keyspace.RelTag) error {
	dir, err := w.getRelDirectory(rel.SpcNode, rel.DbNode)
	if err != nil {
		return err
	}
	if dir.Remove(rel.RelNode, rel.ForkNum) {
		if err := w.putRelDirectory(rel.SpcNode, rel.DbNode, dir); err != nil {
			return err
		}
	} else if w.log != nil {
		w.log.Warn("datadir: dropped rel did not exist in rel directory").Str("rel", rel.String()).Send()
	}
	return w.buf.Delete(keyspace.RelKeyRange(rel))
}

// DropRelMapFile is a deliberate no-op, preserved from the source this
// facade was modeled on (TODO there too: it never actually removes the
// relmap file or its DbDirectory entry).
func (w *Writer) DropRelMapFile(spcnode, dbnode uint32) error {
	return nil
}

// DropSlruSegment removes segno from its SlruSegmentDirectory and
// range-deletes its size key and every block. A segment missing from the
// directory is logged, not failed.
func (w *Writer) DropSlruSegment(kind keyspace.SlruKind, segno uint32) error {
	dir, err := w.getSlruSegmentDirectory(kind)
	if err != nil {
		return err
	}
	if !dir.Remove(segno) {
		if w.log != nil {
			w.log.Warn("datadir: dropped slru segment does not exist").
				Str("kind", kind.String()).Uint32("segno", segno).Send()
		}
	}
	if err := w.putSlruSegmentDirectory(kind, dir); err != nil {
		return err
	}
	return w.buf.Delete(keyspace.SlruSegmentKeyRange(kind, segno))
}

// DropTwoPhaseFile removes xid from the TwoPhaseDirectory and
// range-deletes its file key. A xid missing from the directory is
// logged, not failed.
func (w *Writer) DropTwoPhaseFile(xid uint32) error {
	dir, err := w.getTwoPhaseDirectory()
	if err != nil {
		return err
	}
	if !dir.Remove(xid) {
		if w.log != nil {
			w.log.Warn("datadir: dropped twophase file does not exist").Uint32("xid", xid).Send()
		}
	}
	if err := w.putTwoPhaseDirectory(dir); err != nil {
		return err
	}
	return w.buf.Delete(keyspace.TwoPhaseKeyRange(xid))
}

// Finish commits every buffered put and delete at the writer's lsn and
// advances the timeline's last-record lsn. See txbuffer.Buffer.Finish.
func (w *Writer) Finish() error {
	return w.buf.Finish()
}

func (w *Writer) getDbDirectory() (*directory.DbDirectory, error) {
	buf, err := w.buf.Get(keyspace.DBDirKey())
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return directory.DeserializeDbDirectory(buf)
}

func (w *Writer) putDbDirectory(dir *directory.DbDirectory) error {
	return w.buf.Put(keyspace.DBDirKey(), storagekey.Image(dir.Serialize()))
}

func (w *Writer) getRelDirectory(spcnode, dbnode uint32) (*directory.RelDirectory, error) {
	buf, err := w.buf.Get(keyspace.RelDirKey(spcnode, dbnode))
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return directory.DeserializeRelDirectory(buf)
}

func (w *Writer) putRelDirectory(spcnode, dbnode uint32, dir *directory.RelDirectory) error {
	return w.buf.Put(keyspace.RelDirKey(spcnode, dbnode), storagekey.Image(dir.Serialize()))
}

func (w *Writer) getSlruSegmentDirectory(kind keyspace.SlruKind) (*directory.SlruSegmentDirectory, error) {
	buf, err := w.buf.Get(keyspace.SlruDirKey(kind))
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return directory.DeserializeSlruSegmentDirectory(buf)
}

func (w *Writer) putSlruSegmentDirectory(kind keyspace.SlruKind, dir *directory.SlruSegmentDirectory) error {
	return w.buf.Put(keyspace.SlruDirKey(kind), storagekey.Image(dir.Serialize()))
}

func (w *Writer) getTwoPhaseDirectory() (*directory.TwoPhaseDirectory, error) {
	buf, err := w.buf.Get(keyspace.TwoPhaseDirKey())
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return directory.DeserializeTwoPhaseDirectory(buf)
}

func (w *Writer) putTwoPhaseDirectory(dir *directory.TwoPhaseDirectory) error {
	return w.buf.Put(keyspace.TwoPhaseDirKey(), storagekey.Image(dir.Serialize()))
}
