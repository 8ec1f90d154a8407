// Package imagelayer implements the immutable, chapter-structured image
// layer file: a self-describing on-disk container mapping every key live
// in a contiguous key range, as of one LSN, to a byte offset in a blob
// stream. A Writer builds a file once; a Reader lazily loads and serves
// it afterward.
//
// No on-disk container library in the reference corpus implements this
// exact chapter/trailer layout, so the format is hand-rolled here on
// encoding/binary: a VALUES chapter of length-prefixed blobs, an INDEX
// chapter mapping Key to VALUES offset, a SUMMARY chapter describing the
// file's identity, and a trailer directory of (chapter id, offset,
// length) triples, with an 8-byte footer at the very end of the file
// pointing back to the trailer's offset so a reader can find it with a
// single seek-to-end.
package imagelayer

import (
	"encoding/binary"
	"fmt"

	"github.com/nainya/pageserver/pkg/storagekey"
)

// Magic is the four-byte big-endian constant identifying an image layer
// file.
const Magic uint32 = 0x5A616E02

// Chapter IDs, matching the constants named in the external interface.
const (
	ChapterIndex   uint64 = 1
	ChapterValues  uint64 = 2
	ChapterSummary uint64 = 3
)

const (
	magicLen    = 4
	footerLen   = 8
	trailerHdr  = 4 // chapter count
	trailerItem = 24 // id(8) + offset(8) + length(8)
)

// trailerEntry locates one chapter within the file.
type trailerEntry struct {
	ID     uint64
	Offset uint64
	Length uint64
}

func encodeTrailer(entries []trailerEntry) []byte {
	buf := make([]byte, trailerHdr, trailerHdr+len(entries)*trailerItem)
	binary.BigEndian.PutUint32(buf, uint32(len(entries)))
	for _, e := range entries {
		var item [trailerItem]byte
		binary.BigEndian.PutUint64(item[0:8], e.ID)
		binary.BigEndian.PutUint64(item[8:16], e.Offset)
		binary.BigEndian.PutUint64(item[16:24], e.Length)
		buf = append(buf, item[:]...)
	}
	return buf
}

func decodeTrailer(buf []byte) ([]trailerEntry, error) {
	if len(buf) < trailerHdr {
		return nil, fmt.Errorf("%w: trailer too short", ErrCorruptLayer)
	}
	count := binary.BigEndian.Uint32(buf[:trailerHdr])
	entries := make([]trailerEntry, 0, count)
	off := trailerHdr
	for i := uint32(0); i < count; i++ {
		if off+trailerItem > len(buf) {
			return nil, fmt.Errorf("%w: trailer truncated", ErrCorruptLayer)
		}
		entries = append(entries, trailerEntry{
			ID:     binary.BigEndian.Uint64(buf[off : off+8]),
			Offset: binary.BigEndian.Uint64(buf[off+8 : off+16]),
			Length: binary.BigEndian.Uint64(buf[off+16 : off+24]),
		})
		off += trailerItem
	}
	return entries, nil
}

func chapterByID(entries []trailerEntry, id uint64) (trailerEntry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return trailerEntry{}, false
}

// encodeBlob writes a length-prefixed blob and returns its encoded form.
func encodeBlob(payload []byte) []byte {
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(payload)))
	copy(buf[4:], payload)
	return buf
}

// decodeBlobAt reads a length-prefixed blob starting at offset within
// data (a VALUES chapter byte range).
func decodeBlobAt(data []byte, offset uint64) ([]byte, error) {
	if offset+4 > uint64(len(data)) {
		return nil, fmt.Errorf("%w: blob header out of range at offset %d", ErrCorruptLayer, offset)
	}
	length := binary.BigEndian.Uint32(data[offset : offset+4])
	start := offset + 4
	end := start + uint64(length)
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("%w: blob payload out of range at offset %d", ErrCorruptLayer, offset)
	}
	blob := make([]byte, length)
	copy(blob, data[start:end])
	return blob, nil
}

// encodeIndex serializes the key -> VALUES-chapter-offset map in the
// given key order (insertion order at write time; the index itself is
// unordered for lookup purposes).
func encodeIndex(keys []storagekey.Key, offsets map[storagekey.Key]uint64) []byte {
	buf := make([]byte, 4, 4+len(keys)*(storagekey.EncodedLen+8))
	binary.BigEndian.PutUint32(buf, uint32(len(keys)))
	for _, k := range keys {
		kb := k.Bytes()
		buf = append(buf, kb[:]...)
		var off [8]byte
		binary.BigEndian.PutUint64(off[:], offsets[k])
		buf = append(buf, off[:]...)
	}
	return buf
}

func decodeIndex(buf []byte) (map[storagekey.Key]uint64, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("%w: index too short", ErrCorruptLayer)
	}
	count := binary.BigEndian.Uint32(buf[:4])
	index := make(map[storagekey.Key]uint64, count)
	off := 4
	entryLen := storagekey.EncodedLen + 8
	for i := uint32(0); i < count; i++ {
		if off+entryLen > len(buf) {
			return nil, fmt.Errorf("%w: index truncated", ErrCorruptLayer)
		}
		var kb [storagekey.EncodedLen]byte
		copy(kb[:], buf[off:off+storagekey.EncodedLen])
		key := storagekey.FromBytes(kb)
		offset := binary.BigEndian.Uint64(buf[off+storagekey.EncodedLen : off+entryLen])
		index[key] = offset
		off += entryLen
	}
	return index, nil
}
