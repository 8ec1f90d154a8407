package imagelayer

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/nainya/pageserver/pkg/storagekey"
)

// FormatFilename builds the on-disk name of an image layer file:
// "<key start>-<key end>__<lsn>", with the key range rendered as the
// fixed-width 36-character hex form used by storagekey.Key.String and
// the LSN as 16 hex digits.
func FormatFilename(keyRange storagekey.Range, lsn uint64) string {
	var lsnBytes [8]byte
	binary.BigEndian.PutUint64(lsnBytes[:], lsn)
	return fmt.Sprintf("%s-%s__%s",
		keyRange.Start.String(),
		keyRange.End.String(),
		strings.ToUpper(hex.EncodeToString(lsnBytes[:])))
}

// ParseFilename recovers the key range and LSN a layer filename encodes.
func ParseFilename(name string) (storagekey.Range, uint64, error) {
	dash := strings.IndexByte(name, '-')
	sep := strings.Index(name, "__")
	if dash < 0 || sep < 0 || sep < dash {
		return storagekey.Range{}, 0, fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	startHex := name[:dash]
	endHex := name[dash+1 : sep]
	lsnHex := name[sep+2:]

	start, err := keyFromHex(startHex)
	if err != nil {
		return storagekey.Range{}, 0, fmt.Errorf("%w: bad key start in %q: %v", ErrInvalidFilename, name, err)
	}
	end, err := keyFromHex(endHex)
	if err != nil {
		return storagekey.Range{}, 0, fmt.Errorf("%w: bad key end in %q: %v", ErrInvalidFilename, name, err)
	}
	lsnBytes, err := hex.DecodeString(lsnHex)
	if err != nil || len(lsnBytes) != 8 {
		return storagekey.Range{}, 0, fmt.Errorf("%w: bad lsn in %q", ErrInvalidFilename, name)
	}
	lsn := binary.BigEndian.Uint64(lsnBytes)
	return storagekey.Range{Start: start, End: end}, lsn, nil
}

func keyFromHex(s string) (storagekey.Key, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != storagekey.EncodedLen {
		return storagekey.Key{}, fmt.Errorf("expected %d hex bytes, got %q", storagekey.EncodedLen, s)
	}
	var arr [storagekey.EncodedLen]byte
	copy(arr[:], b)
	return storagekey.FromBytes(arr), nil
}
