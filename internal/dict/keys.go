package dict

import "encoding/binary"

// Badger has no column families, so the three logical tables of spec §4.4
// (str2id, id2str, and meta, which holds one counter per tag) are emulated with a
// one-byte key prefix, the same trick the teacher uses for its bucket
// layout, collapsed to a single keyspace. Grounded on boutros/sopp's
// u32tob/btou32 helpers, widened to 8 bytes for the 64-bit IDs spec §3.1
// requires.
const (
	prefixStr2ID byte = 0x10
	prefixID2Str byte = 0x11
	prefixMeta   byte = 0x12
)

func str2idKey(encodedTerm []byte) []byte {
	k := make([]byte, 1+len(encodedTerm))
	k[0] = prefixStr2ID
	copy(k[1:], encodedTerm)
	return k
}

func id2strKey(id uint64) []byte {
	k := make([]byte, 9)
	k[0] = prefixID2Str
	binary.BigEndian.PutUint64(k[1:], id)
	return k
}

func metaKey(name string) []byte {
	k := make([]byte, 1+len(name))
	k[0] = prefixMeta
	copy(k[1:], name)
	return k
}

func encodeBE64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeBE64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
