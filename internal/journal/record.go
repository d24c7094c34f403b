package journal

import (
	"encoding/binary"
	"hash/crc32"
)

// Record encoding: varint bodyLen | body | crc32c(body)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func encodeRecord(body []byte) []byte {
	out := make([]byte, 0, 10+len(body)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(body)))
	out = append(out, tmp[:n]...)
	out = append(out, body...)

	crc := crc32.Update(0, castagnoli, body)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	out = append(out, crcb[:]...)
	return out
}

func decodeRecord(b []byte) ([]byte, bool) {
	if len(b) < 1+4 {
		return nil, false
	}
	blen, n := binary.Uvarint(b)
	if n <= 0 {
		return nil, false
	}
	if int(n)+int(blen)+4 > len(b) {
		return nil, false
	}
	body := b[n : n+int(blen)]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	if crc32.Update(0, castagnoli, body) != expect {
		return nil, false
	}
	return append([]byte(nil), body...), true
}
