package keywrap

import (
	"crypto/sha256"
	"encoding/binary"
)

// concatKDF implements the Concat KDF of NIST SP 800-56A section
// 5.8.1, as RFC 7518 section 4.6.2 requires for ECDH-ES key agreement:
// repeated rounds of SHA-256(counter || Z || OtherInfo) concatenated
// until keyDataLenBytes are available, then truncated.
//
// OtherInfo = AlgorithmID || PartyUInfo || PartyVInfo || SuppPubInfo,
// each of the first three prefixed with its own 32-bit big-endian
// length, and SuppPubInfo being the big-endian bit length of the
// derived key.
func concatKDF(z []byte, algorithmID, apu, apv []byte, keyDataLenBytes int) []byte {
	otherInfo := make([]byte, 0, 4+len(algorithmID)+4+len(apu)+4+len(apv)+4)
	otherInfo = appendLenPrefixed(otherInfo, algorithmID)
	otherInfo = appendLenPrefixed(otherInfo, apu)
	otherInfo = appendLenPrefixed(otherInfo, apv)

	suppPubInfo := make([]byte, 4)
	binary.BigEndian.PutUint32(suppPubInfo, uint32(keyDataLenBytes)*8)
	otherInfo = append(otherInfo, suppPubInfo...)

	out := make([]byte, 0, keyDataLenBytes)
	for counter := uint32(1); len(out) < keyDataLenBytes; counter++ {
		h := sha256.New()
		var cb [4]byte
		binary.BigEndian.PutUint32(cb[:], counter)
		h.Write(cb[:])
		h.Write(z)
		h.Write(otherInfo)
		out = append(out, h.Sum(nil)...)
	}
	return out[:keyDataLenBytes]
}

func appendLenPrefixed(dst, src []byte) []byte {
	var lb [4]byte
	binary.BigEndian.PutUint32(lb[:], uint32(len(src)))
	dst = append(dst, lb[:]...)
	dst = append(dst, src...)
	return dst
}
