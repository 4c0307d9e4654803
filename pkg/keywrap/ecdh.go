package keywrap

import (
	"crypto/ecdh"
	"crypto/rand"

	"github.com/cloudflare/circl/dh/x448"

	"github.com/josecore/jose/pkg/header"
	"github.com/josecore/jose/pkg/jwa"
	"github.com/josecore/jose/pkg/joseerr"
)

// X448PublicKey and X448PrivateKey represent X448 key agreement key
// material. crypto/ecdh has no X448 curve, so this package (like
// pkg/jwk) carries these raw 56-byte forms from
// github.com/cloudflare/circl/dh/x448 directly.
type X448PublicKey [56]byte
type X448PrivateKey [56]byte

// ecdhAlg implements ECDH-ES (direct key agreement, kwName == "") and
// ECDH-ES+AxxxKW (key agreement with key wrapping).
type ecdhAlg struct {
	name     jwa.Algorithm
	kwName   jwa.Algorithm // "" for direct agreement
	kekBytes int           // unused for direct agreement
}

func (a ecdhAlg) Name() jwa.Algorithm { return a.name }

// epkCurve identifies the curve/kty pair to publish in an "epk" header
// for a given public key type.
type epkCurve struct {
	kty string
	crv string
}

func curveOf(pub any) (ecdh.Curve, epkCurve, bool) {
	nistPub, ok := pub.(*ecdh.PublicKey)
	if !ok {
		return nil, epkCurve{}, false
	}
	switch nistPub.Curve() {
	case ecdh.P256():
		return ecdh.P256(), epkCurve{kty: "EC", crv: "P-256"}, true
	case ecdh.P384():
		return ecdh.P384(), epkCurve{kty: "EC", crv: "P-384"}, true
	case ecdh.P521():
		return ecdh.P521(), epkCurve{kty: "EC", crv: "P-521"}, true
	case ecdh.X25519():
		return ecdh.X25519(), epkCurve{kty: "OKP", crv: "X25519"}, true
	default:
		return nil, epkCurve{}, false
	}
}

// encodeEPK builds the "epk" header value: a JWK-shaped map describing
// the ephemeral public key, per RFC 7518 section 4.6.1.2.
func encodeEPK(pub any) (map[string]any, error) {
	switch k := pub.(type) {
	case *ecdh.PublicKey:
		_, info, ok := curveOf(k)
		if !ok {
			return nil, joseerr.New(joseerr.UnsupportedAlgorithm, "keywrap: unsupported ECDH curve for epk")
		}
		raw := k.Bytes()
		if info.kty == "OKP" {
			return map[string]any{"kty": info.kty, "crv": info.crv, "x": base64urlString(raw)}, nil
		}
		coordLen := len(raw[1:]) / 2
		x := raw[1 : 1+coordLen]
		y := raw[1+coordLen:]
		return map[string]any{"kty": info.kty, "crv": info.crv, "x": base64urlString(x), "y": base64urlString(y)}, nil
	case X448PublicKey:
		return map[string]any{"kty": "OKP", "crv": "X448", "x": base64urlString(k[:])}, nil
	default:
		return nil, joseerr.Newf(joseerr.InvalidKey, "keywrap: unsupported ECDH public key type %T", pub)
	}
}

// decodeEPK parses an "epk" header value back into a public key
// matching the shape of recipientPriv, so the two can be used in the
// same ECDH computation.
func decodeEPK(epk map[string]any, recipientPriv any) (any, error) {
	kty, _ := epk["kty"].(string)
	crv, _ := epk["crv"].(string)
	xStr, _ := epk["x"].(string)
	x, err := base64urlDecode(xStr)
	if err != nil {
		return nil, err
	}

	switch recipientPriv.(type) {
	case X448PrivateKey:
		if kty != "OKP" || crv != "X448" || len(x) != 56 {
			return nil, joseerr.New(joseerr.InvalidKey, "keywrap: epk is not a valid X448 public key")
		}
		var pub X448PublicKey
		copy(pub[:], x)
		return pub, nil
	case *ecdh.PrivateKey:
		var curve ecdh.Curve
		switch crv {
		case "P-256":
			curve = ecdh.P256()
		case "P-384":
			curve = ecdh.P384()
		case "P-521":
			curve = ecdh.P521()
		case "X25519":
			curve = ecdh.X25519()
		default:
			return nil, joseerr.Newf(joseerr.UnsupportedAlgorithm, "keywrap: unsupported epk curve %q", crv)
		}
		var raw []byte
		if crv == "X25519" {
			raw = x
		} else {
			yStr, _ := epk["y"].(string)
			y, err := base64urlDecode(yStr)
			if err != nil {
				return nil, err
			}
			raw = append([]byte{0x04}, append(x, y...)...)
		}
		pub, err := curve.NewPublicKey(raw)
		if err != nil {
			return nil, joseerr.Wrap(joseerr.InvalidKey, "keywrap: invalid epk public key", err)
		}
		return pub, nil
	default:
		return nil, joseerr.Newf(joseerr.InvalidKey, "keywrap: unsupported recipient private key type %T", recipientPriv)
	}
}

func ecdhSharedSecret(priv, pub any) ([]byte, error) {
	switch p := priv.(type) {
	case X448PrivateKey:
		peer, ok := pub.(X448PublicKey)
		if !ok {
			return nil, joseerr.New(joseerr.InvalidKey, "keywrap: ECDH key type mismatch, expected X448 public key")
		}
		// X448 has a small family of known low-order points whose scalar
		// multiplication always yields an all-zero shared secret; reject
		// that output explicitly rather than deriving key material from
		// it (RFC 7748 section 6.2's contributory-behavior check).
		var shared, priv448, pub448 x448.Key
		priv448 = x448.Key(p)
		pub448 = x448.Key(peer)
		x448.Shared(&shared, &priv448, &pub448)
		zero := true
		for _, b := range shared {
			if b != 0 {
				zero = false
				break
			}
		}
		if zero {
			return nil, joseerr.New(joseerr.InvalidKey, "keywrap: ECDH-ES X448 agreement failed (invalid or low-order public key)")
		}
		return shared[:], nil
	case *ecdh.PrivateKey:
		peer, ok := pub.(*ecdh.PublicKey)
		if !ok {
			return nil, joseerr.New(joseerr.InvalidKey, "keywrap: ECDH key type mismatch, expected *ecdh.PublicKey")
		}
		z, err := p.ECDH(peer)
		if err != nil {
			// crypto/ecdh rejects the point-at-infinity and off-curve
			// points for NIST curves at NewPublicKey time; X25519
			// low-order points surface here as an ECDH error.
			return nil, joseerr.Wrap(joseerr.InvalidKey, "keywrap: ECDH agreement failed (invalid public key)", err)
		}
		return z, nil
	default:
		return nil, joseerr.Newf(joseerr.InvalidKey, "keywrap: unsupported ECDH private key type %T", priv)
	}
}

func generateEphemeral(pub any) (priv any, epub any, err error) {
	switch pub.(type) {
	case X448PublicKey:
		var sk, pk x448.Key
		if _, err := rand.Read(sk[:]); err != nil {
			return nil, nil, joseerr.Wrap(joseerr.Unknown, "keywrap: failed to read random bytes", err)
		}
		x448.KeyGen(&pk, &sk)
		return X448PrivateKey(sk), X448PublicKey(pk), nil
	case *ecdh.PublicKey:
		curve, _, ok := curveOf(pub)
		if !ok {
			return nil, nil, joseerr.New(joseerr.UnsupportedAlgorithm, "keywrap: unsupported ECDH curve")
		}
		ephemeral, err := curve.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, joseerr.Wrap(joseerr.Unknown, "keywrap: failed to generate ephemeral ECDH key", err)
		}
		return ephemeral, ephemeral.PublicKey(), nil
	default:
		return nil, nil, joseerr.Newf(joseerr.InvalidKey, "keywrap: unsupported ECDH public key type %T", pub)
	}
}

func (a ecdhAlg) algorithmID() []byte {
	if a.kwName == "" {
		return nil // direct agreement fills this in from ContentEncAlg at call time
	}
	return []byte(a.kwName)
}

func (a ecdhAlg) keyDataLenBytes(cekByteLen int) int {
	if a.kwName == "" {
		return cekByteLen
	}
	return a.kekBytes
}

func optionalPartyInfo(h *header.Parameters, name header.Name) []byte {
	s, err := h.GetString(name)
	if err != nil {
		return nil
	}
	b, err := base64urlDecode(s)
	if err != nil {
		return nil
	}
	return b
}

func (a ecdhAlg) Encrypt(in EncryptInput) (EncryptOutput, error) {
	ephemeralPriv, ephemeralPub, err := generateEphemeral(in.Key)
	if err != nil {
		return EncryptOutput{}, err
	}

	z, err := ecdhSharedSecret(ephemeralPriv, in.Key)
	if err != nil {
		return EncryptOutput{}, err
	}

	epk, err := encodeEPK(ephemeralPub)
	if err != nil {
		return EncryptOutput{}, err
	}
	in.Header.Set(header.EphemeralPublicKey, epk)

	apu := optionalPartyInfo(in.Header, header.AgreementPartyUInfo)
	apv := optionalPartyInfo(in.Header, header.AgreementPartyVInfo)

	algID := a.algorithmID()
	if algID == nil {
		algID = []byte(in.ContentEncAlg)
	}

	derived := concatKDF(z, algID, apu, apv, a.keyDataLenBytes(in.CEKByteLen))

	if a.kwName == "" {
		// Direct key agreement: the derived bytes are the CEK itself.
		return EncryptOutput{CEK: derived, EncryptedKey: []byte{}}, nil
	}

	cek, err := randomBytes(in.CEKByteLen)
	if err != nil {
		return EncryptOutput{}, err
	}
	wrapped, err := aesKeyWrap(derived, cek)
	if err != nil {
		return EncryptOutput{}, err
	}
	return EncryptOutput{CEK: cek, EncryptedKey: wrapped}, nil
}

// ecdhHandle carries the key material ECDH-ES derives entirely from
// the header and the recipient's private key: either the CEK itself
// (direct agreement, kwName == "") or the KEK that still needs to
// unwrap the encrypted key (agreement with key wrapping).
type ecdhHandle struct {
	direct     bool
	cekByteLen int
	derived    []byte
}

func (h ecdhHandle) Unwrap(encryptedKey []byte) ([]byte, error) {
	if h.direct {
		if len(h.derived) != h.cekByteLen {
			return nil, joseerr.Newf(joseerr.IntegrityFailure, "keywrap: derived CEK is %d bytes, want %d", len(h.derived), h.cekByteLen)
		}
		return h.derived, nil
	}
	return aesKeyUnwrap(h.derived, encryptedKey)
}

func (a ecdhAlg) Prepare(in PrepareInput) (Handle, error) {
	epkVal, ok := in.Header.Get(header.EphemeralPublicKey)
	if !ok {
		return nil, joseerr.New(joseerr.MalformedEncoding, "keywrap: missing \"epk\" header parameter")
	}
	epk, ok := epkVal.(map[string]any)
	if !ok {
		return nil, joseerr.New(joseerr.MalformedEncoding, "keywrap: \"epk\" header parameter has the wrong shape")
	}

	peerPub, err := decodeEPK(epk, in.Key)
	if err != nil {
		return nil, err
	}

	z, err := ecdhSharedSecret(in.Key, peerPub)
	if err != nil {
		return nil, err
	}

	apu := optionalPartyInfo(in.Header, header.AgreementPartyUInfo)
	apv := optionalPartyInfo(in.Header, header.AgreementPartyVInfo)

	algID := a.algorithmID()
	if algID == nil {
		algID = []byte(in.ContentEncAlg)
	}

	derived := concatKDF(z, algID, apu, apv, a.keyDataLenBytes(in.CEKByteLen))

	return ecdhHandle{direct: a.kwName == "", cekByteLen: in.CEKByteLen, derived: derived}, nil
}
