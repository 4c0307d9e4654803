package jwt

import (
	"encoding/json"
	"time"

	"github.com/josecore/jose/pkg/compact"
	"github.com/josecore/jose/pkg/header"
	"github.com/josecore/jose/pkg/joseerr"
	"github.com/josecore/jose/pkg/jwa"
	"github.com/josecore/jose/pkg/jwe"
	"github.com/josecore/jose/pkg/jws"
)

// LayerKind identifies whether a Layer is a JWS or a JWE compact object.
type LayerKind int

const (
	LayerJWS LayerKind = iota
	LayerJWE
)

// Layer is one JOSE object along the path from the outermost compact
// string to the innermost claims set. A plain signed JWT has exactly one
// layer; a signed-then-encrypted JWT has two, outer JWE first.
type Layer struct {
	Kind   LayerKind
	Header *header.Parameters

	JWS *jws.Signature // set when Kind == LayerJWS
	JWE *jwe.Message   // set when Kind == LayerJWE

	decrypted []byte // cached plaintext once a LayerJWE has been decrypted
}

// Algorithm returns the layer's "alg" header value.
func (l *Layer) Algorithm() (jwa.Algorithm, error) {
	alg, err := l.Header.Algorithm()
	return jwa.Algorithm(alg), err
}

// KeyResolver resolves the key needed to authenticate the last entry of
// layers (the layer currently being processed), given every layer parsed
// so far, outermost first. Returning a nil key with a nil error is treated
// as UnresolvableKey.
type KeyResolver func(layers []*Layer) (any, error)

// Result is the outcome of successfully processing a compact token: its
// fully verified/decrypted claims set, plus the chain of layers that were
// peeled to reach it.
type Result struct {
	Claims ClaimsSet
	Layers []*Layer
}

// PendingResult is the outcome of ProcessUnverified: as many layers as
// could be parsed without needing a key (i.e. a run of JWS layers, since a
// JWS payload is readable without verifying its signature), stopping at
// the first JWE layer or at a terminal claims-bearing layer. Pass it to
// Verify to complete processing without re-parsing what has already been
// parsed.
type PendingResult struct {
	layers   []*Layer
	consumer *Consumer
}

// Layers returns the layers parsed so far, outermost first.
func (p *PendingResult) Layers() []*Layer {
	return p.layers
}

// asymmetricOnlyKeyMgmt names the JWE key management algorithms that
// provide confidentiality but no authentication of the sender: anyone
// holding the (public) encryption key can produce a valid ciphertext, so
// an encrypted-only token using one of these offers no real integrity
// guarantee about who produced it.
var asymmetricOnlyKeyMgmt = map[jwa.Algorithm]bool{
	jwa.RSA1_5:     true,
	jwa.RSAOAEP:    true,
	jwa.RSAOAEP256: true,
	jwa.ECDHES:     true,
}

// Consumer processes compact-serialized JOSE/JWT strings. Build one with
// NewConsumerBuilder; once built it is immutable and safe to share and
// reuse across goroutines.
type Consumer struct {
	key         any
	keyResolver KeyResolver

	jwsConstraints    *jwa.Constraints
	jweKeyConstraints *jwa.Constraints
	jweEncConstraints *jwa.Constraints

	requireIntegrity         bool
	requireEncryption        bool
	disableRequireSignature  bool
	liberalContentTypeHandling bool

	knownCriticalHeaders []string

	validation validationSettings
}

// ConsumerBuilder accumulates configuration for a Consumer. The zero value
// is not usable; start with NewConsumerBuilder.
type ConsumerBuilder struct {
	c Consumer
}

// NewConsumerBuilder returns a builder with the secure defaults: JWS/JWE
// algorithm constraints block "none", RSA1_5, and PBES2-* respectively,
// the system clock is used for time-based validators, and no structural or
// claim requirements are enabled beyond RFC 7519 parsing itself.
func NewConsumerBuilder() *ConsumerBuilder {
	return &ConsumerBuilder{
		c: Consumer{
			jwsConstraints:    jwa.DefaultJWSConstraints(),
			jweKeyConstraints: jwa.DefaultJWEKeyConstraints(),
			jweEncConstraints: jwa.DefaultJWEEncConstraints(),
			validation:        validationSettings{clock: time.Now},
		},
	}
}

func (b *ConsumerBuilder) WithKey(key any) *ConsumerBuilder {
	b.c.key = key
	return b
}

func (b *ConsumerBuilder) WithKeyResolver(resolver KeyResolver) *ConsumerBuilder {
	b.c.keyResolver = resolver
	return b
}

func (b *ConsumerBuilder) WithJWSConstraints(c *jwa.Constraints) *ConsumerBuilder {
	b.c.jwsConstraints = c
	return b
}

func (b *ConsumerBuilder) WithJWEKeyConstraints(c *jwa.Constraints) *ConsumerBuilder {
	b.c.jweKeyConstraints = c
	return b
}

func (b *ConsumerBuilder) WithJWEEncConstraints(c *jwa.Constraints) *ConsumerBuilder {
	b.c.jweEncConstraints = c
	return b
}

func (b *ConsumerBuilder) WithClock(clock func() time.Time) *ConsumerBuilder {
	b.c.validation.clock = clock
	return b
}

func (b *ConsumerBuilder) WithClockSkew(skew time.Duration) *ConsumerBuilder {
	b.c.validation.skew = skew
	return b
}

func (b *ConsumerBuilder) WithRequireExpiration(require bool) *ConsumerBuilder {
	b.c.validation.requireExpiration = require
	return b
}

// WithMaxFutureExpiration rejects tokens whose "exp" is further than d in
// the future, raising ExpirationTooFarInFuture. d <= 0 disables the check.
func (b *ConsumerBuilder) WithMaxFutureExpiration(d time.Duration) *ConsumerBuilder {
	b.c.validation.maxFutureExpiration = d
	return b
}

func (b *ConsumerBuilder) WithRequireNotBefore(require bool) *ConsumerBuilder {
	b.c.validation.requireNotBefore = require
	return b
}

func (b *ConsumerBuilder) WithRequireIssuedAt(require bool) *ConsumerBuilder {
	b.c.validation.requireIssuedAt = require
	return b
}

// WithIssuedAtWindow bounds how far in the past/future "iat" may be. Either
// bound <= 0 disables that side of the check.
func (b *ConsumerBuilder) WithIssuedAtWindow(maxPast, maxFuture time.Duration) *ConsumerBuilder {
	b.c.validation.maxIssuedAtPast = maxPast
	b.c.validation.maxIssuedAtFuture = maxFuture
	return b
}

func (b *ConsumerBuilder) WithExpectedIssuers(issuers ...string) *ConsumerBuilder {
	b.c.validation.expectedIssuers = issuers
	return b
}

func (b *ConsumerBuilder) WithRequireIssuer(require bool) *ConsumerBuilder {
	b.c.validation.requireIssuer = require
	return b
}

func (b *ConsumerBuilder) WithExpectedAudience(audience ...string) *ConsumerBuilder {
	b.c.validation.expectedAudience = audience
	return b
}

func (b *ConsumerBuilder) WithRequireAudience(require bool) *ConsumerBuilder {
	b.c.validation.requireAudience = require
	return b
}

func (b *ConsumerBuilder) WithExpectedSubject(subject string) *ConsumerBuilder {
	b.c.validation.expectedSubject = subject
	return b
}

func (b *ConsumerBuilder) WithRequireSubject(require bool) *ConsumerBuilder {
	b.c.validation.requireSubject = require
	return b
}

func (b *ConsumerBuilder) WithRequireJTI(require bool) *ConsumerBuilder {
	b.c.validation.requireJTI = require
	return b
}

func (b *ConsumerBuilder) WithExpectedType(typ string) *ConsumerBuilder {
	b.c.validation.expectedType = typ
	return b
}

func (b *ConsumerBuilder) WithRequireType(require bool) *ConsumerBuilder {
	b.c.validation.requireType = require
	return b
}

func (b *ConsumerBuilder) WithValidator(v Validator) *ConsumerBuilder {
	b.c.validation.extra = append(b.c.validation.extra, v)
	return b
}

func (b *ConsumerBuilder) WithRequireIntegrity(require bool) *ConsumerBuilder {
	b.c.requireIntegrity = require
	return b
}

func (b *ConsumerBuilder) WithRequireEncryption(require bool) *ConsumerBuilder {
	b.c.requireEncryption = require
	return b
}

func (b *ConsumerBuilder) WithDisableRequireSignature(disable bool) *ConsumerBuilder {
	b.c.disableRequireSignature = disable
	return b
}

func (b *ConsumerBuilder) WithLiberalContentTypeHandling(enable bool) *ConsumerBuilder {
	b.c.liberalContentTypeHandling = enable
	return b
}

// WithKnownCriticalHeaders extends the set of "crit" header names a
// layer's algorithm need not itself recognize for enforceCritical to
// accept it, per spec section 4.9: a name is permitted either by the
// algorithm's own built-in supported-critical set or by this
// caller-supplied set, whichever layer (JWS or JWE) the header turns
// up on.
func (b *ConsumerBuilder) WithKnownCriticalHeaders(names ...string) *ConsumerBuilder {
	b.c.knownCriticalHeaders = names
	return b
}

// Build finalizes the configuration into an immutable Consumer. The
// builder may continue to be used to derive further, differently
// configured consumers.
func (b *ConsumerBuilder) Build() *Consumer {
	c := b.c
	return &c
}

func (c *Consumer) resolveKey(layers []*Layer) (any, error) {
	// An unsecured ("none") JWS layer takes no key; whether "none" is
	// acceptable at all is decided by the JWS constraints at verification.
	if last := layers[len(layers)-1]; last.Kind == LayerJWS {
		if alg, _ := last.Header.Algorithm(); alg == jwa.None {
			return nil, nil
		}
	}
	if c.keyResolver != nil {
		key, err := c.keyResolver(layers)
		if err != nil {
			return nil, joseerr.Wrap(joseerr.UnresolvableKey, "jwt: key resolver failed", err)
		}
		if key == nil {
			return nil, joseerr.New(joseerr.UnresolvableKey, "jwt: key resolver returned no key")
		}
		return key, nil
	}
	if c.key != nil {
		return c.key, nil
	}
	return nil, joseerr.New(joseerr.UnresolvableKey, "jwt: no key or key resolver configured")
}

// shouldRecurse decides whether payload is itself a nested compact JOSE
// object (per spec section 4.12 step 6): an explicit "cty: JWT" header
// always recurses; with liberal content-type handling enabled, a payload
// that fails to parse as a JSON claims object is also tried as nested.
func (c *Consumer) shouldRecurse(h *header.Parameters, payload []byte) (bool, error) {
	if cty, err := h.GetString(header.ContentType); err == nil {
		if normalizeContentType(cty) == "jwt" {
			return true, nil
		}
		return false, nil
	}

	if !c.liberalContentTypeHandling {
		return false, nil
	}

	var probe map[string]any
	if json.Unmarshal(payload, &probe) != nil {
		return true, nil
	}
	return false, nil
}

// processLayers parses cursor, appending to startLayers. When authenticate
// is true, each JWS signature is verified and each JWE is decrypted as it
// is encountered, using keys from resolveKey; when false, JWS layers are
// followed (a JWS payload is readable before its signature is checked) but
// a JWE layer halts the walk immediately, since its payload is opaque
// without a key.
//
// It returns the full layer chain and, if a terminal (non-recursing) layer
// was reached, that layer's payload bytes.
func (c *Consumer) processLayers(startLayers []*Layer, cursor string, authenticate bool) ([]*Layer, []byte, error) {
	layers := append([]*Layer{}, startLayers...)

	for {
		parts := compact.Split(cursor)

		switch len(parts) {
		case 3:
			sig, err := jws.Parse(cursor)
			if err != nil {
				return layers, nil, joseerr.Wrap(joseerr.MalformedEncoding, "jwt: failed to parse JWS layer", err)
			}
			layer := &Layer{Kind: LayerJWS, Header: sig.Header, JWS: sig}
			layers = append(layers, layer)

			if authenticate {
				key, err := c.resolveKey(layers)
				if err != nil {
					return layers, nil, err
				}
				if err := sig.VerifyWithKnownCritical(key, c.jwsConstraints, c.knownCriticalHeaders); err != nil {
					return layers, nil, joseerr.Wrap(joseerr.SignatureInvalid, "jwt: signature verification failed", err)
				}
			}

			recurse, err := c.shouldRecurse(layer.Header, sig.Payload)
			if err != nil {
				return layers, nil, err
			}
			if recurse {
				cursor = string(sig.Payload)
				continue
			}
			return layers, sig.Payload, nil

		case 5:
			msg, err := jwe.Parse(cursor)
			if err != nil {
				return layers, nil, joseerr.Wrap(joseerr.MalformedEncoding, "jwt: failed to parse JWE layer", err)
			}
			layer := &Layer{Kind: LayerJWE, Header: msg.Header, JWE: msg}
			layers = append(layers, layer)

			if !authenticate {
				return layers, nil, nil
			}

			key, err := c.resolveKey(layers)
			if err != nil {
				return layers, nil, err
			}
			payload, err := msg.Decrypt(key, &jwe.DecryptOptions{
				KeyConstraints:       c.jweKeyConstraints,
				ContentConstraints:   c.jweEncConstraints,
				KnownCriticalHeaders: c.knownCriticalHeaders,
			})
			if err != nil {
				return layers, nil, joseerr.Wrap(joseerr.IntegrityFailure, "jwt: decryption failed", err)
			}
			layer.decrypted = payload

			recurse, err := c.shouldRecurse(layer.Header, payload)
			if err != nil {
				return layers, nil, err
			}
			if recurse {
				cursor = string(payload)
				continue
			}
			return layers, payload, nil

		default:
			return layers, nil, joseerr.Newf(joseerr.MalformedEncoding, "jwt: token has %d compact-serialization parts, expected 3 (JWS) or 5 (JWE)", len(parts))
		}
	}
}

// checkStructure enforces spec section 4.12 step 8's structural
// requirements over the fully resolved layer chain.
func (c *Consumer) checkStructure(layers []*Layer) error {
	var hasSignature, hasEncryption, hasAsymmetricOnlyEncryption bool

	for _, l := range layers {
		switch l.Kind {
		case LayerJWS:
			if alg, _ := l.Algorithm(); alg != jwa.None {
				hasSignature = true
			}
		case LayerJWE:
			hasEncryption = true
			if alg, _ := l.Algorithm(); asymmetricOnlyKeyMgmt[alg] {
				hasAsymmetricOnlyEncryption = true
			}
		}
	}

	if c.requireEncryption && !hasEncryption {
		return joseerr.New(joseerr.IntegrityMissing, "jwt: token was not encrypted")
	}
	if c.requireIntegrity && hasAsymmetricOnlyEncryption && !hasSignature {
		return joseerr.New(joseerr.IntegrityMissing, "jwt: purely asymmetric-encryption-only token provides no sender authentication")
	}
	if !c.disableRequireSignature && !hasSignature && !hasEncryption {
		return joseerr.New(joseerr.SignatureMissing, "jwt: token has neither a signature nor integrity-providing encryption")
	}
	return nil
}

func outermostType(layers []*Layer) string {
	if len(layers) == 0 {
		return ""
	}
	typ, _ := layers[0].Header.GetString(header.Type)
	return typ
}

func (c *Consumer) finish(layers []*Layer, payload []byte) (*Result, error) {
	if err := c.checkStructure(layers); err != nil {
		return nil, err
	}

	var claims ClaimsSet
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, joseerr.Wrap(joseerr.MalformedClaim, "jwt: failed to parse claims set", err)
	}

	if err := c.validation.runValidators(claims, outermostType(layers)); err != nil {
		return nil, err
	}

	return &Result{Claims: claims, Layers: layers}, nil
}

// Process fully parses, authenticates, and validates a compact JOSE/JWT
// string in one pass, per spec section 4.12.
func (c *Consumer) Process(compactToken string) (*Result, error) {
	if compactToken == "" {
		return nil, joseerr.New(joseerr.MalformedEncoding, "jwt: empty token")
	}
	layers, payload, err := c.processLayers(nil, compactToken, true)
	if err != nil {
		return nil, err
	}
	return c.finish(layers, payload)
}

// ProcessUnverified performs the first pass of two-pass processing: it
// parses as far as it can without needing a key (following JWS layers,
// since their payload is readable before verification) and stops at the
// first JWE layer it meets, or at a terminal claims-bearing layer if the
// whole chain turned out to be JWS-only. None of the parsed layers are
// authenticated yet.
func (c *Consumer) ProcessUnverified(compactToken string) (*PendingResult, error) {
	if compactToken == "" {
		return nil, joseerr.New(joseerr.MalformedEncoding, "jwt: empty token")
	}
	layers, _, err := c.processLayers(nil, compactToken, false)
	if err != nil {
		return nil, err
	}
	return &PendingResult{layers: layers, consumer: c}, nil
}

// Verify performs the second pass: it authenticates every layer collected
// by ProcessUnverified (verifying JWS signatures, decrypting any boundary
// JWE layer), continues parsing past a newly decrypted JWE if needed, and
// finishes with the usual structural and claim validation. Already-parsed
// layers are never re-parsed.
func (c *Consumer) Verify(p *PendingResult) (*Result, error) {
	layers := p.layers
	if len(layers) == 0 {
		return nil, ErrNoClaimSet
	}

	for i, l := range layers {
		key, err := c.resolveKey(layers[:i+1])
		if err != nil {
			return nil, err
		}
		switch l.Kind {
		case LayerJWS:
			if err := l.JWS.VerifyWithKnownCritical(key, c.jwsConstraints, c.knownCriticalHeaders); err != nil {
				return nil, joseerr.Wrap(joseerr.SignatureInvalid, "jwt: signature verification failed", err)
			}
		case LayerJWE:
			payload, err := l.JWE.Decrypt(key, &jwe.DecryptOptions{
				KeyConstraints:       c.jweKeyConstraints,
				ContentConstraints:   c.jweEncConstraints,
				KnownCriticalHeaders: c.knownCriticalHeaders,
			})
			if err != nil {
				return nil, joseerr.Wrap(joseerr.IntegrityFailure, "jwt: decryption failed", err)
			}
			l.decrypted = payload
		}
	}

	last := layers[len(layers)-1]
	var payload []byte
	if last.Kind == LayerJWS {
		payload = last.JWS.Payload
	} else {
		payload = last.decrypted
	}

	recurse, err := c.shouldRecurse(last.Header, payload)
	if err != nil {
		return nil, err
	}
	if recurse {
		moreLayers, finalPayload, err := c.processLayers(layers, string(payload), true)
		if err != nil {
			return nil, err
		}
		return c.finish(moreLayers, finalPayload)
	}

	return c.finish(layers, payload)
}
