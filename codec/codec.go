// Package codec provides the pluggable body encoders and decoders used by the
// router, and the media-type negotiation that selects them.
package codec

import (
	"errors"
	"fmt"
	"mime"
	"strings"
	"sync"
)

// ErrNoCodec is returned when no registered codec serves a media type.
var ErrNoCodec = errors.New("codec: no codec for media type")

// Codec encodes and decodes bodies of one family of media types.
type Codec interface {
	// MediaType returns the canonical media type, e.g. "application/json".
	MediaType() string

	// Decode decodes data into v. It reports present=false, without touching
	// v, when data is the codec's null literal or empty.
	Decode(data []byte, v any) (present bool, err error)

	// Encode encodes v.
	Encode(v any) ([]byte, error)
}

// Registry maps media types to codecs. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
	order  []string
}

// NewRegistry returns a registry holding codecs.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{codecs: make(map[string]Codec)}
	for _, c := range codecs {
		r.Register(c)
	}
	return r
}

// Default returns a registry with the JSON and YAML codecs.
func Default() *Registry {
	return NewRegistry(JSON(), YAML())
}

// Register adds c under its media type, replacing a previous codec.
func (r *Registry) Register(c Codec) {
	r.RegisterAs(c.MediaType(), c)
}

// RegisterAs adds c under an additional media type, e.g. a vendor type
// such as "application/vnd.acme+json".
func (r *Registry) RegisterAs(mediaType string, c Codec) {
	key := normalize(mediaType)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.codecs[key]; !exists {
		r.order = append(r.order, key)
	}
	r.codecs[key] = c
}

// Lookup returns the codec for mediaType. Parameters such as charset are
// ignored.
func (r *Registry) Lookup(mediaType string) (Codec, bool) {
	if r == nil {
		return nil, false
	}
	key := normalize(mediaType)
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[key]
	return c, ok
}

// MediaTypes returns the registered media types in registration order.
func (r *Registry) MediaTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Supports reports whether at least one of declared has a codec, returning
// the first such media type.
func (r *Registry) Supports(declared []string) (string, bool) {
	for _, mt := range declared {
		if _, ok := r.Lookup(mt); ok {
			return normalize(mt), true
		}
	}
	return "", false
}

// Negotiate selects the codec for a request body. An empty contentType
// selects the first declared media type with a codec. A non-empty
// contentType must match one of declared and have a codec.
func (r *Registry) Negotiate(contentType string, declared []string) (Codec, error) {
	if strings.TrimSpace(contentType) == "" {
		mt, ok := r.Supports(declared)
		if !ok {
			return nil, fmt.Errorf("%w: none of %v", ErrNoCodec, declared)
		}
		c, _ := r.Lookup(mt)
		return c, nil
	}

	want := normalize(contentType)
	for _, mt := range declared {
		if normalize(mt) != want {
			continue
		}
		if c, ok := r.Lookup(want); ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q not in %v", ErrNoCodec, want, declared)
}

// Accept selects the codec for a response body from an Accept header value.
// Entries are tried in the order given, "*/*" and an empty header select the
// first declared media type with a codec; q-values are not weighed.
func (r *Registry) Accept(accept string, declared []string) (Codec, error) {
	for _, entry := range strings.Split(accept, ",") {
		want := normalize(entry)
		if want == "" || want == "*/*" {
			break
		}
		for _, mt := range declared {
			if normalize(mt) != want {
				continue
			}
			if c, ok := r.Lookup(want); ok {
				return c, nil
			}
		}
	}
	return r.Negotiate("", declared)
}

func normalize(mediaType string) string {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		base, _, _ := strings.Cut(mediaType, ";")
		return strings.ToLower(strings.TrimSpace(base))
	}
	return mt
}
