// Package asset resolves logical image references to displayable sources by
// probing candidate file extensions and recovering from load failures.
package asset

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultExtensions is the probe priority used when a caller supplies none.
var DefaultExtensions = []string{"png", "svg", "jpg", "jpeg", "webp"}

var (
	ErrEmptyReference     = errors.New("asset: empty reference")
	ErrMalformedReference = errors.New("asset: malformed reference")
)

// Reference is a logical asset reference split into its base path and the
// extension embedded in it, if any.
type Reference struct {
	Raw      string
	Base     string
	Embedded string
}

// ParseReference splits ref at the final "." of its last path segment.
// "/images/icon.svg" yields base "/images/icon" and embedded "svg";
// "/images/icon" has no embedded extension.
func ParseReference(ref string) (Reference, error) {
	raw := strings.TrimSpace(ref)
	if raw == "" {
		return Reference{}, ErrEmptyReference
	}

	slash := strings.LastIndex(raw, "/")
	segment := raw[slash+1:]
	if segment == "" {
		return Reference{}, fmt.Errorf("%w: %q has no file segment", ErrMalformedReference, ref)
	}

	dot := strings.LastIndex(segment, ".")
	if dot < 0 {
		return Reference{Raw: raw, Base: raw}, nil
	}
	if dot == 0 {
		return Reference{}, fmt.Errorf("%w: %q has no base name", ErrMalformedReference, ref)
	}

	ext := segment[dot+1:]
	if !isWord(ext) {
		// "name." or "name.tar-gz": the dot belongs to the base.
		return Reference{Raw: raw, Base: raw}, nil
	}
	return Reference{
		Raw:      raw,
		Base:     raw[:slash+1+dot],
		Embedded: ext,
	}, nil
}

// Order returns the effective probe order for a reference: the embedded
// extension first, then candidates without it, keeping their relative order.
// Duplicates and empty entries are dropped so probing stays bounded.
func Order(embedded string, candidates []string) []string {
	if len(candidates) == 0 && embedded == "" {
		return nil
	}
	seen := make(map[string]struct{}, len(candidates)+1)
	out := make([]string, 0, len(candidates)+1)
	add := func(ext string) {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext == "" {
			return
		}
		if _, ok := seen[ext]; ok {
			return
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	add(embedded)
	for _, ext := range candidates {
		add(ext)
	}
	return out
}

// Location joins a base path and an extension.
func Location(publicURL, base, ext string) string {
	return publicURL + base + "." + ext
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
