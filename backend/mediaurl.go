package backend

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charlievieth/strcase"
)

// MediaURL is a resolved resource locator for a track or artwork.
// It is immutable once built.
type MediaURL struct {
	Value   *url.URL
	IsLocal bool
	Headers map[string]string

	raw    any
	source string
}

// ParseMediaURL builds a MediaURL from a loose string or a keyed
// {uri, headers} object. A nil or empty value has no locator and
// returns (nil, nil).
func ParseMediaURL(object any) (*MediaURL, error) {
	var (
		uri     string
		headers map[string]string
	)
	switch v := object.(type) {
	case nil:
		return nil, nil
	case string:
		uri = v
	case *ImageSource:
		if v == nil {
			return nil, nil
		}
		return ParseMediaURL(*v)
	case ImageSource:
		if !v.Keyed {
			uri = v.URI
			break
		}
		if v.URI == "" {
			return nil, ErrMissingURI
		}
		uri, headers = v.URI, v.Headers
	case map[string]any:
		u, ok := v["uri"].(string)
		if !ok || u == "" {
			return nil, ErrMissingURI
		}
		uri = u
		if h, ok := v["headers"]; ok && h != nil {
			hm, err := stringMap(h)
			if err != nil {
				return nil, fmt.Errorf("%w: headers: %s", ErrInvalidMediaURL, err.Error())
			}
			headers = hm
		}
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrInvalidMediaURL, object)
	}
	if uri == "" {
		return nil, nil
	}

	m := &MediaURL{
		IsLocal: !strcase.Contains(uri, "http"),
		Headers: headers,
		raw:     object,
		source:  uri,
	}
	encoded := strings.TrimPrefix(looseEncode(uri), "file://")
	if m.IsLocal {
		path, err := url.PathUnescape(encoded)
		if err != nil {
			path = encoded
		}
		m.Value = &url.URL{Scheme: "file", Path: path}
		return m, nil
	}
	val, err := url.Parse(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMediaURL, err.Error())
	}
	m.Value = val
	return m, nil
}

func (m *MediaURL) String() string {
	if m == nil || m.Value == nil {
		return ""
	}
	return m.Value.String()
}

// Path is the filesystem path of a local value.
func (m *MediaURL) Path() string {
	if m == nil || m.Value == nil {
		return ""
	}
	return m.Value.Path
}

// Source is the address as supplied, before encoding.
func (m *MediaURL) Source() string {
	if m == nil {
		return ""
	}
	return m.source
}

// Object returns the raw value the MediaURL was built from.
func (m *MediaURL) Object() any {
	if m == nil {
		return nil
	}
	return m.raw
}

// looseEncode percent-encodes bytes that are never legal in a URL.
// Reserved characters and existing % escapes pass through unchanged.
func looseEncode(s string) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if urlSafe(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0f])
	}
	return sb.String()
}

func urlSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-._~:/?#[]@!$&'()*+,;=%", c) >= 0
}

func stringMap(v any) (map[string]string, error) {
	switch m := v.(type) {
	case map[string]string:
		return m, nil
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, val := range m {
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("value for %q is %T, not string", k, val)
			}
			out[k] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected object, got %T", v)
}
