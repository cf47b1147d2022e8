package highlight

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// PageKeyPrefix returns the "{pageKey} " prefix of a snippet.
func PageKeyPrefix(key string) string {
	return "{" + key + "} "
}

// StripPageKey splits "{pageKey} text" into the key and the text. prefixLen is
// the length in code points of everything before the text.
func StripPageKey(s string) (key, text string, prefixLen int, err error) {
	end := strings.IndexByte(s, '}')
	if !strings.HasPrefix(s, "{") || end < 0 {
		return "", "", 0, fmt.Errorf("%w: snippet has no page key prefix: %.40q", ErrMalformedPayload, s)
	}
	key = s[1:end]
	if key == "" {
		return "", "", 0, fmt.Errorf("%w: snippet has an empty page key", ErrMalformedPayload)
	}
	text = s[end+1:]
	switch {
	case strings.HasPrefix(text, " "):
		text = text[1:]
	case text != "":
		return "", "", 0, fmt.Errorf("%w: missing space after page key %q", ErrMalformedPayload, key)
	}
	return key, text, utf8.RuneCountInString(PageKeyPrefix(key)), nil
}

// ParseOffsetList parses an engine offset list such as "[12, 40, 77]".
func ParseOffsetList(s string) ([]int64, error) {
	v := strings.TrimSpace(s)
	if len(v) < 2 || v[0] != '[' || v[len(v)-1] != ']' {
		return nil, fmt.Errorf("%w: offset list %q is not bracketed", ErrMalformedPayload, s)
	}
	v = strings.TrimSpace(v[1 : len(v)-1])
	if v == "" {
		return nil, nil
	}
	parts := strings.Split(v, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: offset list %q: %v", ErrMalformedPayload, s, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// Rebase subtracts base from every offset and drops the ones that end up
// negative, which point before the snippet text.
func Rebase(offsets []int64, base int64) []int {
	out := make([]int, 0, len(offsets))
	for _, o := range offsets {
		if v := o - base; v >= 0 {
			out = append(out, int(v))
		}
	}
	return out
}
