package resolver

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

const (
	maxPackedPayloads = 8
	packedAlphabet    = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var (
	packedPayloadRe = regexp.MustCompile(`(?s)eval\(function\(p,a,c,k,e,[dr]\)\{.*?\}\((.*?)\.split\(['"]\|['"]\)`)
	packedArgsRe    = regexp.MustCompile(`(?s)^\s*['"](.*)['"]\s*,\s*(\d+)\s*,\s*(\d+)\s*,\s*['"](.*?)['"]\s*$`)
	packedWordRe    = regexp.MustCompile(`\b\w+\b`)
)

// packedStrategy searches packer-obfuscated inline scripts for a media URL.
// The payload is treated as text only: the dictionary substitution the
// packer would perform is replayed with string replacement, nothing runs.
type packedStrategy struct {
	url *regexp.Regexp
}

func newPackedStrategy(videoExt string) *packedStrategy {
	return &packedStrategy{
		url: regexp.MustCompile(`(?i)https?:[\\/]+[^"'\s\\]+(?:\\/[^"'\s\\]+)*\.(?:` + videoExt + `)(?:\?[^"'\s]*)?`),
	}
}

func (s *packedStrategy) Name() string { return "packed_script" }

func (s *packedStrategy) Extract(_ context.Context, page *Page) (string, bool) {
	payloads := packedPayloadRe.FindAllStringSubmatch(page.Body, maxPackedPayloads)
	for _, m := range payloads {
		if u := s.url.FindString(m[0]); u != "" {
			return u, true
		}
		if unpacked, ok := unpack(m[1]); ok {
			if u := s.url.FindString(unpacked); u != "" {
				return u, true
			}
		}
	}
	return "", false
}

// unpack replays the packer's word substitution over its argument list.
func unpack(args string) (string, bool) {
	m := packedArgsRe.FindStringSubmatch(args)
	if m == nil {
		return "", false
	}
	payload := strings.ReplaceAll(m[1], `\'`, `'`)
	base, err := strconv.Atoi(m[2])
	if err != nil || base < 2 || base > len(packedAlphabet) {
		return "", false
	}
	words := strings.Split(m[4], "|")

	return packedWordRe.ReplaceAllStringFunc(payload, func(w string) string {
		n, ok := decodeBase(w, base)
		if !ok || n >= len(words) || words[n] == "" {
			return w
		}
		return words[n]
	}), true
}

func decodeBase(word string, base int) (int, bool) {
	n := 0
	for i := 0; i < len(word); i++ {
		d := strings.IndexByte(packedAlphabet[:base], word[i])
		if d < 0 {
			return 0, false
		}
		n = n*base + d
		if n > 1<<20 {
			return 0, false
		}
	}
	return n, true
}
