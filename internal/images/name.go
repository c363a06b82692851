package images

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/dgallion1/qbank/internal/parser"
	"github.com/dgallion1/qbank/internal/record"
)

var unsafeNameRe = regexp.MustCompile(`[^0-9A-Za-z._-]`)

// SanitizeFilename restricts name to [0-9A-Za-z._-], replacing anything else with '_'.
func SanitizeFilename(name string) string {
	name = unsafeNameRe.ReplaceAllString(name, "_")
	name = strings.Trim(name, ".")
	if len(name) > 120 {
		name = name[len(name)-120:]
	}
	return name
}

// FileName derives the local filename for an image source. Remote addresses use
// the last path segment; embedded data and addresses without one get a name
// derived from a hash of the source, so the same source always maps to the same file.
func FileName(src string) string {
	src = strings.TrimSpace(src)
	if isDataURI(src) {
		header, _, _ := strings.Cut(src[len("data:"):], ",")
		return hashedName(src, extensionFor(header))
	}
	if u, err := url.Parse(src); err == nil {
		p := u.Path
		if unescaped, err := url.PathUnescape(p); err == nil {
			p = unescaped
		}
		if base := path.Base(p); base != "" && base != "/" && base != "." {
			if name := SanitizeFilename(base); name != "" {
				return name
			}
		}
	}
	return hashedName(src, defaultExt)
}

func hashedName(src, ext string) string {
	sum := sha256.Sum256([]byte(src))
	return "img_" + hex.EncodeToString(sum[:])[:16] + "." + ext
}

// RecordSources returns the image sources of a record in placeholder order:
// question, then options, then explanation. Records without raw fields fall
// back to the stored image paths.
func RecordSources(q *record.Question) []string {
	if q.QuestionRaw == "" && q.OptionsRaw == "" && q.ExplanationRaw == "" {
		return append([]string(nil), q.Images...)
	}
	var srcs []string
	for _, raw := range []string{q.QuestionRaw, q.OptionsRaw, q.ExplanationRaw} {
		srcs = append(srcs, parser.ImageSources(raw)...)
	}
	return srcs
}
