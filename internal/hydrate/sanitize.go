package hydrate

import (
	"net/url"
	"strings"

	"github.com/strrl/chat-history/pkg/models"
)

// ThumbnailFunc derives a thumbnail URL for a stored asset.
type ThumbnailFunc func(kind, file string) string

// DefaultThumbnail mirrors the host's /thumbnail endpoint.
func DefaultThumbnail(kind, file string) string {
	return "/thumbnail?type=" + url.QueryEscape(kind) + "&file=" + url.QueryEscape(file)
}

// BuildPreview turns a background reference into a renderable preview, or
// nil when the reference is empty or unsafe.
func BuildPreview(ref, source string, thumb ThumbnailFunc) *models.PreviewEntry {
	raw := unwrapCSSURL(ref)
	if raw == "" {
		return nil
	}
	if thumb == nil {
		thumb = DefaultThumbnail
	}

	if file, ok := localBackgroundFile(raw); ok {
		preview := thumb("bg", file)
		return &models.PreviewEntry{
			CSSImage:    cssURL(preview),
			PreviewURL:  preview,
			OriginalURL: "backgrounds/" + url.PathEscape(file),
			Source:      source,
		}
	}

	safe, ok := SanitizeURL(raw)
	if !ok {
		return nil
	}
	return &models.PreviewEntry{
		CSSImage:    cssURL(safe),
		PreviewURL:  safe,
		OriginalURL: safe,
		Source:      source,
	}
}

// SanitizeURL accepts absolute http(s) and blob URLs and image data URIs.
// Everything else, javascript: in particular, is rejected.
func SanitizeURL(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	// browsers drop control characters and whitespace inside a scheme, so
	// the scheme is judged on a stripped copy
	cleaned := strings.Map(func(r rune) rune {
		if r <= 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, value)
	if cleaned == "" {
		return "", false
	}

	colon := strings.IndexByte(cleaned, ':')
	if colon <= 0 {
		return "", false
	}
	scheme := strings.ToLower(cleaned[:colon])

	switch scheme {
	case "http", "https":
		u, err := url.Parse(value)
		if err != nil || u.Host == "" {
			return "", false
		}
		return u.String(), true
	case "blob":
		if len(cleaned) == len("blob:") {
			return "", false
		}
		return value, true
	case "data":
		if !strings.HasPrefix(strings.ToLower(cleaned), "data:image/") {
			return "", false
		}
		return value, true
	default:
		return "", false
	}
}

// unwrapCSSURL strips a url("...") wrapper as stored by the host.
func unwrapCSSURL(ref string) string {
	s := strings.TrimSpace(ref)
	if len(s) > 5 && strings.EqualFold(s[:4], "url(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[4 : len(s)-1])
	}
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	return strings.TrimSpace(s)
}

// localBackgroundFile reports the decoded file name when raw points at the
// host's own backgrounds folder: a bare file name or backgrounds/<file>.
func localBackgroundFile(raw string) (string, bool) {
	if strings.Contains(raw, ":") || strings.HasPrefix(raw, "//") {
		return "", false
	}
	p := strings.TrimPrefix(raw, "/")
	if len(p) >= len("backgrounds/") && strings.EqualFold(p[:len("backgrounds/")], "backgrounds/") {
		p = p[len("backgrounds/"):]
	}
	if p == "" || strings.ContainsAny(p, "/\\?#") {
		return "", false
	}
	file, err := url.PathUnescape(p)
	if err != nil || file == "" || file == "." || file == ".." || strings.ContainsAny(file, "/\\") {
		return "", false
	}
	return file, true
}

func cssURL(u string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", "", "\r", "")
	return `url("` + r.Replace(u) + `")`
}
