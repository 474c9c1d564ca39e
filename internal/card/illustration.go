package card

import (
	"errors"
	"net/url"
	"strings"
)

type IllustrationKind int

const (
	IllustrationNone IllustrationKind = iota
	IllustrationImage
	IllustrationHosted
)

var ErrInvalidIllustration = errors.New("illustration must be an http(s) link")

type Illustration struct {
	Kind IllustrationKind
	URL  string
}

// ParseIllustration classifies a card illustration link. Direct image files
// are rendered inline, anything else on http(s) is linked out.
func ParseIllustration(link *string) (Illustration, error) {
	if link == nil || strings.TrimSpace(*link) == "" {
		return Illustration{Kind: IllustrationNone}, nil
	}

	l := strings.TrimSpace(*link)
	u, err := url.Parse(l)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Illustration{}, ErrInvalidIllustration
	}

	// Imgur page links have a direct image counterpart
	if u.Host == "imgur.com" && strings.Count(u.Path, "/") == 1 {
		return Illustration{Kind: IllustrationImage, URL: "https://i.imgur.com" + u.Path + ".png"}, nil
	}

	lower := strings.ToLower(u.Path)
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".webp", ".gif"} {
		if strings.HasSuffix(lower, ext) {
			return Illustration{Kind: IllustrationImage, URL: l}, nil
		}
	}

	return Illustration{Kind: IllustrationHosted, URL: l}, nil
}
