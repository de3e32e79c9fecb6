// Package names generates readable "adjective-noun" slugs for documents that
// are created without one, e.g. "quiet-chapter" or "bold-headline".
//
// Slugs are picked with crypto/rand. They are not guaranteed unique on their
// own; the document store appends a short suffix when a slug is taken.
package names

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var adjectives = []string{
	"amber", "ample", "annotated", "autumn", "bold", "brief", "bright",
	"candid", "careful", "classic", "clear", "concise", "crisp", "curious",
	"daily", "deft", "early", "earnest", "eloquent", "even", "fair",
	"fluent", "formal", "fresh", "gentle", "golden", "graceful", "hasty",
	"honest", "humble", "idle", "inked", "keen", "kind", "late", "lively",
	"loose", "lucid", "merry", "modest", "narrow", "neat", "nimble",
	"noble", "open", "patient", "plain", "polished", "quiet", "quick",
	"rapid", "rare", "ready", "revised", "rough", "serene", "sharp",
	"silent", "simple", "sincere", "steady", "subtle", "swift", "tidy",
	"timely", "urgent", "vivid", "warm", "weekly", "wise", "witty",
}

var nouns = []string{
	"abstract", "addendum", "almanac", "anthology", "appendix", "article",
	"ballad", "bulletin", "byline", "caption", "chapter", "chronicle",
	"column", "comment", "digest", "draft", "edition", "editorial",
	"entry", "epilogue", "essay", "excerpt", "feature", "folio",
	"footnote", "gazette", "glossary", "headline", "index", "journal",
	"lede", "letter", "manuscript", "margin", "memo", "notebook",
	"outline", "page", "pamphlet", "paragraph", "passage", "preface",
	"primer", "proof", "quote", "recap", "report", "review", "revision",
	"scroll", "section", "sidebar", "sketch", "sonnet", "story",
	"summary", "synopsis", "tagline", "thesis", "treatise", "verse",
}

// Generate returns a random slug in "adjective-noun" format.
func Generate() string {
	adjective := adjectives[randomIndex(len(adjectives))]
	noun := nouns[randomIndex(len(nouns))]
	return fmt.Sprintf("%s-%s", adjective, noun)
}

// randomIndex returns a crypto/rand index in [0, max), or 0 if the random
// source fails.
func randomIndex(max int) int {
	if max <= 0 {
		return 0
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}

	return int(n.Int64())
}
