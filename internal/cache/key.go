package cache

import (
	"crypto/sha256"
	"fmt"
)

// Key derives the cache key for one extraction. Every input that can
// change the merged output is part of the key: the document
// fingerprint, the page range actually processed, and the model that
// produced the text. Components are length-prefixed so no two
// distinct inputs can serialize to the same preimage.
func Key(fingerprint, pageRange, model string) string {
	h := sha256.New()
	for _, part := range []string{fingerprint, pageRange, model} {
		fmt.Fprintf(h, "%d:%s;", len(part), part)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// PageRange renders a [0,n) page window as a key component.
func PageRange(pages int) string {
	return fmt.Sprintf("0-%d", pages)
}
