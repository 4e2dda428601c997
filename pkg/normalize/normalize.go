// Package normalize canonicalizes raw document content into the
// deterministic form that digests and merges operate on.
package normalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/castsync/cast/pkg/header"
)

// Digest is a SHA-256 digest rendered as "sha256:<hex>", following the
// algorithm-prefixed convention so the store can migrate digest
// algorithms without an ambiguous bare-hex format.
type Digest string

// ErrEncoding is returned when content is not valid UTF-8.
var ErrEncoding = fmt.Errorf("content is not valid UTF-8")

// Result holds the canonical form of a document plus its two digests.
type Result struct {
	Header   *header.Block
	Body     []byte
	Full     Digest
	BodyOnly Digest
}

// Normalize canonicalizes raw file content:
//  1. validates UTF-8
//  2. converts CRLF/CR to LF
//  3. splits the header block, if present
//  4. strips ephemeral header keys and reorders keys for digesting
//  5. trims trailing whitespace per line and ensures one trailing newline
//  6. computes the full and body-only digests over the normalized form
func Normalize(content []byte, ephemeral map[string]struct{}) (*Result, error) {
	if !utf8.Valid(content) {
		return nil, ErrEncoding
	}

	content = convertLineEndings(content)

	block, body, err := header.Split(content)
	if err != nil {
		return nil, err
	}

	body = normalizeBody(body)

	digestBlock := digestOrderedHeader(block, ephemeral)
	headerBytes, err := renderHeaderForDigest(digestBlock)
	if err != nil {
		return nil, err
	}

	full := sha256Digest(append(headerBytes, body...))
	bodyOnly := sha256Digest(body)

	return &Result{
		Header:   block,
		Body:     body,
		Full:     full,
		BodyOnly: bodyOnly,
	}, nil
}

// convertLineEndings turns CRLF and lone CR into LF.
func convertLineEndings(content []byte) []byte {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	content = bytes.ReplaceAll(content, []byte("\r"), []byte("\n"))
	return content
}

// normalizeBody strips trailing whitespace from every line and guarantees
// exactly one trailing newline on a non-blank body; an empty or
// all-blank body normalizes to no bytes.
func normalizeBody(body []byte) []byte {
	lines := strings.Split(string(body), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	joined := strings.Join(lines, "\n")
	joined = strings.TrimRight(joined, "\n")
	if joined == "" {
		return []byte{}
	}
	return []byte(joined + "\n")
}

// digestOrderedHeader returns a copy of block with ephemeral keys dropped
// and remaining keys sorted lexically after ensuring the identifier key
// comes first. A nil block yields nil.
func digestOrderedHeader(block *header.Block, ephemeral map[string]struct{}) *header.Block {
	if block == nil {
		return nil
	}

	keys := make([]string, 0, block.Len())
	for _, k := range block.Keys() {
		if header.Classify(k, ephemeral) == header.BucketEphemeral {
			continue
		}
		keys = append(keys, k)
	}

	idIdx := -1
	for i, k := range keys {
		if k == header.KeyID {
			idIdx = i
			break
		}
	}
	var rest []string
	if idIdx >= 0 {
		rest = append(rest, keys[:idIdx]...)
		rest = append(rest, keys[idIdx+1:]...)
	} else {
		rest = keys
	}
	sort.Strings(rest)

	out := header.NewBlock()
	if idIdx >= 0 {
		v, _ := block.Get(header.KeyID)
		out.Set(header.KeyID, v)
	}
	for _, k := range rest {
		v, _ := block.Get(k)
		out.Set(k, v)
	}
	return out
}

// renderHeaderForDigest serializes a header block into the exact bytes
// that feed the full digest. A nil block contributes no bytes.
func renderHeaderForDigest(block *header.Block) ([]byte, error) {
	if block == nil || block.Len() == 0 {
		return nil, nil
	}
	rendered, err := header.Render(block, nil)
	if err != nil {
		return nil, err
	}
	return rendered, nil
}

func sha256Digest(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest("sha256:" + hex.EncodeToString(sum[:]))
}

// ComputeDigest hashes arbitrary bytes directly, for callers (such as the
// object store) that already hold normalized content and only need the
// digest, not a full Normalize pass.
func ComputeDigest(data []byte) Digest {
	return sha256Digest(data)
}

// Verify reports whether data matches the given digest.
func Verify(data []byte, want Digest) bool {
	return sha256Digest(data) == want
}
