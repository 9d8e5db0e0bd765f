// Package token encodes and decodes the opaque callback strings exchanged
// with the chat transport.
//
// Telegram caps callback payloads at 64 bytes, so tokens are short literal
// strings. The structural delimiter is a colon, which Docker forbids inside
// container names and ids; that reservation is what makes decoding composite
// tokens unambiguous even though identifiers may legally contain underscores.
// Encode enforces the reservation by rejecting identifiers outside the Docker
// charset instead of escaping them.
package token

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Delimiter separates structural segments inside a token. Reserved: it is not
// a legal character in Docker identifiers, so it can never appear inside an
// identifier segment.
const Delimiter = ":"

// Wire literals for the token namespace.
const (
	litRoot       = "root"
	litContainers = "ps"
	litImages     = "images"
	litStats      = "stats"
	prefDetail    = "ct"
	prefAction    = "do"
)

// Common errors
var (
	// ErrMalformed is returned by Decode for any input that does not match
	// one of the recognized token shapes.
	ErrMalformed = errors.New("malformed token")
	// ErrInvalidIdentifier is returned by Encode when an identifier falls
	// outside the Docker name/id character set.
	ErrInvalidIdentifier = errors.New("identifier not encodable")
)

// identifierPattern is the Docker container name/id charset. Colons are
// excluded, which is what keeps Delimiter reserved for token structure.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Kind discriminates the recognized token shapes.
type Kind int

const (
	KindRoot Kind = iota
	KindContainerList
	KindImageList
	KindStats
	KindContainerDetail
	KindAction
)

// Verb is a container action carried by a KindAction token.
type Verb string

const (
	VerbStart   Verb = "start"
	VerbStop    Verb = "stop"
	VerbRestart Verb = "restart"
	VerbLogs    Verb = "logs"
)

// validVerb reports whether v is one of the four recognized verbs.
func validVerb(v Verb) bool {
	switch v {
	case VerbStart, VerbStop, VerbRestart, VerbLogs:
		return true
	}
	return false
}

// Token is a decoded interaction intent. Verb and ID are populated only for
// the kinds that carry them.
type Token struct {
	Kind Kind
	Verb Verb   // KindAction only
	ID   string // KindContainerDetail and KindAction only
}

// Root returns the root-menu token.
func Root() Token { return Token{Kind: KindRoot} }

// ContainerList returns the container-listing token.
func ContainerList() Token { return Token{Kind: KindContainerList} }

// ImageList returns the image-listing token.
func ImageList() Token { return Token{Kind: KindImageList} }

// Stats returns the resource-stats token.
func Stats() Token { return Token{Kind: KindStats} }

// ContainerDetail returns the detail-view token for id.
func ContainerDetail(id string) Token { return Token{Kind: KindContainerDetail, ID: id} }

// Action returns the token performing verb on id.
func Action(verb Verb, id string) Token { return Token{Kind: KindAction, Verb: verb, ID: id} }

// Encode renders t as its wire string. It fails with ErrInvalidIdentifier if
// the identifier segment contains the reserved delimiter or any other
// character outside the Docker identifier set; it never silently truncates.
// Encode is injective over valid tokens and Decode(Encode(t)) == t.
func Encode(t Token) (string, error) {
	switch t.Kind {
	case KindRoot:
		return litRoot, nil
	case KindContainerList:
		return litContainers, nil
	case KindImageList:
		return litImages, nil
	case KindStats:
		return litStats, nil
	case KindContainerDetail:
		if !identifierPattern.MatchString(t.ID) {
			return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, t.ID)
		}
		return prefDetail + Delimiter + t.ID, nil
	case KindAction:
		if !validVerb(t.Verb) {
			return "", fmt.Errorf("%w: unknown verb %q", ErrMalformed, t.Verb)
		}
		if !identifierPattern.MatchString(t.ID) {
			return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, t.ID)
		}
		return prefAction + Delimiter + string(t.Verb) + Delimiter + t.ID, nil
	}
	return "", fmt.Errorf("%w: unknown kind %d", ErrMalformed, t.Kind)
}

// Decode parses a wire string back into a Token. It is total over well-formed
// input and fails with ErrMalformed on anything that does not match one of
// the recognized shapes, including identifier segments outside the Docker
// character set.
func Decode(s string) (Token, error) {
	switch s {
	case litRoot:
		return Root(), nil
	case litContainers:
		return ContainerList(), nil
	case litImages:
		return ImageList(), nil
	case litStats:
		return Stats(), nil
	}

	prefix, rest, found := strings.Cut(s, Delimiter)
	if !found {
		return Token{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	switch prefix {
	case prefDetail:
		if !identifierPattern.MatchString(rest) {
			return Token{}, fmt.Errorf("%w: bad identifier in %q", ErrMalformed, s)
		}
		return ContainerDetail(rest), nil
	case prefAction:
		verb, id, ok := strings.Cut(rest, Delimiter)
		if !ok {
			return Token{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		if !validVerb(Verb(verb)) {
			return Token{}, fmt.Errorf("%w: unknown verb in %q", ErrMalformed, s)
		}
		if !identifierPattern.MatchString(id) {
			return Token{}, fmt.Errorf("%w: bad identifier in %q", ErrMalformed, s)
		}
		return Action(Verb(verb), id), nil
	}

	return Token{}, fmt.Errorf("%w: %q", ErrMalformed, s)
}
