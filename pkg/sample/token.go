package sample

import "github.com/awesome-flow/eventgen/pkg/settings"

type tokenFields uint8

const (
	assignedToken tokenFields = 1 << iota
	assignedReplacementType
	assignedReplacement

	assignedAll = assignedToken | assignedReplacementType | assignedReplacement
)

// Token describes a substitution applied to generated events: every match of
// the Token regex is replaced according to ReplacementType.
type Token struct {
	Index           int
	Token           string
	ReplacementType string
	Replacement     string

	assigned tokenFields
}

// NewToken returns a token with all three fields assigned.
func NewToken(index int, token, replacementType, replacement string) *Token {
	return &Token{
		Index:           index,
		Token:           token,
		ReplacementType: replacementType,
		Replacement:     replacement,
		assigned:        assignedAll,
	}
}

// Valid returns true if the token pattern, its replacement type and its
// replacement have all been assigned. An empty replacement is valid.
func (t *Token) Valid() bool {
	return t != nil && t.assigned == assignedAll
}

func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// Set assigns a token field by its stanza name.
func (t *Token) Set(field, value string) {
	switch field {
	case settings.FieldToken:
		t.Token = value
		t.assigned |= assignedToken
	case settings.FieldReplacementType:
		t.ReplacementType = value
		t.assigned |= assignedReplacementType
	case settings.FieldReplacement:
		t.Replacement = value
		t.assigned |= assignedReplacement
	}
}

// HostToken is the token rewriting the host field of generated events.
type HostToken struct {
	Token           string
	Replacement     string
	ReplacementType string
}

func NewHostToken() *HostToken {
	return &HostToken{ReplacementType: settings.ReplacementFile}
}

func (h *HostToken) Clone() *HostToken {
	if h == nil {
		return nil
	}
	cp := *h
	return &cp
}

func (h *HostToken) Set(field, value string) {
	switch field {
	case settings.FieldToken:
		h.Token = value
	case settings.FieldReplacement:
		h.Replacement = value
	}
}
