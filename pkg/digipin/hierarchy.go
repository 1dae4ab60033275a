package digipin

import "strings"

// Parent truncates code to level symbols. A level at or beyond the code's
// length returns the whole normalised code.
func Parent(code string, level int) (string, error) {
	if err := checkPrecision("level", level); err != nil {
		return "", err
	}
	norm, err := Normalize(code)
	if err != nil {
		return "", err
	}
	if level >= len(norm) {
		return norm, nil
	}
	return norm[:level], nil
}

// IsWithin reports whether child lies inside parent, i.e. parent is a
// prefix of child. Malformed codes are never within anything.
func IsWithin(child, parent string) bool {
	c, err := Normalize(child)
	if err != nil {
		return false
	}
	p, err := Normalize(parent)
	if err != nil {
		return false
	}
	return strings.HasPrefix(c, p)
}

// Children returns the 16 codes one level below code, in alphabet order.
func Children(code string) ([]string, error) {
	norm, err := Normalize(code)
	if err != nil {
		return nil, err
	}
	if len(norm) >= MaxPrecision {
		return nil, &DomainError{Param: "child level", Value: len(norm) + 1, Want: "at most 10"}
	}
	out := make([]string, 0, len(Alphabet))
	for i := 0; i < len(Alphabet); i++ {
		out = append(out, norm+Alphabet[i:i+1])
	}
	return out, nil
}
