package pkgid

import (
	"fmt"
	"strings"

	"github.com/matzehuels/peergraph/pkg/errors"
)

// ID is a final package id: a concrete package version plus the flattened
// peer dependencies it was bound to. It is the unit of identity in a
// snapshot.
//
// Its text form is "name@version" followed by one "_"-prefixed segment per
// peer. A peer nested at depth d is prefixed by d+1 underscores, and below
// the top level a scoped name is written with "+" in place of "/":
//
//	a@1.0.0_b@2.0.0__@scope+c@3.0.0_d@4.0.0
type ID struct {
	NV    NV
	Peers []ID
}

// String returns the canonical text form.
func (id ID) String() string {
	var b strings.Builder
	id.write(&b, 0)
	return b.String()
}

func (id ID) write(b *strings.Builder, level int) {
	name := id.NV.Name
	if level > 0 {
		name = strings.ReplaceAll(name, "/", "+")
	}
	b.WriteString(name)
	b.WriteByte('@')
	b.WriteString(id.NV.Version)
	for _, p := range id.Peers {
		b.WriteString(strings.Repeat("_", level+1))
		p.write(b, level+1)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseID parses the text form produced by [ID.String].
func ParseID(s string) (ID, error) {
	p := idParser{input: s}
	id, err := p.parse(0)
	if err != nil {
		return ID{}, err
	}
	if p.pos != len(s) {
		return ID{}, p.fail("unexpected %q", s[p.pos:])
	}
	return id, nil
}

type idParser struct {
	input string
	pos   int
}

func (p *idParser) fail(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidPackage, "invalid package id %q at offset %d: %s",
		p.input, p.pos, fmt.Sprintf(format, args...))
}

func (p *idParser) parse(level int) (ID, error) {
	name, err := p.name(level)
	if err != nil {
		return ID{}, err
	}
	version := p.version()
	if version == "" {
		return ID{}, p.fail("missing version for %s", name)
	}
	id := ID{NV: NV{Name: name, Version: version}}
	for {
		n := p.underscores()
		if n == 0 || n < level+1 {
			return id, nil
		}
		if n > level+1 {
			return ID{}, p.fail("peer nested too deep")
		}
		p.pos += n
		peer, err := p.parse(level + 1)
		if err != nil {
			return ID{}, err
		}
		id.Peers = append(id.Peers, peer)
	}
}

func (p *idParser) name(level int) (string, error) {
	start := p.pos
	if p.pos < len(p.input) && p.input[p.pos] == '@' {
		p.pos++
	}
	i := strings.IndexByte(p.input[p.pos:], '@')
	if i <= 0 {
		return "", p.fail("missing name@version separator")
	}
	p.pos += i
	name := p.input[start:p.pos]
	p.pos++ // '@'
	if level > 0 {
		name = strings.ReplaceAll(name, "+", "/")
	}
	return name, nil
}

func (p *idParser) version() string {
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] != '_' {
		p.pos++
	}
	return p.input[start:p.pos]
}

// underscores counts the run of '_' at the cursor without consuming it.
func (p *idParser) underscores() int {
	n := 0
	for p.pos+n < len(p.input) && p.input[p.pos+n] == '_' {
		n++
	}
	return n
}

// Compare orders ids by their text form.
func (id ID) Compare(other ID) int {
	return strings.Compare(id.String(), other.String())
}
