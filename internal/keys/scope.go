package keys

import "fmt"

// ScopeKind selects whose key is derived.
type ScopeKind uint8

const (
	// ScopeInstance derives a key shared by this whole instance.
	ScopeInstance ScopeKind = iota
	// ScopeOwner derives a key for one owner.
	ScopeOwner
	// ScopeOrg derives a key for an organization.
	ScopeOrg
)

var scopeNames = map[string]ScopeKind{
	"instance": ScopeInstance,
	"owner":    ScopeOwner,
	"org":      ScopeOrg,
}

// Scope is a derivation scope. ID is the owner or organization
// identifier and is empty for ScopeInstance.
type Scope struct {
	Kind ScopeKind
	ID   []byte
}

// ParseScope builds a Scope from its text name and identifier.
func ParseScope(name string, id []byte) (Scope, error) {
	kind, ok := scopeNames[name]
	if !ok {
		return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, name)
	}
	s := Scope{Kind: kind, ID: id}
	if err := s.validate(); err != nil {
		return Scope{}, err
	}
	return s, nil
}

func (s Scope) validate() error {
	switch s.Kind {
	case ScopeInstance:
		if len(s.ID) != 0 {
			return fmt.Errorf("%w: instance scope takes no id", ErrInvalidScope)
		}
	case ScopeOwner, ScopeOrg:
		if len(s.ID) == 0 || len(s.ID) > 255 {
			return fmt.Errorf("%w: id length %d", ErrInvalidScope, len(s.ID))
		}
	default:
		return fmt.Errorf("%w: kind %d", ErrInvalidScope, s.Kind)
	}
	return nil
}

// Context returns the derivation context for s:
// len(Domain):u8 || Domain || kind:u8 [|| len(id):u8 || id].
func (s Scope) Context() []byte {
	buf := make([]byte, 0, 3+len(Domain)+len(s.ID))
	buf = append(buf, uint8(len(Domain)))
	buf = append(buf, Domain...)
	buf = append(buf, uint8(s.Kind))
	if s.Kind != ScopeInstance {
		buf = append(buf, uint8(len(s.ID)))
		buf = append(buf, s.ID...)
	}
	return buf
}
