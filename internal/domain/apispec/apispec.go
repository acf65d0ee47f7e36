// Package apispec defines the API specification model: the declarative
// description of every global function and object the ForgeScript runtime
// exposes, including per-parameter picker kinds and enum option lists.
// A specification is validated as a whole at load time and replaced
// atomically; there is no partial update.
package apispec

import (
	"errors"
	"fmt"
	"strings"
)

// PickerKind is the declared UI affordance for a parameter.
type PickerKind string

const (
	PickerNone    PickerKind = "none"
	PickerOptions PickerKind = "options"
	PickerPath    PickerKind = "path"
)

// ValueKind is the declared value type of a parameter.
type ValueKind string

const (
	ValueString ValueKind = "string"
	ValueNumber ValueKind = "number"
	ValueBool   ValueKind = "bool"
	ValueAny    ValueKind = "any"
)

// ParamSpec describes one declared parameter.
type ParamSpec struct {
	Name    string     `yaml:"name" json:"name"`
	Kind    ValueKind  `yaml:"kind" json:"kind"`
	Picker  PickerKind `yaml:"picker" json:"picker"`
	Doc     string     `yaml:"doc,omitempty" json:"doc,omitempty"`
	Options []string   `yaml:"options,omitempty" json:"options,omitempty"`
	Macros  []string   `yaml:"macros,omitempty" json:"macros,omitempty"`
	// BasePath is the suggestion root for path-picker parameters,
	// relative to the configured allow-list roots.
	BasePath string `yaml:"base_path,omitempty" json:"base_path,omitempty"`
}

// AllowsOption reports whether value is an allowed enum option,
// compared case-insensitively.
func (p ParamSpec) AllowsOption(value string) bool {
	for _, opt := range p.Options {
		if strings.EqualFold(opt, value) {
			return true
		}
	}
	return false
}

// FunctionSpec describes a global function.
type FunctionSpec struct {
	Name   string      `yaml:"name" json:"name"`
	Doc    string      `yaml:"doc,omitempty" json:"doc,omitempty"`
	Params []ParamSpec `yaml:"params" json:"params"`
}

// MemberSpec describes one member function of an object.
type MemberSpec struct {
	Name   string      `yaml:"name" json:"name"`
	Doc    string      `yaml:"doc,omitempty" json:"doc,omitempty"`
	Params []ParamSpec `yaml:"params" json:"params"`
}

// ObjectSpec describes a global object with member functions.
type ObjectSpec struct {
	Name    string       `yaml:"name" json:"name"`
	Doc     string       `yaml:"doc,omitempty" json:"doc,omitempty"`
	Members []MemberSpec `yaml:"members" json:"members"`
}

// Callable is implemented by anything a call site can resolve to, a global
// function or an object member, so validation accepts either without
// runtime type inspection.
type Callable interface {
	// CallableName is the display name used in diagnostics
	// ("copy_file" or "timer.start").
	CallableName() string
	// Parameters returns the declared parameter list in order.
	Parameters() []ParamSpec
	// Documentation returns the doc string, if any.
	Documentation() string
}

func (f FunctionSpec) CallableName() string    { return f.Name }
func (f FunctionSpec) Parameters() []ParamSpec { return f.Params }
func (f FunctionSpec) Documentation() string   { return f.Doc }

// memberCallable binds a member to its owning object for display purposes.
type memberCallable struct {
	object string
	member MemberSpec
}

func (m memberCallable) CallableName() string    { return m.object + "." + m.member.Name }
func (m memberCallable) Parameters() []ParamSpec { return m.member.Params }
func (m memberCallable) Documentation() string   { return m.member.Doc }

// Spec is one complete, ordered API specification document.
type Spec struct {
	Functions []FunctionSpec `yaml:"functions" json:"functions"`
	Objects   []ObjectSpec   `yaml:"objects" json:"objects"`
}

// Function looks up a global function by name, case-insensitively.
func (s *Spec) Function(name string) (Callable, bool) {
	for _, f := range s.Functions {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return nil, false
}

// Member looks up a member function inside a global object,
// both names case-insensitive.
func (s *Spec) Member(object, member string) (Callable, bool) {
	for _, o := range s.Objects {
		if !strings.EqualFold(o.Name, object) {
			continue
		}
		for _, m := range o.Members {
			if strings.EqualFold(m.Name, member) {
				return memberCallable{object: o.Name, member: m}, true
			}
		}
		return nil, false
	}
	return nil, false
}

// Resolve resolves a call target. An empty object means a bare global lookup.
func (s *Spec) Resolve(object, name string) (Callable, bool) {
	if object == "" {
		return s.Function(name)
	}
	return s.Member(object, name)
}

// keywords are ForgeScript reserved words; global names must not collide.
var keywords = map[string]struct{}{
	"if": {}, "else": {}, "end": {}, "while": {}, "for": {},
	"return": {}, "true": {}, "false": {}, "null": {}, "and": {},
	"or": {}, "not": {}, "let": {}, "fun": {},
}

// Validation errors.
var (
	ErrDuplicateGlobal = errors.New("duplicate global name")
	ErrKeywordClash    = errors.New("global name collides with a keyword")
	ErrDuplicateMember = errors.New("duplicate member name")
	ErrEmptyOptions    = errors.New("options picker requires a non-empty option list")
	ErrMacrosOnNonText = errors.New("macro list is only valid on string parameters")
	ErrEmptyName       = errors.New("empty name")
)

// Validate checks the load-time invariants. A spec that fails validation
// must never be installed.
func (s *Spec) Validate() error {
	seen := make(map[string]struct{}, len(s.Functions)+len(s.Objects))

	global := func(name string) error {
		if name == "" {
			return ErrEmptyName
		}
		lower := strings.ToLower(name)
		if _, dup := seen[lower]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateGlobal, name)
		}
		if _, kw := keywords[lower]; kw {
			return fmt.Errorf("%w: %s", ErrKeywordClash, name)
		}
		seen[lower] = struct{}{}
		return nil
	}

	for _, f := range s.Functions {
		if err := global(f.Name); err != nil {
			return err
		}
		if err := validateParams(f.Name, f.Params); err != nil {
			return err
		}
	}

	for _, o := range s.Objects {
		if err := global(o.Name); err != nil {
			return err
		}
		members := make(map[string]struct{}, len(o.Members))
		for _, m := range o.Members {
			if m.Name == "" {
				return fmt.Errorf("object %s: %w", o.Name, ErrEmptyName)
			}
			lower := strings.ToLower(m.Name)
			if _, dup := members[lower]; dup {
				return fmt.Errorf("%w: %s.%s", ErrDuplicateMember, o.Name, m.Name)
			}
			members[lower] = struct{}{}
			if err := validateParams(o.Name+"."+m.Name, m.Params); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateParams(owner string, params []ParamSpec) error {
	for _, p := range params {
		if p.Picker == PickerOptions && len(p.Options) == 0 {
			return fmt.Errorf("%s param %s: %w", owner, p.Name, ErrEmptyOptions)
		}
		if len(p.Macros) > 0 && p.Kind != ValueString {
			return fmt.Errorf("%s param %s: %w", owner, p.Name, ErrMacrosOnNonText)
		}
	}
	return nil
}
