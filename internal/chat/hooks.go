package chat

// HookRef is an opaque reference to a callback owned by a HookEvaluator.
type HookRef int

// Hook is either NoHook or a bound reference.
type Hook struct {
	ref   HookRef
	bound bool
}

// NoHook is the zero Hook; evaluating it always allows.
var NoHook = Hook{}

// BoundHook binds ref.
func BoundHook(ref HookRef) Hook {
	return Hook{ref: ref, bound: true}
}

// Bound reports whether the hook references a callback.
func (h Hook) Bound() bool { return h.bound }

// Ref returns the bound reference.
func (h Hook) Ref() HookRef { return h.ref }

// HookSet holds the optional callbacks a channel can carry.
type HookSet struct {
	CanJoin Hook
	OnJoin  Hook
	OnLeave Hook
	OnSpeak Hook
}

// Verdict is the outcome of a hook evaluation.
type Verdict int

const (
	Allow Verdict = iota
	Deny
	AllowWithValue
)

// HookResult is what a hook returned. Value is only meaningful for
// AllowWithValue.
type HookResult struct {
	Verdict Verdict
	Value   int
}

// Allowed reports whether the operation may proceed.
func (r HookResult) Allowed() bool { return r.Verdict != Deny }

// HookEvaluator runs bound callbacks. Implementations guard against runaway
// nesting and must return Deny when the guard trips.
type HookEvaluator interface {
	Evaluate(ref HookRef, p *Player, args ...any) HookResult
}

// HookLoader binds a named script bundle into a HookSet.
type HookLoader interface {
	LoadBundle(name string) (HookSet, error)
}

type allowAll struct{}

func (allowAll) Evaluate(HookRef, *Player, ...any) HookResult { return HookResult{Verdict: Allow} }
