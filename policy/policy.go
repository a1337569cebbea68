// Package policy resolves a resource name to the rate-limit policy that
// governs it, using exact and prefix rules with priority tie-breaking.
//
// A Set is built once and treated as read-only afterward; reloads
// construct a whole new set rather than mutating one in place, so readers
// in flight always see a complete set, never a torn one.
package policy

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind distinguishes how a Policy's Pattern is matched against a resource.
type Kind int

const (
	// Exact matches a resource name equal to Pattern.
	Exact Kind = iota
	// Prefix matches any resource name beginning with Pattern.
	Prefix
)

func (k Kind) String() string {
	if k == Exact {
		return "exact"
	}
	return "prefix"
}

// Policy is an immutable (limit, window) pair plus the matching rule that
// decides which resources it governs.
type Policy struct {
	Pattern   string
	Kind      Kind
	MaxTokens int64
	Window    time.Duration
	Priority  int

	// order is the zero-based declaration index, used only to break ties.
	order int
}

func (p Policy) key() string { return p.Kind.String() + "\x00" + p.Pattern }

// Validate checks the invariants a single Policy must satisfy on its own,
// independent of the rest of the set.
func (p Policy) Validate() error {
	if p.Pattern == "" {
		return fmt.Errorf("policy pattern cannot be empty")
	}
	if p.Kind == Prefix && len(p.Pattern) == 0 {
		return fmt.Errorf("prefix policy pattern cannot be zero-length")
	}
	if p.MaxTokens < 0 {
		return fmt.Errorf("policy %q: max_tokens must be non-negative, got %d", p.Pattern, p.MaxTokens)
	}
	if p.Window <= 0 {
		return fmt.Errorf("policy %q: window must be positive, got %s", p.Pattern, p.Window)
	}
	return nil
}

// Set is an ordered, immutable collection of policies plus a default,
// precomputed at construction into an exact-match index and a
// priority-sorted prefix list so Resolve never has to sort or scan the
// whole policy list on the hot path beyond a linear scan of prefixes.
type Set struct {
	exactIndex map[string]Policy
	prefixList []Policy
	defaultP   Policy
}

// New builds a Set from policies plus a default policy, enforcing:
//   - every policy (and the default) individually validates
//   - no two policies are identical in (kind, pattern)
func New(policies []Policy, defaultPolicy Policy) (*Set, error) {
	if err := defaultPolicy.Validate(); err != nil {
		return nil, fmt.Errorf("default policy: %w", err)
	}

	seen := make(map[string]struct{}, len(policies))
	exactBest := make(map[string]Policy)
	var prefixes []Policy

	for i, p := range policies {
		p.order = i
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[p.key()]; dup {
			return nil, fmt.Errorf("duplicate policy for %s pattern %q", p.Kind, p.Pattern)
		}
		seen[p.key()] = struct{}{}

		switch p.Kind {
		case Exact:
			cur, ok := exactBest[p.Pattern]
			if !ok || higherPriority(p, cur) {
				exactBest[p.Pattern] = p
			}
		case Prefix:
			prefixes = append(prefixes, p)
		default:
			return nil, fmt.Errorf("policy %q: unknown kind", p.Pattern)
		}
	}

	sort.SliceStable(prefixes, func(i, j int) bool {
		a, b := prefixes[i], prefixes[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if len(a.Pattern) != len(b.Pattern) {
			return len(a.Pattern) > len(b.Pattern)
		}
		return a.order < b.order
	})

	return &Set{
		exactIndex: exactBest,
		prefixList: prefixes,
		defaultP:   defaultPolicy,
	}, nil
}

// higherPriority reports whether a should win over the already-recorded
// best b for the same exact pattern: higher priority wins, ties go to
// whichever was declared first.
func higherPriority(a, b Policy) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.order < b.order
}

// Resolve returns the policy governing resource. Resolve is a pure total
// function: identical inputs yield identical outputs for the lifetime of
// the Set. Rules, in order: exact match wins unconditionally over any
// prefix match (regardless of priority); among prefix matches the highest
// priority wins, ties broken by longest pattern then declaration order;
// otherwise the default policy applies.
func (s *Set) Resolve(resource string) Policy {
	if p, ok := s.exactIndex[resource]; ok {
		return p
	}
	for _, p := range s.prefixList {
		if strings.HasPrefix(resource, p.Pattern) {
			return p
		}
	}
	return s.defaultP
}

// Default returns the policy set's default policy.
func (s *Set) Default() Policy { return s.defaultP }
