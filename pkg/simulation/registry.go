package simulation

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDuplicateRule  = errors.New("rule is already registered")
	ErrUnknownRule    = errors.New("rule is not registered")
	ErrRuleNotEnabled = errors.New("rule is not globally enabled")
	ErrInvalidRule    = errors.New("invalid rule")
)

type namedRule struct {
	name string
	rule Rule
}

// ruleRegistry holds rules in insertion order together with the timestamp
// schedule and the set of globally enabled rules. The two enablement
// registries are independent of each other.
type ruleRegistry struct {
	rules    []namedRule
	index    map[string]int
	schedule *schedule
	global   map[string]struct{}
}

func newRuleRegistry() *ruleRegistry {
	return &ruleRegistry{
		index:    make(map[string]int),
		schedule: newSchedule(),
		global:   make(map[string]struct{}),
	}
}

func (r *ruleRegistry) add(name string, rule Rule) error {
	if name == "" || rule == nil {
		return fmt.Errorf("rule %q: %w", name, ErrInvalidRule)
	}
	if _, ok := r.index[name]; ok {
		return fmt.Errorf("unable to add rule %q: %w", name, ErrDuplicateRule)
	}
	r.index[name] = len(r.rules)
	r.rules = append(r.rules, namedRule{name: name, rule: rule})
	return nil
}

func (r *ruleRegistry) enable(name string, timeStamps []time.Time) error {
	if _, ok := r.index[name]; !ok {
		return fmt.Errorf("unable to enable rule %q: %w", name, ErrUnknownRule)
	}
	for _, ts := range timeStamps {
		r.schedule.add(ts, name)
	}
	return nil
}

func (r *ruleRegistry) enableGlobally(name string) error {
	if _, ok := r.index[name]; !ok {
		return fmt.Errorf("unable to enable rule %q: %w", name, ErrUnknownRule)
	}
	r.global[name] = struct{}{}
	return nil
}

func (r *ruleRegistry) disable(name string) error {
	if _, ok := r.global[name]; !ok {
		return fmt.Errorf("unable to disable rule %q: %w", name, ErrRuleNotEnabled)
	}
	delete(r.global, name)
	return nil
}

func (r *ruleRegistry) hasGlobal() bool {
	return len(r.global) > 0
}

// active returns the scheduled and globally enabled rules in insertion order.
func (r *ruleRegistry) active(scheduled map[string]struct{}) []namedRule {
	var active []namedRule
	for _, nr := range r.rules {
		_, isScheduled := scheduled[nr.name]
		_, isGlobal := r.global[nr.name]
		if isScheduled || isGlobal {
			active = append(active, nr)
		}
	}
	return active
}

func (r *ruleRegistry) names() []string {
	names := make([]string, len(r.rules))
	for idx, nr := range r.rules {
		names[idx] = nr.name
	}
	return names
}
