package entity

import (
	"fmt"
	"strings"
)

// PolicyKind selects how a prompt is dispatched to adapters
type PolicyKind string

const (
	PolicySingle     PolicyKind = "single"
	PolicyFallback   PolicyKind = "fallback"
	PolicyUserChoice PolicyKind = "choice"
	PolicyBroadcast  PolicyKind = "broadcast"
)

// ParsePolicyKind accepts the config spelling of a policy kind.
func ParsePolicyKind(s string) (PolicyKind, error) {
	switch PolicyKind(strings.ToLower(strings.TrimSpace(s))) {
	case PolicySingle, "":
		return PolicySingle, nil
	case PolicyFallback, "single_with_fallback":
		return PolicyFallback, nil
	case PolicyUserChoice, "user_choice":
		return PolicyUserChoice, nil
	case PolicyBroadcast:
		return PolicyBroadcast, nil
	default:
		return "", fmt.Errorf("unknown dispatch policy %q", s)
	}
}

// DispatchPolicy configures the dispatch workflow.
type DispatchPolicy struct {
	Kind PolicyKind

	// Primary is used by single and fallback
	Primary string
	// Secondary is the fallback adapter
	Secondary string
	// Providers lists the choice options or the broadcast set, in order
	Providers []string

	// ChoiceFallback tries the other options when the chosen one fails
	ChoiceFallback bool
	// AnnounceFallback tells the user which provider failed before a fallback succeeded
	AnnounceFallback bool
	// SuppressPartialFailures hides broadcast failure notices when something succeeded
	SuppressPartialFailures bool
	// Sequential runs broadcast adapters one after another
	Sequential bool
}

// Validate checks the policy against the set of known provider ids.
func (p DispatchPolicy) Validate(known func(id string) bool) error {
	check := func(field, id string) error {
		if id == "" {
			return fmt.Errorf("%s policy needs %s", p.Kind, field)
		}
		if !known(id) {
			return fmt.Errorf("%s %q: %w", field, id, ErrUnknownProvider)
		}
		return nil
	}

	switch p.Kind {
	case PolicySingle:
		return check("primary provider", p.Primary)
	case PolicyFallback:
		if err := check("primary provider", p.Primary); err != nil {
			return err
		}
		if err := check("secondary provider", p.Secondary); err != nil {
			return err
		}
		if p.Primary == p.Secondary {
			return fmt.Errorf("fallback policy needs two different providers, got %q twice", p.Primary)
		}
		return nil
	case PolicyUserChoice, PolicyBroadcast:
		if len(p.Providers) == 0 {
			return fmt.Errorf("%s policy needs at least one provider", p.Kind)
		}
		seen := make(map[string]bool, len(p.Providers))
		for _, id := range p.Providers {
			if err := check("provider", id); err != nil {
				return err
			}
			if seen[id] {
				return fmt.Errorf("provider %q listed twice", id)
			}
			seen[id] = true
		}
		return nil
	default:
		return fmt.Errorf("unknown dispatch policy %q", p.Kind)
	}
}
