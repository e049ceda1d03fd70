package ccfeatures

// Requirement describes a gate condition consumable by [Check].
//
// Built-in implementations include:
//   - [Capability]
//   - [CapabilityGroup]
type Requirement interface {
	isRequirement()
}

// CapabilityGroup is a reusable set of [Requirement] items.
type CapabilityGroup []Requirement

func (Capability) isRequirement()      {}
func (CapabilityGroup) isRequirement() {}

// Capabilities flattens the group into capabilities, deduplicated, in order
// of first appearance.
func (g CapabilityGroup) Capabilities() []Capability {
	return normalizeRequirements(g).capabilities
}

type requirementSet struct {
	capabilities []Capability
	seen         map[Capability]struct{}
}

func normalizeRequirements(required []Requirement) requirementSet {
	rs := requirementSet{
		seen: map[Capability]struct{}{},
	}
	for _, req := range required {
		rs.add(req)
	}
	return rs
}

func (rs *requirementSet) add(req Requirement) {
	switch r := req.(type) {
	case Capability:
		if _, ok := rs.seen[r]; ok {
			return
		}
		rs.seen[r] = struct{}{}
		rs.capabilities = append(rs.capabilities, r)
	case CapabilityGroup:
		for _, nested := range r {
			if nested == nil {
				continue
			}
			rs.add(nested)
		}
	}
}
