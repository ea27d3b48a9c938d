package domain

import "strings"

// Role checks are exact-match. The three roles are disjoint operating modes
// (visitor / tenant / staff), not a privilege ladder: an admin is NOT
// implicitly authorized for member-gated routes.

func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleMember:
		return RoleMember, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

func ParseAction(s string) (DecisionAction, bool) {
	switch DecisionAction(strings.ToLower(strings.TrimSpace(s))) {
	case ActionAccept:
		return ActionAccept, true
	case ActionReject:
		return ActionReject, true
	}
	return "", false
}

// Listing policy: page starts at 1, limit defaults to 6 (the storefront shows
// six units per page) and is capped at 100.
func (f ApartmentFilter) Normalized() ApartmentFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 6
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return f
}
