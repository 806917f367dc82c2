package authz

import "github.com/kendall-kelly/restaurant-pos-api/models"

// Policy bundles the two tables services consult. Services never compare
// roles directly; every role decision goes through a Policy.
type Policy struct {
	matrix      *Matrix
	transitions *TransitionTable
}

// NewPolicy wires a matrix and a transition table together
func NewPolicy(matrix *Matrix, transitions *TransitionTable) *Policy {
	return &Policy{matrix: matrix, transitions: transitions}
}

// DefaultPolicy uses DefaultMatrix and DefaultTransitionTable
func DefaultPolicy() *Policy {
	return NewPolicy(DefaultMatrix(), DefaultTransitionTable())
}

// HasPermission delegates to the matrix
func (p *Policy) HasPermission(role models.Role, permission Permission) bool {
	return p.matrix.HasPermission(role, permission)
}

// IsValidTransition delegates to the transition table
func (p *Policy) IsValidTransition(from, to models.OrderStatus) bool {
	return p.transitions.IsValidTransition(from, to)
}

// CanRoleChangeStatus reports whether role may take the edge from -> to.
// The edge itself must also be valid.
func (p *Policy) CanRoleChangeStatus(role models.Role, from, to models.OrderStatus) bool {
	return p.IsValidTransition(from, to) && p.matrix.HasPermission(role, TransitionPermission(from, to))
}
