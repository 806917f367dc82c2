package authz

import "github.com/kendall-kelly/restaurant-pos-api/models"

var defaultEdges = map[models.OrderStatus][]models.OrderStatus{
	models.StatusReceived:  {models.StatusInPrep, models.StatusCancelled},
	models.StatusInPrep:    {models.StatusReady, models.StatusCancelled},
	models.StatusReady:     {models.StatusDelivered, models.StatusCancelled},
	models.StatusDelivered: {},
	models.StatusCancelled: {},
}

// TransitionTable answers whether a status edge is structurally legal.
// It says nothing about who may take the edge.
type TransitionTable struct {
	edges map[models.OrderStatus]map[models.OrderStatus]struct{}
}

// NewTransitionTable builds a table from an adjacency list
func NewTransitionTable(edges map[models.OrderStatus][]models.OrderStatus) *TransitionTable {
	t := &TransitionTable{edges: make(map[models.OrderStatus]map[models.OrderStatus]struct{}, len(edges))}
	for from, targets := range edges {
		set := make(map[models.OrderStatus]struct{}, len(targets))
		for _, to := range targets {
			set[to] = struct{}{}
		}
		t.edges[from] = set
	}
	return t
}

// DefaultTransitionTable is RECEIVED -> IN_PREP -> READY -> DELIVERED, with
// CANCELLED reachable from every non-terminal status.
func DefaultTransitionTable() *TransitionTable {
	return NewTransitionTable(defaultEdges)
}

// IsValidTransition reports whether from -> to is an edge of the table
func (t *TransitionTable) IsValidTransition(from, to models.OrderStatus) bool {
	targets, ok := t.edges[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// Targets returns the statuses reachable from from in one step
func (t *TransitionTable) Targets(from models.OrderStatus) []models.OrderStatus {
	var out []models.OrderStatus
	for _, s := range models.AllStatuses {
		if t.IsValidTransition(from, s) {
			out = append(out, s)
		}
	}
	return out
}
