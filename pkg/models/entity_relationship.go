package models

import (
	"time"

	"github.com/google/uuid"
)

// RelationshipType is the closed set of edge semantics. Edge direction plus
// type fully determines upstream/downstream classification; see
// services.TraversalService.
type RelationshipType string

const (
	// RelationshipHosts: source physically hosts/contains target
	// (site hosts zone, radio node hosts cell).
	RelationshipHosts RelationshipType = "HOSTS"
	// RelationshipServes: source serves the target customer or zone.
	RelationshipServes RelationshipType = "SERVES"
	// RelationshipDependsOn: source functionally depends on target
	// (cell depends on voice core). The source is the dependent.
	RelationshipDependsOn RelationshipType = "DEPENDS_ON"
	// RelationshipCoveredBy: source customer is covered by the target SLA.
	RelationshipCoveredBy RelationshipType = "COVERED_BY"
	// RelationshipConnectsTo: peer connectivity, carries no cause/effect
	// semantics and is never classified.
	RelationshipConnectsTo RelationshipType = "CONNECTS_TO"
)

// Known reports whether the type is part of the closed enumeration.
// Unknown types coming from the store are dropped from classification,
// never rejected, since topology producers evolve independently.
func (t RelationshipType) Known() bool {
	switch t {
	case RelationshipHosts, RelationshipServes, RelationshipDependsOn,
		RelationshipCoveredBy, RelationshipConnectsTo:
		return true
	}
	return false
}

// Direction selects which adjacency of an entity a neighbor query returns.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing" // queried entity is the source
	DirectionIncoming Direction = "incoming" // queried entity is the target
	DirectionBoth     Direction = "both"
)

// EntityRelationship is a directed, typed edge between two entities of the
// same tenant. Endpoint types are denormalized onto the edge so classification
// does not need an extra lookup. Direction encodes semantic asymmetry and is
// recorded at ingestion time, never inferred.
// Stored in the entity_relationships table.
type EntityRelationship struct {
	ID       uuid.UUID `json:"id"`
	TenantID string    `json:"tenant_id"`

	SourceID   uuid.UUID  `json:"source_id"`
	SourceType EntityType `json:"source_type"`
	TargetID   uuid.UUID  `json:"target_id"`
	TargetType EntityType `json:"target_type"`

	Type RelationshipType `json:"type"`

	// Weight is an optional traversal cost/confidence. Unused by base
	// classification, available to extensions.
	Weight *float64 `json:"weight,omitempty"`

	// Validity window for point-in-time topology. Edges outside the window
	// are excluded from current traversal.
	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// CurrentAt reports whether the edge's validity window covers ts.
// A nil bound is open-ended on that side.
func (r *EntityRelationship) CurrentAt(ts time.Time) bool {
	if r.ValidFrom != nil && ts.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidUntil != nil && !ts.Before(*r.ValidUntil) {
		return false
	}
	return true
}

// Neighbor pairs an edge with the entity on its far side, as returned by
// RelationshipRepository.Neighbors.
type Neighbor struct {
	Relationship *EntityRelationship
	Entity       *NetworkEntity
}

// IsOutgoing reports whether the edge leaves the given entity, i.e. the
// entity is the edge's source.
func (n Neighbor) IsOutgoing(entityID uuid.UUID) bool {
	return n.Relationship.SourceID == entityID
}
