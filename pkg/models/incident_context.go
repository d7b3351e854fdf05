package models

import "github.com/google/uuid"

// TraversalDirection records, on a classified result entry, which way the
// neighbor sits relative to the incident entity.
type TraversalDirection string

const (
	TraversalUpstream   TraversalDirection = "upstream"
	TraversalDownstream TraversalDirection = "downstream"
)

// ImpactEntry is one classified neighbor in an incident context: the edge
// that linked it, which side of the incident it sits on, and enough of the
// neighbor's identity for display and further linking.
type ImpactEntry struct {
	Relationship RelationshipType   `json:"relationship"`
	Direction    TraversalDirection `json:"direction"`
	EntityID     uuid.UUID          `json:"entity_id"`
	EntityName   string             `json:"entity_name"`
	EntityType   EntityType         `json:"entity_type"`
	ExternalID   string             `json:"external_id,omitempty"`
}

// IncidentContext is the assembled answer for one incident entity: what could
// have caused it (upstream), who it affects (downstream), and which SLAs are
// contractually exposed through downstream enterprise customers.
type IncidentContext struct {
	EntityID   uuid.UUID  `json:"entity_id"`
	EntityName string     `json:"entity_name"`
	EntityType EntityType `json:"entity_type"`

	UpstreamDependencies []ImpactEntry `json:"upstream_dependencies"`
	DownstreamImpacts    []ImpactEntry `json:"downstream_impacts"`
	CriticalSLAs         []ImpactEntry `json:"critical_slas"`
}
