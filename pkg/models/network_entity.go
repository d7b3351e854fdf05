package models

import (
	"time"

	"github.com/google/uuid"
)

// EntityType is the closed set of topology node kinds the engine understands.
// Values arriving from the store outside this set are preserved but reported
// by Known() as unrecognized.
type EntityType string

const (
	EntityTypeRadioNode          EntityType = "radio-node"
	EntityTypeCell               EntityType = "cell"
	EntityTypeVoiceCore          EntityType = "voice-core"
	EntityTypeSMSCenter          EntityType = "sms-center"
	EntityTypeBroadbandGateway   EntityType = "broadband-gateway"
	EntityTypeLandlineExchange   EntityType = "landline-exchange"
	EntityTypeEmergencyService   EntityType = "emergency-service"
	EntityTypeSite               EntityType = "site"
	EntityTypeServiceZone        EntityType = "service-zone"
	EntityTypeEnterpriseCustomer EntityType = "enterprise-customer"
	EntityTypeSLA                EntityType = "service-level-agreement"
)

// Known reports whether the type is part of the closed enumeration.
func (t EntityType) Known() bool {
	switch t {
	case EntityTypeRadioNode, EntityTypeCell, EntityTypeVoiceCore,
		EntityTypeSMSCenter, EntityTypeBroadbandGateway, EntityTypeLandlineExchange,
		EntityTypeEmergencyService, EntityTypeSite, EntityTypeServiceZone,
		EntityTypeEnterpriseCustomer, EntityTypeSLA:
		return true
	}
	return false
}

// NetworkEntity is a node in the topology graph.
// ID and TenantID are immutable for the entity's lifetime; ExternalID is the
// caller-supplied identifier and is unique only within a tenant.
// Stored in the entities table.
type NetworkEntity struct {
	ID         uuid.UUID         `json:"id"`
	TenantID   string            `json:"tenant_id"`
	ExternalID string            `json:"external_id,omitempty"`
	Type       EntityType        `json:"type"`
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	// Business attributes used by impact reporting.
	RevenueWeight *float64 `json:"revenue_weight,omitempty"`
	SLATier       *string  `json:"sla_tier,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}
