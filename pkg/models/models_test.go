package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEntityTypeKnown(t *testing.T) {
	known := []EntityType{
		EntityTypeRadioNode, EntityTypeCell, EntityTypeVoiceCore,
		EntityTypeSMSCenter, EntityTypeBroadbandGateway, EntityTypeLandlineExchange,
		EntityTypeEmergencyService, EntityTypeSite, EntityTypeServiceZone,
		EntityTypeEnterpriseCustomer, EntityTypeSLA,
	}
	for _, et := range known {
		assert.True(t, et.Known(), "expected %q to be known", et)
	}

	assert.False(t, EntityType("submarine").Known())
	assert.False(t, EntityType("").Known())
}

func TestRelationshipTypeKnown(t *testing.T) {
	known := []RelationshipType{
		RelationshipHosts, RelationshipServes, RelationshipDependsOn,
		RelationshipCoveredBy, RelationshipConnectsTo,
	}
	for _, rt := range known {
		assert.True(t, rt.Known(), "expected %q to be known", rt)
	}

	assert.False(t, RelationshipType("ROUTES_AROUND").Known())
}

func TestRelationshipCurrentAt(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)
	later := now.Add(time.Hour)

	tests := []struct {
		name  string
		from  *time.Time
		until *time.Time
		want  bool
	}{
		{"open both sides", nil, nil, true},
		{"within window", &earlier, &later, true},
		{"not yet valid", &later, nil, false},
		{"already expired", nil, &earlier, false},
		{"expires exactly now", nil, &now, false},
		{"starts exactly now", &now, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := &EntityRelationship{ValidFrom: tt.from, ValidUntil: tt.until}
			assert.Equal(t, tt.want, rel.CurrentAt(now))
		})
	}
}

func TestNeighborIsOutgoing(t *testing.T) {
	source := uuid.New()
	target := uuid.New()
	n := Neighbor{
		Relationship: &EntityRelationship{SourceID: source, TargetID: target},
		Entity:       &NetworkEntity{ID: target},
	}

	assert.True(t, n.IsOutgoing(source))
	assert.False(t, n.IsOutgoing(target))
}
