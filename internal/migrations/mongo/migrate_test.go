package mongo

import (
	"fmt"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// indexName resolves the name Mongo will use for an index model: the explicit
// option when set, otherwise the name derived from the key pattern.
func indexName(t *testing.T, model mongo.IndexModel) string {
	t.Helper()

	if model.Options != nil && model.Options.Name != nil {
		return *model.Options.Name
	}

	keys, ok := model.Keys.(bson.D)
	if !ok {
		t.Fatalf("index keys must be bson.D, got %T", model.Keys)
	}

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s_%v", key.Key, key.Value))
	}
	return strings.Join(parts, "_")
}

// Two index models resolving to the same name make createIndexes fail with
// IndexKeySpecsConflict and abort the whole migration job.
func TestIndexNamesUniquePerCollection(t *testing.T) {
	collections := map[string][]mongo.IndexModel{
		"Availability_blocks": AvailabilityBlocksIndexes,
		"Slot_locks":          SlotLocksIndexes,
		"Vehicles":            VehiclesIndexes,
		"Shifts":              ShiftsIndexes,
		"Client_services":     ClientServicesIndexes,
		"Vehicle_assignments": VehicleAssignmentsIndexes,
		"Tours":               ToursIndexes,
		"Tickets":             TicketsIndexes,
	}

	for collection, models := range collections {
		t.Run(collection, func(t *testing.T) {
			seen := make(map[string]bool)
			for _, model := range models {
				name := indexName(t, model)
				if seen[name] {
					t.Errorf("duplicate index name %q; give one of the indexes an explicit name", name)
				}
				seen[name] = true
			}
		})
	}
}

func TestHoldWindowIndexIsPartialUnique(t *testing.T) {
	var holdIndex *mongo.IndexModel
	for i, model := range AvailabilityBlocksIndexes {
		name := indexName(t, model)
		if name == "uniq_hold_window" {
			holdIndex = &AvailabilityBlocksIndexes[i]
		}
	}
	if holdIndex == nil {
		t.Fatal("expected a uniq_hold_window index on Availability_blocks")
	}

	if holdIndex.Options.Unique == nil || !*holdIndex.Options.Unique {
		t.Error("hold window index must be unique")
	}
	filter, ok := holdIndex.Options.PartialFilterExpression.(bson.M)
	if !ok {
		t.Fatalf("expected bson.M partial filter, got %T", holdIndex.Options.PartialFilterExpression)
	}
	if filter["block_type"] != "hold" {
		t.Errorf("expected partial filter on hold blocks, got %v", filter)
	}
}
