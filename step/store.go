package step

import (
	"encoding/json"

	"github.com/ducks/llmux/knowledge"
	"github.com/tidwall/gjson"
)

// storeDoc is the wire shape a store step's rendered prompt is expected
// to parse as (spec §4.I / §6): {facts, relationships, entities}, each
// optional, with unrecognized top-level keys ignored.
type storeDoc struct {
	Facts         []storeFact         `json:"facts"`
	Relationships []storeRelationship `json:"relationships"`
	Entities      []storeEntity       `json:"entities"`
}

type storeFact struct {
	Project    string  `json:"project"`
	Fact       string  `json:"fact"`
	Source     string  `json:"source"`
	SourceType string  `json:"source_type"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

type storeRelationship struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Type     string `json:"type"`
	Evidence string `json:"evidence"`
}

type storeEntity struct {
	Project    string                 `json:"project"`
	EntityType string                 `json:"entity_type"`
	EntityName string                 `json:"entity_name"`
	Source     string                 `json:"source"`
	SourceType string                 `json:"source_type"`
	Confidence float64                `json:"confidence"`
	Properties map[string]interface{} `json:"properties"`
}

// parseStoreDoc checks cleaned (already header/fence stripped) with
// gjson.Valid before the authoritative encoding/json decode. Input that
// is not valid JSON is rejected with a SchemaViolationError.
func parseStoreDoc(cleaned string) (storeDoc, error) {
	var doc storeDoc
	if cleaned == "" || !gjson.Valid(cleaned) {
		return doc, &SchemaViolationError{Message: "store step input is not valid JSON"}
	}
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return doc, &SchemaViolationError{Message: "store step input is not valid JSON: " + err.Error()}
	}
	return doc, nil
}

func (d storeDoc) toBatch() knowledge.Batch {
	batch := knowledge.Batch{
		Facts:         make([]knowledge.Fact, len(d.Facts)),
		Relationships: make([]knowledge.Relationship, len(d.Relationships)),
		Entities:      make([]knowledge.Entity, len(d.Entities)),
	}
	for i, f := range d.Facts {
		batch.Facts[i] = knowledge.Fact{
			Project: f.Project, Fact: f.Fact, Source: f.Source,
			SourceType: f.SourceType, Category: f.Category, Confidence: f.Confidence,
		}
	}
	for i, r := range d.Relationships {
		batch.Relationships[i] = knowledge.Relationship{From: r.From, To: r.To, Type: r.Type, Evidence: r.Evidence}
	}
	for i, e := range d.Entities {
		batch.Entities[i] = knowledge.Entity{
			Project: e.Project, EntityType: e.EntityType, EntityName: e.EntityName,
			Source: e.Source, SourceType: e.SourceType, Confidence: e.Confidence, Properties: e.Properties,
		}
	}
	return batch
}
