package decision

import (
	domdec "github.com/kailas-cloud/jurisdoc/internal/domain/decision"
)

// buildHashFields flattens a decision for HSET. Absent fields are left out.
func buildHashFields(d *domdec.Decision) map[string]string {
	m := map[string]string{FieldID: d.ID()}
	if v := d.Title(); v != nil {
		m[FieldTitle] = *v
	}
	if v := d.Formation(); v != nil {
		m[FieldFormation] = *v
	}
	if v := d.Content(); v != nil {
		m[FieldContent] = *v
	}
	return m
}

// parseHashFields rebuilds a decision from a stored hash.
func parseHashFields(id string, m map[string]string) domdec.Decision {
	if stored := m[FieldID]; stored != "" {
		id = stored
	}
	return domdec.Reconstruct(id, optional(m, FieldTitle), optional(m, FieldFormation), optional(m, FieldContent))
}

func summaryFromFields(fallbackID string, m map[string]string) domdec.Summary {
	id := m[FieldID]
	if id == "" {
		id = fallbackID
	}
	return domdec.Summary{ID: id, Title: optional(m, FieldTitle)}
}

// optional maps a missing or empty hash field to nil.
func optional(m map[string]string, field string) *string {
	v, ok := m[field]
	if !ok || v == "" {
		return nil
	}
	return &v
}
