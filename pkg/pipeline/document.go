package pipeline

import (
	"encoding/json"
	"slices"

	"github.com/matzehuels/erdiagram/pkg/er"
)

// Document is the JSON description of a built diagram. It is both the json
// output format and the cached result of the build stage.
type Document struct {
	Entities []EntityInfo `json:"entities"`
	Edges    []EdgeInfo   `json:"edges"`
	Pending  []EdgeInfo   `json:"pending,omitempty"`
	DOT      string       `json:"dot"`
}

// EntityInfo describes one registered entity.
type EntityInfo struct {
	Name      string     `json:"name"`
	Fields    []string   `json:"fields"`
	Relations []EdgeInfo `json:"relations,omitempty"`
}

// EdgeInfo describes one edge by its anchors. BlockedOn is set for edges
// that never materialized.
type EdgeInfo struct {
	From      string `json:"from"`
	To        string `json:"to"`
	BlockedOn string `json:"blocked_on,omitempty"`
}

// NewDocument snapshots g. Pending edges are sorted by blocker name so the
// output is stable.
func NewDocument(g *er.Graph, dotSrc string) *Document {
	doc := &Document{DOT: dotSrc}

	for _, e := range g.Entities() {
		info := EntityInfo{Name: e.Name(), Fields: e.Fields()}
		for _, rel := range e.Relations() {
			from := rel.From.SelfAnchor()
			if rel.Field != "" {
				// DeclareEdgeTo rejected unknown fields, so this cannot fail.
				from, _ = rel.From.FieldAnchor(rel.Field)
			}
			info.Relations = append(info.Relations, EdgeInfo{From: string(from), To: string(rel.To.SelfAnchor())})
		}
		doc.Entities = append(doc.Entities, info)
	}

	for _, k := range g.Edges() {
		doc.Edges = append(doc.Edges, EdgeInfo{From: string(k.From), To: string(k.To)})
	}

	pending := g.Pending()
	blockers := make([]string, 0, len(pending))
	for name := range pending {
		blockers = append(blockers, name)
	}
	slices.Sort(blockers)
	for _, name := range blockers {
		for _, k := range pending[name] {
			doc.Pending = append(doc.Pending, EdgeInfo{From: string(k.From), To: string(k.To), BlockedOn: name})
		}
	}
	return doc
}

// Entity returns the entity with the given name.
func (d *Document) Entity(name string) (EntityInfo, bool) {
	for _, e := range d.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return EntityInfo{}, false
}

// Incoming returns the materialized edges whose destination is the named
// entity.
func (d *Document) Incoming(name string) []EdgeInfo {
	var out []EdgeInfo
	for _, e := range d.Edges {
		if er.Anchor(e.To).Node() == name {
			out = append(out, e)
		}
	}
	return out
}

// MarshalIndent encodes the document as indented JSON.
func (d *Document) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// UnmarshalDocument decodes a document produced by MarshalIndent.
func UnmarshalDocument(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
