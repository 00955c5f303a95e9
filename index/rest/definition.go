package rest

import "github.com/poiesic/imageindex/index"

const (
	hnswAlgorithm      = "hnswAlgorithm"
	weightsProfileName = "textWeights"
)

type fieldDef struct {
	Name                string `json:"name"`
	Type                string `json:"type"`
	Key                 bool   `json:"key,omitempty"`
	Searchable          bool   `json:"searchable"`
	Filterable          bool   `json:"filterable"`
	Sortable            bool   `json:"sortable"`
	Facetable           bool   `json:"facetable"`
	Retrievable         bool   `json:"retrievable"`
	Dimensions          int    `json:"dimensions,omitempty"`
	VectorSearchProfile string `json:"vectorSearchProfile,omitempty"`
}

type indexDef struct {
	Name                  string           `json:"name"`
	Fields                []fieldDef       `json:"fields"`
	ScoringProfiles       []scoringProfile `json:"scoringProfiles,omitempty"`
	DefaultScoringProfile string           `json:"defaultScoringProfile,omitempty"`
	VectorSearch          *vectorSearch    `json:"vectorSearch,omitempty"`
}

type scoringProfile struct {
	Name string `json:"name"`
	Text struct {
		Weights map[string]float64 `json:"weights"`
	} `json:"text"`
}

type vectorSearch struct {
	Algorithms []map[string]string `json:"algorithms"`
	Profiles   []map[string]string `json:"profiles"`
}

// definition renders schema as a search service index definition.
func definition(schema *index.Schema) indexDef {
	def := indexDef{Name: schema.Name}
	profiles := map[string]bool{}

	for _, f := range schema.Fields {
		fd := fieldDef{
			Name:        f.Name,
			Type:        "Edm.String",
			Filterable:  f.Filterable,
			Sortable:    f.Sortable,
			Facetable:   f.Facetable,
			Retrievable: true,
		}
		switch f.Kind {
		case index.KindKey:
			fd.Key = true
		case index.KindText:
			fd.Searchable = true
		case index.KindVector:
			fd.Type = "Collection(Edm.Single)"
			fd.Searchable = true
			fd.Sortable = false
			fd.Facetable = false
			fd.Dimensions = f.Dimensions
			fd.VectorSearchProfile = f.Profile
			if f.Profile != "" {
				profiles[f.Profile] = true
			}
		}
		def.Fields = append(def.Fields, fd)
	}

	if len(schema.TextWeights) > 0 {
		sp := scoringProfile{Name: weightsProfileName}
		sp.Text.Weights = schema.TextWeights
		def.ScoringProfiles = []scoringProfile{sp}
		def.DefaultScoringProfile = weightsProfileName
	}

	if len(profiles) > 0 {
		vs := &vectorSearch{
			Algorithms: []map[string]string{{"name": hnswAlgorithm, "kind": "hnsw"}},
		}
		// Profiles follow field order so the definition is stable.
		for _, f := range schema.Fields {
			if profiles[f.Profile] {
				vs.Profiles = append(vs.Profiles, map[string]string{"name": f.Profile, "algorithm": hnswAlgorithm})
				delete(profiles, f.Profile)
			}
		}
		def.VectorSearch = vs
	}
	return def
}
