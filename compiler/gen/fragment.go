package gen

import "slices"

// Artifact names one of the per-entity generated files.
type Artifact string

// Per-entity artifacts.
const (
	ArtifactModel   Artifact = "model"
	ArtifactService Artifact = "service"
	ArtifactRoutes  Artifact = "routes"
)

// Artifacts lists the per-entity artifacts in rendering order.
var Artifacts = []Artifact{ArtifactModel, ArtifactService, ArtifactRoutes}

// Fragment is an operation unit included in an artifact when its condition
// holds for the entity. A nil Cond always holds.
type Fragment struct {
	Name        string
	Description string
	Artifacts   []Artifact
	Cond        func(*Type) bool
}

// Included reports whether the fragment contributes to artifact a of t.
func (f Fragment) Included(t *Type, a Artifact) bool {
	if !slices.Contains(f.Artifacts, a) {
		return false
	}
	return f.Cond == nil || f.Cond(t)
}

// Fragment names.
const (
	FragCreate     = "create"
	FragList       = "list"
	FragGet        = "get"
	FragUpdate     = "update"
	FragDelete     = "delete"
	FragFilter     = "filter"
	FragEdgeFrom   = "edge-from"
	FragEdgeTo     = "edge-to"
	FragEdgeFromTo = "edge-from-to"
	FragCustom     = "custom"
)

var (
	all   = []Artifact{ArtifactModel, ArtifactService, ArtifactRoutes}
	logic = []Artifact{ArtifactService, ArtifactRoutes}
)

// Fragments is the default fragment set, in rendering order.
var Fragments = []Fragment{
	{
		Name:        FragCreate,
		Description: "Create a record after required, unique and default handling",
		Artifacts:   all,
	},
	{
		Name:        FragList,
		Description: "List records with pagination",
		Artifacts:   logic,
	},
	{
		Name:        FragGet,
		Description: "Fetch a record by key",
		Artifacts:   logic,
	},
	{
		Name:        FragUpdate,
		Description: "Merge a partial update into a record",
		Artifacts:   all,
	},
	{
		Name:        FragDelete,
		Description: "Delete a record unless an edge references it",
		Artifacts:   logic,
	},
	{
		Name:        FragFilter,
		Description: "List records matching search field filters",
		Artifacts:   logic,
		Cond:        (*Type).Searchable,
	},
	{
		Name:        FragEdgeFrom,
		Description: "List edges leaving a document",
		Artifacts:   logic,
		Cond:        (*Type).Traversable,
	},
	{
		Name:        FragEdgeTo,
		Description: "List edges reaching a document",
		Artifacts:   logic,
		Cond:        (*Type).Traversable,
	},
	{
		Name:        FragEdgeFromTo,
		Description: "List edges linking two documents",
		Artifacts:   logic,
		Cond:        (*Type).Traversable,
	},
	{
		Name:        FragCustom,
		Description: "User-authored endpoints rendered from templates",
		Artifacts:   logic,
		Cond:        (*Type).HasCustom,
	},
}

// Fragments returns the names of the fragments included in artifact a.
func (t *Type) Fragments(a Artifact) []string {
	var names []string
	for _, f := range Fragments {
		if f.Included(t, a) {
			names = append(names, f.Name)
		}
	}
	return names
}

// Includes reports whether the named fragment is included in artifact a.
func (t *Type) Includes(a Artifact, name string) bool {
	return slices.Contains(t.Fragments(a), name)
}
