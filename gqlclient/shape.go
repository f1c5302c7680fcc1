package gqlclient

// Shape selects the field set an optimized query fetches
type Shape int

const (
	// ShapeList fetches scalar fields only, for list rendering
	ShapeList Shape = iota
	// ShapeDetail fetches instances, relationships, full components and reviewers
	ShapeDetail
)

// Variables that toggle @include directives in the optimized documents
const (
	VarIncludeInstances      = "includeInstances"
	VarIncludeRelationships  = "includeRelationships"
	VarIncludeFullComponents = "includeFullComponents"
	VarIncludeFullReviewers  = "includeFullReviewers"
)

// OptimizationKeys lists the variables owned by a Shape
var OptimizationKeys = []string{
	VarIncludeInstances,
	VarIncludeRelationships,
	VarIncludeFullComponents,
	VarIncludeFullReviewers,
}

// FieldSet is the static set of related fields a shape fetches
type FieldSet struct {
	Instances      bool
	Relationships  bool
	FullComponents bool
	FullReviewers  bool
}

var (
	listFields   = FieldSet{}
	detailFields = FieldSet{Instances: true, Relationships: true, FullComponents: true, FullReviewers: true}
)

func (s Shape) String() string {
	if s == ShapeDetail {
		return "detail"
	}
	return "list"
}

// FieldSet returns the fields fetched by s
func (s Shape) FieldSet() FieldSet {
	if s == ShapeDetail {
		return detailFields
	}
	return listFields
}

// Variables merges caller variables with the shape's include flags. The
// shape wins for the optimization keys; the caller wins for every other key.
// caller is not modified.
func (s Shape) Variables(caller map[string]interface{}) map[string]interface{} {
	fs := s.FieldSet()
	out := make(map[string]interface{}, len(caller)+len(OptimizationKeys))
	for k, v := range caller {
		out[k] = v
	}
	out[VarIncludeInstances] = fs.Instances
	out[VarIncludeRelationships] = fs.Relationships
	out[VarIncludeFullComponents] = fs.FullComponents
	out[VarIncludeFullReviewers] = fs.FullReviewers
	return out
}
