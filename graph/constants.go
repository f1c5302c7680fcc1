package graph

import "github.com/archbeaver/beaver/graphstore"

const (
	// Link weight constants
	defaultLinkWeight   = 1.0 // Initial weight for new links
	linkWeightIncrement = 0.5 // Weight increase for duplicate relationships

	defaultNodeColor = "rgba(149, 165, 166, 0.3)" // Transparent gray
)

type typeDefinition struct {
	label string
	color string
	group int
}

var nodeTypeDefinitions = map[graphstore.Label]typeDefinition{
	graphstore.LabelComponent:   {label: "Component", color: "#7fbbb3", group: 1},
	graphstore.LabelInstance:    {label: "Instance", color: "#a7c080", group: 2},
	graphstore.LabelEnvironment: {label: "Environment", color: "#dbbc7f", group: 3},
	graphstore.LabelTeam:        {label: "Team", color: "#d699b6", group: 4},
	graphstore.LabelCategory:    {label: "Category", color: "#83c092", group: 5},
	graphstore.LabelADR:         {label: "ADR", color: "#e69875", group: 6},
}

type relationshipDefinition struct {
	label        string
	color        string
	linkDistance float64
}

var relationshipDefinitions = map[graphstore.RelType]relationshipDefinition{
	graphstore.RelRelatesTo:      {label: "Relates to", color: "#e69875", linkDistance: 120},
	graphstore.RelInstantiates:   {label: "Instantiates", color: "#a7c080", linkDistance: 40},
	graphstore.RelDeployedIn:     {label: "Deployed in", color: "#dbbc7f", linkDistance: 80},
	graphstore.RelBelongsTo:      {label: "Belongs to", color: "#83c092", linkDistance: 100},
	graphstore.RelResponsibleFor: {label: "Responsible for", color: "#d699b6", linkDistance: 100},
}
