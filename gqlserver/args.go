package gqlserver

import (
	"encoding/json"
	"strconv"

	"github.com/archbeaver/beaver/catalog"
	"github.com/archbeaver/beaver/errors"
)

// Argument values arrive either as literals (int64, string, bool) or as
// JSON-decoded variables (float64, json.Number, string, bool, []interface{},
// map[string]interface{}).

func parseID(v interface{}) (int64, error) {
	switch id := v.(type) {
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0, errors.NewInvalidRequestError("invalid ID %q", id)
		}
		return n, nil
	case int64:
		return id, nil
	case int:
		return int64(id), nil
	case float64:
		return int64(id), nil
	case json.Number:
		return parseID(id.String())
	}
	return 0, errors.NewInvalidRequestError("invalid ID %v", v)
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case float64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, errors.NewInvalidRequestError("invalid Int %s", n)
		}
		return int(i), nil
	}
	return 0, errors.NewInvalidRequestError("invalid Int %v", v)
}

func requiredID(m map[string]interface{}, name string) (int64, error) {
	v, ok := m[name]
	if !ok || v == nil {
		return 0, errors.NewInvalidRequestError("%s is required", name)
	}
	return parseID(v)
}

func optionalID(m map[string]interface{}, name string) (*int64, error) {
	v, ok := m[name]
	if !ok || v == nil {
		return nil, nil
	}
	id, err := parseID(v)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func optionalInt(m map[string]interface{}, name string) (int, error) {
	v, ok := m[name]
	if !ok || v == nil {
		return 0, nil
	}
	return toInt(v)
}

func optionalString(m map[string]interface{}, name string) *string {
	s, ok := m[name].(string)
	if !ok {
		return nil
	}
	return &s
}

func stringValue(m map[string]interface{}, name string) string {
	s, _ := m[name].(string)
	return s
}

// stringList returns nil when the key is absent or null
func stringList(m map[string]interface{}, name string) []string {
	raw, ok := m[name].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func idList(m map[string]interface{}, name string) ([]int64, error) {
	raw, ok := m[name].([]interface{})
	if !ok {
		return nil, nil
	}
	out := make([]int64, 0, len(raw))
	for _, v := range raw {
		id, err := parseID(v)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func inputObject(args map[string]interface{}, name string) (map[string]interface{}, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, errors.NewInvalidRequestError("%s is required", name)
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, errors.NewInvalidRequestError("%s must be an object", name)
	}
	return m, nil
}

func decodeComponentFilter(args map[string]interface{}) (catalog.ComponentFilter, error) {
	var f catalog.ComponentFilter
	m, ok := args["filter"].(map[string]interface{})
	if !ok {
		return f, nil
	}
	f.Search = stringValue(m, "search")
	f.Tag = stringValue(m, "tag")
	if s := optionalString(m, "status"); s != nil {
		st, err := catalog.ParseComponentStatus(*s)
		if err != nil {
			return f, err
		}
		f.Status = &st
	}
	var err error
	if f.CategoryID, err = optionalID(m, "categoryId"); err != nil {
		return f, err
	}
	if f.TeamID, err = optionalID(m, "teamId"); err != nil {
		return f, err
	}
	if f.EnvironmentID, err = optionalID(m, "environmentId"); err != nil {
		return f, err
	}
	return f, nil
}

func decodeComponentInput(m map[string]interface{}) (catalog.ComponentInput, error) {
	in := catalog.ComponentInput{
		Name:        stringValue(m, "name"),
		Description: stringValue(m, "description"),
		Status:      catalog.ComponentStatus(stringValue(m, "status")),
		Tags:        stringList(m, "tags"),
	}
	var err error
	if in.CategoryID, err = optionalID(m, "categoryId"); err != nil {
		return in, err
	}
	if in.TeamID, err = optionalID(m, "teamId"); err != nil {
		return in, err
	}
	return in, nil
}

func decodeComponentUpdate(m map[string]interface{}) (catalog.ComponentUpdate, error) {
	upd := catalog.ComponentUpdate{
		Name:        optionalString(m, "name"),
		Description: optionalString(m, "description"),
		Tags:        stringList(m, "tags"),
	}
	if s := optionalString(m, "status"); s != nil {
		st := catalog.ComponentStatus(*s)
		upd.Status = &st
	}
	var err error
	if upd.CategoryID, err = optionalID(m, "categoryId"); err != nil {
		return upd, err
	}
	if upd.TeamID, err = optionalID(m, "teamId"); err != nil {
		return upd, err
	}
	return upd, nil
}

func decodeInstanceInput(m map[string]interface{}) (catalog.InstanceInput, error) {
	in := catalog.InstanceInput{Hostname: stringValue(m, "hostname")}
	var err error
	if in.ComponentID, err = requiredID(m, "componentId"); err != nil {
		return in, err
	}
	if in.EnvironmentID, err = requiredID(m, "environmentId"); err != nil {
		return in, err
	}
	switch specs := m["specs"].(type) {
	case nil:
	case map[string]interface{}:
		in.Specs = specs
	default:
		return in, errors.NewInvalidRequestError("specs must be an object")
	}
	return in, nil
}

func decodeADRInput(m map[string]interface{}) (catalog.ADRInput, error) {
	in := catalog.ADRInput{
		Title:        stringValue(m, "title"),
		Description:  stringValue(m, "description"),
		Status:       catalog.ADRStatus(stringValue(m, "status")),
		Tags:         stringList(m, "tags"),
		Participants: []catalog.Participant{},
	}
	raw, _ := m["participants"].([]interface{})
	for _, p := range raw {
		pm, ok := p.(map[string]interface{})
		if !ok {
			return in, errors.NewInvalidRequestError("participant must be an object")
		}
		uid, err := requiredID(pm, "userId")
		if err != nil {
			return in, err
		}
		in.Participants = append(in.Participants, catalog.Participant{
			UserID: uid,
			Role:   catalog.ParticipantRole(stringValue(pm, "role")),
		})
	}
	var err error
	if in.ComponentIDs, err = idList(m, "componentIds"); err != nil {
		return in, err
	}
	if in.InstanceIDs, err = idList(m, "instanceIds"); err != nil {
		return in, err
	}
	return in, nil
}

func decodeNamedInput(m map[string]interface{}) catalog.NamedInput {
	return catalog.NamedInput{Name: stringValue(m, "name"), Description: stringValue(m, "description")}
}

func decodeUserInput(m map[string]interface{}) catalog.UserInput {
	return catalog.UserInput{Name: stringValue(m, "name"), Email: stringValue(m, "email")}
}
