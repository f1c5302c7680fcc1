package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archbeaver/beaver/errors"
)

type fakeInstances struct {
	calls  []InstanceWhere
	result *Instance
	err    error
}

func (f *fakeInstances) FindFirstInstance(_ context.Context, where InstanceWhere) (*Instance, error) {
	f.calls = append(f.calls, where)
	return f.result, f.err
}

type fakeLookups struct {
	envs     map[string]int64
	roadmaps map[string]int64
	err      error
}

func (f *fakeLookups) FindFirstEnvironment(_ context.Context, where NameWhere) (*Environment, error) {
	if f.err != nil {
		return nil, f.err
	}
	id, ok := f.envs[where.Name]
	if !ok {
		return nil, nil
	}
	return &Environment{ID: id, Name: where.Name}, nil
}

func (f *fakeLookups) FindFirstRoadmapType(_ context.Context, where NameWhere) (*RoadmapType, error) {
	if f.err != nil {
		return nil, f.err
	}
	id, ok := f.roadmaps[where.Name]
	if !ok {
		return nil, nil
	}
	return &RoadmapType{ID: id, Name: where.Name}, nil
}

func TestValidateADRParticipants(t *testing.T) {
	tests := []struct {
		name         string
		participants []Participant
		wantErr      bool
	}{
		{"owner only", []Participant{{UserID: 1, Role: RoleOwner}}, false},
		{"owner among others", []Participant{{UserID: 1, Role: RoleReviewer}, {UserID: 2, Role: RoleOwner}}, false},
		{"empty", nil, true},
		{"no owner", []Participant{{UserID: 1, Role: RoleReviewer}, {UserID: 2, Role: RoleContributor}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateADRParticipants(tt.participants)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, MsgADRNeedsOwner, err.Error())
			assert.True(t, errors.IsValidationError(err))
		})
	}
}

func TestValidateComponentInstance(t *testing.T) {
	ctx := context.Background()

	t.Run("no existing instance", func(t *testing.T) {
		f := &fakeInstances{}
		require.NoError(t, ValidateComponentInstance(ctx, f, 1, 2, nil))
		require.Len(t, f.calls, 1)
		assert.Equal(t, int64(1), f.calls[0].ComponentID)
		assert.Equal(t, int64(2), f.calls[0].EnvironmentID)
		assert.Nil(t, f.calls[0].ExcludeID)
	})

	t.Run("duplicate pair conflicts", func(t *testing.T) {
		f := &fakeInstances{result: &Instance{ID: 9, ComponentID: 1, EnvironmentID: 2}}
		err := ValidateComponentInstance(ctx, f, 1, 2, nil)
		require.Error(t, err)
		assert.Equal(t, MsgDuplicateInstance, err.Error())
		assert.True(t, errors.IsConflictError(err))
	})

	t.Run("exclusion is forwarded", func(t *testing.T) {
		f := &fakeInstances{}
		exclude := int64(3)
		require.NoError(t, ValidateComponentInstance(ctx, f, 1, 2, &exclude))
		require.Len(t, f.calls, 1)
		require.NotNil(t, f.calls[0].ExcludeID)
		assert.Equal(t, int64(3), *f.calls[0].ExcludeID)
	})

	t.Run("lookup failure is not a conflict", func(t *testing.T) {
		f := &fakeInstances{err: errors.New("connection reset")}
		err := ValidateComponentInstance(ctx, f, 1, 2, nil)
		require.Error(t, err)
		assert.False(t, errors.IsConflictError(err))
	})
}

func TestLegacyLookups(t *testing.T) {
	ctx := context.Background()
	f := &fakeLookups{
		envs:     map[string]int64{"development": 1, "homologation": 2, "production": 3},
		roadmaps: map[string]int64{"feature": 1},
	}

	id, err := GetEnvironmentIDFromLegacyEnum(ctx, f, "production")
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	_, err = GetEnvironmentIDFromLegacyEnum(ctx, f, "staging")
	require.Error(t, err)
	assert.Equal(t, "Environment not found for legacy value: staging", err.Error())
	assert.True(t, errors.IsNotFoundError(err))

	id, err = GetRoadmapTypeIDFromLegacyEnum(ctx, f, "feature")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	_, err = GetRoadmapTypeIDFromLegacyEnum(ctx, f, "epic")
	require.Error(t, err)
	assert.Equal(t, "Roadmap type not found for legacy value: epic", err.Error())

	f.err = errors.New("db down")
	_, err = GetEnvironmentIDFromLegacyEnum(ctx, f, "production")
	require.Error(t, err)
	assert.False(t, errors.IsNotFoundError(err))
}

func TestParseEnums(t *testing.T) {
	st, err := ParseComponentStatus("DEPRECATED")
	require.NoError(t, err)
	assert.Equal(t, ComponentDeprecated, st)

	_, err = ParseComponentStatus("retired")
	assert.True(t, errors.IsValidationError(err))

	adr, err := ParseADRStatus("Accepted")
	require.NoError(t, err)
	assert.Equal(t, ADRAccepted, adr)

	role, err := ParseParticipantRole("REVIEWER")
	require.NoError(t, err)
	assert.Equal(t, RoleReviewer, role)
}

func TestInputValidation(t *testing.T) {
	in := ComponentInput{Name: "billing", Tags: []string{" Go ", "go", "", "API"}}
	require.NoError(t, in.Validate())
	assert.Equal(t, ComponentActive, in.Status)
	assert.Equal(t, []string{"go", "api"}, in.Tags)

	assert.Error(t, (&ComponentInput{Name: "  "}).Validate())

	adr := ADRInput{Title: "Use Postgres", Participants: []Participant{{UserID: 1, Role: RoleReviewer}}}
	err := adr.Validate()
	require.Error(t, err)
	assert.Equal(t, MsgADRNeedsOwner, err.Error())

	adr.Participants = append(adr.Participants, Participant{UserID: 2, Role: RoleOwner})
	require.NoError(t, adr.Validate())
	assert.Equal(t, ADRDraft, adr.Status)

	upper := ADRInput{Title: "Use Kafka", Status: "ACCEPTED", Participants: []Participant{{UserID: 1, Role: "OWNER"}}}
	require.NoError(t, upper.Validate())
	assert.Equal(t, ADRAccepted, upper.Status)
	assert.Equal(t, RoleOwner, upper.Participants[0].Role)

	inst := InstanceInput{ComponentID: 1}
	assert.Error(t, inst.Validate())
	inst.EnvironmentID = 2
	require.NoError(t, inst.Validate())
	assert.NotNil(t, inst.Specs)
}

func TestComponentUpdateApply(t *testing.T) {
	c := Component{Name: "old", Status: ComponentActive}
	name := "new"
	status := ComponentStatus("INACTIVE")
	require.NoError(t, ComponentUpdate{Name: &name, Status: &status, Tags: []string{"A"}}.Apply(&c))
	assert.Equal(t, "new", c.Name)
	assert.Equal(t, ComponentInactive, c.Status)
	assert.Equal(t, []string{"a"}, c.Tags)

	blank := ""
	assert.Error(t, ComponentUpdate{Name: &blank}.Apply(&c))
}

func TestPageInfo(t *testing.T) {
	info := NewPageInfo(25, PageRequest{Page: 2, PageSize: 10})
	assert.Equal(t, PageInfo{TotalItems: 25, CurrentPage: 2, PageSize: 10, TotalPages: 3, HasNextPage: true, HasPreviousPage: true}, info)

	info = NewPageInfo(0, PageRequest{})
	assert.Equal(t, 1, info.CurrentPage)
	assert.Equal(t, DefaultPageSize, info.PageSize)
	assert.Equal(t, 0, info.TotalPages)
	assert.False(t, info.HasNextPage)
	assert.False(t, info.HasPreviousPage)

	req := PageRequest{Page: 3, PageSize: 500}.Normalize()
	assert.Equal(t, MaxPageSize, req.PageSize)
	assert.Equal(t, 200, req.Offset())
}
