package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confcentral/confcentral/internal/model"
)

func TestBuild_CoercesNumericValues(t *testing.T) {
	t.Parallel()

	plan, err := Build([]Filter{
		{Field: "MONTH", Operator: "EQ", Value: "6"},
		{Field: "MAX_ATTENDEES", Operator: "GT", Value: " 10 "},
	})
	require.NoError(t, err)
	require.Len(t, plan.Conditions, 2)

	assert.Equal(t, FieldMonth, plan.Conditions[0].Field)
	assert.Equal(t, 6, plan.Conditions[0].Int)
	assert.Equal(t, 10, plan.Conditions[1].Int)
	assert.Equal(t, FieldMaxAttendees, plan.InequalityField)
	assert.Equal(t, []Field{FieldMaxAttendees, FieldName}, plan.OrderBy())
}

func TestBuild_Rejects(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		filters []Filter
		wantErr error
	}{
		{
			name:    "unknown field",
			filters: []Filter{{Field: "COUNTRY", Operator: "EQ", Value: "NL"}},
			wantErr: ErrInvalidFilter,
		},
		{
			name:    "unknown operator",
			filters: []Filter{{Field: "CITY", Operator: "LIKE", Value: "Lon"}},
			wantErr: ErrInvalidFilter,
		},
		{
			name:    "non numeric month",
			filters: []Filter{{Field: "MONTH", Operator: "EQ", Value: "June"}},
			wantErr: ErrInvalidValue,
		},
		{
			name: "two inequality fields",
			filters: []Filter{
				{Field: "MONTH", Operator: "GT", Value: "3"},
				{Field: "MAX_ATTENDEES", Operator: "LT", Value: "10"},
			},
			wantErr: ErrMultipleInequality,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Build(tc.filters)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestBuild_RangeOnSameFieldAllowed(t *testing.T) {
	t.Parallel()

	plan, err := Build([]Filter{
		{Field: "MONTH", Operator: "GTEQ", Value: "3"},
		{Field: "MONTH", Operator: "LT", Value: "9"},
		{Field: "CITY", Operator: "EQ", Value: "Berlin"},
	})
	require.NoError(t, err)
	assert.Equal(t, FieldMonth, plan.InequalityField)
}

func TestBuild_EqualityOnlyOrdersByName(t *testing.T) {
	t.Parallel()

	plan, err := Build([]Filter{{Field: "CITY", Operator: "EQ", Value: "Paris"}})
	require.NoError(t, err)
	assert.Empty(t, plan.InequalityField)
	assert.Equal(t, []Field{FieldName}, plan.OrderBy())
}

func TestPlan_Apply(t *testing.T) {
	t.Parallel()

	confs := []*model.Conference{
		{ID: "1", Name: "Zeta", City: "Berlin", Month: 5, MaxAttendees: 30, Topics: []string{"Go"}},
		{ID: "2", Name: "Alpha", City: "Berlin", Month: 9, MaxAttendees: 300, Topics: []string{"Rust", "Go"}},
		{ID: "3", Name: "Beta", City: "Paris", Month: 2, MaxAttendees: 10, Topics: []string{"Python"}},
		{ID: "4", Name: "Gamma", City: "Berlin", Month: 2, MaxAttendees: 80, Topics: []string{"Web"}},
	}

	t.Run("inequality field sorts first", func(t *testing.T) {
		plan, err := Build([]Filter{
			{Field: "CITY", Operator: "EQ", Value: "Berlin"},
			{Field: "MONTH", Operator: "GT", Value: "1"},
		})
		require.NoError(t, err)
		got := plan.Apply(confs)
		assert.Equal(t, []string{"Gamma", "Zeta", "Alpha"}, names(got))
	})

	t.Run("topic equality means contains", func(t *testing.T) {
		plan, err := Build([]Filter{{Field: "TOPIC", Operator: "EQ", Value: "Go"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"Alpha", "Zeta"}, names(plan.Apply(confs)))
	})

	t.Run("topic not equal means does not contain", func(t *testing.T) {
		plan, err := Build([]Filter{{Field: "TOPIC", Operator: "NE", Value: "Go"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"Beta", "Gamma"}, names(plan.Apply(confs)))
	})

	t.Run("small conference preset", func(t *testing.T) {
		assert.Equal(t, []string{"Beta", "Zeta"}, names(SmallConferences().Apply(confs)))
	})

	t.Run("no filters returns all by name", func(t *testing.T) {
		plan, err := Build(nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"Alpha", "Beta", "Gamma", "Zeta"}, names(plan.Apply(confs)))
	})
}

func names(confs []*model.Conference) []string {
	out := make([]string, 0, len(confs))
	for _, c := range confs {
		out = append(out, c.Name)
	}
	return out
}
