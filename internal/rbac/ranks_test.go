package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRanks(t *testing.T) {
	ranks := DefaultRanks()
	for i, name := range []RoleName{Employee, Manager, HR, Director, Admin} {
		r, ok := ranks.Rank(name)
		require.True(t, ok)
		assert.Equal(t, i+1, r)
	}
	assert.Equal(t, Admin, ranks.Top())
}

func TestHighestRank(t *testing.T) {
	ranks := DefaultRanks()

	r, err := ranks.Highest([]RoleName{Employee, HR, Manager})
	require.NoError(t, err)
	assert.Equal(t, 3, r)

	_, err = ranks.Highest(nil)
	assert.ErrorIs(t, err, ErrNoRoles)

	_, err = ranks.Highest([]RoleName{"Intern"})
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestParseRoles(t *testing.T) {
	ranks := DefaultRanks()

	names, err := ranks.Parse([]string{"Employee", "Manager"})
	require.NoError(t, err)
	assert.Equal(t, []RoleName{Employee, Manager}, names)

	_, err = ranks.Parse([]string{})
	assert.ErrorIs(t, err, ErrNoRoles)
	_, err = ranks.Parse([]string{"admin"})
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestNewRankTableRejectsDuplicates(t *testing.T) {
	_, err := NewRankTable(Employee, Employee)
	assert.Error(t, err)
	_, err = NewRankTable()
	assert.ErrorIs(t, err, ErrNoRoles)
}
