package header_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castsync/cast/pkg/header"
)

func TestParseParticipationList(t *testing.T) {
	v := header.NewSequence([]header.Value{
		header.NewScalar("vault-a (cast)"),
		header.NewScalar("vault-b (sync)"),
	})

	pl, err := header.ParseParticipationList(v)
	require.NoError(t, err)
	require.Len(t, pl, 2)
	assert.Equal(t, "vault-a", pl[0].VaultID)
	assert.Equal(t, header.RoleCast, pl[0].Role)

	role, ok := pl.RoleOf("vault-b")
	require.True(t, ok)
	assert.Equal(t, header.RoleSync, role)

	assert.False(t, pl.Lists("vault-c"))
}

func TestParseParticipationList_Null(t *testing.T) {
	pl, err := header.ParseParticipationList(header.Null)
	require.NoError(t, err)
	assert.Nil(t, pl)
}

func TestParseParticipationList_RejectsNonSequence(t *testing.T) {
	_, err := header.ParseParticipationList(header.NewScalar("oops"))
	assert.Error(t, err)
}

func TestParticipationList_ToValue_RoundTrips(t *testing.T) {
	pl := header.ParticipationList{
		{VaultID: "vault-a", Role: header.RoleCast},
	}
	reparsed, err := header.ParseParticipationList(pl.ToValue())
	require.NoError(t, err)
	assert.Equal(t, pl, reparsed)
}
