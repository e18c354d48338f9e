package labs

import (
	"context"
	"testing"

	"github.com/angelmondragon/labfunds-backend/pkg/db/dbtest"
	"github.com/angelmondragon/labfunds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/labfunds-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryGetLaboratory(t *testing.T) {
	conn := dbtest.Open(t)
	seeded := dbtest.SeedLab(t, conn, "prof-1", "s1", "s2")

	dir, err := NewDirectory(NewRepository(conn))
	require.NoError(t, err)

	lab, err := dir.GetLaboratory(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "prof-1", lab.CreatorID)
	assert.ElementsMatch(t, []string{"s1", "s2"}, lab.Members)
	assert.True(t, lab.IsCreator("prof-1"))
	assert.False(t, lab.IsCreator("s1"))
	assert.True(t, lab.IsMember("s2"))
	assert.True(t, lab.IsMember("prof-1"))
	assert.False(t, lab.IsMember("outsider"))
	assert.Equal(t, enums.MemberRoleProfessor, lab.Roles["prof-1"])
	assert.Equal(t, enums.MemberRoleStudent, lab.Roles["s1"])

	_, err = dir.GetLaboratory(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = dir.GetLaboratory(context.Background(), uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
