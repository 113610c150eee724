package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/coursegen-backend/internal/data/db"
)

func TestReadinessChecksFollowConfiguredClients(t *testing.T) {
	assert.Empty(t, readinessChecks(Clients{}))

	gdb, err := db.NewSQLite("file::memory:")
	require.NoError(t, err)
	checks := readinessChecks(Clients{DB: gdb})
	require.Len(t, checks, 1)
	assert.Equal(t, "database", checks[0].Name)
	assert.NoError(t, checks[0].Check(context.Background()))
}
