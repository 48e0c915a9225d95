package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryUpMigrationHasDown(t *testing.T) {
	names, err := fs.Glob(FS, "*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, up := range names {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		_, err := fs.Stat(FS, down)
		assert.NoError(t, err, "missing %s", down)
	}
}

func TestSettingsTableColumns(t *testing.T) {
	raw, err := fs.ReadFile(FS, "000001_create_booking_page_settings.up.sql")
	require.NoError(t, err)
	for _, col := range []string{"business_id", "steps", "custom_texts", "version", "updated_at", "layout_type"} {
		assert.Contains(t, string(raw), col)
	}
}
