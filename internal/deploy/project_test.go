package deploy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectID(t *testing.T) {
	clearProjectEnv := func(t *testing.T) {
		t.Setenv("GOOGLE_CLOUD_PROJECT", "")
		t.Setenv("GCLOUD_PROJECT", "")
		t.Setenv("GCP_PROJECT", "")
	}

	t.Run("primary variable", func(t *testing.T) {
		clearProjectEnv(t)
		t.Setenv("GOOGLE_CLOUD_PROJECT", "my-project")

		id, err := ProjectID()
		require.NoError(t, err)
		assert.Equal(t, "my-project", id)
	})

	t.Run("fallback order", func(t *testing.T) {
		clearProjectEnv(t)
		t.Setenv("GCLOUD_PROJECT", "second")
		t.Setenv("GCP_PROJECT", "third")

		id, err := ProjectID()
		require.NoError(t, err)
		assert.Equal(t, "second", id)
	})

	t.Run("last resort variable", func(t *testing.T) {
		clearProjectEnv(t)
		t.Setenv("GCP_PROJECT", "third")

		id, err := ProjectID()
		require.NoError(t, err)
		assert.Equal(t, "third", id)
	})

	t.Run("none set", func(t *testing.T) {
		clearProjectEnv(t)

		_, err := ProjectID()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GOOGLE_CLOUD_PROJECT")
	})
}
