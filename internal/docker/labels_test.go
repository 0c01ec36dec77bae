package docker

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLabels(t *testing.T) {
	t.Run("with component", func(t *testing.T) {
		labels := BuildLabels("edge-cache", "run-123", "/path/to/repo", ComponentStore)

		assert.Equal(t, "true", labels[LabelManaged])
		assert.Equal(t, "edge-cache", labels[LabelProjectName])
		assert.Equal(t, "run-123", labels[LabelRunID])
		assert.Equal(t, "/path/to/repo", labels[LabelWorkspacePath])
		assert.Equal(t, "store", labels[LabelComponent])
	})

	t.Run("without component", func(t *testing.T) {
		labels := BuildLabels("edge-cache", "run-123", "/path/to/repo", "")

		_, hasComponent := labels[LabelComponent]
		assert.False(t, hasComponent)
		assert.Len(t, labels, 4)
	})
}

func TestGenerateRunID(t *testing.T) {
	id1 := GenerateRunID()
	id2 := GenerateRunID()

	_, err := uuid.Parse(id1)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestContainerNames(t *testing.T) {
	assert.Equal(t, "es-network-edge-cache", NetworkName("edge-cache"))
	assert.Equal(t, "es-store-edge-cache", StoreContainerName("edge-cache"))
}
