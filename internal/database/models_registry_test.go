package database

import (
	"testing"

	"techatlas/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPersistentModels_CoversEveryContentKind(t *testing.T) {
	tables := map[string]bool{}
	for _, model := range PersistentModels() {
		if tabler, ok := model.(interface{ TableName() string }); ok {
			tables[tabler.TableName()] = true
		}
	}

	for _, info := range models.AllKinds() {
		assert.True(t, tables[info.Table], "missing model for %s", info.Kind)
	}
	assert.True(t, tables["blog_posts"])
	assert.True(t, tables["forum_threads"])
	assert.True(t, tables["forum_replies"])
	assert.True(t, tables["users"])
}
