package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{
		{"serve"}, {"import"}, {"migrate"}, {"history"},
		{"backup", "create"}, {"backup", "list"}, {"backup", "stats"},
		{"backup", "cleanup"}, {"backup", "restore"}, {"backup", "delete"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestImportFlags(t *testing.T) {
	cmd := newImportCmd()
	f := cmd.Flags().Lookup("strategy")
	require.NotNil(t, f)
	assert.Equal(t, "merge", f.DefValue)
	assert.NotNil(t, cmd.Flags().Lookup("dry-run"))
	assert.Error(t, cmd.Args(cmd, nil))
}
