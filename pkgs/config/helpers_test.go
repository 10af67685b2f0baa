package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dgenies/batchdsl/pkgs/tools"
)

func mustTool(t *testing.T, name string) *tools.Tool {
	t.Helper()
	tool, err := tools.NewTool(name, name, false, 5)
	require.NoError(t, err)
	return tool
}
