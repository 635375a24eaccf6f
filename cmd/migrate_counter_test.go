package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCounterCmd_Metadata(t *testing.T) {
	assert.Equal(t, "migrate-counter", migrateCounterCmd.Use)
	assert.Contains(t, migrateCounterCmd.Short, "counter")
	assert.NotNil(t, migrateCounterCmd.Run)
}

func TestMigrateCounterCmd_IsRegisteredOnRoot(t *testing.T) {
	found := false
	for _, cmd := range RootCmd.Commands() {
		if cmd.Use == "migrate-counter" {
			found = true
			break
		}
	}
	assert.True(t, found, "migrateCounterCmd should be registered on RootCmd")
}

func TestMigrateCounterCmd_StartValueFlagDefault(t *testing.T) {
	flag := migrateCounterCmd.Flags().Lookup("start-value")
	require.NotNil(t, flag)
	assert.Equal(t, "10018", flag.DefValue)
}

func TestMigrateCounterCmd_UsageOutput(t *testing.T) {
	buf := new(bytes.Buffer)
	migrateCounterCmd.SetOut(buf)
	migrateCounterCmd.SetErr(buf)

	err := migrateCounterCmd.Usage()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "start-value")
}
