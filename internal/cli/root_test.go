package cli

import (
	"bytes"
	"testing"

	"order-sync/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "ordersync", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"migrate", "promote", "resync", "sync", "delete"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	publishFlag := cmd.PersistentFlags().Lookup("publish")
	require.NotNil(t, publishFlag)
	assert.Equal(t, "false", publishFlag.DefValue)
}

func TestPromoteAndSyncFlags(t *testing.T) {
	cmd := NewRootCommand()

	promote, _, err := cmd.Find([]string{"promote"})
	require.NoError(t, err)
	assert.NotNil(t, promote.Flags().Lookup("date"))

	sync, _, err := cmd.Find([]string{"sync"})
	require.NoError(t, err)
	assert.NotNil(t, sync.Flags().Lookup("async"))
}

func TestInvalidFormatRejected(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"resync", "--format", "yaml"})

	err := cmd.Execute()
	assert.ErrorContains(t, err, "invalid format")
}

func TestMigrateRequiresDirection(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"migrate", "sideways"})

	assert.Error(t, cmd.Execute())
}

func TestWriteFailures(t *testing.T) {
	var buf bytes.Buffer
	err := writeFailures(&buf, []service.ResyncFailure{
		{IDInput: "0624-00002", Reason: "database error during sync"},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "0624-00002")
	assert.Contains(t, buf.String(), "database error during sync")
}
