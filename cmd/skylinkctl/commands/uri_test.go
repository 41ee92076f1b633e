package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylink-net/skylinkctl/internal/rotation/storage"
)

const testHost = "skylinkvpn-123456789012.us-central1.run.app"

func TestURICommand_WithHostOverride(t *testing.T) {
	t.Setenv("SKYLINK_ROTATION_DIR", t.TempDir())
	cfg := testConfig(t, testConfigYAML)

	output, err := captureStdout(t, NewURICommand(cfg), []string{"--host", testHost})
	require.NoError(t, err)

	lines := nonEmptyLines(output)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "trojan://Trojan-"))
	assert.Contains(t, lines[0], "host="+testHost)
}

func TestURICommand_ProtocolArgument(t *testing.T) {
	t.Setenv("SKYLINK_ROTATION_DIR", t.TempDir())
	cfg := testConfig(t, testConfigYAML)

	output, err := captureStdout(t, NewURICommand(cfg), []string{"vless-grpc", "--host", testHost})
	require.NoError(t, err)

	lines := nonEmptyLines(output)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "vless://"))
	assert.Contains(t, lines[0], "type=grpc")
	assert.Contains(t, lines[0], "sni="+testHost)
}

func TestURICommand_AllProtocols(t *testing.T) {
	t.Setenv("SKYLINK_ROTATION_DIR", t.TempDir())
	cfg := testConfig(t, testConfigYAML)

	output, err := captureStdout(t, NewURICommand(cfg), []string{"--all", "--host", testHost})
	require.NoError(t, err)

	lines := nonEmptyLines(output)
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "trojan://"))
	assert.True(t, strings.HasPrefix(lines[1], "vless://"))
	assert.True(t, strings.HasPrefix(lines[2], "vless://"))
	assert.True(t, strings.HasPrefix(lines[3], "vmess://"))
}

func TestURICommand_UsesStoredDeployment(t *testing.T) {
	t.Setenv("SKYLINK_ROTATION_DIR", t.TempDir())
	cfg := testConfig(t, testConfigYAML)

	store := openStorage()
	require.NoError(t, store.SaveDeployment(&storage.Deployment{
		ServiceName:   "skylinkvpn",
		CanonicalHost: testHost,
		Protocol:      "trojan",
	}))

	output, err := captureStdout(t, NewURICommand(cfg), nil)
	require.NoError(t, err)
	assert.Contains(t, output, "host="+testHost)
}

func TestURICommand_NoDeployment(t *testing.T) {
	t.Setenv("SKYLINK_ROTATION_DIR", t.TempDir())
	cfg := testConfig(t, testConfigYAML)

	_, err := captureStdout(t, NewURICommand(cfg), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deploy")
}

func TestURICommand_RejectsUnknownProtocol(t *testing.T) {
	t.Setenv("SKYLINK_ROTATION_DIR", t.TempDir())
	cfg := testConfig(t, testConfigYAML)

	_, err := captureStdout(t, NewURICommand(cfg), []string{"wireguard", "--host", testHost})
	assert.Error(t, err)
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
