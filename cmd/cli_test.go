package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/chatkit-broker/internal/application"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWidgetScript = `
globalThis.ChatKit = {
  mount: function (opts) {
    if (!opts.client.clientSecret) { throw new Error("missing secret"); }
    return { destroy: function () {} };
  }
};
`

func TestVersionPrintsBuildVersion(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestDevConfigSetRequiresAPIKey(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "devconfig", "set", "--api-key", "   ")
	require.Error(t, err)
	assert.Equal(t, "Enter an OpenAI API key to use for local development.", err.Error())
}

func TestDevConfigSetShowClear(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "devconfig", "set", "--api-key", "sk-dev-1234567890", "--workflow-id", "wf_1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sk-...7890")
	assert.NotContains(t, stdout, "sk-dev-1234567890")

	storage, err := os.ReadFile(filepath.Join(home, ".config", "chatkit", "storage.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(storage), "chatkit.devConfig")

	stdout, _, err = executeCLI(t, home, "devconfig", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "workflow wf_1")
	assert.NotContains(t, stdout, "sk-dev-1234567890")

	_, _, err = executeCLI(t, home, "devconfig", "clear")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "devconfig", "show")
	require.NoError(t, err)
	assert.Equal(t, "developer override: none\n", stdout)
}

func TestDevConfigDisabledInProduction(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CHATKIT_ENV", "production")

	_, _, err := executeCLI(t, home, "devconfig", "set", "--api-key", "sk-dev")
	require.ErrorIs(t, err, application.ErrDevConfigDisabled)
}

func TestSecretSetAndRemoveUseFileStore(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "secret", "set", "--value", "sk-server")
	require.NoError(t, err)

	path := filepath.Join(home, ".config", "chatkit", "secrets", "chatkit", "openai_api_key")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-server\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, _, err = executeCLI(t, home, "secret", "remove")
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSecretSetRequiresValueFlag(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "secret", "set")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"value\" not set")
}

func TestMountAgainstSessionEndpoint(t *testing.T) {
	home := t.TempDir()
	script := writeWidgetScript(t)

	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"client_secret":{"value":"cs_1"}}`))
	}))
	defer endpoint.Close()

	stdout, _, err := executeCLI(t, home, "mount",
		"--endpoint", endpoint.URL+"/api/chatkit/session",
		"--script-url", "file://"+script,
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "chat: mounted")
}

func TestMountMissingServerSecretSuggestsDeveloperOverride(t *testing.T) {
	home := t.TempDir()
	script := writeWidgetScript(t)

	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"OPENAI_API_KEY is not configured on the server."}`))
	}))
	defer endpoint.Close()

	stdout, _, err := executeCLI(t, home, "mount",
		"--endpoint", endpoint.URL+"/api/chatkit/session",
		"--script-url", "file://"+script,
	)
	require.Error(t, err)
	assert.Contains(t, stdout, "We couldn't start the chat")
	assert.Contains(t, stdout, "ckb devconfig set")
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CHATKIT_SECRETS_PASS", "false")
	t.Setenv("CHATKIT_LOG_LEVEL", "error")

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeWidgetScript(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "chatkit.js")
	require.NoError(t, os.WriteFile(path, []byte(testWidgetScript), 0o644))
	return path
}
