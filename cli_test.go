package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEntries = `{"timestamp":"2025-02-01T20:00:02Z","user_name":"bob","content":"hi"}
{"timestamp":"2025-02-01T20:00:01Z","user_name":"alice","content":"line1\nline2"}
`

type cliEnv struct {
	dir       string
	cfgPath   string
	inputPath string
	outputDir string
}

// setupCLIEnv 写入测试配置与记录文件，未配置任何 APIKey
func setupCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	dir := t.TempDir()
	env := &cliEnv{
		dir:       dir,
		cfgPath:   filepath.Join(dir, "config.yaml"),
		inputPath: filepath.Join(dir, "entries.jsonl"),
		outputDir: filepath.Join(dir, "wrapups"),
	}

	cfg := "LLM:\n  Provider: openai\n" +
		"Wrapup:\n  OutputDir: " + env.outputDir + "\n  UserNames:\n    alice: Alice\n" +
		"Store:\n  Path: " + filepath.Join(dir, "data", "sqlite.db") + "\n"
	require.NoError(t, os.WriteFile(env.cfgPath, []byte(cfg), 0644))
	require.NoError(t, os.WriteFile(env.inputPath, []byte(testEntries), 0644))
	return env
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newCLIApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"talk-wrapup", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestBuildCmd_FromInputWithoutAPIKey(t *testing.T) {
	env := setupCLIEnv(t)

	out, err := runCLI(t, "-f", env.cfgPath, "build", "--name", "session1", "--input", env.inputPath)
	require.NoError(t, err)

	chatlog := filepath.Join(env.outputDir, "session1_transcript.log")
	assert.Contains(t, out, "chatlog: "+chatlog)
	assert.Contains(t, out, "outline: skipped")
	assert.NoFileExists(t, filepath.Join(env.outputDir, "session1_outline.md"))

	data, err := os.ReadFile(chatlog)
	require.NoError(t, err)
	assert.Equal(t, "Alice: line1line2\nbob: hi", string(data))

	out, err = runCLI(t, "-f", env.cfgPath, "runs", "--name", "session1")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "skipped")
}

func TestImportThenBuildFromSession(t *testing.T) {
	env := setupCLIEnv(t)

	out, err := runCLI(t, "-f", env.cfgPath, "import", "--session", "s1", "--input", env.inputPath)
	require.NoError(t, err)
	assert.Contains(t, out, "imported: 2")

	_, err = runCLI(t, "-f", env.cfgPath, "build", "--name", "from-store", "--session", "s1", "--no-outline")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(env.outputDir, "from-store_transcript.log"))
	require.NoError(t, err)
	assert.Equal(t, "Alice: line1line2\nbob: hi", string(data))
}

func TestBuildCmd_FailureRecorded(t *testing.T) {
	env := setupCLIEnv(t)

	_, err := runCLI(t, "-f", env.cfgPath, "build", "--name", "a/b", "--input", env.inputPath)
	require.Error(t, err)

	out, err := runCLI(t, "-f", env.cfgPath, "runs", "--name", "a/b")
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
	assert.NotContains(t, out, "in_progress")
}

func TestBuildCmd_RequiresExactlyOneSource(t *testing.T) {
	env := setupCLIEnv(t)

	_, err := runCLI(t, "-f", env.cfgPath, "build", "--name", "x")
	assert.Error(t, err)

	_, err = runCLI(t, "-f", env.cfgPath, "build", "--name", "x", "--session", "s", "--input", env.inputPath)
	assert.Error(t, err)
}

func TestBuildCmd_MissingConfig(t *testing.T) {
	env := setupCLIEnv(t)

	_, err := runCLI(t, "-f", filepath.Join(env.dir, "missing.yaml"), "build", "--name", "x", "--input", env.inputPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "读取配置文件失败")
}
