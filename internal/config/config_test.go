package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestMapGetters(t *testing.T) {
	m := Map{
		"a":     "12",
		"b":     "nope",
		"flag":  "true",
		"dur":   "250ms",
		"ticks": "1500",
	}
	assert.Equal(t, 12, m.Int("a", 1))
	assert.Equal(t, 7, m.Int("b", 7))
	assert.Equal(t, 3, m.Int("missing", 3))
	assert.Equal(t, int64(12), m.Int64("a", 0))
	assert.True(t, m.Bool("flag", false))
	assert.Equal(t, 250*time.Millisecond, m.Duration("dur", 0))
	assert.Equal(t, 1500*time.Microsecond, m.Micros("ticks", 0))
	assert.Equal(t, "x", m.String("missing", "x"))

	_, err := m.Require("missing")
	assert.ErrorIs(t, err, ErrMissing)
}

func TestMapSet(t *testing.T) {
	m := Map{}
	require.NoError(t, m.Set("Model.Width = 64"))
	assert.Equal(t, "64", m["Model.Width"])
	assert.Error(t, m.Set("novalue"))
	assert.Error(t, m.Set("=3"))
}

func TestRecordPath(t *testing.T) {
	assert.Empty(t, Map{}.RecordPath())
	m := Map{KeyRecordLocation: "out", KeyRecordFile: "life.csv"}
	assert.Equal(t, filepath.Join("out", "life.csv"), m.RecordPath())
}

func TestLoadFileTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "life.toml", `
[Model]
Sim = "life"
Width = 64
Height = 32
ModelTicks = 500

[Engine]
Workers = 3
Policy = "constant"
`)
	m, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "life", m[KeySim])
	assert.Equal(t, 64, m.Int(KeyWidth, 0))
	assert.Equal(t, 32, m.Int(KeyHeight, 0))
	assert.Equal(t, 500*time.Microsecond, m.Micros(KeyModelTicks, 0))
	assert.Equal(t, 3, m.Int(KeyWorkers, 0))
	assert.Equal(t, "constant", m[KeyPolicy])
}

func TestLoadFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "life.json", `{"Model":{"Width":100,"Seed":7},"Tags":["a","b"],"On":true}`)
	m, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "100", m[KeyWidth])
	assert.Equal(t, int64(7), m.Int64(KeySeed, 0))
	assert.Equal(t, "a,b", m["Tags"])
	assert.Equal(t, "true", m["On"])
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "cfg")
	require.NoError(t, os.Mkdir(cfgDir, 0o755))

	settings := writeFile(t, dir, "settings.json", `{"ConfigFilePath":"`+filepath.ToSlash(cfgDir)+`"}`)
	writeFile(t, cfgDir, "run.json", `{"Configuration":"life","Monitor":"watch"}`)
	writeFile(t, cfgDir, "life.json", `{"Model":{"Width":10,"Height":10}}`)
	writeFile(t, cfgDir, "watch.json", `{"Cells":[1,2,3]}`)

	m, err := Load(settings, "run")
	require.NoError(t, err)
	assert.Equal(t, 10, m.Int(KeyWidth, 0))
	assert.Equal(t, "1,2,3", m["Monitor.Cells"])
}

func TestLoadMissingPieces(t *testing.T) {
	dir := t.TempDir()
	settings := writeFile(t, dir, "settings.json", `{"ConfigFilePath":"`+filepath.ToSlash(dir)+`"}`)

	_, err := Load(settings, "")
	assert.ErrorIs(t, err, ErrMissing)

	_, err = Load(settings, "absent")
	assert.ErrorIs(t, err, os.ErrNotExist)

	writeFile(t, dir, "nocfg.json", `{"Monitor":"watch"}`)
	_, err = Load(settings, "nocfg")
	assert.ErrorIs(t, err, ErrMissing)

	// a missing monitor is tolerated
	writeFile(t, dir, "ok.json", `{"Configuration":"model","Monitor":"gone"}`)
	writeFile(t, dir, "model.json", `{"Model":{"Sim":"life"}}`)
	m, err := Load(settings, "ok.json")
	require.NoError(t, err)
	assert.Equal(t, "life", m[KeySim])
}
