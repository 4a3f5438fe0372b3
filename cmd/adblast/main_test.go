package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FranksOps/adblast/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oracleEnv points the CLI at a local oracle answering only the base geo query.
func oracleEnv(t *testing.T) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if q == "pizzaria em Curitiba" {
			fmt.Fprint(w, `["pizzaria em Curitiba",["pizzaria curitiba centro","pizzaria delivery curitiba"]]`)
			return
		}
		fmt.Fprintf(w, `[%q,[]]`, q)
	}))
	t.Cleanup(ts.Close)

	t.Setenv("ADBLAST_ORACLE_URL", ts.URL)
	t.Setenv("ADBLAST_ORACLE_FINGERPRINT", "go")
	t.Setenv("ADBLAST_LOG_LEVEL", "error")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("ADBLAST_LLM_API_KEY", "")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	harvestFlags.location, harvestFlags.offer, harvestFlags.audience = "", "", ""
	harvestFlags.client, harvestFlags.niche, harvestFlags.format = "", "", "text"

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHarvestCommand_JSON(t *testing.T) {
	oracleEnv(t)

	out, err := execute(t, "harvest", "pizzaria", "--location", "Curitiba", "--format", "json")
	require.NoError(t, err)

	var got struct {
		Tier     string `json:"tier"`
		Total    int    `json:"total"`
		Keywords []struct {
			Keyword string `json:"keyword"`
		} `json:"keywords"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "scrape_geo", got.Tier)
	assert.Equal(t, 2, got.Total)
	assert.Len(t, got.Keywords, 2)
}

func TestHarvestCommand_StaticFallbackText(t *testing.T) {
	oracleEnv(t)

	out, err := execute(t, "harvest", "chaveiro", "--location", "Natal")
	require.NoError(t, err)
	assert.Contains(t, out, "chaveiro em Natal")
	assert.Contains(t, out, "static_fallback")
}

func TestHarvestCommand_Errors(t *testing.T) {
	oracleEnv(t)

	_, err := execute(t, "harvest", "pizzaria", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = execute(t, "harvest", "pizzaria", "--client", "Zé")
	assert.ErrorContains(t, err, "oferta")

	_, err = execute(t, "harvest", "pizzaria", "--client", "Zé", "--offer", "rodízio", "--niche", "famílias")
	assert.ErrorContains(t, err, "api key")

	_, err = execute(t, "harvest")
	assert.Error(t, err)
}

func TestBuildStack(t *testing.T) {
	oracleEnv(t)
	cfg, err := config.Load("", filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := buildStack(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer st.Close()
	assert.NotNil(t, st.pipeline.Harvester)
	assert.Nil(t, st.pipeline.Writer)

	cfg.LLM.APIKey = "sk-test"
	st2, err := buildStack(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer st2.Close()
	assert.NotNil(t, st2.pipeline.Writer)

	cfg.Oracle.ProxiesFile = filepath.Join(t.TempDir(), "missing.txt")
	_, err = buildStack(context.Background(), cfg, logger)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, config.LogConfig{Level: "warn", Format: "json"}, false)
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))

	buf.Reset()
	l = newLogger(&buf, config.LogConfig{Level: "warn"}, true)
	l.Debug("debug on")
	assert.Contains(t, buf.String(), "debug on")
}
