package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/ats-checker/internal/apperr"
	"github.com/jonathan/ats-checker/internal/llm"
	"github.com/jonathan/ats-checker/internal/pipeline"
	"github.com/jonathan/ats-checker/internal/sections"
)

const resume = `Sam Patel
sam.patel@example.com | +44 161 496 0321 | Manchester, UK

Summary
Data engineer with six years of experience. Responsible for pipelines and reporting.

Experience
Data Engineer, Northwind Analytics
2019-03 - Present
- Responsible for ETL jobs
- Helped with dashboards for the sales team
- Built a streaming pipeline processing 5 million events per day

Education
BSc Mathematics, University of Manchester, 2018

Skills
Python, SQL, Airflow, Spark
`

func TestMain(m *testing.M) {
	color.NoColor = true
	for _, key := range []string{"GEMINI_API_KEY", "ATS_AI_API_KEY", "ATS_AI_ENABLED"} {
		_ = os.Unsetenv(key)
	}
	os.Exit(m.Run())
}

// execute runs the CLI in process and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(append(args, "--log-level", "error"))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnalyzeCommand_Human(t *testing.T) {
	path := writeFile(t, t.TempDir(), "resume.txt", resume)

	out, err := execute(t, "analyze", path, "--keywords", "python,kubernetes")
	require.NoError(t, err)

	assert.Contains(t, out, "ATS ANALYSIS")
	assert.Contains(t, out, "resume.txt")
	assert.Contains(t, out, "Grade:")
	assert.Contains(t, out, "KEYWORDS")
	assert.Contains(t, out, "Matched 1 of 2")
}

func TestAnalyzeCommand_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "resume.md", resume)

	out, err := execute(t, "analyze", path, "--format", "json")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "resume.md", result["filename"])
	assert.Equal(t, false, result["degraded"])
	analyses, ok := result["section_analyses"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, analyses, len(sections.All()))
}

func TestAnalyzeCommand_SectionSubset(t *testing.T) {
	path := writeFile(t, t.TempDir(), "resume.txt", resume)

	out, err := execute(t, "analyze", path, "-f", "yaml", "--section", "summary", "--section", "dates")
	require.NoError(t, err)
	assert.Contains(t, out, "section_analyses:")
	assert.Contains(t, out, "summary:")
	assert.Contains(t, out, "dates:")
	assert.NotContains(t, out, "weak_verbs:")
}

func TestAnalyzeCommand_Details(t *testing.T) {
	path := writeFile(t, t.TempDir(), "resume.txt", resume)

	out, err := execute(t, "analyze", path, "--details", "--section", "weak_verbs")
	require.NoError(t, err)
	assert.Contains(t, out, strings.ToUpper(sections.WeakVerbs.Title()))
}

func TestAnalyzeCommand_OutFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "resume.txt", resume)
	target := filepath.Join(dir, "result.json")

	out, err := execute(t, "analyze", path, "--format", "json", "--out", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Result written to")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestAnalyzeCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	txt := writeFile(t, dir, "resume.txt", resume)
	pdf := writeFile(t, dir, "resume.pdf", "%PDF-1.7\n1 0 obj\n<<>>\nendobj\n")
	blank := writeFile(t, dir, "blank.txt", "   \n\n")

	tests := []struct {
		name     string
		args     []string
		exitCode int
		contains string
	}{
		{"unknown section", []string{"analyze", txt, "--section", "cover_letter"}, 2, "cover_letter"},
		{"unknown format", []string{"analyze", txt, "--format", "xml"}, 2, "xml"},
		{"missing file", []string{"analyze", filepath.Join(dir, "nope.txt")}, 2, "failed to read resume"},
		{"blank resume", []string{"analyze", blank}, 2, "empty"},
		{"pdf needs converter", []string{"analyze", pdf}, 3, "pdf"},
		{"ai without key", []string{"analyze", txt, "--ai"}, 78, ""},
		{"unknown role", []string{"analyze", txt, "--role", "astronaut"}, 78, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, apperr.ExitCode(err), "error: %v", err)
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestAnalyzeCommand_JobPosting(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "resume.txt", resume)
	job := writeFile(t, dir, "job.txt", "Data Engineer\nWe need Python, Spark and Kubernetes.\n")

	out, err := execute(t, "analyze", path, "--job", job, "--format", "json")
	require.NoError(t, err)

	var result struct {
		Keywords struct {
			Source  string   `json:"source"`
			Total   int      `json:"total"`
			Found   []string `json:"found"`
			Missing []string `json:"missing"`
		} `json:"keyword_report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "job", result.Keywords.Source)
	assert.Equal(t, 3, result.Keywords.Total)
	assert.ElementsMatch(t, []string{"python", "spark"}, result.Keywords.Found)
	assert.Equal(t, []string{"kubernetes"}, result.Keywords.Missing)
}

func TestAnalyzeCommand_JobPostingURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><nav>Careers</nav><main><h1>Analytics Engineer</h1><ul><li>SQL</li><li>Airflow</li></ul></main></body></html>`))
	}))
	defer server.Close()
	path := writeFile(t, t.TempDir(), "resume.txt", resume)

	out, err := execute(t, "analyze", path, "--job", server.URL, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "source: job")
	assert.Contains(t, out, "- sql")
}

func TestAnalyzeCommand_JobPostingUnavailable(t *testing.T) {
	path := writeFile(t, t.TempDir(), "resume.txt", resume)

	_, err := execute(t, "analyze", path, "--job", filepath.Join(t.TempDir(), "missing.html"))
	require.Error(t, err)
	assert.Equal(t, 3, apperr.ExitCode(err))
}

func TestSectionsCommand(t *testing.T) {
	out, err := execute(t, "sections")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, len(sections.All()))
	assert.Contains(t, out, "achievements_vs_responsibilities")
	assert.NotContains(t, out, "unweighted")

	out, err = execute(t, "sections", "--roles")
	require.NoError(t, err)
	assert.Contains(t, out, "software_developer")
}

func TestSectionsCommand_ConfigFile(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "ats.yaml", "weights:\n  summary: 0.5\n  dates: 0.5\n")

	out, err := execute(t, "sections", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "unweighted")
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", resume)
	writeFile(t, dir, "b.md", resume)
	writeFile(t, dir, "photo.png", "not a resume")
	metricsFile := filepath.Join(t.TempDir(), "ats.prom")

	out, err := execute(t, "batch", dir, "--metrics-file", metricsFile, "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "a.txt")
	assert.Contains(t, out, "b.md")
	assert.NotContains(t, out, "photo.png")
	assert.Contains(t, out, "over 2 file(s)")

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ats_analyses_total")
	assert.Contains(t, string(data), "ats_detector_duration_seconds")
}

func TestBatchCommand_FailuresAreReported(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", resume)
	writeFile(t, dir, "blank.txt", "\n")

	out, err := execute(t, "batch", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files failed")
	assert.Contains(t, out, "good.txt")
	assert.Contains(t, out, "error:")
}

func TestBatchCommand_EmptyDirectory(t *testing.T) {
	_, err := execute(t, "batch", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, 2, apperr.ExitCode(err))
}

func TestCollectKeywords(t *testing.T) {
	path := writeFile(t, t.TempDir(), "kw.txt", "# job keywords\npython, sql\n\nkubernetes\n")

	got, err := collectKeywords([]string{"go"}, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "python", "sql", "kubernetes"}, got)

	got, err = collectKeywords(nil, "")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = collectKeywords(nil, filepath.Join(t.TempDir(), "missing.txt"))
	assert.Equal(t, apperr.CategoryInput, apperr.CategoryOf(err))
}

type stubGenerator struct {
	calls atomic.Int32
	reply string
}

func (s *stubGenerator) Generate(context.Context, string, llm.GenerateConfig) (string, error) {
	s.calls.Add(1)
	return s.reply, nil
}

func TestNewApp_AugmentsWithInjectedGenerator(t *testing.T) {
	stub := &stubGenerator{reply: "```json\n{\"feedback\": \"Lead with outcomes.\", \"suggestions\": [\"Quantify the ETL work\"]}\n```"}
	var states []pipeline.State

	a, err := newApp(context.Background(), &globalFlags{apiKey: "test-key", logLevel: "error"}, appOptions{
		ai:           true,
		generator:    stub,
		onTransition: func(tr pipeline.Transition) { states = append(states, tr.To) },
	})
	require.NoError(t, err)
	defer a.Close()
	require.True(t, a.engine.AugmentationEnabled())

	result, err := a.engine.Analyze(context.Background(), pipeline.Request{Text: resume, AI: true})
	require.NoError(t, err)
	assert.False(t, result.Degraded)
	assert.Positive(t, stub.calls.Load())
	assert.Contains(t, states, pipeline.StateAugmenting)
	assert.Equal(t, pipeline.StateComplete, states[len(states)-1])

	augmented := 0
	for _, s := range result.Sections {
		if s.AIContent != nil {
			augmented++
			assert.Equal(t, "Lead with outcomes.", s.AIContent.Feedback)
		}
	}
	assert.Equal(t, int(stub.calls.Load()), augmented)
}

func TestNewApp_SharedRedisTier(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := writeFile(t, t.TempDir(), "ats.yaml", "cache:\n  redis_addr: "+mr.Addr()+"\n  redis_prefix: \"test:\"\n")
	g := &globalFlags{configPath: cfg, logLevel: "error"}

	first, err := newApp(context.Background(), g, appOptions{})
	require.NoError(t, err)
	_, err = first.engine.Analyze(context.Background(), pipeline.Request{Text: resume})
	require.NoError(t, err)
	first.Close()

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "test:"))

	second, err := newApp(context.Background(), g, appOptions{})
	require.NoError(t, err)
	defer second.Close()
	_, err = second.engine.Analyze(context.Background(), pipeline.Request{Text: resume})
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.engine.CacheStats().Computations)
}

func TestNewApp_UnreachableRedisFallsBackToMemory(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	cfg := writeFile(t, t.TempDir(), "ats.yaml", "cache:\n  redis_addr: "+addr+"\n")

	a, err := newApp(context.Background(), &globalFlags{configPath: cfg, logLevel: "error"}, appOptions{})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.engine.Analyze(context.Background(), pipeline.Request{Text: resume})
	require.NoError(t, err)
}
