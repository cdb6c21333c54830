package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"oprdesk/internal/config"
	"oprdesk/internal/core"
	"oprdesk/pkg/domain"
)

type fakePrinter struct{}

func (fakePrinter) PrintPDF(context.Context, []byte) ([]byte, error) {
	return []byte("%PDF-1.7 fake"), nil
}

func setTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for k, v := range map[string]string{
		"OPRDESK_CONFIG":         "",
		"OPRDESK_STORAGE_DRIVER": "sqlite",
		"OPRDESK_SQLITE_PATH":    filepath.Join(dir, "oprdesk.db"),
		"OPRDESK_BLOB_DRIVER":    "fs",
		"OPRDESK_BLOB_FS_ROOT":   filepath.Join(dir, "blobs"),
		"OPRDESK_UPLOAD_DRIVER":  "none",
		"OPRDESK_LOG_LEVEL":      "error",
		"OPRDESK_GENAI_API_KEY":  "",
		"GEMINI_API_KEY":         "",
	} {
		t.Setenv(k, v)
	}
	return dir
}

func seed(t *testing.T, names ...string) []domain.Report {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	a, err := newApp(context.Background(), &rootOptions{cfg: cfg, printer: fakePrinter{}})
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	defer func() { _ = a.Close() }()
	var out []domain.Report
	for _, name := range names {
		r, err := a.reports.Create(context.Background(), domain.Fields{
			ProgramName: name,
			Organizer:   "Unit Kokurikulum",
			Date:        "2024-08-05",
			PreparedBy:  "Cikgu Aminah",
		}, nil)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		out = append(out, r)
	}
	return out
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmdWith(&rootOptions{printer: fakePrinter{}})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListAndShow(t *testing.T) {
	setTestEnv(t)
	reports := seed(t, "Hari Sukan Negara", "Kem Motivasi")

	out, err := run(t, "", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Hari Sukan Negara") || !strings.Contains(out, "Kem Motivasi") || !strings.Contains(out, "2 daripada 2") {
		t.Fatalf("unexpected list output:\n%s", out)
	}
	if strings.Index(out, "Kem Motivasi") > strings.Index(out, "Hari Sukan Negara") {
		t.Fatalf("list must be newest first:\n%s", out)
	}

	out, err = run(t, "", "list", "--search", "sukan")
	if err != nil || strings.Contains(out, "Kem Motivasi") || !strings.Contains(out, "1 daripada 2") {
		t.Fatalf("filtered list (%v):\n%s", err, out)
	}

	out, err = run(t, "", "show", reports[0].ID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var got domain.Report
	if err := json.Unmarshal([]byte(out), &got); err != nil || got.ID != reports[0].ID {
		t.Fatalf("show output %q (%v)", out, err)
	}
	if _, err := run(t, "", "show", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteConfirmation(t *testing.T) {
	setTestEnv(t)
	reports := seed(t, "Program A", "Program B")

	if _, err := run(t, "n\n", "delete", reports[0].ID); !errors.Is(err, core.ErrDeleteDeclined) {
		t.Fatalf("expected declined, got %v", err)
	}
	out, err := run(t, "y\n", "delete", reports[0].ID)
	if err != nil || !strings.Contains(out, "1 remaining") {
		t.Fatalf("confirmed delete (%v): %s", err, out)
	}
	out, err = run(t, "", "delete", "--yes", reports[1].ID)
	if err != nil || !strings.Contains(out, "0 remaining") {
		t.Fatalf("delete --yes (%v): %s", err, out)
	}
	out, err = run(t, "", "delete", "--yes", reports[1].ID)
	if err != nil || !strings.Contains(out, "no report") {
		t.Fatalf("unknown delete (%v): %s", err, out)
	}
	out, err = run(t, "", "list")
	if err != nil || !strings.Contains(out, "Tiada laporan disimpan.") {
		t.Fatalf("empty list (%v): %s", err, out)
	}
}

func TestExportWritesFileAndArchive(t *testing.T) {
	dir := setTestEnv(t)
	reports := seed(t, "Hari Kokurikulum")
	outDir := filepath.Join(dir, "out")

	out, err := run(t, "", "export", reports[0].ID, "--out", outDir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil || len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "OPR_Hari_Kokurikulum_") {
		t.Fatalf("unexpected output dir %v (%v), stdout %s", entries, err, out)
	}
	archived, err := filepath.Glob(filepath.Join(dir, "blobs", "documents", reports[0].ID, "*.pdf"))
	if err != nil || len(archived) != 1 {
		t.Fatalf("expected archived copy, got %v (%v)", archived, err)
	}

	if _, err := run(t, "", "export", reports[0].ID, "--out", outDir, "--upload"); err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Fatalf("expected disabled upload error, got %v", err)
	}
}

func TestExportSlashInProgramNameStaysInOutDir(t *testing.T) {
	dir := setTestEnv(t)
	reports := seed(t, "Hari Guru 2024/2025")
	outDir := filepath.Join(dir, "out")

	if out, err := run(t, "", "export", reports[0].ID, "--out", outDir); err != nil {
		t.Fatalf("export (%v): %s", err, out)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil || len(entries) != 1 || entries[0].IsDir() || !strings.HasPrefix(entries[0].Name(), "OPR_Hari_Guru_2024_2025_") {
		t.Fatalf("expected a single flat file, got %v (%v)", entries, err)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	setTestEnv(t)
	t.Setenv("OPRDESK_STORAGE_DRIVER", "mongo")
	if _, err := run(t, "", "list"); err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestPromptConfirmer(t *testing.T) {
	r := domain.Report{ID: "r1", Fields: domain.Fields{ProgramName: "Kem"}}
	cases := map[string]bool{"y\n": true, "YA\n": true, "yes": true, "\n": false, "n\n": false, "": false}
	for in, want := range cases {
		var out bytes.Buffer
		got, err := promptConfirmer(strings.NewReader(in), &out).Confirm(context.Background(), r)
		if err != nil || got != want {
			t.Fatalf("answer %q: got %v, %v", in, got, err)
		}
		if !strings.Contains(out.String(), "[y/N]") {
			t.Fatalf("prompt missing: %q", out.String())
		}
	}
}

func TestRenderReportsTruncates(t *testing.T) {
	long := strings.Repeat("Program Sangat Panjang ", 5)
	table := renderReports([]domain.Report{{ID: "r1", Fields: domain.Fields{ProgramName: long, Organizer: "Unit"}}}, 3)
	if strings.Contains(table, long) || !strings.Contains(table, "…") {
		t.Fatalf("expected truncated program name:\n%s", table)
	}
	if !strings.Contains(table, "0/4") || !strings.Contains(table, "1 daripada 3") {
		t.Fatalf("unexpected table:\n%s", table)
	}
	if got := renderReports(nil, 3); !strings.Contains(got, "0 daripada 3") {
		t.Fatalf("unexpected empty filter message %q", got)
	}
}
