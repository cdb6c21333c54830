package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"oprdesk/internal/core"
	"oprdesk/pkg/domain"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const maxCellRunes = 40

func newListCmd(opts *rootOptions) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			reports := a.reports.Filter(cmd.Context(), search)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderReports(reports, a.reports.Len()))
			return err
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by program name or organizer")
	return cmd
}

func truncate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxCellRunes {
		return s
	}
	return string([]rune(s)[:maxCellRunes-1]) + "…"
}

// renderReports lays the dashboard out as an aligned table.
func renderReports(reports []domain.Report, total int) string {
	if len(reports) == 0 {
		if total == 0 {
			return mutedStyle.Render("Tiada laporan disimpan.")
		}
		return mutedStyle.Render(fmt.Sprintf("Tiada laporan sepadan (0 daripada %d).", total))
	}
	header := []string{"ID", "TARIKH", "PROGRAM", "PENGANJUR", "IMEJ"}
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []string{
			r.ID,
			r.Date,
			truncate(r.ProgramName),
			truncate(r.Organizer),
			fmt.Sprintf("%d/%d", len(r.Images), domain.MaxImages),
		})
	}
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	line := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = cellStyle.Width(widths[i] + 2).Render(style.Render(cell))
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	}
	var b strings.Builder
	b.WriteString(line(header, headerStyle))
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(line(row, lipgloss.NewStyle()))
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d daripada %d laporan", len(reports), total)))
	return b.String()
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			report, err := a.reports.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}

// promptConfirmer asks on out and reads a y/N answer from in.
func promptConfirmer(in io.Reader, out io.Writer) core.Confirmer {
	reader := bufio.NewReader(in)
	return core.ConfirmFunc(func(_ context.Context, r domain.Report) (bool, error) {
		if _, err := fmt.Fprintf(out, "Adakah anda pasti untuk memadam laporan %q (%s)? [y/N]: ", r.ProgramName, r.ID); err != nil {
			return false, err
		}
		answer, err := reader.ReadString('\n')
		if err != nil && answer == "" {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes", "ya":
			return true, nil
		}
		return false, nil
	})
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a report after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			confirm := promptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
			if yes {
				confirm = core.AlwaysConfirm
			}
			removed, err := a.reports.Delete(cmd.Context(), args[0], confirm)
			if err != nil {
				return err
			}
			if !removed {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "no report with id %s\n", args[0])
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%d remaining)\n", args[0], a.reports.Len())
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		outDir   string
		doUpload bool
	)
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Render a report to PDF and optionally upload it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			report, err := a.reports.Get(ctx, args[0])
			if err != nil {
				return err
			}
			doc, err := a.exporter.Save(ctx, report)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o750); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			path := filepath.Join(outDir, doc.StorageName)
			if err := os.WriteFile(path, doc.Data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "saved %s (%d bytes)\n", path, len(doc.Data)); err != nil {
				return err
			}
			if !doUpload {
				return nil
			}
			ack, err := a.exporter.Upload(ctx, report, a.uploads)
			if err != nil {
				return err
			}
			status := "accepted (unconfirmed)"
			if ack.Confirmed {
				status = "stored"
			}
			_, err = fmt.Fprintf(out, "uploaded %s via %s: %s %s\n", ack.FileName, ack.Sink, status, ack.Location)
			return err
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for the PDF file")
	cmd.Flags().BoolVar(&doUpload, "upload", false, "also send the document to the configured upload sink")
	return cmd
}
