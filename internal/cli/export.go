package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/intraceai/archive-viewer/internal/export"
	"github.com/intraceai/archive-viewer/pkg/shared"
)

func newExportCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		format     string
		outDir     string
		selected   []string
		noMetadata bool
		noContent  bool
		images     bool
		quiet      bool
	)
	cmd := &cobra.Command{
		Use:   "export <domain>",
		Short: "Export snapshots for a domain to a file",
		Long: "Export writes the filtered snapshots (or only those given with --select) " +
			"as a JSON, CSV or plain listing file.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			v, err := loadView(cmd, cfg, args[0])
			if err != nil {
				return err
			}
			if len(selected) > 0 {
				v.Select(selected...)
			} else {
				v.ToggleAll()
			}
			snapshots := v.SelectedSnapshots()
			if len(snapshots) == 0 {
				return &shared.ValidationError{Field: "selected", Message: "no snapshots match the selection"}
			}

			opts := export.Options{
				Format:          f,
				IncludeMetadata: !noMetadata,
				IncludeContent:  !noContent,
				IncludeImages:   images,
			}
			progress := func(p int) {
				if !quiet {
					fmt.Fprintf(stderr, "\rexporting %d snapshots... %3d%%", len(snapshots), p)
				}
			}

			file, err := export.NewWorkflow(export.WithStepDelay(cfg.Export.StepDelay)).Run(snapshots, opts, progress)
			if !quiet {
				fmt.Fprintln(stderr)
			}
			if err != nil {
				return err
			}

			path := filepath.Join(outDir, file.Name)
			if err := os.WriteFile(path, file.Data, 0o644); err != nil {
				return &shared.ExportError{Format: string(f), Err: err}
			}
			fmt.Fprintf(stdout, "%s\t%s\tsha256:%s\n", path, humanize.Bytes(uint64(len(file.Data))), file.SHA256)
			return nil
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "zip", "Export format: zip, json or csv")
	cmd.Flags().StringVar(&outDir, "out", ".", "Directory to write the export file to")
	cmd.Flags().StringSliceVar(&selected, "select", nil, "Snapshot timestamps to export (default: every filtered snapshot)")
	cmd.Flags().BoolVar(&noMetadata, "no-metadata", false, "Leave export metadata out of JSON output")
	cmd.Flags().BoolVar(&noContent, "no-content", false, "Record that page content was not requested")
	cmd.Flags().BoolVar(&images, "images", false, "Record that images were requested")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not print progress")
	return cmd
}
