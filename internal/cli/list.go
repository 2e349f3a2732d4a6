package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/intraceai/archive-viewer/internal/collection"
	"github.com/intraceai/archive-viewer/internal/config"
	"github.com/intraceai/archive-viewer/internal/filter"
	"github.com/intraceai/archive-viewer/pkg/models"
	"github.com/intraceai/archive-viewer/pkg/shared"
)

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("status", "", "Only snapshots with this status (completed, processing, failed)")
	cmd.Flags().String("size", "", "Only snapshots in this size bucket (small, medium, large)")
	cmd.Flags().String("from", "", "Earliest capture date, YYYY-MM-DD")
	cmd.Flags().String("to", "", "Latest capture date, YYYY-MM-DD")
	cmd.Flags().StringP("query", "q", "", "Case-insensitive search over title and URL")
}

func criteriaFromFlags(cmd *cobra.Command) (filter.Criteria, error) {
	v := url.Values{}
	for flag, param := range map[string]string{"status": "status", "size": "size", "from": "from", "to": "to", "query": "q"} {
		if s, _ := cmd.Flags().GetString(flag); s != "" {
			v.Set(param, s)
		}
	}
	return filter.ParseCriteria(v)
}

// loadView fetches the domain listing and applies the filter flags.
func loadView(cmd *cobra.Command, cfg *config.Config, rawDomain string) (*collection.View, error) {
	domain := shared.CleanDomain(rawDomain)
	if err := shared.ValidateDomain(domain); err != nil {
		return nil, err
	}
	criteria, err := criteriaFromFlags(cmd)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client := newClient(cfg)
	v := collection.New(client, collection.WithBackendURL(client.BaseURL()))
	v.SetCriteria(criteria)
	if err := v.Load(ctx, domain); err != nil {
		return v, fmt.Errorf("%s: %w", v.State().Message, err)
	}
	return v, nil
}

func newListCmd(stdout, stderr io.Writer) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list <domain>",
		Short: "List archived snapshots for a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			v, err := loadView(cmd, cfg, args[0])
			if err != nil {
				return err
			}
			st := v.State()

			switch output {
			case "json":
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(models.ArchiveViewResponse{
					Domain:    st.Domain,
					Phase:     st.Phase.String(),
					Total:     len(st.Snapshots),
					Shown:     len(st.Filtered),
					Snapshots: st.Filtered,
					Selected:  []string{},
					Filters:   st.Criteria.Active(),
				})
			case "table", "":
				if err := renderTable(stdout, st.Filtered); err != nil {
					return err
				}
				fmt.Fprintln(stderr, st.Summary())
				return nil
			default:
				return fmt.Errorf("unsupported --output: %s", output)
			}
		},
	}
	addFilterFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table or json")
	return cmd
}

func renderTable(w io.Writer, snapshots []models.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tSTATUS\tSIZE\tTITLE")
	for _, s := range snapshots {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Timestamp, s.Status, s.Size, s.DisplayTitle(s.URL))
	}
	return tw.Flush()
}
