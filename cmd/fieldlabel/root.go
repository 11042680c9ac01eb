package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"telemetry-console/internal/auth"
	labelapp "telemetry-console/internal/labels/application"
	telemetry "telemetry-console/internal/telemetry/domain"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fieldlabel",
		Short:         "Readable labels for telemetry field identifiers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newSegmentCmd())
	rootCmd.AddCommand(newTableCmd())
	rootCmd.AddCommand(newTokenCmd())
	return rootCmd
}

func newSegmentCmd() *cobra.Command {
	var plain bool
	var labelsFile string

	cmd := &cobra.Command{
		Use:   "segment <identifier>...",
		Short: "Print the display label of each identifier",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(labelsFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, identifier := range args {
				label := catalog.Label(identifier)
				if plain {
					_, _ = fmt.Fprintln(out, label)
					continue
				}
				_, _ = fmt.Fprintf(out, "%s\t%s\n", identifier, label)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print only the label")
	cmd.Flags().StringVar(&labelsFile, "labels", "", "YAML file with label overrides")
	return cmd
}

func newTableCmd() *cobra.Command {
	var format string
	var labelsFile string

	cmd := &cobra.Command{
		Use:   "table <snapshot.json|->",
		Short: "Render the labelled field table of a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(labelsFile)
			if err != nil {
				return err
			}
			snapshot, err := readSnapshot(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return renderFields(cmd.OutOrStdout(), telemetry.BuildTable(snapshot, catalog), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table|json|csv|md)")
	cmd.Flags().StringVar(&labelsFile, "labels", "", "YAML file with label overrides")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json", "csv", "md"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		tenantID string
		role     string
		subject  string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a console access token signed with AUTH_JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret := os.Getenv("AUTH_JWT_SECRET")
			if secret == "" {
				return errors.New("AUTH_JWT_SECRET is not set")
			}
			normalized, ok := auth.NormalizeRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			token, err := auth.IssueToken([]byte(secret), auth.Identity{TenantID: tenantID, Role: normalized, Subject: subject}, ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "tenant-demo", "tenant id claim")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleViewer), "role claim (viewer|operator|admin)")
	cmd.Flags().StringVar(&subject, "subject", "fieldlabel", "subject claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func loadCatalog(path string) (*labelapp.Catalog, error) {
	if path == "" {
		return labelapp.NewCatalog(), nil
	}
	cfg, err := labelapp.LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	return labelapp.NewCatalog(labelapp.WithOverrides(cfg.Overrides)), nil
}

type snapshotFile struct {
	TenantID string         `json:"tenantId"`
	DeviceID string         `json:"deviceId"`
	TS       int64          `json:"ts"`
	Values   map[string]any `json:"values"`
}

// readSnapshot accepts either an ingest payload or a bare values object.
func readSnapshot(stdin io.Reader, path string) (telemetry.Snapshot, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return telemetry.Snapshot{}, err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return telemetry.Snapshot{}, err
	}

	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return telemetry.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	var file snapshotFile
	if _, ok := shape["values"]; ok {
		if err := decodeJSON(data, &file); err != nil {
			return telemetry.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
		}
	} else if err := decodeJSON(data, &file.Values); err != nil {
		return telemetry.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	snapshot := telemetry.Snapshot{
		TenantID: file.TenantID,
		DeviceID: file.DeviceID,
		Values:   file.Values,
	}
	switch {
	case file.TS > 1_000_000_000_000:
		snapshot.TS = time.UnixMilli(file.TS).UTC()
	case file.TS > 0:
		snapshot.TS = time.Unix(file.TS, 0).UTC()
	}
	return snapshot, nil
}

func decodeJSON(data []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	return decoder.Decode(v)
}
