package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"RingsideSync/internal/app"
	"RingsideSync/internal/config"
	"RingsideSync/internal/domain"
	"RingsideSync/internal/logging"
)

var (
	rootCmd = &cobra.Command{
		Use:           "ringsidesync",
		Short:         "Wrestling news ingestion and sync",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the sync orchestrator, quality monitor and HTTP API",
		RunE:  cmdRun,
	}
	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass and print per-domain stats",
		RunE:  cmdSync,
	}
	sourcesCmd = &cobra.Command{
		Use:   "sources",
		Short: "Print the source catalog",
		RunE:  cmdSources,
	}
	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Print the quality report as JSON",
		RunE:  cmdReport,
	}

	configPath  string
	syncDomains []string
	skipSync    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config (default $RINGSIDE_CONFIG)")
	syncCmd.Flags().StringSliceVar(&syncDomains, "domain", nil, "domains to sync (default all)")
	reportCmd.Flags().BoolVar(&skipSync, "no-sync", false, "report on cached state without syncing first")

	rootCmd.AddCommand(runCmd, syncCmd, sourcesCmd, reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApplication(ctx context.Context) (*app.Application, error) {
	cfg, err := config.LoadPath(configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	return app.New(ctx, cfg, logger)
}

func cmdRun(cmd *cobra.Command, _ []string) (err error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := application.Close(); err == nil {
			err = closeErr
		}
	}()

	return application.Run(ctx)
}

func cmdSync(cmd *cobra.Command, _ []string) (err error) {
	domains := make([]domain.SyncDomain, 0, len(syncDomains))
	for _, v := range syncDomains {
		d, err := domain.ParseSyncDomain(v)
		if err != nil {
			return err
		}
		domains = append(domains, d)
	}

	application, err := newApplication(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := application.Close(); err == nil {
			err = closeErr
		}
	}()

	pass, err := application.SyncOnce(cmd.Context(), domains...)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tSOURCES\tFAILED\tPARSED\tDUPLICATES\tVALID\tPUBLISHED\tERROR")
	for _, r := range pass.Results {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		s := r.Stats
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.Domain, s.SourcesTotal, s.SourcesFailed, s.Parsed, s.Duplicates, s.Valid, s.Published, errText)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "state: %s\n", pass.State)
	if pass.State == domain.StateError {
		return fmt.Errorf("sync finished with errors")
	}
	return nil
}

func cmdSources(cmd *cobra.Command, _ []string) (err error) {
	application, err := newApplication(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := application.Close(); err == nil {
			err = closeErr
		}
	}()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTIER\tFORMAT\tDOMAINS\tRELIABILITY\tENDPOINT")
	for _, src := range application.Sources() {
		domains := make([]string, 0, len(src.Domains))
		for _, d := range src.Domains {
			domains = append(domains, string(d))
		}
		format := src.Format
		if format == "" {
			format = "auto"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\n",
			src.Name, src.Tier, format, strings.Join(domains, ","), src.Reliability, src.Endpoint)
	}
	return w.Flush()
}

func cmdReport(cmd *cobra.Command, _ []string) (err error) {
	application, err := newApplication(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := application.Close(); err == nil {
			err = closeErr
		}
	}()

	report, err := application.Report(cmd.Context(), !skipSync)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
