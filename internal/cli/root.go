// Package cli implements the learner-analytics command line.
package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"
)

// RootOptions holds the global flags shared by every report command.
type RootOptions struct {
	ConfigPath string
	Enterprise string
	Start      string
	End        string
	Group      string
	CourseType string
	Format     string // "csv" | "json"
	Upload     bool

	// Env replaces the configured environment (for testing).
	Env *Env

	now func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"csv", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	if opts.now == nil {
		opts.now = time.Now
	}

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Enterprise learner analytics reports",
		Long: `Run enterprise learning analytics reports against the fact warehouse.

Every report is scoped to one enterprise and an inclusive date range. The
end date defaults to today; the start date defaults to the enterprise's
first enrollment.

Example:
  analytics aggregates --enterprise 33ce6562-95e0-4ecf-a2a7-7d407eb96f69 --start 2024-01-01
  analytics leaderboard --enterprise 33ce6562-95e0-4ecf-a2a7-7d407eb96f69 --upload`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "config.yaml", "path to the YAML config file")
	flags.StringVar(&opts.Enterprise, "enterprise", "", "enterprise customer uuid (required)")
	flags.StringVar(&opts.Start, "start", "", "first day of the report, YYYY-MM-DD")
	flags.StringVar(&opts.End, "end", "", "last day of the report, YYYY-MM-DD (default today)")
	flags.StringVar(&opts.Group, "group", "", "restrict to one enterprise learner group uuid")
	flags.StringVar(&opts.CourseType, "course-type", "", "restrict to one enroll type")
	flags.StringVar(&opts.Format, "format", "csv", "output format (csv|json)")
	flags.BoolVar(&opts.Upload, "upload", false, "upload the CSV to the export bucket instead of printing it")
	_ = cmd.MarkPersistentFlagRequired("enterprise")

	cmd.AddCommand(NewAggregatesCommand(opts))
	cmd.AddCommand(NewEnrollmentsCommand(opts))
	cmd.AddCommand(NewCompletionsCommand(opts))
	cmd.AddCommand(NewEngagementsCommand(opts))
	cmd.AddCommand(NewSkillsCommand(opts))
	cmd.AddCommand(NewLeaderboardCommand(opts))
	cmd.AddCommand(NewDateRangeCommand(opts))

	return cmd
}
