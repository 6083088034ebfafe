package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ignite/learner-analytics/internal/aggregate"
	"github.com/ignite/learner-analytics/internal/analytics"
	"github.com/ignite/learner-analytics/internal/export"
)

var (
	seriesKeys = []string{"enroll_type"}
	courseKeys = []string{"course_key", "course_title", "enroll_type"}
)

// ReportOptions holds flags for the time-series and listing commands.
type ReportOptions struct {
	*RootOptions
	View        string
	Granularity string
	Calculation string
	Page        int
	PageSize    int
}

// seriesFunc and topFunc match the Service method expressions.
type seriesFunc func(*analytics.Service, context.Context, analytics.Filters, analytics.ChartOptions) ([]aggregate.Group, error)

type topFunc func(*analytics.Service, context.Context, analytics.Filters) ([]aggregate.Group, error)

func newChartCommand(rootOpts *RootOptions, use, short string, views map[string]func(*ReportOptions) reportFunc) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}
	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	slices.Sort(names)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view, ok := views[opts.View]
			if !ok {
				return fmt.Errorf("invalid view %q: must be one of %v", opts.View, names)
			}
			return opts.runReport(cmd, view(opts))
		},
	}

	cmd.Flags().StringVar(&opts.View, "view", "series", fmt.Sprintf("report view %v", names))
	cmd.Flags().StringVar(&opts.Granularity, "granularity", aggregate.Daily.String(), "series bucket (Daily|Weekly|Monthly|Quarterly)")
	cmd.Flags().StringVar(&opts.Calculation, "calculation", aggregate.Total.String(), "series calculation")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "detail page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "detail page size (0 uses the configured default)")
	return cmd
}

func seriesView(name, measure string, fetch seriesFunc, wide bool) func(*ReportOptions) reportFunc {
	return func(o *ReportOptions) reportFunc {
		return func(ctx context.Context, svc *analytics.Service, f analytics.Filters) (result, error) {
			chart, err := analytics.ParseChartOptions(o.Granularity, o.Calculation)
			if err != nil {
				return result{}, err
			}
			groups, err := fetch(svc, ctx, f, chart)
			if err != nil {
				return result{}, err
			}
			if wide {
				w := aggregate.Pivot(groups, 0)
				return result{name: name + "-wide", table: export.FromWide(w, nil, "date"), value: w}, nil
			}
			return result{name: name, table: export.FromGroups(groups, seriesKeys, "date", measure), value: groups}, nil
		}
	}
}

func topView(name string, keys []string, measure string, fetch topFunc) func(*ReportOptions) reportFunc {
	return func(*ReportOptions) reportFunc {
		return func(ctx context.Context, svc *analytics.Service, f analytics.Filters) (result, error) {
			groups, err := fetch(svc, ctx, f)
			if err != nil {
				return result{}, err
			}
			return result{name: name, table: export.FromGroups(groups, keys, "", measure), value: groups}, nil
		}
	}
}

// NewAggregatesCommand creates the aggregates command.
func NewAggregatesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "aggregates",
		Short: "Headline enrollment, completion and engagement totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.runReport(cmd, func(ctx context.Context, svc *analytics.Service, f analytics.Filters) (result, error) {
				agg, err := svc.Aggregates(ctx, f)
				if err != nil {
					return result{}, err
				}
				return result{name: "aggregates", table: export.FromAggregates(agg), value: agg}, nil
			})
		},
	}
}

// NewEnrollmentsCommand creates the enrollments command.
func NewEnrollmentsCommand(rootOpts *RootOptions) *cobra.Command {
	series := (*analytics.Service).EnrollmentTimeSeries
	return newChartCommand(rootOpts, "enrollments", "Enrollment charts, top lists and detail rows", map[string]func(*ReportOptions) reportFunc{
		"series":       seriesView("enrollments", "enrollment_count", series, false),
		"wide":         seriesView("enrollments", "enrollment_count", series, true),
		"top-courses":  topView("enrollments-top-courses", courseKeys, "enrollment_count", (*analytics.Service).TopCoursesByEnrollments),
		"top-subjects": topView("enrollments-top-subjects", []string{"course_subject", "enroll_type"}, "enrollment_count", (*analytics.Service).TopSubjectsByEnrollments),
		"detail": func(o *ReportOptions) reportFunc {
			return func(ctx context.Context, svc *analytics.Service, f analytics.Filters) (result, error) {
				page, err := svc.Enrollments(ctx, f, analytics.PageRequest{Number: o.Page, Size: o.PageSize})
				if err != nil {
					return result{}, err
				}
				return result{name: "enrollments-detail", table: export.FromEnrollments(page.Results), value: page}, nil
			}
		},
	})
}

// NewCompletionsCommand creates the completions command.
func NewCompletionsCommand(rootOpts *RootOptions) *cobra.Command {
	series := (*analytics.Service).CompletionTimeSeries
	return newChartCommand(rootOpts, "completions", "Completion charts and top lists", map[string]func(*ReportOptions) reportFunc{
		"series":      seriesView("completions", "completion_count", series, false),
		"wide":        seriesView("completions", "completion_count", series, true),
		"top-courses": topView("completions-top-courses", courseKeys, "completion_count", (*analytics.Service).TopCoursesByCompletions),
	})
}

// NewEngagementsCommand creates the engagements command.
func NewEngagementsCommand(rootOpts *RootOptions) *cobra.Command {
	series := (*analytics.Service).EngagementTimeSeries
	return newChartCommand(rootOpts, "engagements", "Learning-hour charts, top lists and detail rows", map[string]func(*ReportOptions) reportFunc{
		"series":      seriesView("engagements", "learning_time_hours", series, false),
		"wide":        seriesView("engagements", "learning_time_hours", series, true),
		"top-courses": topView("engagements-top-courses", courseKeys, "learning_time_hours", (*analytics.Service).TopCoursesByEngagement),
		"detail": func(o *ReportOptions) reportFunc {
			return func(ctx context.Context, svc *analytics.Service, f analytics.Filters) (result, error) {
				page, err := svc.Engagements(ctx, f, analytics.PageRequest{Number: o.Page, Size: o.PageSize})
				if err != nil {
					return result{}, err
				}
				return result{name: "engagements-detail", table: export.FromEngagements(page.Results), value: page}, nil
			}
		},
	})
}

// NewSkillsCommand creates the skills command.
func NewSkillsCommand(rootOpts *RootOptions) *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "Top skills by enrollments or completions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if by != "enrolls" && by != "completions" {
				return fmt.Errorf("invalid --by %q: must be enrolls or completions", by)
			}
			return rootOpts.runReport(cmd, func(ctx context.Context, svc *analytics.Service, f analytics.Filters) (result, error) {
				skills, err := svc.TopSkills(ctx, f)
				if err != nil {
					return result{}, err
				}
				groups := skills.ByEnrollments
				if by == "completions" {
					groups = skills.ByCompletions
				}
				table := export.FromGroups(groups, []string{"skill_name", "course_subject"}, "", by)
				return result{name: "skills-" + by, table: table, value: skills}, nil
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", "enrolls", "ranking measure for CSV output (enrolls|completions)")
	return cmd
}

// LeaderboardOptions holds flags for the leaderboard command.
type LeaderboardOptions struct {
	*RootOptions
	Page     int
	PageSize int
}

// NewLeaderboardCommand creates the leaderboard command.
func NewLeaderboardCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LeaderboardOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Learners ranked by learning hours",
		Long: `Rank learners by learning hours with session and completion counts.

Activity of learners who have not shared consent is aggregated into a single
final row. Without --page every page is fetched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runReport(cmd, func(ctx context.Context, svc *analytics.Service, f analytics.Filters) (result, error) {
				if opts.Page == 0 {
					rows, err := svc.FullLeaderboard(ctx, f)
					if err != nil {
						return result{}, err
					}
					return result{name: "leaderboard", table: export.FromLeaderboard(rows), value: rows}, nil
				}
				page, err := svc.Leaderboard(ctx, f, analytics.PageRequest{Number: opts.Page, Size: opts.PageSize})
				if err != nil {
					return result{}, err
				}
				return result{name: "leaderboard", table: export.FromLeaderboard(page.Results), value: page}, nil
			})
		},
	}
	cmd.Flags().IntVar(&opts.Page, "page", 0, "page number (0 fetches every page)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "page size (0 uses the configured default)")
	return cmd
}

// NewDateRangeCommand creates the date-range command.
func NewDateRangeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "date-range",
		Short: "First and last enrollment dates of the enterprise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.runReport(cmd, func(ctx context.Context, svc *analytics.Service, f analytics.Filters) (result, error) {
				r, err := svc.EnrollmentDateRange(ctx, f.EnterpriseID)
				if err != nil {
					return result{}, err
				}
				table := export.Table{
					Header:  []string{"min_enrollment_date", "max_enrollment_date"},
					Records: []export.Record{{"min_enrollment_date": dateCell(r.MinEnrollmentDate), "max_enrollment_date": dateCell(r.MaxEnrollmentDate)}},
				}
				return result{name: "date-range", table: table, value: r}, nil
			})
		},
	}
}
