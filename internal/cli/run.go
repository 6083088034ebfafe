package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ignite/learner-analytics/internal/analytics"
	"github.com/ignite/learner-analytics/internal/export"
	"github.com/ignite/learner-analytics/internal/pkg/distlock"
	"github.com/ignite/learner-analytics/internal/pkg/logger"
)

var errNoBucket = errors.New("--upload requires export.s3_bucket")

const exportLockTTL = 15 * time.Minute

// result is one rendered report.
type result struct {
	name  string
	table export.Table
	value any
}

// reportFunc produces a report for validated filters.
type reportFunc func(ctx context.Context, svc *analytics.Service, f analytics.Filters) (result, error)

// runReport resolves the environment and filters, runs fn and writes its
// output.
func (o *RootOptions) runReport(cmd *cobra.Command, fn reportFunc) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	env, err := o.env(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := env.Close(); err != nil {
			logger.Error("error closing connections", "error", err)
		}
	}()

	f, err := o.filters(ctx, env.Service)
	if err != nil {
		return err
	}

	run := func(ctx context.Context) error {
		start := time.Now()
		res, err := fn(ctx, env.Service, f)
		if err != nil {
			return err
		}
		logger.Info("report complete",
			"report", res.name,
			"enterprise", f.EnterpriseID.String(),
			"records", len(res.table.Records),
			"elapsed_ms", time.Since(start).Milliseconds())
		return o.emit(ctx, cmd, env, f.EnterpriseID, res)
	}
	if !o.Upload {
		return run(ctx)
	}

	locker := env.Locker
	if locker == nil {
		locker = distlock.NewLocalLocker()
	}
	key := fmt.Sprintf("export:%s:%s", f.EnterpriseID, cmd.Name())
	return distlock.WithLock(ctx, locker, key, exportLockTTL, run)
}

func (o *RootOptions) emit(ctx context.Context, cmd *cobra.Command, env *Env, enterpriseID uuid.UUID, res result) error {
	out := cmd.OutOrStdout()
	if o.Upload {
		if env.Uploader == nil {
			return errNoBucket
		}
		uri, err := env.Uploader.Upload(ctx, enterpriseID, res.name, res.table)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, uri)
		return nil
	}

	if o.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res.value)
	}
	return export.WriteCSV(out, res.table)
}

// filters parses the global flags. A missing start date falls back to the
// enterprise's first enrollment, or to the end date when there is none.
func (o *RootOptions) filters(ctx context.Context, svc *analytics.Service) (analytics.Filters, error) {
	var f analytics.Filters
	id, err := uuid.Parse(o.Enterprise)
	if err != nil {
		return f, fmt.Errorf("invalid --enterprise %q: %w", o.Enterprise, err)
	}
	f.EnterpriseID = id
	f.CourseType = o.CourseType

	if o.Group != "" {
		g, err := uuid.Parse(o.Group)
		if err != nil {
			return f, fmt.Errorf("invalid --group %q: %w", o.Group, err)
		}
		f.GroupID = &g
	}

	f.EndDate = analytics.DefaultEndDate(o.now())
	if o.End != "" {
		if f.EndDate, err = time.Parse(time.DateOnly, o.End); err != nil {
			return f, fmt.Errorf("invalid --end: %w", err)
		}
	}

	if o.Start != "" {
		if f.StartDate, err = time.Parse(time.DateOnly, o.Start); err != nil {
			return f, fmt.Errorf("invalid --start: %w", err)
		}
		return f, nil
	}
	r, err := svc.EnrollmentDateRange(ctx, id)
	if err != nil {
		return f, err
	}
	f.StartDate = f.EndDate
	if r.MinEnrollmentDate != nil && r.MinEnrollmentDate.Before(f.EndDate) {
		f.StartDate = *r.MinEnrollmentDate
	}
	return f, nil
}

func dateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}
