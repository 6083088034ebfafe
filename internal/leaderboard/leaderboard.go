// Package leaderboard merges per-email engagement aggregates with per-email
// completion counts into a ranked learner table. Learners who have not
// shared consent have no email; their activity is folded into one
// sentinel row that always sorts last.
package leaderboard

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ignite/learner-analytics/internal/pkg/logger"
)

// ConsentSentinel labels the row aggregating all null-email activity.
const ConsentSentinel = "learners who have not shared consent"

var secondsPerHour = decimal.NewFromInt(3600)

// Engagement is one learner's engagement aggregate. Email is nil for the
// null-email aggregate.
type Engagement struct {
	Email                *string
	LearningTimeHours    float64
	SessionCount         int64
	AverageSessionLength float64
}

// NewEngagement converts raw learning seconds into hours rounded to one
// decimal place. The average session length is hours per session and is
// zero when there are no sessions.
func NewEngagement(email *string, learningSeconds float64, sessions int64) Engagement {
	hours := decimal.NewFromFloat(learningSeconds).Div(secondsPerHour).Round(1)
	avg := decimal.Zero
	if sessions > 0 {
		avg = hours.Div(decimal.NewFromInt(sessions)).Round(1)
	}
	return Engagement{
		Email:                email,
		LearningTimeHours:    hours.InexactFloat64(),
		SessionCount:         sessions,
		AverageSessionLength: avg.InexactFloat64(),
	}
}

// Completion is one learner's completed-course count.
type Completion struct {
	Email *string
	Count int64
}

// Row is one merged leaderboard entry. CourseCompletionCount is nil when
// the completion lookup returned nothing for the learner.
type Row struct {
	Email                 string  `json:"email"`
	LearningTimeHours     float64 `json:"learning_time_hours"`
	SessionCount          int64   `json:"session_count"`
	AverageSessionLength  float64 `json:"average_session_length"`
	CourseCompletionCount *int64  `json:"course_completion_count"`
	Sentinel              bool    `json:"-"`
}

// Source fetches the two independent result sets a leaderboard page is
// built from.
type Source interface {
	// EngagementPage returns non-null-email aggregates ordered by hours
	// descending, then email.
	EngagementPage(ctx context.Context, limit, offset int) ([]Engagement, error)
	// NullEmailEngagement returns nil when no null-email activity exists.
	NullEmailEngagement(ctx context.Context) (*Engagement, error)
	Completions(ctx context.Context, emails []string) ([]Completion, error)
	// NullEmailCompletions returns nil when no null-email completions exist.
	NullEmailCompletions(ctx context.Context) (*Completion, error)
}

// Page is a LIMIT/OFFSET window over Total learners with a known email.
type Page struct {
	Limit  int
	Offset int
	Total  int
}

// Last reports whether the page reaches the end of the learner list, which
// is where the sentinel row is appended.
func (p Page) Last() bool {
	return p.Offset+p.Limit >= p.Total
}

// Build assembles one leaderboard page. An empty engagement page yields an
// empty result without fetching completions. Completions are fetched only
// for the emails on the page.
func Build(ctx context.Context, src Source, page Page) ([]Row, error) {
	engagements, err := src.EngagementPage(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("fetch engagement page: %w", err)
	}
	if len(engagements) == 0 {
		return []Row{}, nil
	}

	var null *Engagement
	if page.Last() {
		if null, err = src.NullEmailEngagement(ctx); err != nil {
			return nil, fmt.Errorf("fetch null-email engagement: %w", err)
		}
	}

	emails := lo.FilterMap(engagements, func(e Engagement, _ int) (string, bool) {
		if e.Email == nil {
			return "", false
		}
		return *e.Email, true
	})
	logger.Debug("leaderboard page", "offset", page.Offset, "emails", strings.Join(emails, ","))

	completions, err := src.Completions(ctx, emails)
	if err != nil {
		return nil, fmt.Errorf("fetch completions: %w", err)
	}

	var nullCompletions *Completion
	if null != nil {
		if nullCompletions, err = src.NullEmailCompletions(ctx); err != nil {
			return nil, fmt.Errorf("fetch null-email completions: %w", err)
		}
	}

	return Merge(engagements, completions, null, nullCompletions), nil
}

// Merge joins engagements to completions by email and sorts by hours
// descending, then email ascending. Engagements without an email are
// skipped; the null-email aggregate arrives separately as null and, when
// non-nil, becomes the final sentinel row regardless of its measures.
func Merge(engagements []Engagement, completions []Completion, null *Engagement, nullCompletions *Completion) []Row {
	counts := lo.SliceToMap(
		lo.Filter(completions, func(c Completion, _ int) bool { return c.Email != nil }),
		func(c Completion) (string, int64) { return *c.Email, c.Count },
	)

	rows := make([]Row, 0, len(engagements)+1)
	for _, e := range engagements {
		if e.Email == nil {
			continue
		}
		row := rowOf(*e.Email, e)
		if n, ok := counts[*e.Email]; ok {
			row.CourseCompletionCount = &n
		}
		rows = append(rows, row)
	}

	slices.SortStableFunc(rows, func(a, b Row) int {
		if c := cmp.Compare(b.LearningTimeHours, a.LearningTimeHours); c != 0 {
			return c
		}
		return strings.Compare(a.Email, b.Email)
	})

	if null != nil {
		row := rowOf(ConsentSentinel, *null)
		row.Sentinel = true
		if nullCompletions != nil {
			n := nullCompletions.Count
			row.CourseCompletionCount = &n
		}
		rows = append(rows, row)
	}
	return rows
}

func rowOf(label string, e Engagement) Row {
	return Row{
		Email:                label,
		LearningTimeHours:    e.LearningTimeHours,
		SessionCount:         e.SessionCount,
		AverageSessionLength: e.AverageSessionLength,
	}
}
