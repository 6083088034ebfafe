package analytics

import (
	"context"

	"github.com/ignite/learner-analytics/internal/cache"
	"github.com/ignite/learner-analytics/internal/catalog"
	"github.com/ignite/learner-analytics/internal/leaderboard"
	"github.com/ignite/learner-analytics/internal/query"
)

// leaderboardCount holds distinct known emails and activity rows without an
// email.
type leaderboardCount struct {
	Emails     int64 `json:"email_count"`
	NullEmails int64 `json:"null_email_count"`
}

// Leaderboard returns one page of learners ranked by learning hours. The
// page count covers learners with a known email; the row aggregating
// learners without one rides on the last page.
func (s *Service) Leaderboard(ctx context.Context, f Filters, p PageRequest) (Page[leaderboard.Row], error) {
	req, err := s.prepare(ctx, f)
	if err != nil {
		return Page[leaderboard.Row]{}, err
	}
	if p, err = s.normalizePage(p); err != nil {
		return Page[leaderboard.Row]{}, err
	}

	counts, err := s.leaderboardCount(ctx, req)
	if err != nil {
		return Page[leaderboard.Row]{}, err
	}
	if err := checkPage(p, counts.Emails); err != nil {
		return Page[leaderboard.Row]{}, err
	}

	rows, err := leaderboard.Build(ctx, s.leaderboardSource(req, counts), leaderboard.Page{
		Limit:  p.Size,
		Offset: p.offset(),
		Total:  int(counts.Emails),
	})
	if err != nil {
		return Page[leaderboard.Row]{}, err
	}
	return newPage(rows, p, counts.Emails), nil
}

// FullLeaderboard walks every page at the maximum page size, for exports.
func (s *Service) FullLeaderboard(ctx context.Context, f Filters) ([]leaderboard.Row, error) {
	req, err := s.prepare(ctx, f)
	if err != nil {
		return nil, err
	}
	counts, err := s.leaderboardCount(ctx, req)
	if err != nil {
		return nil, err
	}

	src := s.leaderboardSource(req, counts)
	size := s.opts.MaxPageSize
	all := []leaderboard.Row{}
	for offset := 0; offset < int(counts.Emails); offset += size {
		rows, err := leaderboard.Build(ctx, src, leaderboard.Page{Limit: size, Offset: offset, Total: int(counts.Emails)})
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

func (s *Service) leaderboardCount(ctx context.Context, req *request) (leaderboardCount, error) {
	return fetch(ctx, s, req, "leaderboard.count", nil, func(ctx context.Context) (leaderboardCount, error) {
		text, params, err := render(req, catalog.ColActivityDate, true, s.catalog.Engagements.LeaderboardCount)
		if err != nil {
			return leaderboardCount{}, err
		}
		row, err := s.single(ctx, text, params)
		if err != nil {
			return leaderboardCount{}, err
		}
		var c leaderboardCount
		if c.Emails, err = row.Int64("email_count"); err != nil {
			return leaderboardCount{}, err
		}
		if c.NullEmails, err = row.Int64("null_email_count"); err != nil {
			return leaderboardCount{}, err
		}
		return c, nil
	})
}

// leaderboardSource reads engagement from the engagement table and
// completions by pass date, each fetch going through the cache.
type leaderboardSource struct {
	s          *Service
	req        *request
	nullEmails int64
}

func (s *Service) leaderboardSource(req *request, counts leaderboardCount) *leaderboardSource {
	return &leaderboardSource{s: s, req: req, nullEmails: counts.NullEmails}
}

func (l *leaderboardSource) EngagementPage(ctx context.Context, limit, offset int) ([]leaderboard.Engagement, error) {
	args := cache.Args{"limit": limit, "offset": offset}
	return fetch(ctx, l.s, l.req, "leaderboard.engagement_page", args, func(ctx context.Context) ([]leaderboard.Engagement, error) {
		text, params, err := render(l.req, catalog.ColActivityDate, true, l.s.catalog.Engagements.LeaderboardPage)
		if err != nil {
			return nil, err
		}
		rows, err := l.s.reader.Execute(ctx, text, params.Merge(query.Params{
			catalog.ParamLimit:  limit,
			catalog.ParamOffset: offset,
		}))
		if err != nil {
			return nil, err
		}

		out := make([]leaderboard.Engagement, 0, len(rows))
		for _, row := range rows {
			email, err := row.NullString(catalog.ColEmail)
			if err != nil {
				return nil, err
			}
			seconds, err := row.Float64("learning_time_seconds")
			if err != nil {
				return nil, err
			}
			sessions, err := row.Int64("session_count")
			if err != nil {
				return nil, err
			}
			out = append(out, leaderboard.NewEngagement(email, seconds, sessions))
		}
		return out, nil
	})
}

func (l *leaderboardSource) NullEmailEngagement(ctx context.Context) (*leaderboard.Engagement, error) {
	if l.nullEmails == 0 {
		return nil, nil
	}
	return fetch(ctx, l.s, l.req, "leaderboard.null_email_engagement", nil, func(ctx context.Context) (*leaderboard.Engagement, error) {
		text, params, err := render(l.req, catalog.ColActivityDate, true, l.s.catalog.Engagements.NullEmailLeaderboard)
		if err != nil {
			return nil, err
		}
		row, err := l.s.single(ctx, text, params)
		if err != nil {
			return nil, err
		}
		records, err := row.Int64(catalog.ParamRecordCount)
		if err != nil || records == 0 {
			return nil, err
		}
		seconds, err := row.Float64("learning_time_seconds")
		if err != nil {
			return nil, err
		}
		sessions, err := row.Int64("session_count")
		if err != nil {
			return nil, err
		}
		e := leaderboard.NewEngagement(nil, seconds, sessions)
		return &e, nil
	})
}

func (l *leaderboardSource) Completions(ctx context.Context, emails []string) ([]leaderboard.Completion, error) {
	args := cache.Args{"emails": emails}
	return fetch(ctx, l.s, l.req, "leaderboard.completions", args, func(ctx context.Context) ([]leaderboard.Completion, error) {
		text, params, err := render(l.req, catalog.ColPassedDate, true, l.s.catalog.Enrollments.CompletionsByEmail)
		if err != nil {
			return nil, err
		}
		params[catalog.ParamEmails] = emails
		rows, err := l.s.reader.Execute(ctx, text, params)
		if err != nil {
			return nil, err
		}

		out := make([]leaderboard.Completion, 0, len(rows))
		for _, row := range rows {
			email, err := row.NullString(catalog.ColEmail)
			if err != nil {
				return nil, err
			}
			n, err := row.Int64("course_completion_count")
			if err != nil {
				return nil, err
			}
			out = append(out, leaderboard.Completion{Email: email, Count: n})
		}
		return out, nil
	})
}

func (l *leaderboardSource) NullEmailCompletions(ctx context.Context) (*leaderboard.Completion, error) {
	return fetch(ctx, l.s, l.req, "leaderboard.null_email_completions", nil, func(ctx context.Context) (*leaderboard.Completion, error) {
		text, params, err := render(l.req, catalog.ColPassedDate, true, l.s.catalog.Enrollments.NullEmailCompletions)
		if err != nil {
			return nil, err
		}
		row, err := l.s.single(ctx, text, params)
		if err != nil {
			return nil, err
		}
		n, err := row.Int64("course_completion_count")
		if err != nil || n == 0 {
			return nil, err
		}
		return &leaderboard.Completion{Count: n}, nil
	})
}
