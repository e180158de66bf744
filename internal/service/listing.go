package service

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

const (
	SortByCreatedAt = "createdAt"
	SortByUpdatedAt = "updatedAt"
	SortByTitle     = "title"
	SortByAnswers   = "answers"
	SortByVotes     = "votes"

	FilterAll        = "all"
	FilterAnswered   = "answered"
	FilterUnanswered = "unanswered"
	FilterAccepted   = "accepted"

	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
	maxSearchLen = 100
)

// ListQuery is a validated question listing request.
type ListQuery struct {
	Page      int
	Limit     int
	Search    string
	Tags      []string
	SortBy    string
	SortOrder string
	Filter    string
}

func (q ListQuery) Desc() bool { return q.SortOrder == "desc" }
func (q ListQuery) Offset() int { return (q.Page - 1) * q.Limit }

// PageQuery is a validated page/limit pair.
type PageQuery struct {
	Page  int
	Limit int
}

func (p PageQuery) Offset() int { return (p.Page - 1) * p.Limit }

// ParsePageQuery reads page and limit, defaulting to the first page of 10.
func ParsePageQuery(v url.Values) (PageQuery, error) {
	p := PageQuery{Page: defaultPage, Limit: defaultLimit}
	if s := v.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return p, apperr.Invalid(`"page" must be an integer greater than or equal to 1`)
		}
		p.Page = n
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxLimit {
			return p, apperr.Invalid(`"limit" must be an integer between 1 and 100`)
		}
		p.Limit = n
	}
	// The offset must fit in int32 so the store and the in-memory window agree on it.
	if p.Page-1 > math.MaxInt32/p.Limit {
		return p, apperr.Invalid(`"page" is too large for the requested "limit"`)
	}
	return p, nil
}

// ParseListQuery validates raw query parameters and fills defaults.
// Every rejection is InvalidArgument.
func ParseListQuery(v url.Values) (ListQuery, error) {
	q := ListQuery{
		Page:      defaultPage,
		Limit:     defaultLimit,
		SortBy:    SortByCreatedAt,
		SortOrder: "desc",
		Filter:    FilterAll,
	}

	p, err := ParsePageQuery(v)
	if err != nil {
		return q, err
	}
	q.Page, q.Limit = p.Page, p.Limit

	q.Search = strings.TrimSpace(v.Get("search"))
	if len(q.Search) > maxSearchLen {
		return q, apperr.Invalid(`"search" must not exceed 100 characters`)
	}

	for _, t := range strings.Split(v.Get("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			q.Tags = append(q.Tags, t)
		}
	}

	if s := v.Get("sortBy"); s != "" {
		switch s {
		case SortByCreatedAt, SortByUpdatedAt, SortByTitle, SortByAnswers, SortByVotes:
			q.SortBy = s
		default:
			return q, apperr.Invalid(`"sortBy" must be one of [createdAt, updatedAt, title, answers, votes]`)
		}
	}
	if s := v.Get("sortOrder"); s != "" {
		if s != "asc" && s != "desc" {
			return q, apperr.Invalid(`"sortOrder" must be one of [asc, desc]`)
		}
		q.SortOrder = s
	}
	if s := v.Get("filter"); s != "" {
		switch s {
		case FilterAll, FilterAnswered, FilterUnanswered, FilterAccepted:
			q.Filter = s
		default:
			return q, apperr.Invalid(`"filter" must be one of [all, answered, unanswered, accepted]`)
		}
	}
	return q, nil
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalCount int64 `json:"totalCount"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := int(math.Ceil(float64(total) / float64(limit)))
	return Pagination{
		Page:       page,
		Limit:      limit,
		TotalCount: total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

// SortAnswers orders answers accepted first, then by net votes, then newest.
// Vote counts must already be attached.
func SortAnswers(answers []models.Answer) {
	sort.SliceStable(answers, func(i, j int) bool {
		a, b := answers[i], answers[j]
		if a.IsAccepted != b.IsAccepted {
			return a.IsAccepted
		}
		if a.VoteCount.Total != b.VoteCount.Total {
			return a.VoteCount.Total > b.VoteCount.Total
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// voteRank is one question's sort key when ordering by summed answer votes.
type voteRank struct {
	ID         string
	CreatedAt  time.Time
	TotalVotes int64
}

// rankByVotes sorts by summed votes in the requested direction. Ties fall
// back to newest first, then id, regardless of direction.
func rankByVotes(rows []voteRank, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.TotalVotes != b.TotalVotes {
			if desc {
				return a.TotalVotes > b.TotalVotes
			}
			return a.TotalVotes < b.TotalVotes
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// window returns the slice bounds of a page over n items.
func window(n, offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset >= n {
		return n, n
	}
	end := offset + limit
	if end > n || end < offset {
		end = n
	}
	return offset, end
}

// escapeLike quotes LIKE wildcards so search is a plain substring match.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
