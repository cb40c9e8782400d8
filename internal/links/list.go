package links

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	// MaxListPage keeps the offset far from integer overflow.
	MaxListPage = 10_000
)

// sortable columns; every ordering ends on id so pages never overlap.
var sortColumns = map[string]string{
	"created_at":      "created_at",
	"click_count":     "click_count",
	"unique_clicks":   "unique_clicks",
	"last_clicked_at": "last_clicked_at",
	"title":           "title",
	"short_code":      "short_code",
}

const linkColumns = `id, original_url, short_code, custom_alias, owner_id, title, description, is_active, expires_at, click_count, unique_clicks, last_clicked_at, created_at, updated_at`

// normalizeListOptions fills defaults and rejects unknown sort keys.
func normalizeListOptions(opts ListOptions, maxLimit int) (ListOptions, error) {
	if maxLimit <= 0 {
		maxLimit = MaxListLimit
	}
	switch {
	case opts.Page < 1:
		opts.Page = 1
	case opts.Page > MaxListPage:
		return opts, fmt.Errorf("page must be at most %d", MaxListPage)
	}
	switch {
	case opts.Limit < 1:
		opts.Limit = DefaultListLimit
	case opts.Limit > maxLimit:
		opts.Limit = maxLimit
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}
	if _, ok := sortColumns[opts.SortBy]; !ok {
		return opts, fmt.Errorf("cannot sort by %q", opts.SortBy)
	}

	opts.SortOrder = strings.ToLower(opts.SortOrder)
	switch opts.SortOrder {
	case "":
		opts.SortOrder = "desc"
	case "asc", "desc":
	default:
		return opts, fmt.Errorf("sort order must be asc or desc, got %q", opts.SortOrder)
	}

	opts.Search = strings.TrimSpace(opts.Search)
	return opts, nil
}

type listQuery struct {
	selectSQL string
	countSQL  string
	args      []any
	countArgs []any
}

// buildListQuery expects normalized options.
func buildListQuery(ownerID uuid.UUID, opts ListOptions) listQuery {
	args := []any{ownerID}
	where := []string{"owner_id = $1"}

	if opts.IsActive != nil {
		args = append(args, *opts.IsActive)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if opts.Search != "" {
		args = append(args, "%"+escapeLike(opts.Search)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(title ILIKE $%[1]d OR description ILIKE $%[1]d OR original_url ILIKE $%[1]d OR short_code ILIKE $%[1]d OR coalesce(custom_alias, '') ILIKE $%[1]d)",
			n,
		))
	}

	whereSQL := strings.Join(where, " AND ")
	dir := strings.ToUpper(opts.SortOrder)
	order := fmt.Sprintf("%s %s", sortColumns[opts.SortBy], dir)
	if opts.SortBy == "last_clicked_at" {
		order += " NULLS LAST"
	}
	order += ", id " + dir

	countArgs := append([]any(nil), args...)
	args = append(args, opts.Limit, (opts.Page-1)*opts.Limit)

	return listQuery{
		selectSQL: fmt.Sprintf("SELECT %s FROM links WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
			linkColumns, whereSQL, order, len(args)-1, len(args)),
		countSQL:  "SELECT count(*) FROM links WHERE " + whereSQL,
		args:      args,
		countArgs: countArgs,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
