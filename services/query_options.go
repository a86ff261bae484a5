package services

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// QueryOptions is the pagination and sorting envelope shared by listing
// operations. SortBy takes "field:asc" or "field:desc".
type QueryOptions struct {
	SortBy string
	Limit  int
	Page   int
}

func (o QueryOptions) normalized() QueryOptions {
	if o.Limit <= 0 {
		o.Limit = defaultPageLimit
	}
	if o.Limit > maxPageLimit {
		o.Limit = maxPageLimit
	}
	if o.Page <= 0 {
		o.Page = 1
	}
	return o
}

func (o QueryOptions) skip() int64 {
	n := o.normalized()
	return int64((n.Page - 1) * n.Limit)
}

func (o QueryOptions) sortDoc(defaultField string) bson.M {
	field := defaultField
	order := 1
	if o.SortBy != "" {
		parts := strings.SplitN(o.SortBy, ":", 2)
		field = parts[0]
		if len(parts) == 2 && parts[1] == "desc" {
			order = -1
		}
	}
	return bson.M{field: order}
}

func (o QueryOptions) findOptions(defaultSortField string) *options.FindOptions {
	n := o.normalized()
	return options.Find().
		SetSort(o.sortDoc(defaultSortField)).
		SetLimit(int64(n.Limit)).
		SetSkip(n.skip())
}

// BatchResult is the per-item outcome of a bulk operation. Bulk endpoints
// never fail as a whole; callers inspect each entry.
type BatchResult struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Success bool   `json:"success"`
	Status  string `json:"status"`
}
