// SPDX-License-Identifier: MIT

package sqlite

import (
	"strconv"
	"strings"

	"github.com/solstice-net/solstice/model"
)

const whereBuilderDefaultWhere = "1=1"

type whereBuilder struct {
	Params map[string]any
	strings.Builder
}

func newWhereBuilder() *whereBuilder {
	return &whereBuilder{
		Params: make(map[string]any),
	}
}

func (w *whereBuilder) addParam(filterID, name string, value any) (key string) {
	key = filterID + name
	w.Params[key] = value

	return key
}

func (w *whereBuilder) isOnBegin() bool {
	s := w.String()

	return s[len(s)-1] == '(' || strings.HasSuffix(s, "( ")
}

func (w *whereBuilder) maybeAND() {
	if w.Len() == 0 || w.isOnBegin() {
		return
	}

	w.WriteString(" AND ")
}

func (w *whereBuilder) maybeOR() {
	if w.Len() == 0 || w.isOnBegin() {
		return
	}

	w.WriteString(" OR ")
}

// applyPrefixes renders `(column LIKE :p0 OR column LIKE :p1 ...)`, each
// parameter being the prefix with a trailing `%`. An exact 64-char id is just
// the longest possible prefix.
func (w *whereBuilder) applyPrefixes(filterID, column string, prefixes []string) {
	if len(prefixes) == 0 {
		return
	}

	w.maybeAND()
	w.WriteRune('(')
	for i, prefix := range prefixes {
		if i > 0 {
			w.WriteString(" OR ")
		}
		w.WriteString(column)
		w.WriteString(" LIKE :")
		w.WriteString(w.addParam(filterID, column+strconv.Itoa(i), prefix+"%"))
	}
	w.WriteRune(')')
}

func (w *whereBuilder) applyKinds(filterID string, kinds []int) {
	if len(kinds) == 0 {
		return
	}

	w.maybeAND()
	w.WriteString("kind IN (")
	for i, kind := range kinds {
		if i > 0 {
			w.WriteRune(',')
		}
		w.WriteRune(':')
		w.WriteString(w.addParam(filterID, "kind"+strconv.Itoa(i), kind))
	}
	w.WriteRune(')')
}

func (w *whereBuilder) applyTimeRange(filterID string, since, until *model.Timestamp) {
	// Events with created_at >= since match; until is strict, created_at
	// must be less than it.
	if since != nil {
		w.maybeAND()
		w.WriteString("created_at >= :")
		w.WriteString(w.addParam(filterID, "since", int64(*since)))
	}
	if until != nil {
		w.maybeAND()
		w.WriteString("created_at < :")
		w.WriteString(w.addParam(filterID, "until", int64(*until)))
	}
}

// applyFilterTags ANDs one tag-table subquery per distinct tag name; the
// required values within one name are an IN list, so the event needs at least
// one of them.
func (w *whereBuilder) applyFilterTags(filterID string, tags model.TagMap) {
	tagID := 0
	for name, values := range tags {
		w.maybeAND()
		tagID++
		w.WriteString("id IN (select event_id from event_tags where tag_name = :")
		w.WriteString(w.addParam(filterID, "tag"+strconv.Itoa(tagID), name))
		w.WriteString(" AND tag_value IN (")
		for i, value := range values {
			if i > 0 {
				w.WriteRune(',')
			}
			w.WriteRune(':')
			w.WriteString(w.addParam(filterID, "tagvalue"+strconv.Itoa(tagID<<8|i), value))
		}
		w.WriteString("))")
	}
}

func isFilterEmpty(filter *model.Filter) bool {
	return len(filter.IDs) == 0 &&
		len(filter.Kinds) == 0 &&
		len(filter.Authors) == 0 &&
		len(filter.Tags) == 0 &&
		filter.Since == nil &&
		filter.Until == nil
}

func (w *whereBuilder) applyFilter(idx int, filter *model.Filter) {
	filterID := "filter" + strconv.Itoa(idx) + "_"

	w.WriteRune('(')
	w.applyPrefixes(filterID, "id", filter.IDs)
	w.applyPrefixes(filterID, "pubkey", filter.Authors)
	w.applyKinds(filterID, filter.Kinds)
	w.applyTimeRange(filterID, filter.Since, filter.Until)
	w.applyFilterTags(filterID, filter.Tags)
	w.WriteRune(')')
}

// Build renders the filter set as a disjunction of per-filter conjunctions.
// No filters, or any empty filter, matches every event.
func (w *whereBuilder) Build(filters ...model.Filter) (sql string, params map[string]any) {
	for idx := range filters {
		if isFilterEmpty(&filters[idx]) {
			return whereBuilderDefaultWhere, map[string]any{}
		}
	}

	for idx := range filters {
		w.maybeOR()
		w.applyFilter(idx, &filters[idx])
	}

	if w.Len() == 0 {
		return whereBuilderDefaultWhere, w.Params
	}

	return w.String(), w.Params
}
