package dsl

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/synaptica-ai/noshow/pkg/common/models"
)

var ErrInvalidQuery = errors.New("invalid query")

type Clause struct {
	Field    string
	Operator string
	Value    string
}

type Query struct {
	SelectFields []string
	Filters      []Clause
	Limit        int
}

// Sections a query may select.
const (
	SectionKPIs       = "kpis"
	SectionAgeGroup   = "age_group"
	SectionReminder   = "sms"
	SectionWeek       = "week"
	SectionWaiting    = "waiting"
	SectionOutcomes   = "outcomes"
	SectionInsights   = "insights"
	SectionEverything = "*"
)

var knownSections = map[string]struct{}{
	SectionKPIs: {}, SectionAgeGroup: {}, SectionReminder: {}, SectionWeek: {},
	SectionWaiting: {}, SectionOutcomes: {}, SectionInsights: {}, SectionEverything: {},
}

var (
	selectRegex = regexp.MustCompile(`(?i)^select\s+(.+?)(?:\s+where\s|\s+limit\s|$)`)
	whereRegex  = regexp.MustCompile(`(?i)\swhere\s+(.+?)(?:\s+limit\s|$)`)
	limitRegex  = regexp.MustCompile(`(?i)\slimit\s+(\d+)\s*$`)
	andRegex    = regexp.MustCompile(`(?i)\s+and\s+`)
	clauseRegex = regexp.MustCompile(`^([a-zA-Z0-9_]+)\s*(!=|>=|<=|=|>|<|(?i:in))\s*(.+)$`)
)

// Parse reads "SELECT <sections> [WHERE <field> = <value> [AND ...]] [LIMIT n]".
// Keywords are case-insensitive; values keep their case.
func Parse(input string) (Query, error) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(strings.ToLower(input), "select") {
		return Query{}, fmt.Errorf("%w: query must start with select", ErrInvalidQuery)
	}

	var query Query

	selectMatch := selectRegex.FindStringSubmatch(input)
	if len(selectMatch) < 2 {
		return Query{}, fmt.Errorf("%w: missing select fields", ErrInvalidQuery)
	}
	for _, field := range strings.Split(selectMatch[1], ",") {
		field = strings.ToLower(strings.TrimSpace(field))
		if field == "" {
			continue
		}
		if _, ok := knownSections[field]; !ok {
			return Query{}, fmt.Errorf("%w: unknown section %q", ErrInvalidQuery, field)
		}
		query.SelectFields = append(query.SelectFields, field)
	}

	if whereMatch := whereRegex.FindStringSubmatch(input); len(whereMatch) >= 2 {
		for _, part := range andRegex.Split(strings.TrimSpace(whereMatch[1]), -1) {
			match := clauseRegex.FindStringSubmatch(strings.TrimSpace(part))
			if len(match) < 4 {
				return Query{}, fmt.Errorf("%w: malformed clause %q", ErrInvalidQuery, part)
			}
			query.Filters = append(query.Filters, Clause{
				Field:    strings.ToLower(match[1]),
				Operator: strings.ToLower(match[2]),
				Value:    unquote(strings.TrimSpace(match[3])),
			})
		}
	}

	if limitMatch := limitRegex.FindStringSubmatch(input); len(limitMatch) >= 2 {
		limit, err := strconv.Atoi(limitMatch[1])
		if err != nil {
			return Query{}, fmt.Errorf("%w: bad limit", ErrInvalidQuery)
		}
		query.Limit = limit
	}

	if len(query.SelectFields) == 0 {
		return Query{}, fmt.Errorf("%w: at least one field must be selected", ErrInvalidQuery)
	}

	return query, nil
}

// FilterSet converts equality clauses into a FilterSet. Only age_group,
// sms_received and week are filterable, and only with "=".
func (q Query) FilterSet() (models.FilterSet, error) {
	filters := models.DefaultFilters()
	for _, clause := range q.Filters {
		if clause.Operator != "=" {
			return models.FilterSet{}, fmt.Errorf("%w: operator %q not supported on %s", ErrInvalidQuery, clause.Operator, clause.Field)
		}
		switch clause.Field {
		case "age_group":
			filters.AgeGroup = clause.Value
		case "sms_received", "sms":
			filters.SMSReceived = clause.Value
		case "week":
			filters.Week = clause.Value
		default:
			return models.FilterSet{}, fmt.Errorf("%w: unknown filter field %q", ErrInvalidQuery, clause.Field)
		}
	}
	return filters.Normalized(), nil
}

// Selects reports whether the query asked for section.
func (q Query) Selects(section string) bool {
	for _, f := range q.SelectFields {
		if f == section || f == SectionEverything {
			return true
		}
	}
	return false
}

func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			return value[1 : len(value)-1]
		}
	}
	return value
}
