package catalog

import "strings"

// queryBuilder collects parameterized predicates joined with AND.
// Values never reach the SQL text; they travel as gorm bind vars.
type queryBuilder struct {
	joinClause strings.Builder
	conditions []string
	args       []interface{}
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{args: make([]interface{}, 0, 4)}
}

func (qb *queryBuilder) addCondition(condition string, args ...interface{}) {
	qb.conditions = append(qb.conditions, condition)
	qb.args = append(qb.args, args...)
}

func (qb *queryBuilder) addJoin(join string) {
	qb.joinClause.WriteString(" ")
	qb.joinClause.WriteString(join)
}

// build returns the join and WHERE fragments with their bind values
func (qb *queryBuilder) build() (string, string, []interface{}) {
	whereClause := ""
	if len(qb.conditions) > 0 {
		whereClause = " WHERE " + strings.Join(qb.conditions, " AND ")
	}
	return qb.joinClause.String(), whereClause, qb.args
}

// applyFilters compiles normalized filters into predicates over the
// properties table aliased as p. typeFilter gates the property_type column.
func applyFilters(f Filters, typeFilter bool) *queryBuilder {
	qb := newQueryBuilder()
	qb.addCondition("p.is_published = ?", true)

	if f.Deal != DealAll {
		qb.addCondition("p.deal_type = ?", f.Deal)
	}
	if typeFilter && f.Type != "" {
		qb.addCondition("p.property_type = ?", f.Type)
	}

	if len(f.FeatureKeys) > 0 {
		qb.addJoin("JOIN property_features pf ON pf.property_id = p.id")
		qb.addJoin("JOIN features f ON f.id = pf.feature_id")
		qb.addCondition("f.feature_key IN ?", f.FeatureKeys)
	}
	return qb
}
