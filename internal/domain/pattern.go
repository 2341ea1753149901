// Package domain defines the core types and interfaces for the unicorn engine.
package domain

import (
	"fmt"
	"strings"
)

// EntityType identifies which side of a plate appearance a pattern ranks.
type EntityType string

const (
	EntityBatter  EntityType = "batter"
	EntityPitcher EntityType = "pitcher"
)

// Column returns the fact-table column holding the entity identifier.
func (e EntityType) Column() string {
	if e == EntityPitcher {
		return "pitcher_id"
	}
	return "batter_id"
}

// Valid reports whether the entity type is one of the known values.
func (e EntityType) Valid() bool {
	return e == EntityBatter || e == EntityPitcher
}

// Operator is the closed set of comparison operators a filter condition may use.
type Operator string

const (
	OpEq        Operator = "="
	OpNeq       Operator = "!="
	OpGt        Operator = ">"
	OpLt        Operator = "<"
	OpGte       Operator = ">="
	OpLte       Operator = "<="
	OpIn        Operator = "IN"
	OpNotIn     Operator = "NOT IN"
	OpIsNull    Operator = "IS NULL"
	OpIsNotNull Operator = "IS NOT NULL"
)

// ParseOperator normalizes a raw operator string to a known Operator.
// The second return is false for operators outside the closed set.
func ParseOperator(raw string) (Operator, bool) {
	op := Operator(strings.ToUpper(strings.TrimSpace(raw)))
	switch op {
	case OpEq, OpNeq, OpGt, OpLt, OpGte, OpLte, OpIn, OpNotIn, OpIsNull, OpIsNotNull:
		return op, true
	}
	return "", false
}

// FilterCondition is one declarative condition over raw event rows.
// Value may be a scalar, nil (rewritten to IS NULL / IS NOT NULL), or a
// list for IN / NOT IN.
type FilterCondition struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value,omitempty"`
}

// WindowKind selects how a recency window restricts the per-entity row set.
type WindowKind string

const (
	WindowLastNDays WindowKind = "last_n_days"
	WindowLastNPA   WindowKind = "last_n_pa"
	WindowLastNAB   WindowKind = "last_n_ab"
)

// Valid reports whether the window kind is one of the known values.
func (k WindowKind) Valid() bool {
	switch k {
	case WindowLastNDays, WindowLastNPA, WindowLastNAB:
		return true
	}
	return false
}

// Window is a declarative recency window.
type Window struct {
	Kind WindowKind `json:"type"`
	N    int        `json:"n"`
}

func (w Window) String() string {
	return fmt.Sprintf("%s(%d)", w.Kind, w.N)
}

// PatternTemplate is a versioned, declarative ranking rule. Templates are
// authored out of band and read-only to the engine.
type PatternTemplate struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	DescriptionTemplate string `json:"descriptionTemplate"`

	EntityType EntityType `json:"entityType"`
	BaseTable  string     `json:"baseTable"`
	Category   string     `json:"category,omitempty"`
	Enabled    bool       `json:"enabled"`

	Filters []FilterCondition `json:"filters,omitempty"`
	Window  *Window           `json:"window,omitempty"`

	// Metric is the logical metric key; MetricExpr, when set, overrides the
	// registry lookup verbatim. OrderExpr / SampleExpr override the sort key
	// and sample-size computation.
	Metric     string `json:"metric"`
	MetricExpr string `json:"metricExpr,omitempty"`
	OrderExpr  string `json:"orderExpr,omitempty"`
	SampleExpr string `json:"sampleExpr,omitempty"`

	OrderDirection string `json:"orderDirection"`

	MinSample    int `json:"minSample"`
	TargetSample int `json:"targetSample"`

	// UnicornWeight and PublicWeight are positive multipliers. A zero
	// PublicWeight falls back to the category-derived default.
	UnicornWeight float64 `json:"unicornWeight"`
	PublicWeight  float64 `json:"publicWeight"`

	ComplexityScore int `json:"complexityScore"`

	RequiresCount bool   `json:"requiresCount"`
	CountValue    string `json:"countValue,omitempty"`
}

// Descending reports whether the pattern ranks high metric values first.
// Anything other than "asc" is treated as descending.
func (p *PatternTemplate) Descending() bool {
	return strings.ToLower(p.OrderDirection) != "asc"
}
