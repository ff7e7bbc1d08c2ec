package models

import (
	"net/url"
	"time"
)

const (
	// FilterAll disables a filter dimension.
	FilterAll = "All"
	// Unknown is the sentinel for age group and week labels that cannot be resolved.
	Unknown = "Unknown"

	FlagTrue  = "1"
	FlagFalse = "0"
)

// Appointment data models
type AppointmentRecord struct {
	Age           *float64   `json:"age"`
	AgeGroup      string     `json:"age_group"`
	ScheduledAt   *time.Time `json:"scheduled_at"`
	AppointmentAt *time.Time `json:"appointment_at"`
	SMSReceived   string     `json:"sms_received"`
	NoShow        *int       `json:"no_show"`
	WaitingDays   *int       `json:"waiting_days"`
	Week          string     `json:"week"`
}

// Outcome reports whether the no-show flag resolved, and its value.
func (r AppointmentRecord) Outcome() (int, bool) {
	if r.NoShow == nil {
		return 0, false
	}
	return *r.NoShow, true
}

// FilterSet is the active selection on the three filterable dimensions.
type FilterSet struct {
	AgeGroup    string `json:"age_group"`
	SMSReceived string `json:"sms_received"`
	Week        string `json:"week"`
}

func DefaultFilters() FilterSet {
	return FilterSet{AgeGroup: FilterAll, SMSReceived: FilterAll, Week: FilterAll}
}

// Normalized fills blank dimensions with FilterAll.
func (f FilterSet) Normalized() FilterSet {
	if f.AgeGroup == "" {
		f.AgeGroup = FilterAll
	}
	if f.SMSReceived == "" {
		f.SMSReceived = FilterAll
	}
	if f.Week == "" {
		f.Week = FilterAll
	}
	return f
}

// Reset returns the all-"All" filter set.
func (FilterSet) Reset() FilterSet {
	return DefaultFilters()
}

func (f FilterSet) WithAgeGroup(v string) FilterSet {
	f.AgeGroup = v
	return f
}

func (f FilterSet) WithSMSReceived(v string) FilterSet {
	f.SMSReceived = v
	return f
}

func (f FilterSet) WithWeek(v string) FilterSet {
	f.Week = v
	return f
}

func (f FilterSet) IsDefault() bool {
	return f.Normalized() == DefaultFilters()
}

// Key is a stable identity used to memoize per-filter computations. Values are
// query-escaped so separators inside them cannot collide.
func (f FilterSet) Key() string {
	n := f.Normalized()
	return url.Values{
		"age":  {n.AgeGroup},
		"sms":  {n.SMSReceived},
		"week": {n.Week},
	}.Encode()
}

// Aggregation output
type Bucket struct {
	Key    string  `json:"key"`
	Show   int     `json:"show"`
	NoShow int     `json:"no_show"`
	Total  int     `json:"total"`
	Rate   float64 `json:"rate"`
}

type Dimension string

const (
	DimensionAgeGroup Dimension = "age_group"
	DimensionReminder Dimension = "sms"
	DimensionWeek     Dimension = "week"
	DimensionWaiting  Dimension = "waiting"
)

var Dimensions = []Dimension{DimensionAgeGroup, DimensionReminder, DimensionWeek, DimensionWaiting}

const (
	ReminderSent    = "SMS Sent"
	ReminderNotSent = "No SMS"
)

// Waiting time bins in display order.
const (
	WaitingBinSameDay = "0"
	WaitingBin1to3    = "1-3"
	WaitingBin4to7    = "4-7"
	WaitingBin8to14   = "8-14"
	WaitingBin15Plus  = "15+"
)

var WaitingBins = []string{WaitingBinSameDay, WaitingBin1to3, WaitingBin4to7, WaitingBin8to14, WaitingBin15Plus}

type WaitingBinning struct {
	Bins          []Bucket `json:"bins"`
	ValidCount    int      `json:"valid_count"`
	ExcludedCount int      `json:"excluded_count"`
}

type KPISummary struct {
	Total      int     `json:"total"`
	NoShows    int     `json:"no_shows"`
	Shows      int     `json:"shows"`
	NoShowRate float64 `json:"no_show_rate"`
}

// WaitingStats holds display-rounded Mean and Median; TotalDays keeps the exact
// sum for derived ratios.
type WaitingStats struct {
	Count     int     `json:"count"`
	TotalDays int     `json:"total_days"`
	Mean      float64 `json:"mean"`
	Median    float64 `json:"median"`
}

// ExactMean is TotalDays/Count without display rounding.
func (s WaitingStats) ExactMean() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.TotalDays) / float64(s.Count)
}

type CohortWaiting struct {
	Show   WaitingStats `json:"show"`
	NoShow WaitingStats `json:"no_show"`
}

// Insight models
type BaselineInsight struct {
	OverallRate  float64 `json:"overall_rate"`
	FilteredRate float64 `json:"filtered_rate"`
	Difference   float64 `json:"difference"`
	Label        string  `json:"label"`
	Flagged      bool    `json:"flagged"`
}

type ExtremumInsight struct {
	Dimension Dimension `json:"dimension"`
	Key       string    `json:"key"`
	Total     int       `json:"total"`
	Rate      float64   `json:"rate"`
	Message   string    `json:"message"`
}

type CohortInsight struct {
	YoungerRate float64 `json:"younger_rate"`
	OlderRate   float64 `json:"older_rate"`
	Difference  float64 `json:"difference"`
	Flagged     bool    `json:"flagged"`
	Message     string  `json:"message"`
}

type TrendInsight struct {
	FirstWeek string  `json:"first_week"`
	FirstRate float64 `json:"first_rate"`
	LastWeek  string  `json:"last_week"`
	LastRate  float64 `json:"last_rate"`
	Direction string  `json:"direction"`
	PeakWeek  string  `json:"peak_week"`
	PeakRate  float64 `json:"peak_rate"`
	Message   string  `json:"message"`
}

type WaitingImpactInsight struct {
	ShowMedian   float64 `json:"show_median"`
	ShowMean     float64 `json:"show_mean"`
	NoShowMedian float64 `json:"no_show_median"`
	NoShowMean   float64 `json:"no_show_mean"`
	Ratio        float64 `json:"ratio"`
	Message      string  `json:"message"`
}

// Annotation is externally supplied reporting content, passed through verbatim.
type Annotation struct {
	Title string  `json:"title" yaml:"title"`
	Value float64 `json:"value" yaml:"value"`
	Note  string  `json:"note,omitempty" yaml:"note"`
}

type Insights struct {
	Baseline         *BaselineInsight      `json:"baseline,omitempty"`
	BusiestWaitBin   *ExtremumInsight      `json:"busiest_wait_bin,omitempty"`
	RiskiestWaitBin  *ExtremumInsight      `json:"riskiest_wait_bin,omitempty"`
	RiskiestAgeGroup *ExtremumInsight      `json:"riskiest_age_group,omitempty"`
	AgeCohorts       *CohortInsight        `json:"age_cohorts,omitempty"`
	Trend            *TrendInsight         `json:"trend,omitempty"`
	WaitingImpact    *WaitingImpactInsight `json:"waiting_impact,omitempty"`
	Annotations      []Annotation          `json:"annotations,omitempty"`
}

// Messages lists the rendered text of every present insight in display order.
func (i Insights) Messages() []string {
	var out []string
	if i.Baseline != nil {
		out = append(out, i.Baseline.Label)
	}
	for _, e := range []*ExtremumInsight{i.BusiestWaitBin, i.RiskiestWaitBin, i.RiskiestAgeGroup} {
		if e != nil {
			out = append(out, e.Message)
		}
	}
	if i.AgeCohorts != nil {
		out = append(out, i.AgeCohorts.Message)
	}
	if i.Trend != nil {
		out = append(out, i.Trend.Message)
	}
	if i.WaitingImpact != nil {
		out = append(out, i.WaitingImpact.Message)
	}
	return out
}

// DashboardView is everything the presentation layer needs for one filter selection.
type DashboardView struct {
	DatasetID string         `json:"dataset_id"`
	Filters   FilterSet      `json:"filters"`
	Overall   KPISummary     `json:"overall"`
	KPIs      KPISummary     `json:"kpis"`
	AgeGroups []Bucket       `json:"age_groups"`
	Reminders []Bucket       `json:"reminders"`
	Weeks     []Bucket       `json:"weeks"`
	Waiting   WaitingBinning `json:"waiting"`
	Outcomes  CohortWaiting  `json:"outcomes"`
	Insights  Insights       `json:"insights"`
}

// FilterOptions lists the values a caller can pick for each filter dimension.
type FilterOptions struct {
	AgeGroups   []string `json:"age_groups"`
	SMSReceived []string `json:"sms_received"`
	Weeks       []string `json:"weeks"`
}

// LoadReport summarizes one ingestion pass.
type LoadReport struct {
	RowsRead    int               `json:"rows_read"`
	RowsKept    int               `json:"rows_kept"`
	InvalidRows int               `json:"invalid_rows"`
	Columns     map[string]string `json:"columns"`
}

type DatasetSummary struct {
	ID       string     `json:"id"`
	Source   string     `json:"source"`
	LoadedAt time.Time  `json:"loaded_at"`
	Records  int        `json:"records"`
	Report   LoadReport `json:"report"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // dataset.loaded, dataset.submitted
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// View query over the dashboard dimensions
type ViewQuery struct {
	ID  string `json:"id,omitempty"`
	DSL string `json:"dsl"`
}

// ViewResult is the projection of a DashboardView onto the sections a query
// selected. Unselected sections are omitted.
type ViewResult struct {
	QueryID   string          `json:"query_id,omitempty"`
	DatasetID string          `json:"dataset_id"`
	Filters   FilterSet       `json:"filters"`
	Sections  []string        `json:"sections"`
	Overall   *KPISummary     `json:"overall,omitempty"`
	KPIs      *KPISummary     `json:"kpis,omitempty"`
	AgeGroups []Bucket        `json:"age_groups,omitempty"`
	Reminders []Bucket        `json:"reminders,omitempty"`
	Weeks     []Bucket        `json:"weeks,omitempty"`
	Waiting   *WaitingBinning `json:"waiting,omitempty"`
	Outcomes  *CohortWaiting  `json:"outcomes,omitempty"`
	Insights  *Insights       `json:"insights,omitempty"`
	Messages  []string        `json:"messages,omitempty"`
}

// SavedView is a named query kept for reuse across datasets.
type SavedView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	DSL         string    `json:"dsl"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Field names a logical input column, independent of the header spelling.
type Field string

const (
	FieldAge          Field = "age"
	FieldAgeGroup     Field = "age_group"
	FieldScheduled    Field = "scheduled"
	FieldAppointment  Field = "appointment"
	FieldSMSReceived  Field = "sms_received"
	FieldNoShow       Field = "no_show"
	FieldWaitingDays  Field = "waiting_days"
	FieldAwaitingDays Field = "awaiting_days"
	FieldWeek         Field = "week"
)
