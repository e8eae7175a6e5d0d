package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// History holds a parameter reading across uploads. It starts as a single
// scalar and becomes a series once a second report contributes a value.
// It marshals as a bare JSON string while scalar and as a JSON array once
// promoted, and accepts either shape (plus bare numbers) when unmarshaling.
type History struct {
	series bool
	vals   []string
}

// Scalar builds a single-reading History.
func Scalar(v string) History {
	return History{vals: []string{v}}
}

// Series builds a multi-reading History.
func Series(vs ...string) History {
	return History{series: true, vals: append([]string(nil), vs...)}
}

// IsSeries reports whether the history has been promoted to a list.
func (h History) IsSeries() bool { return h.series }

// Values returns the readings in upload order, oldest first.
func (h History) Values() []string {
	return append([]string(nil), h.vals...)
}

// Latest returns the most recent reading, or "" when empty.
func (h History) Latest() string {
	if len(h.vals) == 0 {
		return ""
	}
	return h.vals[len(h.vals)-1]
}

// Len returns the number of readings.
func (h History) Len() int { return len(h.vals) }

// IsZero reports whether the history holds no readings at all.
func (h History) IsZero() bool { return !h.series && len(h.vals) == 0 }

// Append adds a reading, promoting a scalar to a series.
func (h History) Append(v string) History {
	return History{series: true, vals: append(h.Values(), v)}
}

func (h History) MarshalJSON() ([]byte, error) {
	if h.series {
		return json.Marshal(h.vals)
	}
	if len(h.vals) == 0 {
		return []byte(`""`), nil
	}
	return json.Marshal(h.vals[0])
}

func (h *History) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*h = History{}
		return nil
	}

	var list []interface{}
	if err := json.Unmarshal(data, &list); err == nil {
		h.series = true
		h.vals = make([]string, len(list))
		for i, v := range list {
			h.vals[i] = stringify(v)
		}
		return nil
	}

	var single interface{}
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	h.series = false
	if single == nil {
		h.vals = nil
		return nil
	}
	h.vals = []string{stringify(single)}
	return nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// trim the trailing .0 that json decoding puts on integers
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		return fmt.Sprintf("%t", t)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// Parameter is one measured quantity in a report, with its value and
// classification tracked across uploads.
type Parameter struct {
	Name        string  `json:"name"`
	Value       History `json:"value"`
	Unit        string  `json:"unit,omitempty"`
	NormalRange string  `json:"normal_range,omitempty"`
	Status      History `json:"status"`
}

// Validate checks that value and status moved in lockstep: same shape and,
// when the status is populated, the same number of readings.
func (p *Parameter) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("parameter name is required")
	}
	if p.Status.IsZero() {
		return nil
	}
	if p.Value.IsSeries() != p.Status.IsSeries() {
		return fmt.Errorf("parameter %s: value and status shapes differ", p.Name)
	}
	if p.Value.Len() != p.Status.Len() {
		return fmt.Errorf("parameter %s: %d values but %d statuses", p.Name, p.Value.Len(), p.Status.Len())
	}
	return nil
}

// Draft is the single-document view of a report produced by extraction,
// before it is merged into the longitudinal record.
type Draft struct {
	PatientName  string      `json:"patient_name"`
	PatientAge   string      `json:"patient_age"`
	PatientSex   string      `json:"patient_sex"`
	ReportType   string      `json:"report_type"`
	ReportDate   string      `json:"report_date"`
	Parameters   []Parameter `json:"parameters"`
	Observations []string    `json:"observations"`
	Advise       []string    `json:"advise"`
}

// StoredReport is the longitudinal record for one patient and report type.
// Parameters accumulate readings across uploads; observations and advise
// always reflect the latest upload.
type StoredReport struct {
	ID                  uuid.UUID   `json:"id" db:"id"`
	PatientID           uuid.UUID   `json:"patient_id" db:"patient_id"`
	ReportType          string      `json:"report_type" db:"report_type"`
	ReportDate          string      `json:"report_date" db:"report_date"`
	ReportDates         []string    `json:"report_dates" db:"report_dates"`
	Parameters          []Parameter `json:"parameters" db:"parameters"`
	Observations        []string    `json:"observations" db:"observations"`
	Advise              []string    `json:"advise" db:"advise"`
	LatestFileReference string      `json:"latest_file_reference,omitempty" db:"latest_file_reference"`
	CreatedAt           time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at" db:"updated_at"`
}

// Param returns the parameter with the given name, or nil.
func (r *StoredReport) Param(name string) *Parameter {
	for i := range r.Parameters {
		if r.Parameters[i].Name == name {
			return &r.Parameters[i]
		}
	}
	return nil
}
