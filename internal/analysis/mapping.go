package analysis

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/pkg/chains"
	"github.com/JaimeStill/racksmith/pkg/query"
	"github.com/JaimeStill/racksmith/pkg/repository"
)

var (
	projection      = ResultProjection("public")
	chainProjection = ChainProjection("public")
)

// ResultProjection maps Result fields to the rack_analyses columns of schema.
func ResultProjection(schema string) *query.ProjectionMap {
	return query.
		NewProjectionMap(schema, "rack_analyses", "a").
		Project("id", "ID").
		Project("rack_id", "RackID").
		Project("status", "Status").
		Project("total_chains_detected", "TotalChains").
		Project("max_nesting_depth", "MaxNestingDepth").
		Project("total_devices", "TotalDevices").
		Project("device_type_breakdown", "DeviceTypeBreakdown").
		Project("duration_ms", "DurationMS").
		Project("constitutional_compliant", "Compliant").
		Project("compliance_issues", "Issues").
		Project("compliance_score", "Score").
		Project("policy_version", "PolicyVersion").
		Project("warnings", "Warnings").
		Project("error", "Error").
		Project("rack_type", "RackType").
		Project("rack_name", "RackName").
		Project("format_version", "FormatVersion").
		Project("processed_at", "ProcessedAt")
}

// ChainProjection maps Chain fields to the nested_chains columns of schema.
// rack_id is projected last so ScanChain can discard it.
func ChainProjection(schema string) *query.ProjectionMap {
	return query.
		NewProjectionMap(schema, "nested_chains", "c").
		Project("identifier", "Identifier").
		Project("name", "Name").
		Project("source_path", "SourcePath").
		Project("parent_id", "ParentID").
		Project("depth", "Depth").
		Project("position", "Position").
		Project("device_count", "DeviceCount").
		Project("is_empty", "IsEmpty").
		Project("chain_kind", "Kind").
		Project("devices", "Devices").
		Project("rack_id", "RackID")
}

// DefaultSort orders results newest first.
var DefaultSort = query.SortField{
	Field:      "ProcessedAt",
	Descending: true,
}

// PositionSort orders chains in document order.
var PositionSort = query.SortField{Field: "Position"}

// Filters contains optional filtering criteria for result queries.
// RackName uses case-insensitive contains matching; the rest match exactly.
type Filters struct {
	Status        *string `json:"status,omitempty"`
	Compliant     *bool   `json:"constitutional_compliant,omitempty"`
	RackType      *string `json:"rack_type,omitempty"`
	RackName      *string `json:"rack_name,omitempty"`
	PolicyVersion *string `json:"policy_version,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("Compliant", f.Compliant).
		WhereEquals("RackType", f.RackType).
		WhereContains("RackName", f.RackName).
		WhereEquals("PolicyVersion", f.PolicyVersion)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if c := values.Get("constitutional_compliant"); c != "" {
		if v, err := strconv.ParseBool(c); err == nil {
			f.Compliant = &v
		}
	}

	if rt := values.Get("rack_type"); rt != "" {
		f.RackType = &rt
	}

	if rn := values.Get("rack_name"); rn != "" {
		f.RackName = &rn
	}

	if pv := values.Get("policy_version"); pv != "" {
		f.PolicyVersion = &pv
	}

	return f
}

// ScanResult reads a row in projection column order. JSON columns are
// read as bytes so the same scan serves every store.
func ScanResult(s repository.Scanner) (Result, error) {
	var (
		r         Result
		breakdown []byte
		issues    []byte
		warnings  []byte
	)

	err := s.Scan(
		&r.ID,
		&r.RackID,
		&r.Status,
		&r.TotalChains,
		&r.MaxNestingDepth,
		&r.TotalDevices,
		&breakdown,
		&r.DurationMS,
		&r.Compliant,
		&issues,
		&r.Score,
		&r.PolicyVersion,
		&warnings,
		&r.Error,
		&r.RackType,
		&r.RackName,
		&r.FormatVersion,
		&r.ProcessedAt,
	)
	if err != nil {
		return r, err
	}

	if err := decodeJSON(breakdown, &r.DeviceTypeBreakdown); err != nil {
		return r, fmt.Errorf("device_type_breakdown: %w", err)
	}
	if err := decodeJSON(issues, &r.Issues); err != nil {
		return r, fmt.Errorf("compliance_issues: %w", err)
	}
	if err := decodeJSON(warnings, &r.Warnings); err != nil {
		return r, fmt.Errorf("warnings: %w", err)
	}

	r.normalize()
	return r, nil
}

// ScanChain reads a row in chain projection column order.
func ScanChain(s repository.Scanner) (chains.Chain, error) {
	var (
		c       chains.Chain
		devices []byte
		rackID  uuid.UUID
	)

	err := s.Scan(
		&c.Identifier,
		&c.Name,
		&c.SourcePath,
		&c.ParentID,
		&c.Depth,
		&c.Position,
		&c.DeviceCount,
		&c.IsEmpty,
		&c.Kind,
		&devices,
		&rackID,
	)
	if err != nil {
		return c, err
	}

	if err := decodeJSON(devices, &c.Devices); err != nil {
		return c, fmt.Errorf("devices: %w", err)
	}
	if c.Devices == nil {
		c.Devices = []chains.Device{}
	}
	return c, nil
}

// EncodeResult returns the JSON column values of r in projection order:
// device_type_breakdown, compliance_issues, warnings.
func EncodeResult(r *Result) (breakdown, issues, warnings []byte, err error) {
	r.normalize()
	if breakdown, err = json.Marshal(r.DeviceTypeBreakdown); err != nil {
		return
	}
	if issues, err = json.Marshal(r.Issues); err != nil {
		return
	}
	warnings, err = json.Marshal(r.Warnings)
	return
}

// EncodeDevices returns the devices column value of c.
func EncodeDevices(c *chains.Chain) ([]byte, error) {
	if c.Devices == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Devices)
}

func (r *Result) normalize() {
	if r.DeviceTypeBreakdown == nil {
		r.DeviceTypeBreakdown = map[string]int{}
	}
	if r.Issues == nil {
		r.Issues = []string{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
}

func decodeJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
