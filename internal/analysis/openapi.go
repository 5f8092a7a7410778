package analysis

import (
	"net/http"

	"github.com/JaimeStill/racksmith/pkg/openapi"
)

type spec struct {
	List      *openapi.Operation
	Find      *openapi.Operation
	Analyze   *openapi.Operation
	Reanalyze *openapi.Operation
	Hierarchy *openapi.Operation
	Chain     *openapi.Operation
	Schemas   map[string]*openapi.Schema
}

// Spec documents the analysis endpoints.
var Spec = spec{
	List: &openapi.Operation{
		Summary:     "List current analysis results",
		Description: "Requires the admin role.",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("search", "string", "Matches rack name or rack type", false),
			openapi.QueryParam("sort", "string", "Comma-separated sort fields", false),
			openapi.QueryParam("status", "string", "succeeded or failed", false),
			openapi.QueryParam("constitutional_compliant", "boolean", "Compliance filter", false),
			openapi.QueryParam("rack_type", "string", "Top-level rack device type", false),
			openapi.QueryParam("rack_name", "string", "Contains match on rack name", false),
			openapi.QueryParam("policy_version", "string", "Policy version filter", false),
		},
		Responses: map[int]*openapi.Response{
			http.StatusOK:        openapi.ResponseJSON("Page of results", "AnalysisPage"),
			http.StatusForbidden: openapi.ResponseRef("Forbidden"),
		},
	},
	Find: &openapi.Operation{
		Summary: "Get the current analysis of a rack",
		Responses: map[int]*openapi.Response{
			http.StatusOK:       openapi.ResponseJSON("Current result", "AnalysisSummary"),
			http.StatusNotFound: openapi.ResponseRef("NotFound"),
		},
	},
	Analyze: &openapi.Operation{
		Summary:     "Analyze a rack",
		Description: "Returns the stored result unless force is set or the rack has never been analyzed.",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("force", "boolean", "Run the pipeline even when a result exists", false),
		},
		RequestBody: openapi.RequestBodyJSON("AnalyzeOptions", false),
		Responses: map[int]*openapi.Response{
			http.StatusOK:                  openapi.ResponseJSON("Analysis result", "AnalysisSummary"),
			http.StatusNotFound:            openapi.ResponseRef("NotFound"),
			http.StatusConflict:            openapi.ResponseRef("Conflict"),
			http.StatusUnprocessableEntity: openapi.ResponseJSON("Analysis failed", "AnalysisSummary"),
		},
	},
	Reanalyze: &openapi.Operation{
		Summary:     "Reanalyze a rack",
		Description: "Always runs the pipeline. Overrides apply to this run only.",
		RequestBody: openapi.RequestBodyJSON("ReanalyzeOptions", false),
		Responses: map[int]*openapi.Response{
			http.StatusOK:                  openapi.ResponseJSON("Analysis result", "AnalysisSummary"),
			http.StatusBadRequest:          openapi.ResponseRef("BadRequest"),
			http.StatusNotFound:            openapi.ResponseRef("NotFound"),
			http.StatusConflict:            openapi.ResponseRef("Conflict"),
			http.StatusUnprocessableEntity: openapi.ResponseJSON("Analysis failed", "AnalysisSummary"),
		},
	},
	Hierarchy: &openapi.Operation{
		Summary: "Get the chain hierarchy of a rack",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("include_devices", "boolean", "Include device descriptors", false),
		},
		Responses: map[int]*openapi.Response{
			http.StatusOK:       openapi.ResponseJSON("Chain tree", "Hierarchy"),
			http.StatusNotFound: openapi.ResponseRef("NotFound"),
		},
	},
	Chain: &openapi.Operation{
		Summary: "Get one chain by identifier",
		Responses: map[int]*openapi.Response{
			http.StatusOK:       openapi.ResponseJSON("Chain", "Chain"),
			http.StatusNotFound: openapi.ResponseRef("NotFound"),
		},
	},
	Schemas: map[string]*openapi.Schema{
		"AnalyzeOptions": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"force": {Type: "boolean", Description: "Run the pipeline even when a result exists"},
			},
		},
		"ReanalyzeOptions": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"performance_ceiling_ms": {Type: "integer", Description: "Duration ceiling for this run"},
			},
		},
		"AnalysisSummary": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":                       {Type: "string", Format: "uuid"},
				"rack_id":                  {Type: "string", Format: "uuid"},
				"status":                   {Type: "string", Enum: []any{"succeeded", "failed"}},
				"total_chains_detected":    {Type: "integer"},
				"max_nesting_depth":        {Type: "integer"},
				"total_devices":            {Type: "integer"},
				"device_type_breakdown":    {Type: "object"},
				"duration_ms":              {Type: "integer"},
				"constitutional_compliant": {Type: "boolean"},
				"compliance_issues":        {Type: "array", Items: &openapi.Schema{Type: "string"}},
				"compliance_score":         {Type: "number"},
				"policy_version":           {Type: "string"},
				"warnings":                 {Type: "array", Items: &openapi.Schema{Type: "string"}},
				"error":                    {Type: "string"},
				"rack_type":                {Type: "string"},
				"rack_name":                {Type: "string"},
				"format_version":           {Type: "string"},
				"processed_at":             {Type: "string", Format: "date-time"},
				"performance_rating":       {Type: "string"},
				"complexity_rating":        {Type: "string"},
				"efficiency_score":         {Type: "number"},
			},
		},
		"AnalysisPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        {Type: "array", Items: openapi.SchemaRef("AnalysisSummary")},
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
		"Chain": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"identifier":   {Type: "string", Example: "c1.d0.c0"},
				"name":         {Type: "string"},
				"source_path":  {Type: "string"},
				"parent_id":    {Type: "string"},
				"depth":        {Type: "integer"},
				"position":     {Type: "integer"},
				"device_count": {Type: "integer"},
				"is_empty":     {Type: "boolean"},
				"chain_kind":   {Type: "string", Enum: []any{"normal", "return", "drum-pad", "unknown"}},
				"devices":      {Type: "array", Items: &openapi.Schema{Type: "object"}},
				"children":     {Type: "array", Items: openapi.SchemaRef("Chain")},
			},
		},
		"Hierarchy": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"rack_id":           {Type: "string", Format: "uuid"},
				"total_chains":      {Type: "integer"},
				"max_nesting_depth": {Type: "integer"},
				"chains":            {Type: "array", Items: openapi.SchemaRef("Chain")},
			},
		},
	},
}
