package batches

import (
	"net/http"

	"github.com/JaimeStill/racksmith/pkg/openapi"
)

type spec struct {
	Submit  *openapi.Operation
	History *openapi.Operation
	Status  *openapi.Operation
	Results *openapi.Operation
	Cancel  *openapi.Operation
	Schemas map[string]*openapi.Schema
}

var timestamp = &openapi.Schema{Type: "string", Format: "date-time"}

// Spec documents the batch endpoints.
var Spec = spec{
	Submit: &openapi.Operation{
		Summary:     "Submit a batch reanalysis",
		RequestBody: openapi.RequestBodyJSON("SubmitCommand", true),
		Responses: map[int]*openapi.Response{
			http.StatusAccepted:           openapi.ResponseJSON("Batch admitted", "BatchView"),
			http.StatusBadRequest:         openapi.ResponseRef("BadRequest"),
			http.StatusForbidden:          openapi.ResponseRef("Forbidden"),
			http.StatusServiceUnavailable: openapi.ResponseRef("Unavailable"),
		},
	},
	History: &openapi.Operation{
		Summary:     "List batches",
		Description: "Callers without the admin role see only their own batches.",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("page", "integer", "Page number", false),
			openapi.QueryParam("page_size", "integer", "Results per page", false),
			openapi.QueryParam("sort", "string", "Comma-separated sort fields", false),
			openapi.QueryParam("status", "string", "Batch status filter", false),
			openapi.QueryParam("priority", "string", "Priority filter", false),
			openapi.QueryParam("user_id", "string", "Submitter filter, admin only", false),
		},
		Responses: map[int]*openapi.Response{
			http.StatusOK: openapi.ResponseJSON("Page of batches", "BatchPage"),
		},
	},
	Status: &openapi.Operation{
		Summary: "Get batch progress",
		Responses: map[int]*openapi.Response{
			http.StatusOK:        openapi.ResponseJSON("Batch progress", "BatchView"),
			http.StatusForbidden: openapi.ResponseRef("Forbidden"),
			http.StatusNotFound:  openapi.ResponseRef("NotFound"),
		},
	},
	Results: &openapi.Operation{
		Summary: "Get the results of a finished batch",
		Parameters: []*openapi.Parameter{
			openapi.QueryParam("include_details", "boolean", "Include per-item outcomes", false),
		},
		Responses: map[int]*openapi.Response{
			http.StatusOK:        openapi.ResponseJSON("Batch results", "BatchResults"),
			http.StatusNotFound:  openapi.ResponseRef("NotFound"),
			http.StatusConflict:  openapi.ResponseRef("Conflict"),
			http.StatusForbidden: openapi.ResponseRef("Forbidden"),
		},
	},
	Cancel: &openapi.Operation{
		Summary:     "Cancel a batch",
		Description: "Queued items are cancelled; items already processing run to completion.",
		Responses: map[int]*openapi.Response{
			http.StatusOK:        openapi.ResponseJSON("Batch after cancellation", "BatchView"),
			http.StatusNotFound:  openapi.ResponseRef("NotFound"),
			http.StatusConflict:  openapi.ResponseRef("Conflict"),
			http.StatusForbidden: openapi.ResponseRef("Forbidden"),
		},
	},
	Schemas: map[string]*openapi.Schema{
		"SubmitCommand": {
			Type:     "object",
			Required: []string{"rack_ids"},
			Properties: map[string]*openapi.Schema{
				"rack_ids": {Type: "array", Items: &openapi.Schema{Type: "string", Format: "uuid"}},
				"priority": {Type: "string", Enum: []any{"low", "normal", "high"}, Default: "normal"},
				"force":    {Type: "boolean"},
				"notify":   {Type: "boolean"},
			},
		},
		"BatchItem": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"rack_id":                  {Type: "string", Format: "uuid"},
				"position":                 {Type: "integer"},
				"status":                   {Type: "string", Enum: []any{"queued", "processing", "completed", "failed", "cancelled"}},
				"error":                    {Type: "string"},
				"constitutional_compliant": {Type: "boolean"},
				"chains_detected":          {Type: "integer"},
				"duration_ms":              {Type: "integer"},
				"started_at":               timestamp,
				"completed_at":             timestamp,
			},
		},
		"BatchView": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":                   {Type: "string", Format: "uuid"},
				"user_id":              {Type: "string", Format: "uuid"},
				"priority":             {Type: "string"},
				"force":                {Type: "boolean"},
				"notify":               {Type: "boolean"},
				"status":               {Type: "string", Enum: []any{"pending", "processing", "completed", "failed", "cancelled"}},
				"submitted_at":         timestamp,
				"started_at":           timestamp,
				"completed_at":         timestamp,
				"items":                {Type: "array", Items: openapi.SchemaRef("BatchItem")},
				"counts":               {Type: "object"},
				"current_items":        {Type: "array", Items: &openapi.Schema{Type: "string", Format: "uuid"}},
				"progress_percentage":  {Type: "number"},
				"estimated_completion": timestamp,
			},
		},
		"BatchPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":        {Type: "array", Items: openapi.SchemaRef("BatchView")},
				"total":       {Type: "integer"},
				"page":        {Type: "integer"},
				"page_size":   {Type: "integer"},
				"total_pages": {Type: "integer"},
			},
		},
		"BatchResults": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"batch_id": {Type: "string", Format: "uuid"},
				"status":   {Type: "string"},
				"summary":  {Type: "object"},
				"items":    {Type: "array", Items: openapi.SchemaRef("BatchItem")},
			},
		},
	},
}
