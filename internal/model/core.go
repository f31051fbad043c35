package model

// GenericRecord is a schema-agnostic map for one accident report. The source
// API does not publish a fixed schema contract; the pipeline only requires
// that a known subset of field names is present.
type GenericRecord map[string]interface{}

// ExportJobSpec defines one export run: where to fetch from, how to filter,
// and where to write the result.
type ExportJobSpec struct {
	BaseURL            string   `json:"baseUrl"`
	PageSize           int      `json:"pageSize"`             // records per page, default 1000
	StartOffset        int      `json:"startOffset"`          // records already fetched, default 0
	OutputFile         string   `json:"outputFile"`           // CSV target, overwritten unconditionally
	Columns            []string `json:"columns,omitempty"`    // projected columns, default set when empty
	LookbackDays       int      `json:"lookbackDays"`         // trailing window, default 3650
	CausesFile         string   `json:"causesFile,omitempty"` // optional external cause-code table (JSON)
	AllowPartialExport bool     `json:"allowPartialExport"`   // export whatever was fetched when the loop aborts
}
