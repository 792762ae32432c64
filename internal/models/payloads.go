package models

// These structs define the JSON payloads for HTTP requests and responses
// between callers (UI, Cloud Workflows) and the functions.

// ImportRequest is the input for the batch-importer function. Either Refs or
// Bucket (with an optional Prefix) must be set.
type ImportRequest struct {
	Refs      []string `json:"refs,omitempty"`
	Bucket    string   `json:"bucket,omitempty"`
	Prefix    string   `json:"prefix,omitempty"`
	Languages []string `json:"languages,omitempty"`
}

// ImportItem reports the outcome for one input of a batch import.
type ImportItem struct {
	Ref         string      `json:"ref"`
	Status      string      `json:"status"` // "ingested", "duplicate" or "failed"
	DocumentID  string      `json:"documentId,omitempty"`
	FailureKind FailureKind `json:"failureKind,omitempty"`
	Reason      string      `json:"reason,omitempty"`
}

// ImportResponse is the output of the batch-importer function.
type ImportResponse struct {
	Status string       `json:"status"`
	Items  []ImportItem `json:"items"`
}

// RunWorkflowRequest is the input for the workflow-runner function. With
// QuickFlow set, Workflow must be empty and the default Quick Flow runs with
// the given credentials.
type RunWorkflowRequest struct {
	DocumentID  string   `json:"documentId"`
	Workflow    Workflow `json:"workflow"`
	ExecutionID string   `json:"executionId,omitempty"`

	QuickFlow     bool    `json:"quickFlow,omitempty"`
	UserPassword  *string `json:"userPassword,omitempty"`
	OwnerPassword *string `json:"ownerPassword,omitempty"`
}

// RunWorkflowResponse is the output of the workflow-runner function.
type RunWorkflowResponse struct {
	Status     string         `json:"status"`
	DocumentID string         `json:"documentId"`
	Result     WorkflowResult `json:"result"`
}

// EditRecordRequest is the input for the record-editor function. Nil pointer
// fields are left untouched; an empty string clears the field.
type EditRecordRequest struct {
	DocumentID  string   `json:"documentId"`
	AddTags     []string `json:"addTags,omitempty"`
	RemoveTags  []string `json:"removeTags,omitempty"`
	SuggestTags bool     `json:"suggestTags,omitempty"`
	Title       *string  `json:"title,omitempty"`
	Author      *string  `json:"author,omitempty"`
	Vendor      *string  `json:"vendor,omitempty"`
	Passenger   *string  `json:"passenger,omitempty"`
	Airline     *string  `json:"airline,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

// EditRecordResponse is the output of the record-editor function.
type EditRecordResponse struct {
	Status string         `json:"status"`
	Record DocumentRecord `json:"record"`
}

// ImagesToPDFRequest is the input for the image-assembler function. Images
// become pages in the given order; OutputRef is a gs:// reference ending in
// ".pdf".
type ImagesToPDFRequest struct {
	ImageRefs []string `json:"imageRefs"`
	OutputRef string   `json:"outputRef"`
}

// ImagesToPDFResponse is the output of the image-assembler function.
type ImagesToPDFResponse struct {
	Status    string `json:"status"`
	OutputRef string `json:"outputRef"`
	PageCount int    `json:"pageCount"`
}

// ExportTextRequest is the input for the text-exporter function.
type ExportTextRequest struct {
	DocumentID string   `json:"documentId"`
	Languages  []string `json:"languages,omitempty"`
}

// ExportTextResponse is the output of the text-exporter function.
type ExportTextResponse struct {
	Status       string `json:"status"`
	DocumentID   string `json:"documentId"`
	OutputRef    string `json:"outputRef"`
	OCRPerformed bool   `json:"ocrPerformed"`
	PageCount    int    `json:"pageCount"`
}
