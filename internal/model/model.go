// Package model contains the canonical records returned to tool callers.
// Optional attributes are pointers so that "absent upstream" survives serialization
// as an absent key rather than a zero value.
package model

// Kind identifies an upstream entity type.
type Kind string

const (
	KindServiceOrder Kind = "service order"
	KindAsset        Kind = "asset"
	KindDocument     Kind = "document"
)

// ServiceOrder is a work order as reported by the upstream API.
type ServiceOrder struct {
	ID                int64   `json:"id"`
	Number            string  `json:"number" jsonschema:"service order number, e.g. SO-12345"`
	Status            *string `json:"status,omitempty" jsonschema:"current status, e.g. Open, In Progress, Closed"`
	ClientCompanyID   *int64  `json:"client_company_id,omitempty"`
	ClientCompanyName *string `json:"client_company_name,omitempty"`
	ClientSite        *string `json:"client_site,omitempty"`
	AssignedEmployee  *string `json:"assigned_employee,omitempty"`
	CreatedAt         *string `json:"created_at,omitempty"`
	UpdatedAt         *string `json:"updated_at,omitempty"`
}

// Asset is a piece of equipment tracked upstream.
type Asset struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name" jsonschema:"asset name or description"`
	SerialNumber    *string `json:"serial_number,omitempty"`
	Model           *string `json:"model,omitempty"`
	Manufacturer    *string `json:"manufacturer,omitempty"`
	ClientCompanyID *int64  `json:"client_company_id,omitempty"`
	Location        *string `json:"location,omitempty"`
}

// UploadResult reports the outcome of a document upload. Failures are
// reported here rather than as protocol errors.
type UploadResult struct {
	Success    bool   `json:"success"`
	DocumentID *int64 `json:"document_id,omitempty"`
	Message    string `json:"message"`
}
