package model

// Document is file metadata attached to exactly one service order.
// The parent is referenced by id, never embedded.
type Document struct {
	ID             int64   `json:"id"`
	ServiceOrderID int64   `json:"service_order_id"`
	Filename       string  `json:"filename"`
	UploadedBy     *string `json:"uploaded_by,omitempty"`
	UploadedAt     *string `json:"uploaded_at,omitempty"`
	SizeBytes      *int64  `json:"size_bytes,omitempty"`
}

// DocumentList is the ordered set of documents for one service order.
type DocumentList struct {
	ServiceOrderID int64      `json:"service_order_id"`
	Documents      []Document `json:"documents"`
}
