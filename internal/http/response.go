package http

type Status string

const (
	// StatusOK is used for health-check responses.
	StatusOK Status = "OK"

	// StatusSuccess indicates an operation completed successfully.
	StatusSuccess Status = "success"

	// StatusError indicates an operation failed.
	StatusError Status = "error"
)

// Response represents the standard API response format.
type Response struct {
	Status Status      `json:"status,omitempty"`
	Error  string      `json:"error,omitempty"`
	Table  *TableInfo  `json:"table,omitempty"`
	Tables []TableInfo `json:"tables,omitempty"`
}

// TableInfo is the wire view of one sstable handle.
type TableInfo struct {
	ID            uint64  `json:"id"`
	Path          string  `json:"path,omitempty"`
	SizeBytes     int64   `json:"size_bytes"`
	EstimatedKeys int64   `json:"estimated_keys"`
	ReadRate      float64 `json:"read_rate"`
}

func NewOKResponse() Response {
	return Response{Status: StatusOK}
}

func NewSuccessResponse() Response {
	return Response{Status: StatusSuccess}
}

func NewTableResponse(t TableInfo) Response {
	return Response{Status: StatusSuccess, Table: &t}
}

func NewTablesResponse(tables []TableInfo) Response {
	return Response{Status: StatusSuccess, Tables: tables}
}

func NewErrorResponse(err string) Response {
	return Response{Status: StatusError, Error: err}
}
