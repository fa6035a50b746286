package model

// ImportMessage is the payload pushed on the import queue.
type ImportMessage struct {
	JobID    string     `json:"job_id"`
	CourseID string     `json:"course_id"`
	Kind     ImportKind `json:"kind"`
	S3Path   string     `json:"s3_path"`
}

// ExportMessage is the payload pushed on the export queue.
type ExportMessage struct {
	JobID string `json:"job_id"`
}

// ReportQuery is the wire form of report filters and sort options, shared by
// the HTTP layer and stored export jobs.
type ReportQuery struct {
	CourseID       string   `json:"course_id,omitempty" form:"course_id"`
	DateFrom       string   `json:"date_from,omitempty" form:"date_from"`
	DateTo         string   `json:"date_to,omitempty" form:"date_to"`
	Status         string   `json:"status,omitempty" form:"status"`
	Search         string   `json:"q,omitempty" form:"q"`
	MinPercentage  *float64 `json:"min_percentage,omitempty" form:"min_percentage"`
	Classification string   `json:"classification,omitempty" form:"classification"`
	SortBy         string   `json:"sort,omitempty" form:"sort"`
	Order          string   `json:"order,omitempty" form:"order"`
}

type ExportRequest struct {
	ReportQuery
	Format   string `json:"format" form:"format"`
	FileType string `json:"type" form:"type"`
}

type ExportResponse struct {
	Job         ExportJob `json:"job"`
	DownloadURL string    `json:"download_url,omitempty"`
}

type ImportResponse struct {
	Job ImportJob `json:"job"`
}

type TeachingDatesResponse struct {
	From  string   `json:"from"`
	To    string   `json:"to"`
	Count int      `json:"count"`
	Dates []string `json:"dates"`
}
