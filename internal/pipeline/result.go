package pipeline

// ResultStatus classifies the outcome of one extraction run.
type ResultStatus string

const (
	ResultCompleted ResultStatus = "completed"
	ResultPartial   ResultStatus = "partial"
	ResultFailed    ResultStatus = "failed"
)

// Stage names identify where a page failed.
const (
	StageRender  = "render"
	StageExtract = "extract"
)

// PageResult is the outcome of one page job: either a TOC fragment or
// the error that stopped it, never both. Immutable once produced.
type PageResult struct {
	PageIndex int
	Fragment  string
	Stage     string
	Err       error
}

// PageError is the serializable form of a failed page.
type PageError struct {
	PageIndex int    `json:"page_index"`
	Stage     string `json:"stage"`
	Message   string `json:"message"`
}

// PipelineResult is the single outcome returned to the caller.
type PipelineResult struct {
	Success    bool         `json:"success"`
	Status     ResultStatus `json:"status"`
	TOC        string       `json:"toc_content"`
	PageErrors []PageError  `json:"page_errors,omitempty"`
	CacheHit   bool         `json:"cache_hit"`
	PagesTotal int          `json:"pages_total"`
	OutputFile string       `json:"output_file,omitempty"`
}
