package models

type Subject string

const (
	SubjectMath     Subject = "math"
	SubjectJapanese Subject = "japanese"
	SubjectScience  Subject = "science"
	SubjectSocial   Subject = "social"
	SubjectUnknown  Subject = "unknown"
)

// Subjects lists the selectable subjects in display order.
var Subjects = []Subject{SubjectMath, SubjectJapanese, SubjectScience, SubjectSocial}

var subjectLabels = map[Subject]string{
	SubjectMath:     "算数",
	SubjectJapanese: "国語",
	SubjectScience:  "理科",
	SubjectSocial:   "社会",
	SubjectUnknown:  "不明",
}

// SubjectLabel returns the display label for a subject code. Codes outside the
// fixed table are returned unchanged.
func SubjectLabel(code string) string {
	if label, ok := subjectLabels[Subject(code)]; ok {
		return label
	}
	return code
}

// UnknownYear is the bucket key for documents without a year.
const UnknownYear = "不明"

// ── Core Structs ───────────────────────────────────────

type Document struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	School    string    `json:"school"`
	Subject   string    `json:"subject"`
	Year      int       `json:"year"`
	Filename  string    `json:"filename"`
	CreatedAt Timestamp `json:"created_at"`
}

// YearKey is the year as used by filters and grouping.
func (d Document) YearKey() string {
	if d.Year <= 0 {
		return UnknownYear
	}
	return itoa(d.Year)
}

type DocumentWithQuestions struct {
	Document
	Questions []Question `json:"questions"`
}

// DocumentUpdate is a partial update; nil fields are left untouched.
type DocumentUpdate struct {
	School  *string `json:"school,omitempty"`
	Subject *string `json:"subject,omitempty"`
	Year    *int    `json:"year,omitempty"`
}

// DocumentMeta is the optional metadata sent with upload, download and crawl.
type DocumentMeta struct {
	School  string
	Subject string
	Year    int
}

type CrawlResult struct {
	Message           string   `json:"message"`
	TotalFound        int      `json:"total_found"`
	SuccessfullySaved int      `json:"successfully_saved"`
	FailedSaves       []string `json:"failed_saves,omitempty"`
}

// AnalysisResult is the outcome of one AI analysis call. It is never stored.
type AnalysisResult struct {
	Success             bool   `json:"success"`
	Analysis            string `json:"analysis,omitempty"`
	Error               string `json:"error,omitempty"`
	ExtractedTextLength int    `json:"extracted_text_length,omitempty"`
	PDFFileSize         int64  `json:"pdf_file_size,omitempty"`
	PagesConverted      int    `json:"pages_converted,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
