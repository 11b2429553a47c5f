package model

import "time"

// Record type tags. The pipeline stores many job vectors and at most one
// resume vector; everything downstream branches on this tag.
const (
	TypeJob    = "job"
	TypeResume = "resume"
)

// Metadata describes the source of an embedding. It is a closed struct
// rather than a free-form map so the catalog and payload formats stay
// stable across versions.
type Metadata struct {
	Type     string `json:"type"`
	Title    string `json:"job_title,omitempty"`
	Company  string `json:"company_name,omitempty"`
	Location string `json:"location,omitempty"`
	Index    int    `json:"job_index,omitempty"`
}

// EmbeddingRecord is the unit of persistence: one text, one vector, plus
// enough context to interpret the vector later. Dimension always equals
// len(Embedding).
type EmbeddingRecord struct {
	ID        string    `json:"-"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	CreatedAt time.Time `json:"created_at"`
	Metadata  Metadata  `json:"metadata"`
}

// JobPosting is the shape the preprocessing side hands over: the text to
// embed plus display metadata carried through to ranked results.
type JobPosting struct {
	EmbeddingText string `json:"embedding_text"`
	Title         string `json:"job_title"`
	Company       string `json:"company_name"`
	Location      string `json:"location"`
	Index         int    `json:"job_index"`
}

// EmbeddingBatch is a pre-packaged generation request: a set of job
// postings and an optional resume text.
type EmbeddingBatch struct {
	Jobs       []JobPosting `json:"jobs"`
	ResumeText string       `json:"resume_text,omitempty"`
}
