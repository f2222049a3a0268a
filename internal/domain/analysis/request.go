package analysis

import (
	"bytes"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

const octetStream = "application/octet-stream"

// ResumeFile is the selected résumé: a named blob with a MIME type.
type ResumeFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewResumeFile builds a ResumeFile, sniffing the MIME type from the content
// when the caller does not know it.
func NewResumeFile(name string, data []byte, contentType string) *ResumeFile {
	if contentType == "" || contentType == octetStream {
		contentType = mimetype.Detect(data).String()
	}
	return &ResumeFile{Name: name, ContentType: contentType, Data: data}
}

// Reader returns a fresh reader over the file content.
func (f *ResumeFile) Reader() io.Reader {
	return bytes.NewReader(f.Data)
}

// Size returns the content length in bytes.
func (f *ResumeFile) Size() int64 {
	return int64(len(f.Data))
}

// HumanSize formats the size for logs and terminals, e.g. "12 kB".
func (f *ResumeFile) HumanSize() string {
	return humanize.Bytes(uint64(len(f.Data)))
}

// SubmissionRequest lives for the duration of one analyzer call.
type SubmissionRequest struct {
	Resume         *ResumeFile
	JobDescription string

	// Token identifies the submission; sent as X-Request-ID.
	Token string
}

// Validate enforces that a résumé is present before any network call.
func (r *SubmissionRequest) Validate() error {
	if r == nil || r.Resume == nil {
		return NewInputReport(MissingResumeMessage)
	}
	return nil
}
