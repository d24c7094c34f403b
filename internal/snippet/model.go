package snippet

import "errors"

// Validation errors. Structural only: business validation of submitted
// attributes belongs to the web layer, before submissions reach the buffer.
var (
	ErrIDRequired    = errors.New("snippet: id required")
	ErrScopeRequired = errors.New("snippet: scope required")
	ErrBodyRequired  = errors.New("snippet: body required")
	ErrBodyTooLarge  = errors.New("snippet: body exceeds size limit")
)

// Snippet is one shared code snippet. Instances handed to the buffer are
// treated as immutable: nothing mutates a snippet after it is queued.
type Snippet struct {
	ID          string `json:"id"`
	Scope       string `json:"scope"`
	Title       string `json:"title,omitempty"`
	Language    string `json:"language,omitempty"`
	Body        string `json:"body"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

// Validate checks structural requirements. maxBytes <= 0 disables the size
// cap.
func (s *Snippet) Validate(maxBytes int) error {
	if s.ID == "" {
		return ErrIDRequired
	}
	if s.Scope == "" {
		return ErrScopeRequired
	}
	if s.Body == "" {
		return ErrBodyRequired
	}
	if maxBytes > 0 && len(s.Body) > maxBytes {
		return ErrBodyTooLarge
	}
	return nil
}
