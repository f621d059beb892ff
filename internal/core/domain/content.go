package domain

// ContentStream is the binary content of a document.
type ContentStream struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	Data     []byte `json:"-"`
}

// Length returns the content length in bytes.
func (c *ContentStream) Length() int64 {
	if c == nil {
		return 0
	}
	return int64(len(c.Data))
}

// Clone returns a copy that does not share the data slice.
func (c *ContentStream) Clone() *ContentStream {
	if c == nil {
		return nil
	}
	out := *c
	out.Data = append([]byte(nil), c.Data...)
	return &out
}

// Rendition describes a derived representation of a document.
type Rendition struct {
	StreamID string `json:"streamId"`
	Kind     string `json:"kind"`
	MimeType string `json:"mimeType"`
	Title    string `json:"title,omitempty"`
	Length   int64  `json:"length"`
	Height   int    `json:"height,omitempty"`
	Width    int    `json:"width,omitempty"`
}
