package core

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// FormField is the multipart field the server reads the file from.
const FormField = "material"

// Metadata is shared by every file of one olh invocation.
type Metadata struct {
	Title          string
	Subject        string
	Description    string
	Source         string
	RegulationYear string
	MaterialType   string
	LinkedRequest  string
}

// Payload is one file ready to be sent as a multipart upload.
type Payload struct {
	file *File
	meta Metadata
}

func NewPayload(file *File, meta Metadata) *Payload {
	return &Payload{file: file, meta: meta}
}

// BuildPayloads creates one payload per file. An explicit title only makes
// sense for a single file; with several files each is titled by its name.
func BuildPayloads(files []*File, meta Metadata) []*Payload {
	if len(files) > 1 {
		meta.Title = ""
	}
	payloads := make([]*Payload, 0, len(files))
	for _, f := range files {
		payloads = append(payloads, NewPayload(f, meta))
	}
	return payloads
}

func (p *Payload) Path() string {
	return p.file.Path()
}

// Title is the explicit title, or the file name without its extension and
// with separators turned into spaces.
func (p *Payload) Title() string {
	if t := strings.TrimSpace(p.meta.Title); t != "" {
		return t
	}
	base := strings.TrimSuffix(p.file.Name(), filepath.Ext(p.file.Name()))
	return strings.Join(strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(base)), " ")
}

func (p *Payload) fields() [][2]string {
	return [][2]string{
		{"title", p.Title()},
		{"subject", p.meta.Subject},
		{"description", p.meta.Description},
		{"source", p.meta.Source},
		{"regulationYear", p.meta.RegulationYear},
		{"materialType", p.meta.MaterialType},
		{"linkedRequest", p.meta.LinkedRequest},
	}
}

// Encode streams the payload as a multipart form. The returned reader must
// be consumed or closed.
func (p *Payload) Encode() (io.ReadCloser, string, error) {
	src, err := os.Open(p.file.Path())
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", p.file.Path(), err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer src.Close()
		pw.CloseWithError(p.write(mw, src))
	}()

	return pr, mw.FormDataContentType(), nil
}

func (p *Payload) write(mw *multipart.Writer, src io.Reader) error {
	for _, f := range p.fields() {
		if f[1] == "" {
			continue
		}
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile(FormField, p.file.Name())
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("failed to read %s: %w", p.file.Path(), err)
	}
	return mw.Close()
}
