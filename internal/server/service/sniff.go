package service

import (
	"bytes"
	"errors"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how much of an upload is inspected for its content type.
const sniffLen = 3072

// contentFamilies lists the detected MIME types accepted for each extension.
// Office formats are containers, so their container types are accepted too
// when the header alone is not enough to tell them apart.
var contentFamilies = map[string][]string{
	".pdf":  {"application/pdf"},
	".png":  {"image/png"},
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".ppt":  {"application/vnd.ms-powerpoint", "application/x-ole-storage"},
	".pptx": {"application/vnd.openxmlformats-officedocument.presentationml.presentation", "application/zip"},
}

// sniff reads the head of r, checks it against ext and returns the detected
// type and a reader that replays the consumed bytes.
func sniff(r io.Reader, ext string) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	if n == 0 {
		return "", nil, ErrEmptyFile
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	if !matchesFamily(detected, contentFamilies[ext]) {
		return "", nil, ErrContentMismatch
	}
	return detected.String(), io.MultiReader(bytes.NewReader(head), r), nil
}

func matchesFamily(detected *mimetype.MIME, allowed []string) bool {
	for m := detected; m != nil; m = m.Parent() {
		for _, a := range allowed {
			if m.Is(a) {
				return true
			}
		}
	}
	return false
}
