package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MaxFileSize is the largest accepted upload (50 MB).
const MaxFileSize int64 = 50 * 1024 * 1024

// AllowedExtensions lists the uploadable file extensions, lowercase with dot.
var AllowedExtensions = []string{".pdf", ".png", ".jpg", ".jpeg", ".ppt", ".pptx"}

// Extension returns the lowercased extension of name.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// IsAllowedFile reports whether name carries an uploadable extension.
func IsAllowedFile(name string) bool {
	ext := Extension(name)
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// ParseSource defaults to others when s is empty.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case "":
		return SourceOthers, nil
	case SourceInternet, SourceWritten, SourceOthers:
		return Source(s), nil
	default:
		return "", fmt.Errorf("invalid source %q", s)
	}
}

// ParseRegulationYear validates a material's regulation year. It is required.
func ParseRegulationYear(s string) (RegulationYear, error) {
	switch RegulationYear(s) {
	case Regulation2019, Regulation2023, RegulationOther:
		return RegulationYear(s), nil
	case "":
		return "", fmt.Errorf("regulationYear is required")
	default:
		return "", fmt.Errorf("invalid regulationYear %q", s)
	}
}

// ParseRequestRegulationYear is stricter than ParseRegulationYear: requests
// must target a concrete regulation.
func ParseRequestRegulationYear(s string) (RegulationYear, error) {
	switch RegulationYear(s) {
	case Regulation2019, Regulation2023:
		return RegulationYear(s), nil
	case "":
		return "", fmt.Errorf("regulationYear is required")
	default:
		return "", fmt.Errorf("invalid regulationYear %q", s)
	}
}

// ParseMaterialType defaults to other when s is empty.
func ParseMaterialType(s string) (MaterialType, error) {
	switch MaterialType(s) {
	case "":
		return TypeOther, nil
	case TypeNotes, TypeQuestionPaper, TypeSyllabus, TypeReferenceBook, TypeOther:
		return MaterialType(s), nil
	default:
		return "", fmt.Errorf("invalid materialType %q", s)
	}
}

func ParseVoteType(s string) (VoteType, error) {
	switch VoteType(s) {
	case Upvote, Downvote:
		return VoteType(s), nil
	default:
		return "", fmt.Errorf("invalid voteType %q", s)
	}
}
