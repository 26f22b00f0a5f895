package upload

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// File describes one uploaded element of a user turn after it has been
// staged on disk.
type File struct {
	Name string
	Path string
	MIME string
}

// Service validates uploaded files against a configured MIME allow-list.
type Service struct {
	allowed []string
}

func NewService(allowed []string) *Service {
	return &Service{allowed: allowed}
}

// Allowed returns the accepted MIME types, used to build the user-facing
// notice when a collection is rejected.
func (s *Service) Allowed() []string {
	return s.allowed
}

// Validate reports whether every file's declared type is on the allow-list.
// A single unsupported file rejects the whole collection.
func (s *Service) Validate(files []File) bool {
	for _, file := range files {
		if !s.accepts(file.MIME) {
			log.Warn().
				Str("name", file.Name).
				Str("mime", file.MIME).
				Msg("Rejected upload with unsupported type")
			return false
		}
	}
	return true
}

// DetectMIME sniffs the content type of a staged file. Used when the client
// did not declare one.
func (s *Service) DetectMIME(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect mime type: %w", err)
	}
	return mtype.String(), nil
}

func (s *Service) accepts(mime string) bool {
	for _, allowed := range s.allowed {
		if mime == allowed {
			return true
		}
	}
	return false
}
