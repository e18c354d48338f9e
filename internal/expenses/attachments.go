package expenses

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const defaultMaxAttachmentBytes int64 = 5 << 20

// Reasons reported for attachments that were not stored.
const (
	SkipReasonEmpty       = "empty"
	SkipReasonTooLarge    = "too_large"
	SkipReasonUnsupported = "unsupported_type"
)

var defaultAttachmentTypes = []string{"image/jpeg", "image/jpg", "image/png", "application/pdf"}

// AttachmentUpload is one file submitted with an expense request.
type AttachmentUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// SkippedAttachment names a file that failed validation and why.
type SkippedAttachment struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
	Detail   string `json:"detail,omitempty"`
}

type acceptedAttachment struct {
	upload      AttachmentUpload
	contentType string
}

// attachmentPolicy holds the size and type rules for uploads.
type attachmentPolicy struct {
	maxBytes int64
	allowed  map[string]struct{}
}

func newAttachmentPolicy(maxBytes int64, allowedTypes []string) attachmentPolicy {
	if maxBytes <= 0 {
		maxBytes = defaultMaxAttachmentBytes
	}
	if len(allowedTypes) == 0 {
		allowedTypes = defaultAttachmentTypes
	}
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, value := range allowedTypes {
		if clean, err := normalizeMimeType(value); err == nil {
			allowed[clean] = struct{}{}
		}
	}
	return attachmentPolicy{maxBytes: maxBytes, allowed: allowed}
}

// partition splits uploads into files to store and files to skip.
func (p attachmentPolicy) partition(uploads []AttachmentUpload) ([]acceptedAttachment, []SkippedAttachment) {
	var accepted []acceptedAttachment
	var skipped []SkippedAttachment
	for _, upload := range uploads {
		name := filepath.Base(strings.TrimSpace(upload.FileName))
		if name == "." || name == "/" {
			name = ""
		}
		upload.FileName = name

		size := int64(len(upload.Data))
		switch {
		case size == 0:
			skipped = append(skipped, SkippedAttachment{FileName: name, Reason: SkipReasonEmpty})
			continue
		case size > p.maxBytes:
			skipped = append(skipped, SkippedAttachment{
				FileName: name,
				Reason:   SkipReasonTooLarge,
				Detail:   fmt.Sprintf("%d bytes exceeds %d", size, p.maxBytes),
			})
			continue
		}

		contentType := p.contentType(upload)
		if _, ok := p.allowed[contentType]; !ok {
			skipped = append(skipped, SkippedAttachment{
				FileName: name,
				Reason:   SkipReasonUnsupported,
				Detail:   contentType,
			})
			continue
		}
		accepted = append(accepted, acceptedAttachment{upload: upload, contentType: contentType})
	}
	return accepted, skipped
}

// contentType trusts the declared type unless it is missing or generic, in
// which case the bytes are sniffed.
func (p attachmentPolicy) contentType(upload AttachmentUpload) string {
	declared, err := normalizeMimeType(upload.ContentType)
	if err == nil && declared != "application/octet-stream" {
		return declared
	}
	sniffed, err := normalizeMimeType(mimetype.Detect(upload.Data).String())
	if err != nil {
		return ""
	}
	return sniffed
}

func normalizeMimeType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", fmt.Errorf("mime type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %w", err)
	}
	return strings.ToLower(mediaType), nil
}

func extensionFor(contentType, fileName string) string {
	if ext := strings.ToLower(filepath.Ext(fileName)); ext != "" {
		return ext
	}
	if mt := mimetype.Lookup(contentType); mt != nil {
		return mt.Extension()
	}
	return ""
}
