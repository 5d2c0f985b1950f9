package httpapi

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"rsc.io/pdf"

	"lazycook/backend/internal/store"
)

const maxExtractedTextRunes = 200_000

var (
	errUnsupportedFileType = errors.New("unsupported file type")

	supportedUploadExtensions = map[string]struct{}{
		".txt":  {},
		".md":   {},
		".pdf":  {},
		".csv":  {},
		".json": {},
	}

	filenameSanitizer = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

type documentResponse struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	MediaType  string `json:"mediaType"`
	SizeBytes  int64  `json:"sizeBytes"`
	UploadedAt string `json:"uploadedAt"`
}

// UploadFile ingests one multipart file, extracts its text and stores it as
// a document available to context assembly.
func (h Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	maxUpload := h.cfg.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+(1<<20))
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "request must be multipart/form-data")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			writeError(w, http.StatusBadRequest, "invalid_request", "file field is required")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "failed to read uploaded file")
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	extension := strings.ToLower(filepath.Ext(filename))
	if _, supported := supportedUploadExtensions[extension]; !supported {
		writeError(w, http.StatusBadRequest, "unsupported_file_type", "supported file types: .txt, .md, .pdf, .csv, .json")
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUpload+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "failed to read uploaded file")
		return
	}
	if int64(len(data)) > maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload size limit")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "empty files are not allowed")
		return
	}

	extracted, err := extractUploadedText(extension, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "file_extraction_failed", "failed to extract text from the file")
		return
	}
	extracted = trimToRunes(extracted, maxExtractedTextRunes)
	if strings.TrimSpace(extracted) == "" {
		writeError(w, http.StatusBadRequest, "file_extraction_failed", "file did not contain extractable text")
		return
	}

	hash := md5.Sum(data)
	doc, err := h.store.SaveDocument(r.Context(), store.Document{
		UserID:      id.UserID,
		Filename:    filename,
		Content:     extracted,
		MediaType:   detectUploadMediaType(header.Header.Get("Content-Type"), extension, data),
		SizeBytes:   int64(len(data)),
		ContentHash: hex.EncodeToString(hash[:]),
		Metadata:    map[string]string{"extension": extension},
	})
	if err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			writeError(w, http.StatusForbidden, "quota_exceeded", "document storage quota reached")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error", "failed to save document")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"document": documentResponse{
		ID:         doc.ID,
		Filename:   doc.Filename,
		MediaType:  doc.MediaType,
		SizeBytes:  doc.SizeBytes,
		UploadedAt: doc.UploadedAt.Format(time.RFC3339),
	}})
}

func extractUploadedText(extension string, data []byte) (string, error) {
	switch extension {
	case ".txt", ".md", ".csv":
		return normalizeTextPayload(string(data)), nil
	case ".json":
		if !json.Valid(data) {
			return "", errors.New("invalid json")
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, data, "", "  "); err != nil {
			return "", err
		}
		return normalizeTextPayload(pretty.String()), nil
	case ".pdf":
		text, err := extractPDFText(data)
		if err != nil {
			return "", err
		}
		return normalizeTextPayload(text), nil
	default:
		return "", errUnsupportedFileType
	}
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var textBuilder strings.Builder
	runeCount := 0
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		content := page.Content()
		for _, item := range content.Text {
			chunk := strings.TrimSpace(item.S)
			if chunk == "" {
				continue
			}
			if textBuilder.Len() > 0 {
				textBuilder.WriteByte('\n')
				runeCount++
			}
			textBuilder.WriteString(chunk)
			runeCount += utf8.RuneCountInString(chunk)
			if runeCount >= maxExtractedTextRunes {
				return trimToRunes(textBuilder.String(), maxExtractedTextRunes), nil
			}
		}
	}

	return textBuilder.String(), nil
}

func normalizeTextPayload(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ToValidUTF8(normalized, "")
	return strings.TrimSpace(normalized)
}

func detectUploadMediaType(headerContentType, extension string, data []byte) string {
	contentType := strings.TrimSpace(headerContentType)
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}

	if byExt := strings.TrimSpace(mime.TypeByExtension(extension)); byExt != "" {
		return byExt
	}

	if len(data) > 0 {
		sniffLen := len(data)
		if sniffLen > 512 {
			sniffLen = 512
		}
		return http.DetectContentType(data[:sniffLen])
	}

	return "application/octet-stream"
}

func sanitizeFilename(raw string) string {
	base := strings.TrimSpace(filepath.Base(raw))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "file"
	}

	extension := filepath.Ext(base)
	namePart := strings.TrimSuffix(base, extension)
	namePart = filenameSanitizer.ReplaceAllString(namePart, "_")
	namePart = strings.Trim(namePart, "._")
	if namePart == "" {
		namePart = "file"
	}

	extension = strings.ToLower(extension)
	extension = filenameSanitizer.ReplaceAllString(extension, "")
	if extension != "" && !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}

	candidate := namePart + extension
	candidate = trimToRunes(candidate, 180)
	if strings.TrimSpace(candidate) == "" {
		return "file"
	}
	return candidate
}

func trimToRunes(raw string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(raw) <= limit {
		return raw
	}
	return string([]rune(raw)[:limit])
}
