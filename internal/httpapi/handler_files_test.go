package httpapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lazycook/backend/internal/store"
)

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestUploadFileStoresDocument(t *testing.T) {
	handler, st := newTestHandler(t, nil)
	id := seedIdentity(t, st, "casual@example.com", "GO")

	body, contentType := multipartUpload(t, "groceries.txt", "eggs\nmilk\nflour")
	req := httptest.NewRequest(http.MethodPost, "/v1/files", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	handler.UploadFile(resp, requestWithIdentity(req, id))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", resp.Code, resp.Body.String())
	}

	var uploaded struct {
		Document documentResponse `json:"document"`
	}
	decodeJSONBody(t, resp, &uploaded)
	if uploaded.Document.ID == "" || uploaded.Document.Filename != "groceries.txt" {
		t.Fatalf("unexpected upload response: %+v", uploaded.Document)
	}

	docs, err := st.UserDocuments(context.Background(), id.UserID, 10)
	if err != nil {
		t.Fatalf("user documents: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 stored document, got %d", len(docs))
	}
	if docs[0].Content != "eggs\nmilk\nflour" {
		t.Fatalf("expected extracted text to be stored, got %q", docs[0].Content)
	}
	if docs[0].ContentHash == "" {
		t.Fatalf("expected a content hash")
	}
}

func TestUploadFileRejectsUnsupportedType(t *testing.T) {
	handler, st := newTestHandler(t, nil)
	id := seedIdentity(t, st, "casual@example.com", "GO")

	body, contentType := multipartUpload(t, "binary.exe", "MZ...")
	req := httptest.NewRequest(http.MethodPost, "/v1/files", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	handler.UploadFile(resp, requestWithIdentity(req, id))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unsupported type, got %d", resp.Code)
	}
}

func TestUploadFileRejectsInvalidJSON(t *testing.T) {
	handler, st := newTestHandler(t, nil)
	id := seedIdentity(t, st, "casual@example.com", "GO")

	body, contentType := multipartUpload(t, "data.json", "{not json")
	req := httptest.NewRequest(http.MethodPost, "/v1/files", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	handler.UploadFile(resp, requestWithIdentity(req, id))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestUploadFileQuota(t *testing.T) {
	handler, st := newTestHandler(t, nil)
	id := seedIdentity(t, st, "casual@example.com", "GO")

	for i := 0; i < handler.cfg.MaxDocumentsPerUser; i++ {
		body, contentType := multipartUpload(t, "notes.txt", "some text")
		req := httptest.NewRequest(http.MethodPost, "/v1/files", body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()
		handler.UploadFile(resp, requestWithIdentity(req, id))
		if resp.Code != http.StatusCreated {
			t.Fatalf("upload %d: expected 201, got %d", i, resp.Code)
		}
	}

	body, contentType := multipartUpload(t, "overflow.txt", "too much")
	req := httptest.NewRequest(http.MethodPost, "/v1/files", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	handler.UploadFile(resp, requestWithIdentity(req, id))

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 once the quota is reached, got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestListDocumentsOmitsContent(t *testing.T) {
	handler, st := newTestHandler(t, nil)
	id := seedIdentity(t, st, "casual@example.com", "GO")

	if _, err := st.SaveDocument(context.Background(), store.Document{
		UserID:   id.UserID,
		Filename: "secret-sauce.md",
		Content:  "the secret is butter",
	}); err != nil {
		t.Fatalf("seed document: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	resp := httptest.NewRecorder()
	handler.ListDocuments(resp, requestWithIdentity(req, id))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "the secret is butter") {
		t.Fatalf("document content must not appear in listings: %s", resp.Body.String())
	}

	var body struct {
		Documents []documentResponse `json:"documents"`
	}
	decodeJSONBody(t, resp, &body)
	if len(body.Documents) != 1 || body.Documents[0].Filename != "secret-sauce.md" {
		t.Fatalf("unexpected listing: %+v", body.Documents)
	}
}

func TestDeleteDocumentEndpoint(t *testing.T) {
	handler, st := newTestHandler(t, nil)
	id := seedIdentity(t, st, "casual@example.com", "GO")

	doc, err := st.SaveDocument(context.Background(), store.Document{
		UserID:   id.UserID,
		Filename: "scrap.txt",
		Content:  "gone soon",
	})
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/v1/documents/"+doc.ID, nil)
	req = requestWithURLParam(requestWithIdentity(req, id), "documentID", doc.ID)
	resp := httptest.NewRecorder()
	handler.DeleteDocument(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/documents/"+doc.ID, nil)
	req = requestWithURLParam(requestWithIdentity(req, id), "documentID", doc.ID)
	resp = httptest.NewRecorder()
	handler.DeleteDocument(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on repeat delete, got %d", resp.Code)
	}
}

func TestPromoteChatEndpoint(t *testing.T) {
	handler, st := newTestHandler(t, nil)
	id := seedIdentity(t, st, "casual@example.com", "GO")

	for i := 0; i < 2; i++ {
		if _, err := st.SaveConversation(context.Background(), store.Conversation{
			UserID:      id.UserID,
			ChatID:      "chat-z",
			UserMessage: "q",
			AIResponse:  "a",
		}); err != nil {
			t.Fatalf("seed conversation: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/chats/chat-z/promote", strings.NewReader(`{"title":"dinner plans"}`))
	req = requestWithURLParam(requestWithIdentity(req, id), "chatID", "chat-z")
	resp := httptest.NewRecorder()
	handler.PromoteChat(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}

	var body struct {
		Success  bool   `json:"success"`
		ChatID   string `json:"chatId"`
		Promoted int    `json:"promoted"`
	}
	decodeJSONBody(t, resp, &body)
	if !body.Success || body.Promoted != 2 {
		t.Fatalf("unexpected promote response: %+v", body)
	}

	session, err := st.SessionConversations(context.Background(), id.UserID, 10)
	if err != nil {
		t.Fatalf("session conversations: %v", err)
	}
	if len(session) != 0 {
		t.Fatalf("expected the session store to be empty after promotion, got %d", len(session))
	}
}

func TestTasksEndpoints(t *testing.T) {
	handler, st := newTestHandler(t, nil)
	id := seedIdentity(t, st, "casual@example.com", "GO")

	create := httptest.NewRequest(http.MethodPost, "/v1/tasks",
		strings.NewReader(`{"description":"defrost the chicken","priority":5,"scheduledFor":"`+
			time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)+`"}`))
	resp := httptest.NewRecorder()
	handler.CreateTask(resp, requestWithIdentity(create, id))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", resp.Code, resp.Body.String())
	}

	list := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	resp = httptest.NewRecorder()
	handler.ListTasks(resp, requestWithIdentity(list, id))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Tasks []store.Task `json:"tasks"`
	}
	decodeJSONBody(t, resp, &body)
	if len(body.Tasks) != 1 || body.Tasks[0].Description != "defrost the chicken" {
		t.Fatalf("unexpected tasks: %+v", body.Tasks)
	}
	if body.Tasks[0].Status != "pending" {
		t.Fatalf("expected pending status, got %q", body.Tasks[0].Status)
	}
}

func TestStatsEndpoint(t *testing.T) {
	handler, st := newTestHandler(t, nil)
	id := seedIdentity(t, st, "casual@example.com", "GO")

	if _, err := st.SaveConversation(context.Background(), store.Conversation{
		UserID:      id.UserID,
		UserMessage: "q",
		AIResponse:  "a",
	}); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	resp := httptest.NewRecorder()
	handler.Stats(resp, requestWithIdentity(req, id))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Stats store.Stats `json:"stats"`
	}
	decodeJSONBody(t, resp, &body)
	if body.Stats.Conversations != 1 || body.Stats.SessionTurns != 1 {
		t.Fatalf("unexpected stats: %+v", body.Stats)
	}
}

func TestHealthz(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()
	handler.Healthz(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health body: %s", resp.Body.String())
	}
}
