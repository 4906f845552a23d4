package integrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lexfirm/google-services/core"
	"github.com/lexfirm/google-services/google"
)

func newDriveFixture(t *testing.T) (*DocumentService, *fakeTokenGetter, *fakeDriveAPI, *memDocumentStore, *memIntegrationStore) {
	t.Helper()
	tokens := &fakeTokenGetter{}
	api := &fakeDriveAPI{}
	documents := newMemDocumentStore()
	integrations := newMemIntegrationStore()
	service, err := NewDocumentService(DocumentServiceConfig{
		Tokens:       tokens,
		Client:       api,
		Documents:    documents,
		Integrations: integrations,
		Now:          testNow,
	})
	if err != nil {
		t.Fatalf("new document service: %v", err)
	}
	return service, tokens, api, documents, integrations
}

func TestUploadDocument(t *testing.T) {
	service, tokens, api, documents, _ := newDriveFixture(t)

	document, err := service.UploadDocument(context.Background(), testIdentity(), UploadDocumentRequest{
		Name:      "contrato-honorarios.pdf",
		MimeType:  "application/pdf",
		Category:  "contracts",
		ProcessID: "proc_9",
		Content:   []byte("%PDF-1.4 fake"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if document.DriveFileID != "file_1" {
		t.Fatalf("drive file id = %q", document.DriveFileID)
	}
	if document.SizeBytes != int64(len("%PDF-1.4 fake")) {
		t.Fatalf("size = %d", document.SizeBytes)
	}
	if api.uploadCalls != 1 || tokens.getCalls != 1 {
		t.Fatalf("upload calls = %d, token calls = %d", api.uploadCalls, tokens.getCalls)
	}
	if documents.count() != 1 {
		t.Fatalf("documents = %d", documents.count())
	}
}

func TestUploadDocumentCompensatesOnPersistFailure(t *testing.T) {
	service, _, api, documents, _ := newDriveFixture(t)
	documents.failNext = fmt.Errorf("constraint violation")

	_, err := service.UploadDocument(context.Background(), testIdentity(), UploadDocumentRequest{
		Name:    "peticao.pdf",
		Content: []byte("content"),
	})
	if err == nil {
		t.Fatal("expected persist failure")
	}
	deleted := api.deleted()
	if len(deleted) != 1 || deleted[0] != "file_1" {
		t.Fatalf("expected compensating delete of file_1, got %v", deleted)
	}
	if documents.count() != 0 {
		t.Fatal("expected no local metadata")
	}
}

func TestUploadDocumentCompensationFailureIsTolerated(t *testing.T) {
	service, _, api, documents, _ := newDriveFixture(t)
	documents.failNext = fmt.Errorf("constraint violation")
	api.deleteErr = &google.APIError{Service: "drive", StatusCode: http.StatusServiceUnavailable}

	_, err := service.UploadDocument(context.Background(), testIdentity(), UploadDocumentRequest{
		Name:    "peticao.pdf",
		Content: []byte("content"),
	})
	if err == nil {
		t.Fatal("expected persist failure surfaced")
	}
	if api.deleteCalls != 1 {
		t.Fatalf("expected exactly one compensation attempt, got %d", api.deleteCalls)
	}
}

func TestUploadDocumentValidation(t *testing.T) {
	service, _, api, _, _ := newDriveFixture(t)

	if _, err := service.UploadDocument(context.Background(), testIdentity(), UploadDocumentRequest{
		Content: []byte("content"),
	}); err == nil {
		t.Fatal("expected name validation error")
	}
	if _, err := service.UploadDocument(context.Background(), testIdentity(), UploadDocumentRequest{
		Name: "vazio.pdf",
	}); err == nil {
		t.Fatal("expected content validation error")
	}
	if api.uploadCalls != 0 {
		t.Fatal("expected no upload on validation failure")
	}
}

func TestDeleteDocument(t *testing.T) {
	service, _, api, documents, _ := newDriveFixture(t)
	document, err := service.UploadDocument(context.Background(), testIdentity(), UploadDocumentRequest{
		Name:    "procuracao.pdf",
		Content: []byte("content"),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := service.DeleteDocument(context.Background(), testIdentity(), document.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if documents.count() != 0 {
		t.Fatal("expected local metadata removed")
	}
	deleted := api.deleted()
	if len(deleted) != 1 || deleted[0] != document.DriveFileID {
		t.Fatalf("deleted = %v", deleted)
	}
}

func TestDeleteDocumentToleratesMissingRemote(t *testing.T) {
	service, _, api, documents, _ := newDriveFixture(t)
	document, _ := service.UploadDocument(context.Background(), testIdentity(), UploadDocumentRequest{
		Name:    "antigo.pdf",
		Content: []byte("content"),
	})
	api.deleteErr = &google.APIError{Service: "drive", StatusCode: http.StatusNotFound}

	if err := service.DeleteDocument(context.Background(), testIdentity(), document.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if documents.count() != 0 {
		t.Fatal("expected local metadata removed despite missing remote file")
	}
}

func TestDeleteDocumentRemoteFailureKeepsLocalRow(t *testing.T) {
	service, _, api, documents, _ := newDriveFixture(t)
	document, _ := service.UploadDocument(context.Background(), testIdentity(), UploadDocumentRequest{
		Name:    "importante.pdf",
		Content: []byte("content"),
	})
	api.deleteErr = &google.APIError{Service: "drive", StatusCode: http.StatusServiceUnavailable}

	if err := service.DeleteDocument(context.Background(), testIdentity(), document.ID); err == nil {
		t.Fatal("expected remote delete failure surfaced")
	}
	if documents.count() != 1 {
		t.Fatal("expected local row kept when remote delete fails")
	}
}

func TestDeleteDocumentNotFound(t *testing.T) {
	service, _, _, _, _ := newDriveFixture(t)
	if err := service.DeleteDocument(context.Background(), testIdentity(), "doc_missing"); !errors.Is(err, core.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
