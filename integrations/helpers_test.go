package integrations

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/lexfirm/google-services/core"
	gcalendar "github.com/lexfirm/google-services/google/calendar"
	gdrive "github.com/lexfirm/google-services/google/drive"
	gsheets "github.com/lexfirm/google-services/google/sheets"
)

func testIdentity() core.Identity {
	return core.Identity{UserID: "usr_1", Email: "ana@mrladvogados.com.br"}
}

func testNow() time.Time {
	return time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
}

type fakeTokenGetter struct {
	mu          sync.Mutex
	token       string
	err         error
	getCalls    int
	invalidated []core.GoogleService
}

func (g *fakeTokenGetter) GetValidAccessToken(_ context.Context, _ core.Identity, _ core.GoogleService) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getCalls++
	if g.err != nil {
		return "", g.err
	}
	if g.token == "" {
		return "valid-token", nil
	}
	return g.token, nil
}

func (g *fakeTokenGetter) Invalidate(_ core.Identity, service core.GoogleService) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.invalidated = append(g.invalidated, service)
}

func (g *fakeTokenGetter) invalidations() []core.GoogleService {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]core.GoogleService(nil), g.invalidated...)
}

type memIntegrationStore struct {
	mu           sync.Mutex
	integrations map[string]core.Integration
}

func newMemIntegrationStore() *memIntegrationStore {
	return &memIntegrationStore{integrations: map[string]core.Integration{}}
}

func integrationKey(userID string, service core.GoogleService) string {
	return userID + "/" + string(service)
}

func (s *memIntegrationStore) Get(_ context.Context, userID string, service core.GoogleService) (core.Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	integration, ok := s.integrations[integrationKey(userID, service)]
	if !ok {
		return core.Integration{}, core.ErrIntegrationNotFound
	}
	return integration, nil
}

func (s *memIntegrationStore) Upsert(_ context.Context, in core.UpsertIntegrationInput) (core.Integration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	integration := core.Integration{
		ID:           integrationKey(in.UserID, in.Service),
		UserID:       in.UserID,
		Service:      in.Service,
		IsConnected:  in.IsConnected,
		LastSyncedAt: in.LastSyncedAt,
		Settings:     in.Settings,
	}
	s.integrations[integration.ID] = integration
	return integration, nil
}

type memMappingStore struct {
	mu       sync.Mutex
	seq      int
	mappings map[string]core.SheetMapping
	statuses []core.SheetMappingStatus
}

func newMemMappingStore() *memMappingStore {
	return &memMappingStore{mappings: map[string]core.SheetMapping{}}
}

func (s *memMappingStore) Create(_ context.Context, in core.CreateSheetMappingInput) (core.SheetMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	mapping := core.SheetMapping{
		ID:            "map_" + strconv.Itoa(s.seq),
		UserID:        in.UserID,
		Name:          in.Name,
		SheetURL:      in.SheetURL,
		SpreadsheetID: in.SpreadsheetID,
		Kind:          in.Kind,
		Status:        core.SheetMappingConnected,
		CreatedAt:     testNow(),
	}
	s.mappings[mapping.ID] = mapping
	return mapping, nil
}

func (s *memMappingStore) Get(_ context.Context, userID string, id string) (core.SheetMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mapping, ok := s.mappings[id]
	if !ok || mapping.UserID != userID {
		return core.SheetMapping{}, core.ErrSheetMappingNotFound
	}
	return mapping, nil
}

func (s *memMappingStore) List(_ context.Context, userID string) ([]core.SheetMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.SheetMapping{}
	for _, mapping := range s.mappings {
		if mapping.UserID == userID {
			out = append(out, mapping)
		}
	}
	return out, nil
}

func (s *memMappingStore) UpdateStatus(_ context.Context, id string, status core.SheetMappingStatus, reason string, syncedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mapping, ok := s.mappings[id]
	if !ok {
		return core.ErrSheetMappingNotFound
	}
	mapping.Status = status
	mapping.LastError = reason
	if syncedAt != nil {
		mapping.LastSyncedAt = syncedAt
	}
	s.mappings[id] = mapping
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *memMappingStore) Delete(_ context.Context, userID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mapping, ok := s.mappings[id]
	if !ok || mapping.UserID != userID {
		return core.ErrSheetMappingNotFound
	}
	delete(s.mappings, id)
	return nil
}

func (s *memMappingStore) statusHistory() []core.SheetMappingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.SheetMappingStatus(nil), s.statuses...)
}

type memDocumentStore struct {
	mu        sync.Mutex
	seq       int
	documents map[string]core.Document
	failNext  error
}

func newMemDocumentStore() *memDocumentStore {
	return &memDocumentStore{documents: map[string]core.Document{}}
}

func (s *memDocumentStore) Create(_ context.Context, in core.CreateDocumentInput) (core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return core.Document{}, err
	}
	s.seq++
	document := core.Document{
		ID:          "doc_" + strconv.Itoa(s.seq),
		UserID:      in.UserID,
		DriveFileID: in.DriveFileID,
		Name:        in.Name,
		Category:    in.Category,
		ClientID:    in.ClientID,
		ProcessID:   in.ProcessID,
		SizeBytes:   in.SizeBytes,
		MimeType:    in.MimeType,
		CreatedAt:   testNow(),
	}
	s.documents[document.ID] = document
	return document, nil
}

func (s *memDocumentStore) Get(_ context.Context, userID string, id string) (core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	document, ok := s.documents[id]
	if !ok || document.UserID != userID {
		return core.Document{}, core.ErrDocumentNotFound
	}
	return document, nil
}

func (s *memDocumentStore) List(_ context.Context, userID string) ([]core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Document{}
	for _, document := range s.documents {
		if document.UserID == userID {
			out = append(out, document)
		}
	}
	return out, nil
}

func (s *memDocumentStore) Delete(_ context.Context, userID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	document, ok := s.documents[id]
	if !ok || document.UserID != userID {
		return core.ErrDocumentNotFound
	}
	delete(s.documents, id)
	return nil
}

func (s *memDocumentStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.documents)
}

type fakeCalendarAPI struct {
	mu          sync.Mutex
	listCalls   int
	insertCalls int
	deleteCalls int
	events      []gcalendar.Event
	listErr     error
	insertErr   error
	deleteErr   error
	inserted    []gcalendar.Event
}

func (a *fakeCalendarAPI) ListEvents(_ context.Context, _ string, _ gcalendar.ListEventsRequest) ([]gcalendar.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listCalls++
	if a.listErr != nil {
		return nil, a.listErr
	}
	return append([]gcalendar.Event(nil), a.events...), nil
}

func (a *fakeCalendarAPI) InsertEvent(_ context.Context, _ string, _ string, event gcalendar.Event) (gcalendar.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.insertCalls++
	if a.insertErr != nil {
		return gcalendar.Event{}, a.insertErr
	}
	event.ID = "evt_created_" + strconv.Itoa(a.insertCalls)
	a.inserted = append(a.inserted, event)
	return event, nil
}

func (a *fakeCalendarAPI) DeleteEvent(_ context.Context, _ string, _ string, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleteCalls++
	return a.deleteErr
}

type fakeSheetsAPI struct {
	mu          sync.Mutex
	getCalls    int
	appendCalls int
	values      gsheets.ValueRange
	getErr      error
	appendErr   error
	lastRange   string
}

func (a *fakeSheetsAPI) GetValues(_ context.Context, _ string, _ string, readRange string) (gsheets.ValueRange, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.getCalls++
	a.lastRange = readRange
	if a.getErr != nil {
		return gsheets.ValueRange{}, a.getErr
	}
	return a.values, nil
}

func (a *fakeSheetsAPI) AppendValues(_ context.Context, _ string, _ string, _ string, values [][]any) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.appendCalls++
	if a.appendErr != nil {
		return 0, a.appendErr
	}
	count := 0
	for _, row := range values {
		count += len(row)
	}
	return count, nil
}

type fakeDriveAPI struct {
	mu          sync.Mutex
	uploadCalls int
	deleteCalls int
	uploadErr   error
	deleteErr   error
	deletedIDs  []string
	lastUpload  gdrive.UploadRequest
}

func (a *fakeDriveAPI) Upload(_ context.Context, _ string, req gdrive.UploadRequest) (gdrive.File, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.uploadCalls++
	a.lastUpload = req
	if a.uploadErr != nil {
		return gdrive.File{}, a.uploadErr
	}
	return gdrive.File{
		ID:       "file_" + strconv.Itoa(a.uploadCalls),
		Name:     req.Name,
		MimeType: req.MimeType,
		Size:     int64(len(req.Content)),
	}, nil
}

func (a *fakeDriveAPI) GetMetadata(_ context.Context, _ string, fileID string) (gdrive.File, error) {
	return gdrive.File{ID: fileID}, nil
}

func (a *fakeDriveAPI) Delete(_ context.Context, _ string, fileID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleteCalls++
	a.deletedIDs = append(a.deletedIDs, fileID)
	return a.deleteErr
}

func (a *fakeDriveAPI) deleted() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.deletedIDs...)
}

type fakeRecorder struct {
	mu       sync.Mutex
	recorded []Transaction
	failOn   func(tx Transaction) error
}

func (r *fakeRecorder) Record(_ context.Context, _ string, tx Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn != nil {
		if err := r.failOn(tx); err != nil {
			return err
		}
	}
	r.recorded = append(r.recorded, tx)
	return nil
}

func (r *fakeRecorder) transactions() []Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Transaction(nil), r.recorded...)
}
