package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/pawnlend/docverify/internal/core/domain"
	"github.com/pawnlend/docverify/internal/core/ports"
	"github.com/pawnlend/docverify/internal/infrastructure/repository/memory"
)

type storageFake struct {
	files map[string][]byte
	err   error
}

func newStorageFake() *storageFake {
	return &storageFake{files: make(map[string][]byte)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.files[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.files[key]
	if !ok {
		return nil, errors.New("no such key: " + key)
	}
	return io.NopCloser(strings.NewReader(string(raw))), nil
}

type wakeupsFake struct {
	published []string
	err       error
}

func (f *wakeupsFake) PublishAnalysisRequested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *wakeupsFake) SubscribeAnalysisRequested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

type thumbFake struct {
	err error
}

func (f *thumbFake) Thumbnail([]byte, string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("thumb"), nil
}

func jpegBytes() []byte {
	return append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("jpeg body")...)
}

func validIngestRequest() ports.IngestRequest {
	return ports.IngestRequest{
		Data:         jpegBytes(),
		Filename:     "front photo.jpg",
		SubmissionID: "sub-1",
		UploaderID:   "user-1",
		Category:     domain.CategoryPhoto,
		Priority:     domain.PriorityNormal,
	}
}

func TestIngestSuccess(t *testing.T) {
	store := memory.NewStore()
	storage := newStorageFake()
	wakeups := &wakeupsFake{}
	uc := NewIngestUseCase(store, store, storage, wakeups, &thumbFake{}, nil)

	doc, err := uc.Ingest(context.Background(), validIngestRequest())
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if doc.Status != domain.StatusPending {
		t.Fatalf("expected pending status, got %s", doc.Status)
	}
	if doc.MimeType != "image/jpeg" {
		t.Fatalf("expected sniffed image/jpeg, got %s", doc.MimeType)
	}
	if doc.Checksum == "" {
		t.Fatalf("expected checksum recorded")
	}
	if !strings.HasSuffix(doc.StoragePath, "_front_photo.jpg") {
		t.Fatalf("expected sanitized storage key, got %s", doc.StoragePath)
	}
	if _, ok := storage.files[doc.StoragePath]; !ok {
		t.Fatalf("expected bytes persisted under %s", doc.StoragePath)
	}
	if doc.ThumbnailPath == "" {
		t.Fatalf("expected thumbnail for raster upload")
	}
	if string(storage.files[doc.ThumbnailPath]) != "thumb" {
		t.Fatalf("expected thumbnail persisted")
	}

	entry, err := store.GetByDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("expected queue entry, got %v", err)
	}
	if entry.Status != domain.QueueStatusQueued || entry.Priority != doc.Priority {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if len(wakeups.published) != 1 || wakeups.published[0] != doc.ID {
		t.Fatalf("expected one wake-up for %s, got %v", doc.ID, wakeups.published)
	}
}

func TestIngestRejectsUnsupportedContent(t *testing.T) {
	store := memory.NewStore()
	uc := NewIngestUseCase(store, store, newStorageFake(), &wakeupsFake{}, nil, nil)

	req := validIngestRequest()
	req.Data = []byte("plain text pretending to be a jpeg")

	_, err := uc.Ingest(context.Background(), req)
	if !domain.IsKind(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIngestRejectsIncompleteRequest(t *testing.T) {
	store := memory.NewStore()
	uc := NewIngestUseCase(store, store, newStorageFake(), &wakeupsFake{}, nil, nil)

	req := validIngestRequest()
	req.SubmissionID = ""
	req.Category = "passport"
	req.Priority = -1

	_, err := uc.Ingest(context.Background(), req)
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *domain.ValidationError, got %v", err)
	}
	if len(vErr.Reasons) != 3 {
		t.Fatalf("expected three reasons, got %v", vErr.Reasons)
	}
}

func TestIngestWakeupFailureIsNonFatal(t *testing.T) {
	store := memory.NewStore()
	wakeups := &wakeupsFake{err: errors.New("nats down")}
	uc := NewIngestUseCase(store, store, newStorageFake(), wakeups, nil, nil)

	doc, err := uc.Ingest(context.Background(), validIngestRequest())
	if err != nil {
		t.Fatalf("Ingest() must tolerate wake-up failure, got %v", err)
	}
	entry, err := store.GetByDocument(context.Background(), doc.ID)
	if err != nil || entry.Status != domain.QueueStatusQueued {
		t.Fatalf("expected durable queue entry despite wake-up failure, got %v %v", entry, err)
	}
}

func TestIngestThumbnailFailureIsNonFatal(t *testing.T) {
	store := memory.NewStore()
	uc := NewIngestUseCase(store, store, newStorageFake(), &wakeupsFake{}, &thumbFake{err: errors.New("bad image")}, nil)

	doc, err := uc.Ingest(context.Background(), validIngestRequest())
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if doc.ThumbnailPath != "" {
		t.Fatalf("expected no thumbnail path on renderer failure")
	}
}
