package report

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/platform/mediastore"
)

type mockRepo struct {
	reports map[uuid.UUID]*StoredReport
}

func newMockRepo() *mockRepo {
	return &mockRepo{reports: make(map[uuid.UUID]*StoredReport)}
}

func (m *mockRepo) Save(_ context.Context, r *StoredReport) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*StoredReport, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (m *mockRepo) GetByPatientAndType(_ context.Context, patientID uuid.UUID, reportType string) (*StoredReport, error) {
	for _, r := range m.reports {
		if r.PatientID == patientID && r.ReportType == reportType {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*StoredReport, error) {
	var out []*StoredReport
	for _, r := range m.reports {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*StoredReport, int, error) {
	var out []*StoredReport
	for _, r := range m.reports {
		out = append(out, r)
	}
	return out, len(out), nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.reports[id]; !ok {
		return ErrNotFound
	}
	delete(m.reports, id)
	return nil
}

type fakeExtractor struct {
	draft   *Draft
	content string
	err     error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte) (*Draft, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	cp := *f.draft
	return &cp, f.content, nil
}

type fakeEnhancer struct {
	err    error
	called bool
}

func (f *fakeEnhancer) Enhance(_ context.Context, d *Draft, _ string) (*Draft, error) {
	f.called = true
	if f.err != nil {
		return nil, f.err
	}
	d.Observations = []string{"Enhanced observation"}
	d.Advise = []string{"Enhanced advise"}
	return d, nil
}

type fakeIndexer struct {
	upserts []string
	deletes []string
	err     error
}

func (f *fakeIndexer) UpsertReport(_ context.Context, ownerName, reportID, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, ownerName+"/"+reportID)
	return nil
}

func (f *fakeIndexer) DeleteByReport(_ context.Context, reportID string) {
	f.deletes = append(f.deletes, reportID)
}

type fakeDirectory struct {
	names map[uuid.UUID]string
}

func (f *fakeDirectory) NameOf(_ context.Context, id uuid.UUID) (string, error) {
	name, ok := f.names[id]
	if !ok {
		return "", errors.New("no such patient")
	}
	return name, nil
}

func testDraft() *Draft {
	return &Draft{
		PatientName: "John Doe",
		PatientAge:  "42",
		PatientSex:  "Male",
		ReportType:  "Blood Sugar",
		ReportDate:  "2025-01-10",
		Parameters: []Parameter{{
			Name:        "Glucose",
			Value:       Scalar("130"),
			Unit:        "mg/dL",
			NormalRange: "70-99",
			Status:      Scalar("high"),
		}},
		Observations: []string{"Observation: elevated glucose"},
	}
}

func newTestService(t *testing.T, repo Repository, ext Extractor, enh Enhancer, ix Indexer, dir PatientDirectory) *Service {
	t.Helper()
	return NewService(repo, ext, enh, ix, dir, mediastore.NewFSStore(t.TempDir()), zerolog.Nop())
}

func TestIngest_FirstReport(t *testing.T) {
	repo := newMockRepo()
	ix := &fakeIndexer{}
	patientID := uuid.New()
	dir := &fakeDirectory{names: map[uuid.UUID]string{patientID: "John Doe"}}
	enh := &fakeEnhancer{}
	svc := newTestService(t, repo, &fakeExtractor{draft: testDraft(), content: "Glucose 130 mg/dL."}, enh, ix, dir)

	rep, err := svc.Ingest(context.Background(), patientID, "report.pdf", []byte("%PDF"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if !enh.called {
		t.Error("enhancer was not invoked")
	}
	if rep.PatientID != patientID {
		t.Errorf("PatientID = %v", rep.PatientID)
	}
	p := rep.Param("Glucose")
	if p == nil || !p.Value.IsSeries() || p.Value.Len() != 1 {
		t.Errorf("Glucose = %+v", p)
	}
	if rep.Observations[0] != "Enhanced observation" {
		t.Errorf("Observations = %v, want enhanced narrative", rep.Observations)
	}
	if len(ix.upserts) != 1 || ix.upserts[0] != "John Doe/"+rep.ID.String() {
		t.Errorf("upserts = %v", ix.upserts)
	}
	if rep.LatestFileReference == "" {
		t.Fatal("file reference missing")
	}
	if _, err := os.Stat(rep.LatestFileReference); err != nil {
		t.Errorf("report file not saved: %v", err)
	}
	if _, ok := repo.reports[rep.ID]; !ok {
		t.Error("report not persisted")
	}
}

func TestIngest_SecondReportMerges(t *testing.T) {
	repo := newMockRepo()
	patientID := uuid.New()
	dir := &fakeDirectory{names: map[uuid.UUID]string{patientID: "John Doe"}}

	first := testDraft()
	svc := newTestService(t, repo, &fakeExtractor{draft: first, content: "text."}, &fakeEnhancer{}, &fakeIndexer{}, dir)
	if _, err := svc.Ingest(context.Background(), patientID, "first.pdf", []byte("a")); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	second := testDraft()
	second.ReportDate = "2025-04-02"
	second.Parameters[0].Value = Scalar("85")
	second.Parameters[0].Status = Scalar("normal")
	svc2 := newTestService(t, repo, &fakeExtractor{draft: second, content: "text."}, &fakeEnhancer{}, &fakeIndexer{}, dir)

	rep, err := svc2.Ingest(context.Background(), patientID, "second.pdf", []byte("b"))
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	p := rep.Param("Glucose")
	if p.Value.Len() != 2 || p.Value.Latest() != "85" {
		t.Errorf("Glucose values = %v", p.Value.Values())
	}
	if len(rep.ReportDates) != 2 {
		t.Errorf("ReportDates = %v", rep.ReportDates)
	}
	if len(repo.reports) != 1 {
		t.Errorf("expected single merged record, have %d", len(repo.reports))
	}
}

func TestIngest_UnknownPatient(t *testing.T) {
	svc := newTestService(t, newMockRepo(), &fakeExtractor{draft: testDraft(), content: "t."}, &fakeEnhancer{}, &fakeIndexer{}, &fakeDirectory{names: map[uuid.UUID]string{}})

	_, err := svc.Ingest(context.Background(), uuid.New(), "r.pdf", []byte("a"))
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("err = %v, want ErrPatientNotFound", err)
	}
}

func TestIngest_EnhancementFailurePropagates(t *testing.T) {
	patientID := uuid.New()
	dir := &fakeDirectory{names: map[uuid.UUID]string{patientID: "John Doe"}}
	svc := newTestService(t, newMockRepo(), &fakeExtractor{draft: testDraft(), content: "t."}, &fakeEnhancer{err: errors.New("model offline")}, &fakeIndexer{}, dir)

	if _, err := svc.Ingest(context.Background(), patientID, "r.pdf", []byte("a")); err == nil {
		t.Fatal("expected enhancement failure to propagate")
	}
}

func TestIngest_IndexFailureIsNotFatal(t *testing.T) {
	patientID := uuid.New()
	dir := &fakeDirectory{names: map[uuid.UUID]string{patientID: "John Doe"}}
	svc := newTestService(t, newMockRepo(), &fakeExtractor{draft: testDraft(), content: "t."}, &fakeEnhancer{}, &fakeIndexer{err: errors.New("index down")}, dir)

	if _, err := svc.Ingest(context.Background(), patientID, "r.pdf", []byte("a")); err != nil {
		t.Fatalf("Ingest should tolerate index failure, got %v", err)
	}
}

func TestIngest_MissingDateFallsBackToToday(t *testing.T) {
	patientID := uuid.New()
	dir := &fakeDirectory{names: map[uuid.UUID]string{patientID: "John Doe"}}
	draft := testDraft()
	draft.ReportDate = ""
	svc := newTestService(t, newMockRepo(), &fakeExtractor{draft: draft, content: "t."}, &fakeEnhancer{}, &fakeIndexer{}, dir)

	rep, err := svc.Ingest(context.Background(), patientID, "r.pdf", []byte("a"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if rep.ReportDate == "" || len(rep.ReportDates) != 1 {
		t.Errorf("date fallback missing: %q %v", rep.ReportDate, rep.ReportDates)
	}
}

func TestDeleteReport_CleansUpIndexAndFile(t *testing.T) {
	repo := newMockRepo()
	ix := &fakeIndexer{}
	patientID := uuid.New()
	dir := &fakeDirectory{names: map[uuid.UUID]string{patientID: "John Doe"}}
	svc := newTestService(t, repo, &fakeExtractor{draft: testDraft(), content: "t."}, &fakeEnhancer{}, ix, dir)

	rep, err := svc.Ingest(context.Background(), patientID, "r.pdf", []byte("a"))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if err := svc.DeleteReport(context.Background(), rep.ID); err != nil {
		t.Fatalf("DeleteReport: %v", err)
	}
	if len(ix.deletes) != 1 || ix.deletes[0] != rep.ID.String() {
		t.Errorf("index deletes = %v", ix.deletes)
	}
	if _, err := os.Stat(rep.LatestFileReference); !os.IsNotExist(err) {
		t.Errorf("report file should be removed, stat err = %v", err)
	}
	if _, err := repo.GetByID(context.Background(), rep.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("record should be gone, err = %v", err)
	}
}

func TestDeleteReport_Unknown(t *testing.T) {
	svc := newTestService(t, newMockRepo(), &fakeExtractor{draft: testDraft(), content: "t."}, &fakeEnhancer{}, &fakeIndexer{}, &fakeDirectory{})
	if err := svc.DeleteReport(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
