package dossier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fiducia/internal/catalog"
	"fiducia/internal/domain"
	"fiducia/internal/domain/models"
	"fiducia/internal/domain/services"
)

func newTestIntake(t *testing.T, s *store, refresher Refresher) services.IntakeService {
	t.Helper()
	cat, err := catalog.New()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return NewIntakeService(
		&fakeDossiers{s}, &fakeRequests{s}, &fakeUploads{s}, &fakeDocuments{s},
		&fakeNotifications{s}, &fakeDirectory{s}, &fakeTx{s}, refresher, cat, discardLogger(),
	)
}

func pdfFile(name string) models.UploadedFile {
	return models.UploadedFile{
		Filename:     "stored-" + name,
		OriginalName: name,
		Size:         2048,
		Mimetype:     "application/pdf",
		Path:         "/uploads/documents/stored-" + name,
	}
}

func TestIntakeUpload(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierEnAttente)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 2, models.RequestEnAttente)
	refresher := &stubRefresher{}
	svc := newTestIntake(t, s, refresher)

	result, err := svc.Upload(context.Background(), &services.IntakeRequest{
		DossierID: "dos-1",
		RequestID: "req-1",
		ClientID:  clientID,
		Files:     []models.UploadedFile{pdfFile("releve-janvier.pdf"), pdfFile("releve-fevrier.pdf")},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if result.UploadedCount != 2 {
		t.Errorf("uploaded count = %d, want 2", result.UploadedCount)
	}
	if len(s.uploads) != 2 || len(s.documents) != 2 {
		t.Errorf("stored uploads/documents = %d/%d, want 2/2", len(s.uploads), len(s.documents))
	}
	for _, u := range s.uploads {
		if u.Status != models.UploadEnRevision {
			t.Errorf("upload status = %s, want EN_REVISION", u.Status)
		}
	}
	if s.requests["req-1"].Status != models.RequestRecu {
		t.Errorf("request status = %s, want RECU after intake", s.requests["req-1"].Status)
	}
	if len(refresher.calls) != 1 || refresher.calls[0] != "dos-1" {
		t.Errorf("refresher calls = %v, want one for dos-1", refresher.calls)
	}

	// The comptable gets notified, not the client.
	if len(s.notifications) != 1 {
		t.Fatalf("notifications = %d, want 1", len(s.notifications))
	}
	n := s.notifications[0]
	if n.ComptableID == nil || *n.ComptableID != comptableID {
		t.Error("intake notification must target the comptable")
	}
	if !strings.Contains(n.Message, "Boulangerie Martin") {
		t.Errorf("notification message %q must name the client", n.Message)
	}
}

func TestIntakeUpload_QuantiteMaxSlots(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierEnCours)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 1, models.RequestRecu)
	two := 2
	req := s.requests["req-1"]
	req.QuantiteMax = &two
	s.requests["req-1"] = req
	seedUpload(s, "upl-1", "req-1", models.UploadValide)
	seedUpload(s, "upl-2", "req-1", models.UploadEnRevision)
	svc := newTestIntake(t, s, &stubRefresher{})

	// Both slots taken: EN_REVISION counts against the max.
	_, err := svc.Upload(context.Background(), &services.IntakeRequest{
		DossierID: "dos-1",
		RequestID: "req-1",
		ClientID:  clientID,
		Files:     []models.UploadedFile{pdfFile("encore.pdf")},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation when slots are full", err)
	}
	if !strings.Contains(err.Error(), "0 emplacement") {
		t.Errorf("err %q must report zero remaining slots", err)
	}

	// Refusing one upload frees its slot.
	upl := s.uploads["upl-2"]
	upl.Status = models.UploadRefuse
	s.uploads["upl-2"] = upl

	if _, err := svc.Upload(context.Background(), &services.IntakeRequest{
		DossierID: "dos-1",
		RequestID: "req-1",
		ClientID:  clientID,
		Files:     []models.UploadedFile{pdfFile("encore.pdf")},
	}); err != nil {
		t.Fatalf("Upload after refusal: %v", err)
	}
}

func TestIntakeUpload_ForeignRequestIsNotFound(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	s.clients["cli-2"] = models.Client{ID: "cli-2", RaisonSociale: "Garage Petit", ComptableID: comptableID}
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierEnAttente)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 1, models.RequestEnAttente)
	svc := newTestIntake(t, s, &stubRefresher{})

	_, err := svc.Upload(context.Background(), &services.IntakeRequest{
		DossierID: "dos-1",
		RequestID: "req-1",
		ClientID:  "cli-2",
		Files:     []models.UploadedFile{pdfFile("releve.pdf")},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for another client's request", err)
	}
	if len(s.uploads) != 0 {
		t.Error("nothing may be stored for a rejected intake")
	}
}

func TestIntakeUpload_RejectsWrongFormat(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierEnAttente)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 1, models.RequestEnAttente)
	svc := newTestIntake(t, s, &stubRefresher{})

	// RELEVE_BANCAIRE accepts pdf and csv per the catalogue.
	f := pdfFile("releve.exe")
	_, err := svc.Upload(context.Background(), &services.IntakeRequest{
		DossierID: "dos-1",
		RequestID: "req-1",
		ClientID:  clientID,
		Files:     []models.UploadedFile{f},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation for a rejected format", err)
	}
}

func TestIntakeUpload_RequestOverrideWidensFormats(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierEnAttente)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 1, models.RequestEnAttente)
	override := "pdf,xml"
	req := s.requests["req-1"]
	req.FormatAccepte = &override
	s.requests["req-1"] = req
	svc := newTestIntake(t, s, &stubRefresher{})

	if _, err := svc.Upload(context.Background(), &services.IntakeRequest{
		DossierID: "dos-1",
		RequestID: "req-1",
		ClientID:  clientID,
		Files:     []models.UploadedFile{pdfFile("releve.xml")},
	}); err != nil {
		t.Fatalf("Upload with request-level format override: %v", err)
	}
}

func TestIntakeUpload_RejectsOversizedFile(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierEnAttente)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 1, models.RequestEnAttente)
	one := 1
	req := s.requests["req-1"]
	req.TailleMaxMo = &one
	s.requests["req-1"] = req
	svc := newTestIntake(t, s, &stubRefresher{})

	f := pdfFile("releve.pdf")
	f.Size = 2 << 20
	_, err := svc.Upload(context.Background(), &services.IntakeRequest{
		DossierID: "dos-1",
		RequestID: "req-1",
		ClientID:  clientID,
		Files:     []models.UploadedFile{f},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation for an oversized file", err)
	}
}

func TestIntakeUpload_RefreshFailureIsAWarning(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierEnAttente)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 1, models.RequestEnAttente)
	svc := newTestIntake(t, s, &stubRefresher{err: errors.New("rollup store down")})

	result, err := svc.Upload(context.Background(), &services.IntakeRequest{
		DossierID: "dos-1",
		RequestID: "req-1",
		ClientID:  clientID,
		Files:     []models.UploadedFile{pdfFile("releve.pdf")},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if result.RefreshWarning == "" {
		t.Error("expected a refresh warning")
	}
	if len(s.uploads) != 1 {
		t.Error("the intake itself must survive the failed recompute")
	}
}

func TestIntakeDossiers(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierEnCours)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 1, models.RequestValide)
	seedUpload(s, "upl-1", "req-1", models.UploadValide)
	seedDossier(s, "dos-2", clientID, comptableID, models.DossierEnAttente)
	seedRequest(s, "req-2", "dos-2", clientID, comptableID, 1, models.RequestEnAttente)

	soon := time.Now().Add(24 * time.Hour)
	d := s.dossiers["dos-2"]
	d.DateEcheance = &soon
	s.dossiers["dos-2"] = d

	svc := newTestIntake(t, s, &stubRefresher{})

	out, err := svc.Dossiers(context.Background(), clientID)
	if err != nil {
		t.Fatalf("Dossiers: %v", err)
	}

	if out.Summary.Total != 2 || out.Summary.EnCours != 1 || out.Summary.EnAttente != 1 {
		t.Errorf("summary = %+v, want 2 total, 1 en cours, 1 en attente", out.Summary)
	}
	if out.Summary.Urgents != 1 {
		t.Errorf("urgents = %d, want 1 for the close échéance", out.Summary.Urgents)
	}
	for _, cd := range out.Dossiers {
		switch cd.Dossier.ID {
		case "dos-1":
			if cd.Progress != 100 {
				t.Errorf("dos-1 progress = %d, want 100 recomputed from uploads", cd.Progress)
			}
		case "dos-2":
			if !cd.IsUrgent {
				t.Error("dos-2 must be flagged urgent")
			}
		}
	}
}

func TestIntakeDossierDetails(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierEnCours)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 1, models.RequestValide)
	seedUpload(s, "upl-1", "req-1", models.UploadValide)
	seedRequest(s, "req-2", "dos-1", clientID, comptableID, 1, models.RequestEnAttente)
	svc := newTestIntake(t, s, &stubRefresher{})

	out, err := svc.DossierDetails(context.Background(), "dos-1", clientID)
	if err != nil {
		t.Fatalf("DossierDetails: %v", err)
	}

	if out.Progress != 50 {
		t.Errorf("progress = %d, want 50", out.Progress)
	}
	if out.Summary.TotalRequests != 2 || out.Summary.CompletedRequests != 1 || out.Summary.PendingRequests != 1 {
		t.Errorf("summary = %+v, want 2/1/1", out.Summary)
	}

	// The other client must not see it.
	if _, err := svc.DossierDetails(context.Background(), "dos-1", "cli-other"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for a foreign client", err)
	}
}

func TestNotificationList_Pagination(t *testing.T) {
	s := newStore()
	_, clientID := seedTenant(s)
	base := time.Now()
	for i := 0; i < 5; i++ {
		s.notifications = append(s.notifications, models.Notification{
			ID:        string(rune('a' + i)),
			Titre:     "Nouveau dossier documentaire",
			ClientID:  &clientID,
			Lu:        i < 2,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	svc := NewNotificationService(&fakeNotifications{s}, discardLogger())

	page, err := svc.List(context.Background(), clientID, 2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Notifications) != 2 || page.TotalCount != 5 || page.UnreadCount != 3 {
		t.Fatalf("page = %d items, total %d, unread %d; want 2/5/3",
			len(page.Notifications), page.TotalCount, page.UnreadCount)
	}
	if !page.HasMore {
		t.Error("expected more pages")
	}

	last, err := svc.List(context.Background(), clientID, 2, 4)
	if err != nil {
		t.Fatalf("List last page: %v", err)
	}
	if len(last.Notifications) != 1 || last.HasMore {
		t.Errorf("last page = %d items, hasMore %v; want 1, false", len(last.Notifications), last.HasMore)
	}
}

func TestNotificationMarkRead(t *testing.T) {
	s := newStore()
	_, clientID := seedTenant(s)
	s.notifications = append(s.notifications, models.Notification{
		ID:       "n-1",
		ClientID: &clientID,
	})
	svc := NewNotificationService(&fakeNotifications{s}, discardLogger())

	n, err := svc.MarkRead(context.Background(), "n-1", clientID)
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if !n.Lu || n.DateLecture == nil {
		t.Error("notification must be marked read with a timestamp")
	}

	if _, err := svc.MarkRead(context.Background(), "n-1", "cli-other"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for a foreign client", err)
	}
}
