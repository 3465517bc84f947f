package dossier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fiducia/internal/domain"
	"fiducia/internal/domain/models"
	"fiducia/internal/domain/services"
)

func newTestEngine(s *store) services.DossierService {
	return NewDossierService(
		&fakeDossiers{s}, &fakeBatches{s}, &fakeRequests{s}, &fakeUploads{s},
		&fakeNotifications{s}, &fakeDirectory{s}, &fakeTx{s}, discardLogger(),
	)
}

func seedTenant(s *store) (comptableID, clientID string) {
	s.comptables["cpt-1"] = models.Comptable{ID: "cpt-1", Nom: "Durand", Email: "durand@cabinet.fr"}
	s.clients["cli-1"] = models.Client{ID: "cli-1", RaisonSociale: "Boulangerie Martin", ComptableID: "cpt-1"}
	return "cpt-1", "cli-1"
}

func seedDossier(s *store, id, clientID, comptableID string, status models.StatusDossier) {
	s.dossiers[id] = models.Dossier{
		ID:          id,
		Nom:         "Bilan 2025 - Boulangerie Martin",
		Periode:     models.PeriodeAnnuelle,
		Status:      status,
		ClientID:    clientID,
		ComptableID: comptableID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func seedRequest(s *store, id, dossierID, clientID, comptableID string, quantiteMin int, status models.StatusRequest) {
	s.requests[id] = models.DocumentRequest{
		ID:           id,
		Titre:        "Relevés bancaires",
		TypeDocument: models.DocumentReleveBancaire,
		Obligatoire:  true,
		QuantiteMin:  quantiteMin,
		Status:       status,
		ClientID:     clientID,
		ComptableID:  comptableID,
		DossierID:    dossierID,
		CreatedAt:    time.Now(),
	}
}

func seedUpload(s *store, id, requestID string, status models.StatusUpload) {
	s.documents["doc-"+id] = models.Document{
		ID:          "doc-" + id,
		NomOriginal: "releve.pdf",
		Taille:      1024,
		TypeFichier: "application/pdf",
	}
	s.uploads[id] = models.DocumentUpload{
		ID:         id,
		DocumentID: "doc-" + id,
		RequestID:  requestID,
		Status:     status,
		DateUpload: time.Now(),
	}
}

func TestCreateBatch(t *testing.T) {
	s := newStore()
	comptableID, _ := seedTenant(s)
	s.clients["cli-2"] = models.Client{ID: "cli-2", RaisonSociale: "Garage Petit", ComptableID: comptableID}
	svc := newTestEngine(s)

	result, err := svc.CreateBatch(context.Background(), &services.CreateBatchRequest{
		ComptableID: comptableID,
		ClientIDs:   []string{"cli-1", "cli-2"},
		Nom:         "Bilan annuel 2025",
		Periode:     models.PeriodeAnnuelle,
		Requests: []services.RequestTemplate{
			{Titre: "Bilan comptable", TypeDocument: models.DocumentBilan, QuantiteMin: 1},
			{Titre: "Relevés bancaires", TypeDocument: models.DocumentReleveBancaire, QuantiteMin: 3},
		},
	})
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	if result.DossiersCreated != 2 || len(result.Dossiers) != 2 {
		t.Fatalf("dossiers created = %d, want 2", result.DossiersCreated)
	}
	if len(s.batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(s.batches))
	}
	if len(s.requests) != 4 {
		t.Errorf("requests = %d, want 2 per dossier", len(s.requests))
	}
	if len(s.notifications) != 2 {
		t.Errorf("notifications = %d, want one per client", len(s.notifications))
	}

	for _, d := range s.dossiers {
		if d.Status != models.DossierEnAttente {
			t.Errorf("new dossier status = %s, want EN_ATTENTE", d.Status)
		}
		if d.DocumentsRequis != 2 {
			t.Errorf("documents requis = %d, want 2", d.DocumentsRequis)
		}
		client := s.clients[d.ClientID]
		if want := "Bilan annuel 2025 - " + client.RaisonSociale; d.Nom != want {
			t.Errorf("dossier nom = %q, want %q", d.Nom, want)
		}
	}
}

func TestCreateBatch_ForeignClientRejected(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	s.clients["cli-other"] = models.Client{ID: "cli-other", RaisonSociale: "Autre", ComptableID: "cpt-2"}
	svc := newTestEngine(s)

	_, err := svc.CreateBatch(context.Background(), &services.CreateBatchRequest{
		ComptableID: comptableID,
		ClientIDs:   []string{clientID, "cli-other", "cli-ghost"},
		Nom:         "Bilan annuel 2025",
		Requests:    []services.RequestTemplate{{Titre: "Bilan", QuantiteMin: 1}},
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	var authErr *domain.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %T, want *AuthorizationError", err)
	}
	if len(authErr.InvalidIDs) != 2 {
		t.Errorf("invalid ids = %v, want the foreign and the unknown id", authErr.InvalidIDs)
	}

	if len(s.batches) != 0 || len(s.dossiers) != 0 || len(s.requests) != 0 {
		t.Error("rejected batch must leave nothing behind")
	}
}

func TestCreateBatch_RollsBackOnNotificationFailure(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	s.failNotify = true
	svc := newTestEngine(s)

	_, err := svc.CreateBatch(context.Background(), &services.CreateBatchRequest{
		ComptableID: comptableID,
		ClientIDs:   []string{clientID},
		Nom:         "Bilan annuel 2025",
		Requests:    []services.RequestTemplate{{Titre: "Bilan", QuantiteMin: 1}},
	})
	if err == nil {
		t.Fatal("expected error when notification insert fails")
	}

	if len(s.batches) != 0 || len(s.dossiers) != 0 || len(s.requests) != 0 {
		t.Error("partial batch survived a failed transaction")
	}
}

func TestCreateBatch_Validation(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	svc := newTestEngine(s)

	two := 2
	tests := []struct {
		name string
		req  services.CreateBatchRequest
	}{
		{"missing nom", services.CreateBatchRequest{
			ClientIDs: []string{clientID},
			Requests:  []services.RequestTemplate{{Titre: "Bilan", QuantiteMin: 1}},
		}},
		{"no requests", services.CreateBatchRequest{
			ClientIDs: []string{clientID}, Nom: "Bilan",
		}},
		{"duplicate titles", services.CreateBatchRequest{
			ClientIDs: []string{clientID}, Nom: "Bilan",
			Requests: []services.RequestTemplate{
				{Titre: "Bilan", QuantiteMin: 1},
				{Titre: "Bilan", QuantiteMin: 1},
			},
		}},
		{"quantite max below min", services.CreateBatchRequest{
			ClientIDs: []string{clientID}, Nom: "Bilan",
			Requests: []services.RequestTemplate{{Titre: "Relevés", QuantiteMin: 3, QuantiteMax: &two}},
		}},
		{"zero quantite min", services.CreateBatchRequest{
			ClientIDs: []string{clientID}, Nom: "Bilan",
			Requests: []services.RequestTemplate{{Titre: "Relevés", QuantiteMin: 0}},
		}},
		{"duplicate client ids", services.CreateBatchRequest{
			ClientIDs: []string{clientID, clientID}, Nom: "Bilan",
			Requests:  []services.RequestTemplate{{Titre: "Bilan", QuantiteMin: 1}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.ComptableID = comptableID
			if _, err := svc.CreateBatch(context.Background(), &tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestDuplicate_CopiesStructureNotUploads(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	s.clients["cli-2"] = models.Client{ID: "cli-2", RaisonSociale: "Garage Petit", ComptableID: comptableID}
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierEnCours)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 2, models.RequestRecu)
	seedUpload(s, "upl-1", "req-1", models.UploadValide)
	svc := newTestEngine(s)

	result, err := svc.Duplicate(context.Background(), &services.DuplicateRequest{
		DossierID:       "dos-1",
		ComptableID:     comptableID,
		TargetClientIDs: []string{"cli-2"},
	})
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if result.DossiersCreated != 1 {
		t.Fatalf("dossiers created = %d, want 1", result.DossiersCreated)
	}

	copyID := result.Dossiers[0].ID
	d := s.dossiers[copyID]
	if d.Status != models.DossierEnAttente {
		t.Errorf("copy status = %s, want EN_ATTENTE", d.Status)
	}
	if want := "Bilan 2025 - Boulangerie Martin - Copie - Garage Petit"; d.Nom != want {
		t.Errorf("copy nom = %q, want %q", d.Nom, want)
	}

	for _, req := range s.requests {
		if req.DossierID != copyID {
			continue
		}
		if req.Status != models.RequestEnAttente {
			t.Errorf("copied request status = %s, want EN_ATTENTE", req.Status)
		}
		if req.QuantiteMin != 2 {
			t.Errorf("copied quantite_min = %d, want 2", req.QuantiteMin)
		}
		for _, u := range s.uploads {
			if u.RequestID == req.ID {
				t.Error("uploads must never be copied with the structure")
			}
		}
	}
}

func TestValidateComplete(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierComplet)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 1, models.RequestValide)
	seedUpload(s, "upl-1", "req-1", models.UploadValide)
	svc := newTestEngine(s)

	result, err := svc.ValidateComplete(context.Background(), &services.SignOffRequest{
		DossierID:   "dos-1",
		ComptableID: comptableID,
	})
	if err != nil {
		t.Fatalf("ValidateComplete: %v", err)
	}
	if !result.Success {
		t.Error("expected success")
	}
	if s.dossiers["dos-1"].Status != models.DossierValide {
		t.Errorf("status = %s, want VALIDE", s.dossiers["dos-1"].Status)
	}
	if got := s.clientNotifications(clientID); len(got) != 1 {
		t.Errorf("client notifications = %d, want 1", len(got))
	}
}

// A dossier that is not COMPLET is reported as not found, by design: the fetch
// filters on status, so callers cannot probe other tenants' state machines.
func TestValidateComplete_WrongStatusIsNotFound(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierEnCours)
	svc := newTestEngine(s)

	_, err := svc.ValidateComplete(context.Background(), &services.SignOffRequest{
		DossierID:   "dos-1",
		ComptableID: comptableID,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if s.dossiers["dos-1"].Status != models.DossierEnCours {
		t.Error("status must not change on a rejected sign-off")
	}
}

// The cached COMPLET column can be stale. The sign-off re-checks the upload facts
// and refuses when any request lacks its approved minimum.
func TestValidateComplete_StaleCompletRejected(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierComplet)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 2, models.RequestValide)
	seedUpload(s, "upl-1", "req-1", models.UploadValide) // one of two required
	svc := newTestEngine(s)

	_, err := svc.ValidateComplete(context.Background(), &services.SignOffRequest{
		DossierID:   "dos-1",
		ComptableID: comptableID,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if s.dossiers["dos-1"].Status != models.DossierComplet {
		t.Error("stale dossier must keep its status")
	}
}

func TestRefresh_NoopPerformsNoWrite(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierEnAttente)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 1, models.RequestEnAttente)
	svc := newTestEngine(s)

	if err := svc.Refresh(context.Background(), "dos-1"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if s.progressWrites != 0 {
		t.Errorf("progress writes = %d, want 0 when nothing changed", s.progressWrites)
	}
}

func TestRefresh_TransitionsToComplet(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierEnCours)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 1, models.RequestRecu)
	seedUpload(s, "upl-1", "req-1", models.UploadValide)
	svc := newTestEngine(s)

	if err := svc.Refresh(context.Background(), "dos-1"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	d := s.dossiers["dos-1"]
	if d.Status != models.DossierComplet {
		t.Errorf("status = %s, want COMPLET", d.Status)
	}
	if d.Pourcentage != 100 {
		t.Errorf("pourcentage = %d, want 100", d.Pourcentage)
	}
	if d.DateCompletion == nil {
		t.Error("date_completion must be set on the first transition to COMPLET")
	}
	if s.requests["req-1"].Status != models.RequestValide {
		t.Errorf("request status = %s, want VALIDE", s.requests["req-1"].Status)
	}
}

func TestRefresh_RefusedResetNotifiesOnlyOnTransition(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierEnCours)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 1, models.RequestRecu)
	seedUpload(s, "upl-1", "req-1", models.UploadRefuse)
	svc := newTestEngine(s)

	if err := svc.Refresh(context.Background(), "dos-1"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if s.requests["req-1"].Status != models.RequestEnAttente {
		t.Errorf("request status = %s, want EN_ATTENTE after refused-only reset", s.requests["req-1"].Status)
	}
	if got := s.clientNotifications(clientID); len(got) != 1 {
		t.Fatalf("notifications = %d, want exactly 1 re-upload prompt", len(got))
	}

	// A second recompute over unchanged facts must stay silent.
	if err := svc.Refresh(context.Background(), "dos-1"); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	if got := s.clientNotifications(clientID); len(got) != 1 {
		t.Errorf("notifications = %d after no-op refresh, want still 1", len(got))
	}
}

func TestReviewUpload_DecisionSurvivesRefreshFailure(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierEnCours)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 1, models.RequestRecu)
	seedUpload(s, "upl-1", "req-1", models.UploadEnRevision)

	refresher := &stubRefresher{err: errors.New("rollup store down")}
	svc := NewReviewService(&fakeUploads{s}, &fakeNotifications{s}, &fakeTx{s}, refresher, discardLogger())

	result, err := svc.ReviewUpload(context.Background(), &services.ReviewUploadRequest{
		UploadID:    "upl-1",
		ComptableID: comptableID,
		Action:      models.UploadValide,
	})
	if err != nil {
		t.Fatalf("ReviewUpload: %v", err)
	}

	if !result.Success {
		t.Error("review must succeed even when the recompute fails")
	}
	if result.RefreshWarning == "" {
		t.Error("expected a refresh warning on the result")
	}
	if s.uploads["upl-1"].Status != models.UploadValide {
		t.Errorf("upload status = %s, want VALIDE persisted", s.uploads["upl-1"].Status)
	}
	if len(refresher.calls) != 1 || refresher.calls[0] != "dos-1" {
		t.Errorf("refresher calls = %v, want one call for dos-1", refresher.calls)
	}
	if got := s.clientNotifications(clientID); len(got) != 1 {
		t.Errorf("client notifications = %d, want 1", len(got))
	}
}

func TestReviewUpload_RejectsInvalidAction(t *testing.T) {
	s := newStore()
	comptableID, _ := seedTenant(s)
	svc := NewReviewService(&fakeUploads{s}, &fakeNotifications{s}, &fakeTx{s}, &stubRefresher{}, discardLogger())

	_, err := svc.ReviewUpload(context.Background(), &services.ReviewUploadRequest{
		UploadID:    "upl-1",
		ComptableID: comptableID,
		Action:      models.UploadEnRevision,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestReviewUpload_ForeignUploadIsNotFound(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierEnCours)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 1, models.RequestRecu)
	seedUpload(s, "upl-1", "req-1", models.UploadEnRevision)
	svc := NewReviewService(&fakeUploads{s}, &fakeNotifications{s}, &fakeTx{s}, &stubRefresher{}, discardLogger())

	_, err := svc.ReviewUpload(context.Background(), &services.ReviewUploadRequest{
		UploadID:    "upl-1",
		ComptableID: "cpt-other",
		Action:      models.UploadValide,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for a foreign comptable", err)
	}
}

func TestBulkReview_IsolatesFailures(t *testing.T) {
	s := newStore()
	comptableID, clientID := seedTenant(s)
	seedDossier(s, "dos-1", clientID, comptableID, models.DossierEnCours)
	seedRequest(s, "req-1", "dos-1", clientID, comptableID, 2, models.RequestRecu)
	seedUpload(s, "upl-1", "req-1", models.UploadEnRevision)
	seedUpload(s, "upl-2", "req-1", models.UploadEnRevision)
	svc := NewReviewService(&fakeUploads{s}, &fakeNotifications{s}, &fakeTx{s}, &stubRefresher{}, discardLogger())

	result, err := svc.BulkReview(context.Background(), &services.BulkReviewRequest{
		ComptableID: comptableID,
		UploadIDs:   []string{"upl-1", "upl-missing", "upl-2"},
		Action:      models.UploadValide,
	})
	if err != nil {
		t.Fatalf("BulkReview: %v", err)
	}

	if result.Validated != 2 {
		t.Errorf("validated = %d, want 2", result.Validated)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "upl-missing") {
		t.Errorf("errors = %v, want one naming the missing id", result.Errors)
	}
	if result.Success {
		t.Error("success must be false when any id failed")
	}
}
