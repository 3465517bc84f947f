package dossier

import (
	"math"

	"fiducia/internal/domain/models"
)

// The status of a request or a dossier is never authoritative on its own: it is a
// projection over upload facts, recomputed by the functions below. Persisted status
// columns are caches of these results.

// UploadTally counts one request's uploads by review state.
type UploadTally struct {
	Validated int // VALIDE
	InReview  int // EN_REVISION
	Refused   int // REFUSE
}

// Valid is the number of uploads that still count toward satisfying the
// requirement: approved plus pending review. Refused uploads never count.
func (t UploadTally) Valid() int { return t.Validated + t.InReview }

// Total is every upload regardless of state.
func (t UploadTally) Total() int { return t.Validated + t.InReview + t.Refused }

// TallyUploads counts uploads by status.
func TallyUploads(uploads []models.DocumentUpload) UploadTally {
	var t UploadTally
	for _, u := range uploads {
		switch u.Status {
		case models.UploadValide:
			t.Validated++
		case models.UploadEnRevision:
			t.InReview++
		case models.UploadRefuse:
			t.Refused++
		}
	}
	return t
}

// RequestOutcome is the derived state of one document request.
type RequestOutcome struct {
	Status models.StatusRequest

	// Completed means the request counts toward the dossier percentage: enough
	// valid uploads, whether or not they are all approved yet.
	Completed bool

	// RefusedReset marks the refused-only branch: every upload was refused, the
	// request dropped back to EN_ATTENTE and the client must be told to re-upload.
	RefusedReset bool
}

// ComputeRequestStatus derives a request's status from its upload tally.
// Branches are evaluated in priority order; the function is pure and idempotent.
func ComputeRequestStatus(t UploadTally, quantiteMin int) RequestOutcome {
	switch {
	case t.Validated >= quantiteMin:
		// Fully satisfied by approved documents.
		return RequestOutcome{Status: models.RequestValide, Completed: true}
	case t.Valid() >= quantiteMin:
		// Quantity reached but part of it still awaits review.
		return RequestOutcome{Status: models.RequestRecu, Completed: true}
	case t.InReview > 0 || t.Validated > 0:
		// Partial progress, not enough yet.
		return RequestOutcome{Status: models.RequestRecu}
	case t.Refused > 0 && t.Valid() == 0:
		// Only refused uploads left: reset so the request neither blocks forward
		// progress nor falsely appears received.
		return RequestOutcome{Status: models.RequestEnAttente, RefusedReset: true}
	default:
		return RequestOutcome{Status: models.RequestEnAttente}
	}
}

// DossierRollup is the aggregate recomputation result for one dossier.
type DossierRollup struct {
	Status            models.StatusDossier
	Pourcentage       int
	ValidUploads      int // VALIDE + EN_REVISION across all requests
	ValidatedUploads  int // VALIDE only
	CompletedRequests int
	TotalRequests     int

	// Outcomes is parallel to the input requests.
	Outcomes []RequestOutcome
}

// ComputeDossierRollup derives a dossier's percentage, upload count and status from
// its requests' uploads.
//
// The percentage counts a request as completed once enough valid uploads exist,
// even if some are still in review; COMPLET additionally requires every counted
// upload to be approved. The asymmetry is intentional: the percentage reflects
// "enough submitted", COMPLET reflects "everything approved".
func ComputeDossierRollup(requests []models.RequestWithUploads) DossierRollup {
	r := DossierRollup{
		TotalRequests: len(requests),
		Outcomes:      make([]RequestOutcome, len(requests)),
	}

	hasAnyUploads := false
	hasOnlyRefused := true

	for i, req := range requests {
		t := TallyUploads(req.Uploads)
		out := ComputeRequestStatus(t, req.Request.QuantiteMin)
		r.Outcomes[i] = out

		if t.Total() > 0 {
			hasAnyUploads = true
		}
		if t.Valid() > 0 {
			hasOnlyRefused = false
		}
		if out.Completed {
			r.CompletedRequests++
		}
		r.ValidUploads += t.Valid()
		r.ValidatedUploads += t.Validated
	}

	r.Pourcentage = percent(r.CompletedRequests, r.TotalRequests)

	switch {
	case r.Pourcentage == 100 && r.ValidatedUploads == r.ValidUploads && r.ValidUploads > 0:
		r.Status = models.DossierComplet
	case hasAnyUploads && !hasOnlyRefused:
		r.Status = models.DossierEnCours
	default:
		r.Status = models.DossierEnAttente
	}

	return r
}

// percent is round(100 * part / total), 0 when total is 0.
func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
