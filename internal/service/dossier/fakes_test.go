package dossier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"time"

	"fiducia/internal/domain"
	"fiducia/internal/domain/models"
	"fiducia/internal/domain/repositories"
)

// store is the shared in-memory backend of the fake repositories. ExecTx snapshots
// and restores it, which gives the tests real rollback semantics.
type store struct {
	clients       map[string]models.Client
	comptables    map[string]models.Comptable
	dossiers      map[string]models.Dossier
	batches       map[string]models.DossierBatch
	requests      map[string]models.DocumentRequest
	uploads       map[string]models.DocumentUpload
	documents     map[string]models.Document
	notifications []models.Notification

	progressWrites int
	failNotify     bool
}

func newStore() *store {
	return &store{
		clients:    make(map[string]models.Client),
		comptables: make(map[string]models.Comptable),
		dossiers:   make(map[string]models.Dossier),
		batches:    make(map[string]models.DossierBatch),
		requests:   make(map[string]models.DocumentRequest),
		uploads:    make(map[string]models.DocumentUpload),
		documents:  make(map[string]models.Document),
	}
}

func (s *store) clone() *store {
	c := newStore()
	for k, v := range s.clients {
		c.clients[k] = v
	}
	for k, v := range s.comptables {
		c.comptables[k] = v
	}
	for k, v := range s.dossiers {
		c.dossiers[k] = v
	}
	for k, v := range s.batches {
		c.batches[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.uploads {
		c.uploads[k] = v
	}
	for k, v := range s.documents {
		c.documents[k] = v
	}
	c.notifications = append([]models.Notification(nil), s.notifications...)
	c.progressWrites = s.progressWrites
	c.failNotify = s.failNotify
	return c
}

// requestsOf returns a dossier's requests with uploads, ordered by request id so
// recomputation indexes stay stable.
func (s *store) requestsOf(dossierID string) []models.RequestWithUploads {
	var out []models.RequestWithUploads
	for _, r := range s.requests {
		if r.DossierID != dossierID {
			continue
		}
		rw := models.RequestWithUploads{Request: r}
		for _, u := range s.uploads {
			if u.RequestID == r.ID {
				rw.Uploads = append(rw.Uploads, u)
			}
		}
		out = append(out, rw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Request.ID < out[j].Request.ID })
	return out
}

func (s *store) clientNotifications(clientID string) []models.Notification {
	var out []models.Notification
	for _, n := range s.notifications {
		if n.ClientID != nil && *n.ClientID == clientID {
			out = append(out, n)
		}
	}
	return out
}

type fakeTx struct{ s *store }

func (t *fakeTx) ExecTx(_ context.Context, fn repositories.TxFn) error {
	snap := t.s.clone()
	if err := fn(context.Background()); err != nil {
		*t.s = *snap
		return err
	}
	return nil
}

type fakeDossiers struct{ s *store }

func (r *fakeDossiers) Create(_ context.Context, d *models.Dossier) error {
	r.s.dossiers[d.ID] = *d
	return nil
}

func (r *fakeDossiers) GetByID(_ context.Context, id string) (*models.Dossier, error) {
	d, ok := r.s.dossiers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (r *fakeDossiers) GetOwned(_ context.Context, id, comptableID string) (*models.Dossier, error) {
	d, ok := r.s.dossiers[id]
	if !ok || d.ComptableID != comptableID {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (r *fakeDossiers) GetOwnedWithStatus(_ context.Context, id, comptableID string, status models.StatusDossier) (*models.Dossier, error) {
	d, ok := r.s.dossiers[id]
	if !ok || d.ComptableID != comptableID || d.Status != status {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (r *fakeDossiers) GetForClient(_ context.Context, id, clientID string) (*models.Dossier, error) {
	d, ok := r.s.dossiers[id]
	if !ok || d.ClientID != clientID {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (r *fakeDossiers) GetWithRequests(_ context.Context, id string) (*models.DossierWithRequests, error) {
	d, ok := r.s.dossiers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &models.DossierWithRequests{Dossier: d, Requests: r.s.requestsOf(id)}, nil
}

func (r *fakeDossiers) detail(id string) *models.DossierDetail {
	d := r.s.dossiers[id]
	detail := &models.DossierDetail{Dossier: d}
	if c, ok := r.s.clients[d.ClientID]; ok {
		detail.Client = &c
	}
	for _, rw := range r.s.requestsOf(id) {
		rd := models.RequestDetail{Request: rw.Request}
		for _, u := range rw.Uploads {
			rd.Uploads = append(rd.Uploads, models.UploadDetail{
				Upload:   u,
				Document: r.s.documents[u.DocumentID],
			})
		}
		detail.Requests = append(detail.Requests, rd)
	}
	return detail
}

func (r *fakeDossiers) GetDetailOwned(_ context.Context, id, comptableID string) (*models.DossierDetail, error) {
	d, ok := r.s.dossiers[id]
	if !ok || d.ComptableID != comptableID {
		return nil, domain.ErrNotFound
	}
	return r.detail(id), nil
}

func (r *fakeDossiers) GetDetailForClient(_ context.Context, id, clientID string) (*models.DossierDetail, error) {
	d, ok := r.s.dossiers[id]
	if !ok || d.ClientID != clientID {
		return nil, domain.ErrNotFound
	}
	return r.detail(id), nil
}

func (r *fakeDossiers) list(keep func(models.Dossier) bool) []models.DossierWithRequests {
	var out []models.DossierWithRequests
	for id, d := range r.s.dossiers {
		if keep(d) {
			out = append(out, models.DossierWithRequests{Dossier: d, Requests: r.s.requestsOf(id)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dossier.ID < out[j].Dossier.ID })
	return out
}

func (r *fakeDossiers) ListByComptable(_ context.Context, comptableID string, batchID *string) ([]models.DossierWithRequests, error) {
	return r.list(func(d models.Dossier) bool {
		if d.ComptableID != comptableID {
			return false
		}
		return batchID == nil || (d.BatchID != nil && *d.BatchID == *batchID)
	}), nil
}

func (r *fakeDossiers) ListByClient(_ context.Context, clientID string) ([]models.DossierWithRequests, error) {
	return r.list(func(d models.Dossier) bool { return d.ClientID == clientID }), nil
}

func (r *fakeDossiers) ListByBatch(_ context.Context, batchID string) ([]models.DossierWithRequests, error) {
	return r.list(func(d models.Dossier) bool { return d.BatchID != nil && *d.BatchID == batchID }), nil
}

func (r *fakeDossiers) UpdateProgress(_ context.Context, id string, update *repositories.DossierProgressUpdate) error {
	d, ok := r.s.dossiers[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.Pourcentage = update.Pourcentage
	d.DocumentsUpload = update.DocumentsUpload
	d.Status = update.Status
	d.DateCompletion = update.DateCompletion
	r.s.dossiers[id] = d
	r.s.progressWrites++
	return nil
}

func (r *fakeDossiers) UpdateStatus(_ context.Context, id string, status models.StatusDossier) error {
	d, ok := r.s.dossiers[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.Status = status
	r.s.dossiers[id] = d
	return nil
}

func (r *fakeDossiers) count(keep func(models.Dossier) bool) int {
	n := 0
	for _, d := range r.s.dossiers {
		if keep(d) {
			n++
		}
	}
	return n
}

func (r *fakeDossiers) CountByComptable(_ context.Context, comptableID string, status *models.StatusDossier) (int, error) {
	return r.count(func(d models.Dossier) bool {
		return d.ComptableID == comptableID && (status == nil || d.Status == *status)
	}), nil
}

func (r *fakeDossiers) CountByClient(_ context.Context, clientID string, status *models.StatusDossier) (int, error) {
	return r.count(func(d models.Dossier) bool {
		return d.ClientID == clientID && (status == nil || d.Status == *status)
	}), nil
}

func (r *fakeDossiers) CountUrgentByClient(_ context.Context, clientID string, deadline time.Time) (int, error) {
	return r.count(func(d models.Dossier) bool {
		return d.ClientID == clientID && d.DateEcheance != nil && !d.DateEcheance.After(deadline)
	}), nil
}

type fakeBatches struct{ s *store }

func (r *fakeBatches) Create(_ context.Context, b *models.DossierBatch) error {
	r.s.batches[b.ID] = *b
	return nil
}

func (r *fakeBatches) GetOwned(_ context.Context, id, comptableID string) (*models.DossierBatch, error) {
	b, ok := r.s.batches[id]
	if !ok || b.ComptableID != comptableID {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

type fakeRequests struct{ s *store }

func (r *fakeRequests) CreateMany(_ context.Context, requests []models.DocumentRequest) error {
	for _, req := range requests {
		r.s.requests[req.ID] = req
	}
	return nil
}

func (r *fakeRequests) GetForClient(_ context.Context, id, dossierID, clientID string) (*models.DocumentRequest, error) {
	req, ok := r.s.requests[id]
	if !ok || req.DossierID != dossierID || req.ClientID != clientID {
		return nil, domain.ErrNotFound
	}
	return &req, nil
}

func (r *fakeRequests) GetWithUploads(_ context.Context, id string) (*models.RequestWithUploads, error) {
	req, ok := r.s.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rw := &models.RequestWithUploads{Request: req}
	for _, u := range r.s.uploads {
		if u.RequestID == id {
			rw.Uploads = append(rw.Uploads, u)
		}
	}
	return rw, nil
}

func (r *fakeRequests) ListByDossier(_ context.Context, dossierID string) ([]models.DocumentRequest, error) {
	var out []models.DocumentRequest
	for _, req := range r.s.requests {
		if req.DossierID == dossierID {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRequests) UpdateStatus(_ context.Context, id string, status models.StatusRequest) error {
	req, ok := r.s.requests[id]
	if !ok {
		return domain.ErrNotFound
	}
	req.Status = status
	r.s.requests[id] = req
	return nil
}

func (r *fakeRequests) MarkReceived(_ context.Context, id string, at time.Time) error {
	req, ok := r.s.requests[id]
	if !ok {
		return domain.ErrNotFound
	}
	req.Status = models.RequestRecu
	req.DateCompletion = &at
	r.s.requests[id] = req
	return nil
}

func (r *fakeRequests) CountPendingByClient(_ context.Context, clientID string) (int, error) {
	n := 0
	for _, req := range r.s.requests {
		if req.ClientID == clientID && req.Status == models.RequestEnAttente {
			n++
		}
	}
	return n, nil
}

type fakeUploads struct{ s *store }

func (r *fakeUploads) Create(_ context.Context, u *models.DocumentUpload) error {
	r.s.uploads[u.ID] = *u
	return nil
}

func (r *fakeUploads) review(u models.DocumentUpload) models.UploadReview {
	req := r.s.requests[u.RequestID]
	doc := r.s.documents[u.DocumentID]
	client := r.s.clients[req.ClientID]
	d := r.s.dossiers[req.DossierID]
	return models.UploadReview{
		Upload:       u,
		DocumentName: doc.NomOriginal,
		DocumentSize: doc.Taille,
		FileType:     doc.TypeFichier,
		RequestID:    req.ID,
		RequestTitle: req.Titre,
		ClientID:     req.ClientID,
		ClientName:   client.RaisonSociale,
		DossierID:    req.DossierID,
		DossierName:  d.Nom,
	}
}

func (r *fakeUploads) GetOwnedReview(_ context.Context, id, comptableID string) (*models.UploadReview, error) {
	u, ok := r.s.uploads[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	req, ok := r.s.requests[u.RequestID]
	if !ok || req.ComptableID != comptableID {
		return nil, domain.ErrNotFound
	}
	review := r.review(u)
	return &review, nil
}

func (r *fakeUploads) UpdateDecision(_ context.Context, id string, status models.StatusUpload, commentaire string, at time.Time) error {
	u, ok := r.s.uploads[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Status = status
	u.Commentaire = &commentaire
	u.DateValidation = &at
	r.s.uploads[id] = u
	return nil
}

func (r *fakeUploads) ListByComptable(_ context.Context, comptableID string, status *models.StatusUpload, limit int) ([]models.UploadReview, error) {
	var out []models.UploadReview
	for _, u := range r.s.uploads {
		req, ok := r.s.requests[u.RequestID]
		if !ok || req.ComptableID != comptableID {
			continue
		}
		if status != nil && u.Status != *status {
			continue
		}
		out = append(out, r.review(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Upload.DateUpload.After(out[j].Upload.DateUpload) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeUploads) CountValidByClient(_ context.Context, clientID string) (int, error) {
	n := 0
	for _, u := range r.s.uploads {
		req := r.s.requests[u.RequestID]
		if req.ClientID == clientID && u.Status != models.UploadRefuse {
			n++
		}
	}
	return n, nil
}

type fakeDocuments struct{ s *store }

func (r *fakeDocuments) Create(_ context.Context, doc *models.Document) error {
	r.s.documents[doc.ID] = *doc
	return nil
}

type fakeNotifications struct{ s *store }

func (r *fakeNotifications) Create(_ context.Context, n *models.Notification) error {
	if r.s.failNotify {
		return errors.New("notification store down")
	}
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

func (r *fakeNotifications) ListByClient(_ context.Context, clientID string, limit, offset int) ([]models.Notification, error) {
	all := r.s.clientNotifications(clientID)
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeNotifications) CountByClient(_ context.Context, clientID string) (int, error) {
	return len(r.s.clientNotifications(clientID)), nil
}

func (r *fakeNotifications) CountUnreadByClient(_ context.Context, clientID string) (int, error) {
	n := 0
	for _, notif := range r.s.clientNotifications(clientID) {
		if !notif.Lu {
			n++
		}
	}
	return n, nil
}

func (r *fakeNotifications) MarkRead(_ context.Context, id, clientID string) (*models.Notification, error) {
	for i, n := range r.s.notifications {
		if n.ID == id && n.ClientID != nil && *n.ClientID == clientID {
			now := time.Now()
			r.s.notifications[i].Lu = true
			r.s.notifications[i].DateLecture = &now
			out := r.s.notifications[i]
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeDirectory struct{ s *store }

func (r *fakeDirectory) GetComptable(_ context.Context, id string) (*models.Comptable, error) {
	c, ok := r.s.comptables[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *fakeDirectory) GetClient(_ context.Context, id string) (*models.Client, error) {
	c, ok := r.s.clients[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (r *fakeDirectory) ListClientsOwned(_ context.Context, comptableID string, ids []string) ([]models.Client, error) {
	var out []models.Client
	for _, id := range ids {
		if c, ok := r.s.clients[id]; ok && c.ComptableID == comptableID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeDirectory) ListClientsByComptable(_ context.Context, comptableID string) ([]models.Client, error) {
	var out []models.Client
	for _, c := range r.s.clients {
		if c.ComptableID == comptableID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeDirectory) CountClientsByComptable(_ context.Context, comptableID string) (int, error) {
	clients, _ := r.ListClientsByComptable(context.Background(), comptableID)
	return len(clients), nil
}

// stubRefresher records calls and optionally fails, for testing the best-effort
// post-commit recompute.
type stubRefresher struct {
	err   error
	calls []string
}

func (r *stubRefresher) Refresh(_ context.Context, dossierID string) error {
	r.calls = append(r.calls, dossierID)
	return r.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
