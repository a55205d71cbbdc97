package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/bips-college-api/internal/models"
	"github.com/noah-isme/bips-college-api/internal/repository"
)

// fakeDB is an in-memory stand-in for Postgres shared by the repository fakes below.
type fakeDB struct {
	mu        sync.Mutex
	seq       int
	sponsors  map[string]*models.Sponsor
	students  []models.Student
	invoices  map[string]*models.Invoice
	batches   map[string]*models.BatchRegistration
	donations map[string]*models.Donation
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		sponsors:  make(map[string]*models.Sponsor),
		invoices:  make(map[string]*models.Invoice),
		batches:   make(map[string]*models.BatchRegistration),
		donations: make(map[string]*models.Donation),
	}
}

func (db *fakeDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *fakeDB) addSponsor(sponsor models.Sponsor) *models.Sponsor {
	db.mu.Lock()
	defer db.mu.Unlock()
	if sponsor.ID == "" {
		sponsor.ID = db.nextID("sp")
	}
	if sponsor.RegistrationDate.IsZero() {
		sponsor.RegistrationDate = time.Now().UTC().Add(time.Duration(db.seq) * time.Second)
	}
	db.sponsors[sponsor.ID] = &sponsor
	return &sponsor
}

type fakeSponsorRepo struct {
	db        *fakeDB
	createErr error
	creates   int
}

func (r *fakeSponsorRepo) List(ctx context.Context) ([]models.Sponsor, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.Sponsor, 0, len(r.db.sponsors))
	for _, s := range r.db.sponsors {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegistrationDate.After(out[j].RegistrationDate) })
	return out, nil
}

func (r *fakeSponsorRepo) FindByID(ctx context.Context, id string) (*models.Sponsor, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.sponsors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSponsorRepo) ExistsByPhone(ctx context.Context, phone, excludeID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, s := range r.db.sponsors {
		if s.Phone == phone && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSponsorRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, s := range r.db.sponsors {
		if s.Email != nil && strings.EqualFold(*s.Email, email) && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSponsorRepo) Create(ctx context.Context, sponsor *models.Sponsor) error {
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	created := r.db.addSponsor(*sponsor)
	*sponsor = *created
	return nil
}

func (r *fakeSponsorRepo) Update(ctx context.Context, sponsor *models.Sponsor) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	current, ok := r.db.sponsors[sponsor.ID]
	if !ok {
		return sql.ErrNoRows
	}
	updated := *sponsor
	updated.StudentsReferred = current.StudentsReferred
	r.db.sponsors[sponsor.ID] = &updated
	return nil
}

func (db *fakeDB) incrementReferrals(sponsorID string, by int) error {
	s, ok := db.sponsors[sponsorID]
	if !ok {
		return sql.ErrNoRows
	}
	s.StudentsReferred += by
	return nil
}

type fakeStudentRepo struct {
	db *fakeDB
}

func (r *fakeStudentRepo) List(ctx context.Context) ([]models.StudentDetail, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]models.StudentDetail, 0, len(r.db.students))
	for i := len(r.db.students) - 1; i >= 0; i-- {
		st := r.db.students[i]
		detail := models.StudentDetail{Student: st}
		if sp, ok := r.db.sponsors[st.SponsorID]; ok {
			detail.SponsorName = sp.Name
			detail.SponsorContactPerson = sp.ContactPerson
		}
		out = append(out, detail)
	}
	return out, nil
}

func (r *fakeStudentRepo) ListBySponsor(ctx context.Context, sponsorID string) ([]models.Student, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.Student
	for i := len(r.db.students) - 1; i >= 0; i-- {
		if r.db.students[i].SponsorID == sponsorID {
			out = append(out, r.db.students[i])
		}
	}
	return out, nil
}

func (r *fakeStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, st := range r.db.students {
		if st.ID == id {
			copied := st
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeStudentRepo) CreateForSponsor(ctx context.Context, student *models.Student) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.incrementReferrals(student.SponsorID, 1); err != nil {
		return err
	}
	student.ID = r.db.nextID("st")
	student.CreatedAt = time.Now().UTC()
	r.db.students = append(r.db.students, *student)
	return nil
}

func (r *fakeStudentRepo) UpdateStatus(ctx context.Context, id string, from, to models.StudentStatus) (*models.Student, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for i := range r.db.students {
		if r.db.students[i].ID == id {
			if r.db.students[i].Status != from {
				return nil, repository.ErrStaleWrite
			}
			r.db.students[i].Status = to
			copied := r.db.students[i]
			return &copied, nil
		}
	}
	return nil, repository.ErrStaleWrite
}

type fakeInvoiceRepo struct {
	db *fakeDB
}

func (db *fakeDB) invoiceDetail(inv *models.Invoice) models.InvoiceDetail {
	detail := models.InvoiceDetail{Invoice: *inv}
	if sp, ok := db.sponsors[inv.SponsorID]; ok {
		detail.Sponsor = sp.Summary()
	}
	return detail
}

func (r *fakeInvoiceRepo) List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceDetail, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.InvoiceDetail
	for _, inv := range r.db.invoices {
		if filter.SponsorID != "" && inv.SponsorID != filter.SponsorID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		out = append(out, r.db.invoiceDetail(inv))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeInvoiceRepo) FindByID(ctx context.Context, id string) (*models.InvoiceDetail, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	inv, ok := r.db.invoices[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	detail := r.db.invoiceDetail(inv)
	return &detail, nil
}

func (r *fakeInvoiceRepo) UpdateWithLock(ctx context.Context, id string, mutate func(*models.Invoice) error) (*models.Invoice, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	inv, ok := r.db.invoices[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	working := *inv
	working.Payments = append(models.PaymentHistory{}, inv.Payments...)
	if err := mutate(&working); err != nil {
		return nil, err
	}
	r.db.invoices[id] = &working
	copied := working
	return &copied, nil
}

type fakeBatchRepo struct {
	db        *fakeDB
	settleErr error
	settles   int
}

func (r *fakeBatchRepo) Create(ctx context.Context, batch *models.BatchRegistration) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	batch.ID = r.db.nextID("b")
	batch.CreatedAt = time.Now().UTC()
	copied := *batch
	r.db.batches[batch.ID] = &copied
	return nil
}

func (r *fakeBatchRepo) FindByID(ctx context.Context, id string) (*models.BatchRegistration, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.batches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *b
	return &copied, nil
}

func (r *fakeBatchRepo) List(ctx context.Context) ([]models.BatchListItem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.BatchListItem
	for _, b := range r.db.batches {
		item := models.BatchListItem{BatchRegistration: *b}
		if sp, ok := r.db.sponsors[b.SponsorID]; ok {
			item.SponsorName = sp.Name
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *fakeBatchRepo) Settle(ctx context.Context, settlement *models.BatchSettlement) (*models.BatchRegistration, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.settles++
	if r.settleErr != nil {
		return nil, r.settleErr
	}
	b, ok := r.db.batches[settlement.BatchID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if b.Status != models.BatchStatusProcessing {
		return nil, repository.ErrStaleWrite
	}
	for i := range settlement.Students {
		if settlement.Students[i].ID == "" {
			settlement.Students[i].ID = r.db.nextID("st")
		}
		r.db.students = append(r.db.students, settlement.Students[i])
	}
	if settlement.Invoice.ID == "" {
		settlement.Invoice.ID = r.db.nextID("inv")
	}
	invoice := settlement.Invoice
	r.db.invoices[invoice.ID] = &invoice
	if err := r.db.incrementReferrals(b.SponsorID, b.TotalStudents); err != nil {
		return nil, err
	}
	b.Status = models.BatchStatusCompleted
	b.InvoiceID = &invoice.ID
	completed := settlement.CompletedAt
	b.CompletedAt = &completed
	copied := *b
	return &copied, nil
}

type fakeDonationRepo struct {
	db        *fakeDB
	createErr error
}

func (r *fakeDonationRepo) Create(ctx context.Context, donation *models.Donation) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, exists := r.db.donations[donation.Reference]; exists {
		return repository.ErrDuplicateKey
	}
	donation.ID = r.db.nextID("d")
	donation.CreatedAt = time.Now().UTC()
	copied := *donation
	r.db.donations[donation.Reference] = &copied
	return nil
}

func (r *fakeDonationRepo) FindByReference(ctx context.Context, reference string) (*models.Donation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d, ok := r.db.donations[reference]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *d
	return &copied, nil
}

func (r *fakeDonationRepo) List(ctx context.Context, filter models.DonationFilter) ([]models.Donation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.Donation
	for _, d := range r.db.donations {
		if filter.Status == "" || d.Status == filter.Status {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeDonationRepo) MarkSuccess(ctx context.Context, reference string, payload models.GatewayPayload, completedAt time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d, ok := r.db.donations[reference]
	if !ok || d.Status == models.DonationStatusSuccess {
		return false, nil
	}
	d.Status = models.DonationStatusSuccess
	d.GatewayData = payload
	d.CompletedAt = &completedAt
	return true, nil
}

func (r *fakeDonationRepo) MarkFailed(ctx context.Context, reference string, payload models.GatewayPayload) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d, ok := r.db.donations[reference]
	if !ok || d.Status != models.DonationStatusPending {
		return false, nil
	}
	d.Status = models.DonationStatusFailed
	d.GatewayData = payload
	return true, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	invoices []InvoiceIssuedNotice
	payments []PaymentConfirmedNotice
}

func (n *recordingNotifier) InvoiceIssued(ctx context.Context, notice InvoiceIssuedNotice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invoices = append(n.invoices, notice)
}

func (n *recordingNotifier) PaymentConfirmed(ctx context.Context, notice PaymentConfirmedNotice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payments = append(n.payments, notice)
}
