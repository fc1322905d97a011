// Package seed fills an empty database with demo accounts, categories,
// requests, shortlists and completed matches.  Everything goes through the
// repositories so counters and match records stay consistent.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/csr-service-match/internal/model"
	"github.com/iliyamo/csr-service-match/internal/repository"
)

// Password is shared by every seeded account.
const Password = "testing123!"

// Options sizes the generated data set.
type Options struct {
	CSRs                int // bulk CSR accounts besides csr@test.com
	PINs                int // bulk PIN accounts besides pin@test.com
	RequestsPerCategory int
	BcryptCost          int
}

// DefaultOptions is the full demo data set.
func DefaultOptions() Options {
	return Options{CSRs: 100, PINs: 100, RequestsPerCategory: 100, BcryptCost: 10}
}

// Summary reports what Run created.
type Summary struct {
	Users      int `json:"users"`
	Categories int `json:"categories"`
	Requests   int `json:"requests"`
	Shortlists int `json:"shortlists"`
	Matches    int `json:"matches"`
}

// ErrAlreadySeeded is returned when the core demo accounts already exist.
var ErrAlreadySeeded = errors.New("database already seeded")

var csrNames = []string{
	"Aaron Tan", "Brandon Lee", "Caleb Lim", "Daniel Wong", "Ethan Koh",
	"Felix Chua", "Gavin Ho", "Harris Ong", "Isaac Tay", "Joel Tan",
	"Kenny Teo", "Leonard Sim", "Marcus Low", "Nicholas Ho", "Owen Chia",
}

var pinNames = []string{
	"Alice Tan", "Beatrice Ho", "Cheryl Lim", "Daphne Lee", "Elaine Koh",
	"Fiona Ng", "Grace Chia", "Hannah Wong", "Irene Loh", "Jasmine Tay",
	"Kelly Sim", "Lydia Pang", "Michelle Ong", "Nicole Chua", "Olivia Soh",
}

var categories = []struct{ name, description string }{
	{"Transportation", "Transport help"},
	{"Medical Aid", "Medical assistance"},
	{"Food Support", "Food support & groceries"},
}

var demoRequests = []struct{ title, description string }{
	{"Wheelchair-accessible transport needed", "Requesting assistance due to mobility issues."},
	{"Groceries delivery support", "Regular grocery support needed for 4 weeks."},
	{"Medical appointment follow-up transport", "Follow-up appointment scheduled, require lift assistance."},
	{"Assistance with weekly food run", "Need weekly help to collect groceries from the market."},
	{"Support for clinic visit transportation", "Transportation support required for medical visit."},
}

// Seeder writes the demo data set.
type Seeder struct {
	users      *repository.UserRepo
	categories *repository.CategoryRepo
	requests   *repository.RequestRepo
	shortlists *repository.ShortlistRepo
	matches    *repository.MatchRepo
	logger     *logrus.Logger

	now     time.Time
	created time.Time // creation time handed to the request repository
}

func New(db *sql.DB, logger *logrus.Logger) *Seeder {
	s := &Seeder{
		users:      repository.NewUserRepo(db),
		categories: repository.NewCategoryRepo(db),
		shortlists: repository.NewShortlistRepo(db),
		matches:    repository.NewMatchRepo(db),
		logger:     logger,
		now:        time.Now().UTC(),
	}
	s.requests = repository.NewRequestRepo(db).WithClock(func() time.Time { return s.created })
	return s
}

// WithNow pins the reference time requests are back-dated from.
func (s *Seeder) WithNow(now time.Time) *Seeder {
	s.now = now.UTC()
	return s
}

// Run creates the data set.  Four core accounts (admin, csr, pin and pm
// @test.com) get a handful of readable demo requests on top of the bulk
// data.  Every third bulk request ends up completed by a CSR and every
// second one is shortlisted.
func (s *Seeder) Run(ctx context.Context, opt Options) (Summary, error) {
	var sum Summary
	log := s.logger.WithField("module", "seed")

	core := map[string]uint64{}
	for _, a := range []struct{ name, email, role string }{
		{"Admin User", "admin@test.com", model.RoleUserAdmin},
		{"CSR User", "csr@test.com", model.RoleCSR},
		{"PIN User", "pin@test.com", model.RolePIN},
		{"PM User", "pm@test.com", model.RolePlatformManager},
	} {
		id, err := s.users.Create(ctx, a.email, a.name, Password, a.role, opt.BcryptCost)
		if errors.Is(err, repository.ErrEmailExists) {
			return sum, ErrAlreadySeeded
		}
		if err != nil {
			return sum, fmt.Errorf("create %s: %w", a.email, err)
		}
		core[a.role] = id
		sum.Users++
	}

	csrs, err := s.bulkUsers(ctx, "csr", csrNames, model.RoleCSR, opt.CSRs, opt.BcryptCost)
	if err != nil {
		return sum, err
	}
	pins, err := s.bulkUsers(ctx, "pin", pinNames, model.RolePIN, opt.PINs, opt.BcryptCost)
	if err != nil {
		return sum, err
	}
	sum.Users += len(csrs) + len(pins)
	if len(csrs) == 0 {
		csrs = []uint64{core[model.RoleCSR]}
	}
	if len(pins) == 0 {
		pins = []uint64{core[model.RolePIN]}
	}
	log.Infof("created %d users", sum.Users)

	catIDs := make([]uint64, 0, len(categories))
	for _, c := range categories {
		cat, err := s.categories.Create(ctx, c.name, c.description)
		if err != nil {
			return sum, fmt.Errorf("create category %s: %w", c.name, err)
		}
		catIDs = append(catIDs, cat.ID)
		sum.Categories++
	}

	i := 0
	for ci, catID := range catIDs {
		for n := 0; n < opt.RequestsPerCategory; n++ {
			s.created = s.now.AddDate(0, 0, -(n % 30))
			req, err := s.requests.Create(ctx, pins[(n+ci+1)%len(pins)], catID,
				fmt.Sprintf("%s Request %d", categories[ci].name, n+1),
				fmt.Sprintf("Description for %s request %d", categories[ci].name, n+1))
			if err != nil {
				return sum, fmt.Errorf("create request: %w", err)
			}
			sum.Requests++
			for v := 0; v < n%7+1; v++ {
				if _, err := s.requests.View(ctx, req.ID); err != nil {
					return sum, err
				}
			}
			if i%2 == 0 {
				if err := s.shortlist(ctx, req.ID, csrs[i%len(csrs)], &sum); err != nil {
					return sum, err
				}
			}
			if i%3 == 0 {
				if err := s.complete(ctx, req, csrs[(i*7)%len(csrs)], 3*time.Hour, 24*time.Hour, &sum); err != nil {
					return sum, err
				}
			}
			i++
		}
	}
	log.Infof("created %d bulk requests", sum.Requests)

	if err := s.demo(ctx, core[model.RolePIN], core[model.RoleCSR], catIDs, &sum); err != nil {
		return sum, err
	}
	log.WithFields(logrus.Fields{
		"users":      sum.Users,
		"categories": sum.Categories,
		"requests":   sum.Requests,
		"shortlists": sum.Shortlists,
		"matches":    sum.Matches,
	}).Info("seed complete")
	return sum, nil
}

func (s *Seeder) bulkUsers(ctx context.Context, prefix string, names []string, role string, n, cost int) ([]uint64, error) {
	ids := make([]uint64, 0, n)
	for k := 0; k < n; k++ {
		email := fmt.Sprintf("%s%03d@test.com", prefix, k+1)
		name := fmt.Sprintf("%s %03d", names[k%len(names)], k+1)
		id, err := s.users.Create(ctx, email, name, Password, role, cost)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", email, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Seeder) shortlist(ctx context.Context, requestID, csrID uint64, sum *Summary) error {
	added, err := s.shortlists.Add(ctx, requestID, csrID)
	if err != nil {
		return fmt.Errorf("shortlist request %d: %w", requestID, err)
	}
	if added {
		sum.Shortlists++
	}
	return nil
}

// complete closes req through the completion workflow: the CSR is attached
// first, then the match record is written matchedAfter/completedAfter past
// the request's creation time.
func (s *Seeder) complete(ctx context.Context, req *model.Request, csrID uint64, matchedAfter, completedAfter time.Duration, sum *Summary) error {
	if err := s.requests.AssignCSR(ctx, req.ID, csrID); err != nil {
		return fmt.Errorf("assign csr to request %d: %w", req.ID, err)
	}
	_, created, err := s.matches.RecordCompletion(ctx, model.Completion{
		RequestID:   req.ID,
		CsrID:       csrID,
		MatchedAt:   req.CreatedAt.Add(matchedAfter),
		CompletedAt: req.CreatedAt.Add(completedAfter),
	})
	if err != nil {
		return fmt.Errorf("complete request %d: %w", req.ID, err)
	}
	if created {
		sum.Matches++
	}
	return nil
}

// demo gives the core PIN and CSR accounts readable data: five requests, all
// shortlisted by the core CSR, two completed and one claimed but still open
// so closing it from the PIN side exercises the match worker.
func (s *Seeder) demo(ctx context.Context, pinID, csrID uint64, catIDs []uint64, sum *Summary) error {
	reqs := make([]*model.Request, 0, len(demoRequests))
	for k, d := range demoRequests {
		s.created = s.now.AddDate(0, 0, -(len(demoRequests) - k))
		req, err := s.requests.Create(ctx, pinID, catIDs[k%len(catIDs)], d.title, d.description)
		if err != nil {
			return fmt.Errorf("create demo request: %w", err)
		}
		sum.Requests++
		if err := s.shortlist(ctx, req.ID, csrID, sum); err != nil {
			return err
		}
		reqs = append(reqs, req)
	}
	if err := s.complete(ctx, reqs[0], csrID, 3*time.Hour, 24*time.Hour, sum); err != nil {
		return err
	}
	if err := s.complete(ctx, reqs[1], csrID, 4*time.Hour, 48*time.Hour, sum); err != nil {
		return err
	}
	return s.requests.AssignCSR(ctx, reqs[2].ID, csrID)
}
