package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"rnp-recruitment/internal/applicant/models"
	applicant "rnp-recruitment/internal/applicant/service"
	"rnp-recruitment/internal/audit"
	"rnp-recruitment/internal/platform/metrics"
	"rnp-recruitment/internal/store"
	"rnp-recruitment/internal/store/backend"
	dErrors "rnp-recruitment/pkg/domain-errors"
	"rnp-recruitment/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.Store
	audit   *audit.Log
	metrics *metrics.Metrics
	apps    *applicant.Service
	svc     *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	s.store = store.New(backend.NewMemory())
	s.audit = audit.New(s.store)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.apps = applicant.New(s.store, s.audit)
	s.svc = New(s.store, s.audit, WithStatusChangeHook(s.apps), WithMetrics(s.metrics))
}

// invitedApplicant stores an applicant who has passed the exam and been
// invited to interview.
func (s *ServiceSuite) invitedApplicant(id string) {
	err := s.store.RunInTx(s.ctx, []store.Collection{store.Applicants}, func(tx *store.Tx) error {
		list, err := applicant.LoadApplicants(tx)
		if err != nil {
			return err
		}
		score := 80
		list = append(list, models.Applicant{
			ID:            id,
			ApplicationID: "RNP-2026-" + id,
			NationalID:    "120008000000" + id,
			Status:        models.StatusInvitedInterview,
			ExamScore:     &score,
		})
		return applicant.SaveApplicants(tx, list)
	})
	s.Require().NoError(err)
}

func (s *ServiceSuite) slot(id string) Slot {
	slots, err := s.svc.Slots(s.ctx)
	s.Require().NoError(err)
	for _, sl := range slots {
		if sl.ID == id {
			return sl
		}
	}
	s.FailNow("slot not found", id)
	return Slot{}
}

func (s *ServiceSuite) TestListSlotsGroupsByDate() {
	days, err := s.svc.ListSlots(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(days, 2)
	s.Equal("Monday, June 12", days[0].Date)
	s.Len(days[0].Slots, 2)
	s.Equal(15, days[0].Slots[0].Remaining)
	s.Equal("Monday, June 12 - 09:00 AM", days[0].Slots[0].Label)
	s.Equal("Tuesday, June 13", days[1].Date)
}

func (s *ServiceSuite) TestEmptyCalendarEncodesAsArray() {
	_, err := s.svc.ReplaceSlots(s.ctx, nil)
	s.Require().NoError(err)

	days, err := s.svc.ListSlots(s.ctx)
	s.Require().NoError(err)
	raw, err := json.Marshal(days)
	s.Require().NoError(err)
	s.JSONEq(`[]`, string(raw))

	slots, err := s.svc.Slots(s.ctx)
	s.Require().NoError(err)
	raw, err = json.Marshal(slots)
	s.Require().NoError(err)
	s.JSONEq(`[]`, string(raw))
}

func (s *ServiceSuite) TestBook() {
	s.invitedApplicant("9001")

	a, err := s.svc.Book(s.ctx, "9001", "3")
	s.Require().NoError(err)
	s.Equal(models.StatusInterviewScheduled, a.Status)
	s.Equal("Tuesday, June 13 - 09:00 AM", *a.InterviewDate)
	s.Equal("3", *a.InterviewSlotID)
	s.Equal(3, s.slot("3").Booked)

	entries, err := s.audit.List(s.ctx)
	s.Require().NoError(err)
	s.Equal(audit.ActionInterviewBooking, entries[0].Action)
	s.Equal("Applicant RNP-2026-9001 booked Tuesday, June 13 - 09:00 AM", entries[0].Details)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.InterviewBookings.WithLabelValues("booked")))

	_, err = s.svc.Book(s.ctx, "9001", "1")
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateSubmission), "got %v", err)
	s.Equal(5, s.slot("1").Booked)
}

func (s *ServiceSuite) TestBookRefusals() {
	s.invitedApplicant("9001")

	_, err := s.svc.Book(s.ctx, "9001", "nope")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.Book(s.ctx, "2", "1")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition), "under review applicants cannot book")
	s.Equal(5, s.slot("1").Booked)

	_, err = s.svc.ReplaceSlots(s.ctx, []Slot{{ID: "full", Date: "Friday", Time: "10:00 AM", Capacity: 1, Booked: 1}})
	s.Require().NoError(err)
	_, err = s.svc.Book(s.ctx, "9001", "full")
	s.True(dErrors.HasCode(err, dErrors.CodeSlotFull))
}

func (s *ServiceSuite) TestConcurrentBookingsRespectCapacity() {
	const applicants = 10
	_, err := s.svc.ReplaceSlots(s.ctx, []Slot{{ID: "s", Date: "Friday", Time: "10:00 AM", Capacity: 3}})
	s.Require().NoError(err)
	for i := range applicants {
		s.invitedApplicant(fmt.Sprintf("%d", 9000+i))
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		full int
	)
	for i := range applicants {
		wg.Go(func() {
			_, err := s.svc.Book(s.ctx, fmt.Sprintf("%d", 9000+i), "s")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case dErrors.HasCode(err, dErrors.CodeSlotFull):
				full++
			}
		})
	}
	wg.Wait()

	s.Equal(3, ok)
	s.Equal(applicants-3, full)
	s.Equal(3, s.slot("s").Booked)
}

func (s *ServiceSuite) TestCalendarManagement() {
	added, err := s.svc.AddSlot(s.ctx, Slot{Date: "Wednesday, June 14", Time: "02:00 PM"})
	s.Require().NoError(err)
	s.NotEmpty(added.ID)
	s.Equal(DefaultCapacity, added.Capacity)

	slots, err := s.svc.Slots(s.ctx)
	s.Require().NoError(err)
	s.Len(slots, 4)

	s.Require().NoError(s.svc.DeleteSlot(s.ctx, "2"))
	s.True(dErrors.HasCode(s.svc.DeleteSlot(s.ctx, "2"), dErrors.CodeNotFound))

	entries, err := s.audit.List(s.ctx)
	s.Require().NoError(err)
	s.Equal("Updated interview calendar", entries[0].Details)

	_, err = s.svc.ReplaceSlots(s.ctx, []Slot{{Date: "", Time: "x", Capacity: 1}})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = s.svc.ReplaceSlots(s.ctx, []Slot{{Date: "d", Time: "t", Capacity: 1, Booked: 2}})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestDecodeCalendar() {
	slots, err := DecodeCalendar(strings.NewReader(`
slots:
  - date: "Thursday, June 15"
    time: "09:00 AM"
  - id: "x"
    date: "Thursday, June 15"
    time: "11:00 AM"
    capacity: 5
`))
	s.Require().NoError(err)
	s.Require().Len(slots, 2)
	s.Equal(DefaultCapacity, slots[0].Capacity)
	s.Equal(5, slots[1].Capacity)

	_, err = DecodeCalendar(strings.NewReader("slots: []"))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
