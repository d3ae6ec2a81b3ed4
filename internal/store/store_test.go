package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"rnp-recruitment/internal/platform/metrics"
	"rnp-recruitment/internal/store/backend"
	dErrors "rnp-recruitment/pkg/domain-errors"
	"rnp-recruitment/pkg/platform/sentinel"
)

type slot struct {
	ID     int `json:"id"`
	Booked int `json:"booked"`
}

var seedSlots = []slot{{ID: 1, Booked: 5}, {ID: 2, Booked: 0}}

type StoreSuite struct {
	suite.Suite
	ctx     context.Context
	mem     *backend.Memory
	metrics *metrics.Metrics
	store   *Store
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.mem = backend.NewMemory()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.store = New(s.mem, WithMetrics(s.metrics))
}

func (s *StoreSuite) TestLoadSeedsMissingCollection() {
	var got []slot
	s.Require().NoError(s.store.Load(s.ctx, InterviewSlots, &got, seedSlots))
	s.Equal(seedSlots, got)

	raw, err := s.mem.Get(s.ctx, string(InterviewSlots))
	s.Require().NoError(err)
	s.JSONEq(`[{"id":1,"booked":5},{"id":2,"booked":0}]`, string(raw))
}

func (s *StoreSuite) TestLoadRecoversCorruptCollection() {
	s.Require().NoError(s.mem.SetMany(s.ctx, map[string][]byte{string(InterviewSlots): []byte("{not json")}))

	var got []slot
	s.Require().NoError(s.store.Load(s.ctx, InterviewSlots, &got, seedSlots))
	s.Equal(seedSlots, got)
	s.InDelta(1, testutil.ToFloat64(s.metrics.StorageRecoveries.WithLabelValues(string(InterviewSlots))), 0)

	raw, err := s.mem.Get(s.ctx, string(InterviewSlots))
	s.Require().NoError(err)
	s.NotEqual("{not json", string(raw))
}

func (s *StoreSuite) TestSaveThenLoadRoundTrip() {
	want := []slot{{ID: 9, Booked: 1}}
	s.Require().NoError(s.store.Save(s.ctx, InterviewSlots, want))

	var got []slot
	s.Require().NoError(s.store.Load(s.ctx, InterviewSlots, &got, seedSlots))
	s.Equal(want, got)
}

func (s *StoreSuite) TestRunInTx() {
	s.Run("failed transaction writes nothing and skips hooks", func() {
		s.SetupTest()
		hookRan := false
		err := s.store.RunInTx(s.ctx, []Collection{InterviewSlots, SystemLogs}, func(tx *Tx) error {
			s.Require().NoError(tx.Save(InterviewSlots, []slot{{ID: 3}}))
			s.Require().NoError(tx.Save(SystemLogs, []string{"entry"}))
			tx.OnCommit(func() { hookRan = true })
			return dErrors.New(dErrors.CodeSlotFull, "slot is full")
		})
		s.True(dErrors.HasCode(err, dErrors.CodeSlotFull))
		s.False(hookRan)
		s.Empty(s.mem.Keys())
	})

	s.Run("committed transaction writes all collections and runs hooks", func() {
		s.SetupTest()
		hookRan := false
		err := s.store.RunInTx(s.ctx, []Collection{SystemLogs, InterviewSlots}, func(tx *Tx) error {
			s.Require().NoError(tx.Save(InterviewSlots, []slot{{ID: 3}}))
			s.Require().NoError(tx.Save(SystemLogs, []string{"entry"}))
			tx.OnCommit(func() { hookRan = true })
			return nil
		})
		s.Require().NoError(err)
		s.True(hookRan)
		s.Equal([]string{string(InterviewSlots), string(SystemLogs)}, s.mem.Keys())
	})

	s.Run("staged writes are visible to later loads", func() {
		s.SetupTest()
		err := s.store.RunInTx(s.ctx, []Collection{InterviewSlots}, func(tx *Tx) error {
			s.Require().NoError(tx.Save(InterviewSlots, []slot{{ID: 7}}))
			var got []slot
			s.Require().NoError(tx.Load(InterviewSlots, &got, seedSlots))
			s.Equal([]slot{{ID: 7}}, got)
			return nil
		})
		s.Require().NoError(err)
	})

	s.Run("collection outside the lock set is rejected", func() {
		s.SetupTest()
		err := s.store.RunInTx(s.ctx, []Collection{InterviewSlots}, func(tx *Tx) error {
			return tx.Save(Applicants, []string{})
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("cancelled context aborts", func() {
		s.SetupTest()
		ctx, cancel := context.WithCancel(s.ctx)
		cancel()
		err := s.store.RunInTx(ctx, []Collection{InterviewSlots}, func(*Tx) error { return nil })
		s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	})
}

func (s *StoreSuite) TestConcurrentIncrementsAreSerialized() {
	const writers = 50
	var wg sync.WaitGroup
	for range writers {
		wg.Go(func() {
			err := s.store.RunInTx(s.ctx, []Collection{InterviewSlots}, func(tx *Tx) error {
				var slots []slot
				if err := tx.Load(InterviewSlots, &slots, []slot{{ID: 1}}); err != nil {
					return err
				}
				slots[0].Booked++
				return tx.Save(InterviewSlots, slots)
			})
			s.NoError(err)
		})
	}
	wg.Wait()

	var slots []slot
	s.Require().NoError(s.store.Load(s.ctx, InterviewSlots, &slots, nil))
	s.Equal(writers, slots[0].Booked)
}

func (s *StoreSuite) TestResetClearsEverything() {
	s.Require().NoError(s.store.Save(s.ctx, InterviewSlots, []slot{{ID: 4}}))
	s.Require().NoError(s.store.Reset(s.ctx))
	s.Empty(s.mem.Keys())

	var got []slot
	s.Require().NoError(s.store.Load(s.ctx, InterviewSlots, &got, seedSlots))
	s.Equal(seedSlots, got)
}

func (s *StoreSuite) TestBackendOutageIsUnavailable() {
	st := New(failingBackend{})
	var got []slot
	err := st.Load(s.ctx, InterviewSlots, &got, seedSlots)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

type failingBackend struct{}

func (failingBackend) Get(context.Context, string) ([]byte, error) {
	return nil, errors.Join(sentinel.ErrUnavailable, errors.New("connection refused"))
}

func (failingBackend) SetMany(context.Context, map[string][]byte) error {
	return sentinel.ErrUnavailable
}

func (failingBackend) Clear(context.Context) error {
	return sentinel.ErrUnavailable
}
