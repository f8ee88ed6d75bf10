package transaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
)

// stubAuthorizer accepts the tags it lists and answers Invalid otherwise.
type stubAuthorizer map[string]ocpp.AuthorizationStatus

func (s stubAuthorizer) Authorize(_ context.Context, key string) ocpp.IDTagInfo {
	if status, ok := s[key]; ok {
		return ocpp.IDTagInfo{Status: status}
	}
	return ocpp.IDTagInfo{Status: ocpp.AuthorizationInvalid}
}

type recordingPublisher struct {
	mu      sync.Mutex
	started []int
	stopped []int
}

func (p *recordingPublisher) SessionStarted(_ context.Context, s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, s.ID)
}

func (p *recordingPublisher) SessionStopped(_ context.Context, s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = append(p.stopped, s.ID)
}

type recordingDataRecorder struct {
	sessionID int
	values    int
}

func (r *recordingDataRecorder) RecordSessionValues(_ context.Context, s *Session, values []ocpp.MeterValue) int {
	r.sessionID = s.ID
	r.values = len(values)
	return len(values)
}

// failingRepository fails every call with err.
type failingRepository struct {
	err error
}

func (f failingRepository) Create(context.Context, *Session) (*Session, error) {
	return nil, f.err
}

func (f failingRepository) GetByID(context.Context, int) (*Session, error) {
	return nil, f.err
}

func (f failingRepository) Close(context.Context, *Session) error {
	return f.err
}

func (f failingRepository) FindOpen(context.Context, string, int) (*Session, error) {
	return nil, f.err
}

func (f failingRepository) ListOpen(context.Context, string) ([]Session, error) {
	return nil, f.err
}

func newTestManager(t *testing.T) (*Manager, *SQLiteRepository, *recordingPublisher) {
	t.Helper()
	repo := setupTestRepo(t)
	auth := stubAuthorizer{
		"TAG1":   ocpp.AuthorizationAccepted,
		"TAG2":   ocpp.AuthorizationAccepted,
		"BANNED": ocpp.AuthorizationBlocked,
	}
	pub := &recordingPublisher{}
	m := NewManager(repo, auth)
	m.SetEventPublisher(pub)
	return m, repo, pub
}

func TestManager_Start(t *testing.T) {
	m, repo, pub := newTestManager(t)
	ctx := context.Background()

	res := m.Start(ctx, StartRequest{StationID: "CP1", ConnectorID: 1, IDTag: "TAG1", MeterStart: 0, Timestamp: t0})
	if res.SessionID <= 0 {
		t.Fatalf("SessionID = %d, want > 0", res.SessionID)
	}
	if res.IDTagInfo.Status != ocpp.AuthorizationAccepted {
		t.Errorf("Status = %v, want Accepted", res.IDTagInfo.Status)
	}
	if len(pub.started) != 1 || pub.started[0] != res.SessionID {
		t.Errorf("started events = %v", pub.started)
	}

	s, err := repo.GetByID(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !s.Open() || s.StationID != "CP1" || s.ConnectorID != 1 || !s.StartTime.Equal(t0) {
		t.Errorf("stored session = %+v", s)
	}
}

func TestManager_Start_RejectedTagCreatesNothing(t *testing.T) {
	m, repo, _ := newTestManager(t)
	ctx := context.Background()

	for _, tag := range []string{"BANNED", "UNKNOWN"} {
		res := m.Start(ctx, StartRequest{StationID: "CP1", ConnectorID: 1, IDTag: tag, Timestamp: t0})
		if res.SessionID != 0 {
			t.Errorf("%s: SessionID = %d, want 0", tag, res.SessionID)
		}
		if res.IDTagInfo.Status == ocpp.AuthorizationAccepted {
			t.Errorf("%s: Status = Accepted", tag)
		}
	}
	if got := countOpen(t, repo, "CP1", 1); got != 0 {
		t.Errorf("open sessions = %d, want 0", got)
	}
}

func TestManager_Start_StoreFailure(t *testing.T) {
	m := NewManager(failingRepository{err: errors.New("database is locked")}, stubAuthorizer{"TAG1": ocpp.AuthorizationAccepted})

	res := m.Start(context.Background(), StartRequest{StationID: "CP1", ConnectorID: 1, IDTag: "TAG1", Timestamp: t0})
	if res.SessionID != 0 || res.IDTagInfo.Status != ocpp.AuthorizationConcurrentTx {
		t.Errorf("Start() = %+v, want id 0 and ConcurrentTx", res)
	}
}

func TestManager_Start_SecondStartOnOccupiedConnector(t *testing.T) {
	m, repo, pub := newTestManager(t)
	ctx := context.Background()

	first := m.Start(ctx, StartRequest{StationID: "CP1", ConnectorID: 1, IDTag: "TAG1", MeterStart: 0, Timestamp: t0})
	second := m.Start(ctx, StartRequest{StationID: "CP1", ConnectorID: 1, IDTag: "TAG2", MeterStart: 400, Timestamp: t0.Add(time.Minute)})

	if second.SessionID <= 0 || second.SessionID == first.SessionID {
		t.Fatalf("second SessionID = %d (first %d)", second.SessionID, first.SessionID)
	}
	if second.IDTagInfo.Status != ocpp.AuthorizationAccepted {
		t.Errorf("second Status = %v, want Accepted", second.IDTagInfo.Status)
	}
	if got := countOpen(t, repo, "CP1", 1); got != 1 {
		t.Errorf("open sessions = %d, want 1", got)
	}
	if len(pub.stopped) != 1 || pub.stopped[0] != first.SessionID {
		t.Errorf("stopped events = %v, want [%d]", pub.stopped, first.SessionID)
	}
}

func TestManager_Stop(t *testing.T) {
	m, repo, pub := newTestManager(t)
	ctx := context.Background()
	t1 := t0.Add(45 * time.Minute)

	start := m.Start(ctx, StartRequest{StationID: "CP1", ConnectorID: 1, IDTag: "TAG1", MeterStart: 50, Timestamp: t0})

	info := m.Stop(ctx, StopRequest{StationID: "CP1", SessionID: start.SessionID, MeterStop: 250, Timestamp: t1})
	if info.Status != ocpp.AuthorizationAccepted {
		t.Fatalf("Stop() status = %v, want Accepted", info.Status)
	}

	s, err := repo.GetByID(ctx, start.SessionID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if s.EndTime == nil || !s.EndTime.Equal(t1) {
		t.Errorf("EndTime = %v, want %v", s.EndTime, t1)
	}
	if s.EnergyKWh == nil || *s.EnergyKWh != 0.2 {
		t.Errorf("EnergyKWh = %v, want 0.2", s.EnergyKWh)
	}
	if s.StopReason != ocpp.ReasonLocal {
		t.Errorf("StopReason = %v, want Local by default", s.StopReason)
	}
	if len(pub.stopped) != 1 {
		t.Errorf("stopped events = %v", pub.stopped)
	}

	t.Run("second stop is invalid and changes nothing", func(t *testing.T) {
		info := m.Stop(ctx, StopRequest{StationID: "CP1", SessionID: start.SessionID, MeterStop: 250, Timestamp: t1})
		if info.Status != ocpp.AuthorizationInvalid {
			t.Errorf("second Stop() status = %v, want Invalid", info.Status)
		}
		again, err := repo.GetByID(ctx, start.SessionID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if !again.EndTime.Equal(*s.EndTime) || *again.MeterStop != *s.MeterStop || *again.EnergyKWh != *s.EnergyKWh {
			t.Errorf("row changed: %+v", again)
		}
		if len(pub.stopped) != 1 {
			t.Errorf("stopped events = %v, want one", pub.stopped)
		}
	})
}

func TestManager_Stop_Outcomes(t *testing.T) {
	m, repo, _ := newTestManager(t)
	ctx := context.Background()

	t.Run("unknown session is expired", func(t *testing.T) {
		info := m.Stop(ctx, StopRequest{StationID: "CP1", SessionID: 424242, MeterStop: 1, Timestamp: t0})
		if info.Status != ocpp.AuthorizationExpired {
			t.Errorf("Status = %v, want Expired", info.Status)
		}
	})

	t.Run("meter going backwards leaves energy unset", func(t *testing.T) {
		start := m.Start(ctx, StartRequest{StationID: "CP1", ConnectorID: 2, IDTag: "TAG1", MeterStart: 900, Timestamp: t0})
		info := m.Stop(ctx, StopRequest{StationID: "CP1", SessionID: start.SessionID, MeterStop: 100, Timestamp: t0.Add(time.Minute)})
		if info.Status != ocpp.AuthorizationAccepted {
			t.Fatalf("Status = %v, want Accepted", info.Status)
		}
		s, err := repo.GetByID(ctx, start.SessionID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if s.Open() || s.EnergyKWh != nil {
			t.Errorf("session = %+v, want closed with nil energy", s)
		}
	})

	t.Run("another station cannot stop the session", func(t *testing.T) {
		start := m.Start(ctx, StartRequest{StationID: "CP1", ConnectorID: 3, IDTag: "TAG1", Timestamp: t0})
		info := m.Stop(ctx, StopRequest{StationID: "CP2", SessionID: start.SessionID, MeterStop: 10, Timestamp: t0})
		if info.Status != ocpp.AuthorizationInvalid {
			t.Errorf("Status = %v, want Invalid", info.Status)
		}
		s, err := repo.GetByID(ctx, start.SessionID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if !s.Open() {
			t.Error("session should still be open")
		}
	})

	t.Run("presented tag is re-validated", func(t *testing.T) {
		start := m.Start(ctx, StartRequest{StationID: "CP1", ConnectorID: 4, IDTag: "TAG1", Timestamp: t0})
		info := m.Stop(ctx, StopRequest{StationID: "CP1", SessionID: start.SessionID, IDTag: "BANNED", MeterStop: 10, Timestamp: t0})
		if info.Status != ocpp.AuthorizationBlocked {
			t.Errorf("Status = %v, want Blocked", info.Status)
		}
		s, err := repo.GetByID(ctx, start.SessionID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if s.Open() {
			t.Error("session should be closed regardless of the tag status")
		}
	})

	t.Run("store failure is invalid", func(t *testing.T) {
		broken := NewManager(failingRepository{err: errors.New("disk I/O error")}, stubAuthorizer{})
		info := broken.Stop(ctx, StopRequest{StationID: "CP1", SessionID: 1, Timestamp: t0})
		if info.Status != ocpp.AuthorizationInvalid {
			t.Errorf("Status = %v, want Invalid", info.Status)
		}
	})
}

func TestManager_Stop_TransactionData(t *testing.T) {
	m, _, _ := newTestManager(t)
	rec := &recordingDataRecorder{}
	m.SetDataRecorder(rec)
	ctx := context.Background()

	start := m.Start(ctx, StartRequest{StationID: "CP1", ConnectorID: 1, IDTag: "TAG1", Timestamp: t0})
	data := []ocpp.MeterValue{
		{Timestamp: ocpp.NewDateTime(t0), SampledValue: []ocpp.SampledValue{{Value: "0"}}},
		{Timestamp: ocpp.NewDateTime(t0.Add(time.Minute)), SampledValue: []ocpp.SampledValue{{Value: "120"}}},
	}
	m.Stop(ctx, StopRequest{StationID: "CP1", SessionID: start.SessionID, MeterStop: 120, Timestamp: t0.Add(time.Minute), TransactionData: data})

	if rec.sessionID != start.SessionID || rec.values != 2 {
		t.Errorf("recorder got session %d with %d values", rec.sessionID, rec.values)
	}
}
