package meter

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/ocpp-gateway/internal/infrastructure/database"
	"github.com/nerrad567/ocpp-gateway/internal/ocpp"
	"github.com/nerrad567/ocpp-gateway/internal/transaction"
	_ "github.com/nerrad567/ocpp-gateway/migrations"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	readings *SQLiteRepository
	sessions *transaction.SQLiteRepository
	ingestor *Ingestor
	sink     *recordingSink
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "meter.db"), WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	f := &fixture{
		readings: NewSQLiteRepository(db.DB),
		sessions: transaction.NewSQLiteRepository(db.DB),
		sink:     &recordingSink{},
	}
	f.ingestor = NewIngestor(f.readings, f.sessions)
	f.ingestor.SetSink(f.sink)
	return f
}

func (f *fixture) openSession(t *testing.T, station string, connector int) *transaction.Session {
	t.Helper()
	s := &transaction.Session{StationID: station, ConnectorID: connector, IDTag: "TAG1", StartTime: t0}
	if _, err := f.sessions.Create(context.Background(), s); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return s
}

type recordingSink struct {
	mu       sync.Mutex
	readings []Reading
	err      error
}

func (s *recordingSink) WriteMeterReading(_ context.Context, r Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, r)
	return s.err
}

func sample(values ...string) []ocpp.MeterValue {
	svs := make([]ocpp.SampledValue, 0, len(values))
	for _, v := range values {
		svs = append(svs, ocpp.SampledValue{Value: v})
	}
	return []ocpp.MeterValue{{Timestamp: ocpp.NewDateTime(t0.Add(time.Minute)), SampledValue: svs}}
}

func intPtr(v int) *int { return &v }

func TestIngest_ResolvesOpenSessionByConnector(t *testing.T) {
	f := setup(t)
	s := f.openSession(t, "CP1", 1)

	stored := f.ingestor.Ingest(context.Background(), "CP1", &ocpp.MeterValuesRequest{
		ConnectorID: 1,
		MeterValue:  sample("1200", "1300"),
	})
	if stored != 2 {
		t.Fatalf("Ingest() = %d, want 2", stored)
	}

	list, err := f.readings.ListBySession(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("readings = %d, want 2", len(list))
	}
	rd := list[0]
	if rd.Measurand != DefaultMeasurand || rd.Unit != DefaultUnit || rd.Context != DefaultContext {
		t.Errorf("defaults not applied: %+v", rd)
	}
	if !rd.Timestamp.Equal(t0.Add(time.Minute)) {
		t.Errorf("Timestamp = %v", rd.Timestamp)
	}
	if len(f.sink.readings) != 2 {
		t.Errorf("sink got %d readings, want 2", len(f.sink.readings))
	}
}

func TestIngest_ExplicitTransactionID(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	onOne := f.openSession(t, "CP1", 1)
	onTwo := f.openSession(t, "CP1", 2)
	foreign := f.openSession(t, "CP2", 1)

	t.Run("open session of the station wins", func(t *testing.T) {
		stored := f.ingestor.Ingest(ctx, "CP1", &ocpp.MeterValuesRequest{
			ConnectorID: 1, TransactionID: intPtr(onTwo.ID), MeterValue: sample("10"),
		})
		if stored != 1 {
			t.Fatalf("Ingest() = %d, want 1", stored)
		}
		list, _ := f.readings.ListBySession(ctx, onTwo.ID) //nolint:errcheck // checked by length
		if len(list) != 1 {
			t.Errorf("readings on explicit session = %d, want 1", len(list))
		}
	})

	t.Run("foreign session falls back to connector", func(t *testing.T) {
		f.ingestor.Ingest(ctx, "CP1", &ocpp.MeterValuesRequest{
			ConnectorID: 1, TransactionID: intPtr(foreign.ID), MeterValue: sample("20"),
		})
		list, _ := f.readings.ListBySession(ctx, foreign.ID) //nolint:errcheck // checked by length
		if len(list) != 0 {
			t.Errorf("foreign session got %d readings", len(list))
		}
		list, _ = f.readings.ListBySession(ctx, onOne.ID) //nolint:errcheck // checked by length
		if len(list) != 1 {
			t.Errorf("connector session readings = %d, want 1", len(list))
		}
	})

	t.Run("unknown id falls back to connector", func(t *testing.T) {
		stored := f.ingestor.Ingest(ctx, "CP1", &ocpp.MeterValuesRequest{
			ConnectorID: 2, TransactionID: intPtr(99999), MeterValue: sample("30"),
		})
		if stored != 1 {
			t.Errorf("Ingest() = %d, want 1", stored)
		}
	})
}

func TestIngest_DropsWithoutSession(t *testing.T) {
	f := setup(t)

	stored := f.ingestor.Ingest(context.Background(), "CP1", &ocpp.MeterValuesRequest{
		ConnectorID: 1,
		MeterValue:  sample("5"),
	})
	if stored != 0 {
		t.Errorf("Ingest() = %d, want 0", stored)
	}
	if len(f.sink.readings) != 0 {
		t.Errorf("sink got %d readings, want 0", len(f.sink.readings))
	}
}

func TestIngest_ClosedSessionIsNotResolved(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	s := f.openSession(t, "CP1", 1)

	// Opening a new session on the connector closes the first one.
	f.openSession(t, "CP1", 1)

	f.ingestor.Ingest(ctx, "CP1", &ocpp.MeterValuesRequest{
		ConnectorID: 3, TransactionID: intPtr(s.ID), MeterValue: sample("7"),
	})
	list, err := f.readings.ListBySession(ctx, s.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("closed session got %d readings", len(list))
	}
}

func TestIngest_SkipsBadSamplesAndSinkErrors(t *testing.T) {
	f := setup(t)
	s := f.openSession(t, "CP1", 1)
	f.sink.err = errors.New("influx down")

	stored := f.ingestor.Ingest(context.Background(), "CP1", &ocpp.MeterValuesRequest{
		ConnectorID: 1,
		MeterValue:  sample("100", "", "300"),
	})
	if stored != 2 {
		t.Errorf("Ingest() = %d, want 2 (empty value rejected)", stored)
	}
	list, err := f.readings.ListBySession(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("stored = %d, want 2", len(list))
	}
}

func TestRecordSessionValues(t *testing.T) {
	f := setup(t)
	s := f.openSession(t, "CP1", 4)

	values := []ocpp.MeterValue{{
		Timestamp: ocpp.NewDateTime(t0),
		SampledValue: []ocpp.SampledValue{
			{Value: "0", Context: "Transaction.Begin"},
			{Value: "16.1", Measurand: "Current.Import", Unit: "A", Phase: "L1"},
		},
	}}
	if got := f.ingestor.RecordSessionValues(context.Background(), s, values); got != 2 {
		t.Fatalf("RecordSessionValues() = %d, want 2", got)
	}

	list, err := f.readings.ListBySession(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(list) != 2 || list[0].ConnectorID != 4 {
		t.Fatalf("readings = %+v", list)
	}
	var current *Reading
	for i := range list {
		if list[i].Measurand == "Current.Import" {
			current = &list[i]
		}
	}
	if current == nil || current.Unit != "A" || current.Phase != "L1" {
		t.Errorf("current reading = %+v", current)
	}
}
