package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testTransition builds a transition whose ids are computed from content.
func testTransition(t *testing.T, flow string, action ir.ActionRef, seq int64, outcome string) (ir.Invocation, ir.Completion) {
	t.Helper()
	inv := ir.Invocation{
		FlowToken:     flow,
		Action:        action,
		Args:          ir.IRObject{"provider_id": ir.IRInt(1), "name": ir.IRString("Green <Thumb>")},
		Caller:        "alice",
		Height:        seq * 10,
		Seq:           seq,
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
	var err error
	if inv.ID, err = ir.InvocationID(inv); err != nil {
		t.Fatalf("InvocationID() failed: %v", err)
	}
	comp := ir.Completion{
		InvocationID: inv.ID,
		OutputCase:   outcome,
		Result:       ir.IRObject{"id": ir.IRInt(seq)},
		Seq:          seq + 1,
	}
	if comp.ID, err = ir.CompletionID(comp); err != nil {
		t.Fatalf("CompletionID() failed: %v", err)
	}
	return inv, comp
}

func TestOpen_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Driver() != DriverSQLite {
		t.Errorf("Driver() = %q, want %q", s.Driver(), DriverSQLite)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"invocations", "completions"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)
	for name, want := range map[string]string{
		"journal_mode": "wal",
		"foreign_keys": "1",
		"busy_timeout": "5000",
	} {
		if err := s.verifyPragma(name, want); err != nil {
			t.Error(err)
		}
	}
}

func TestOpen_SchemaVersion(t *testing.T) {
	s := createTestStore(t)
	v, err := s.schemaVersion()
	if err != nil {
		t.Fatalf("schemaVersion() failed: %v", err)
	}
	if v != currentSchemaVersion {
		t.Errorf("schema version = %d, want %d", v, currentSchemaVersion)
	}

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name='idx_invocations_action'").Scan(&name)
	if err != nil {
		t.Errorf("migration index missing: %v", err)
	}
}

func TestOpenDriver_RejectsUnknownDriver(t *testing.T) {
	if _, err := OpenDriver("mysql", "dsn"); err == nil {
		t.Fatal("OpenDriver(mysql) should fail")
	}
}

func TestOpenDriver_PostgresUsesPgx(t *testing.T) {
	var gotDriver string
	orig := sqlOpen
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		gotDriver = driver
		return nil, errors.New("no server")
	}
	t.Cleanup(func() { sqlOpen = orig })

	if _, err := OpenDriver(DriverPostgres, "postgres://localhost/mulch"); err == nil {
		t.Fatal("expected open error")
	}
	if gotDriver != "pgx" {
		t.Errorf("driver = %q, want pgx", gotDriver)
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	got := pg.rebind("SELECT * FROM invocations WHERE flow_token = ? AND seq > ?")
	want := "SELECT * FROM invocations WHERE flow_token = $1 AND seq > $2"
	if got != want {
		t.Errorf("rebind() = %q, want %q", got, want)
	}

	lite := &Store{driver: DriverSQLite}
	if q := "SELECT ?"; lite.rebind(q) != q {
		t.Errorf("sqlite rebind changed query: %q", lite.rebind(q))
	}
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(schemaPostgres)
	if len(stmts) != 4 {
		t.Fatalf("got %d statements, want 4: %q", len(stmts), stmts)
	}
	for _, stmt := range splitStatements(schemaSQLite) {
		if len(stmt) > 1 && stmt[:2] == "--" {
			t.Errorf("comment leaked into statement: %q", stmt)
		}
	}
}

func TestWriteTransition_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	inv, comp := testTransition(t, "flow-a", "Provider.register", 1, ir.CaseSuccess)

	if err := s.WriteTransition(ctx, inv, comp); err != nil {
		t.Fatalf("WriteTransition() failed: %v", err)
	}

	got, err := s.ReadInvocation(ctx, inv.ID)
	if err != nil {
		t.Fatalf("ReadInvocation() failed: %v", err)
	}
	if got.Invocation.Caller != "alice" || got.Invocation.Height != 10 {
		t.Errorf("invocation = %+v", got.Invocation)
	}
	if got.Invocation.Args["name"] != ir.IRString("Green <Thumb>") {
		t.Errorf("args = %v", got.Invocation.Args)
	}
	if got.Completion.ID != comp.ID || got.Completion.OutputCase != ir.CaseSuccess {
		t.Errorf("completion = %+v", got.Completion)
	}

	// Stored rows still hash to their ids.
	if id, _ := ir.InvocationID(got.Invocation); id != inv.ID {
		t.Errorf("stored invocation hashes to %s, want %s", id, inv.ID)
	}
	if id, _ := ir.CompletionID(got.Completion); id != comp.ID {
		t.Errorf("stored completion hashes to %s, want %s", id, comp.ID)
	}
}

func TestWriteTransition_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	inv, comp := testTransition(t, "flow-a", "Provider.register", 1, ir.CaseSuccess)

	for i := 0; i < 2; i++ {
		if err := s.WriteTransition(ctx, inv, comp); err != nil {
			t.Fatalf("WriteTransition() #%d failed: %v", i, err)
		}
	}
	all, err := s.ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ReadAll() returned %d transitions, want 1", len(all))
	}
}

func TestWriteTransition_Atomic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	inv, comp := testTransition(t, "flow-a", "Provider.register", 1, ir.CaseSuccess)
	if err := s.WriteTransition(ctx, inv, comp); err != nil {
		t.Fatalf("WriteTransition() failed: %v", err)
	}

	// A second invocation whose completion collides on seq must leave no
	// invocation row behind.
	inv2, comp2 := testTransition(t, "flow-b", "Booking.book", 3, ir.CaseSuccess)
	comp2.Seq = comp.Seq
	if err := s.WriteTransition(ctx, inv2, comp2); err == nil {
		t.Fatal("expected unique seq violation")
	}

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM invocations").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("invocations = %d after failed write, want 1", n)
	}
}

func TestWriteTransition_RejectsMismatchedCompletion(t *testing.T) {
	s := createTestStore(t)
	inv, comp := testTransition(t, "flow-a", "Provider.register", 1, ir.CaseSuccess)
	comp.InvocationID = "other"
	if err := s.WriteTransition(context.Background(), inv, comp); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestReadFlowAndAction(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	writes := []struct {
		flow   string
		action ir.ActionRef
		seq    int64
		out    string
	}{
		{"flow-a", "Provider.register", 1, ir.CaseSuccess},
		{"flow-b", "Booking.book", 3, "InsufficientPayment"},
		{"flow-a", "Booking.book", 5, ir.CaseSuccess},
	}
	for _, w := range writes {
		inv, comp := testTransition(t, w.flow, w.action, w.seq, w.out)
		if err := s.WriteTransition(ctx, inv, comp); err != nil {
			t.Fatalf("WriteTransition(%d) failed: %v", w.seq, err)
		}
	}

	flow, err := s.ReadFlow(ctx, "flow-a")
	if err != nil {
		t.Fatalf("ReadFlow() failed: %v", err)
	}
	if len(flow) != 2 || flow[0].Invocation.Seq != 1 || flow[1].Invocation.Seq != 5 {
		t.Errorf("ReadFlow(flow-a) = %+v", flow)
	}

	none, err := s.ReadFlow(ctx, "missing")
	if err != nil {
		t.Fatalf("ReadFlow() failed: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("ReadFlow(missing) = %#v, want empty slice", none)
	}

	books, err := s.ReadAction(ctx, "Booking.book")
	if err != nil {
		t.Fatalf("ReadAction() failed: %v", err)
	}
	if len(books) != 2 {
		t.Errorf("ReadAction() returned %d, want 2", len(books))
	}

	head, err := s.ReadHead(ctx)
	if err != nil {
		t.Fatalf("ReadHead() failed: %v", err)
	}
	if head.Seq != 6 || head.Height != 50 || head.Transitions != 3 {
		t.Errorf("ReadHead() = %+v", head)
	}

	counts, err := s.OutcomeCounts(ctx)
	if err != nil {
		t.Fatalf("OutcomeCounts() failed: %v", err)
	}
	if counts[ir.CaseSuccess] != 2 || counts["InsufficientPayment"] != 1 {
		t.Errorf("OutcomeCounts() = %v", counts)
	}
}

func TestReadInvocation_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadInvocation(context.Background(), "nope")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadInvocation() error = %v, want sql.ErrNoRows", err)
	}
}

func TestReadHead_Empty(t *testing.T) {
	s := createTestStore(t)
	head, err := s.ReadHead(context.Background())
	if err != nil {
		t.Fatalf("ReadHead() failed: %v", err)
	}
	if head != (Head{}) {
		t.Errorf("ReadHead() = %+v, want zero", head)
	}
}
