package catalog

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"libris/internal/model"
	"libris/internal/store"
)

// testService creates a catalog service over a temporary database.
func testService(t *testing.T) *Service {
	t.Helper()

	f, err := os.CreateTemp("", "libris-catalog-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db); err != nil {
		db.Close()
		os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})

	return New(db)
}

func year(y int64) sql.NullInt64 {
	return sql.NullInt64{Int64: y, Valid: true}
}

func mustCreateBook(t *testing.T, svc *Service, title, author string) int64 {
	t.Helper()
	id, err := svc.CreateBook(context.Background(), title, author, year(2000))
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	return id
}

func TestCreateBook(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	id, err := svc.CreateBook(ctx, "Dune", "Frank Herbert", year(1965))
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	book, ok := svc.GetBook(ctx, id)
	if !ok {
		t.Fatal("GetBook: not found")
	}
	if book.Title != "Dune" {
		t.Errorf("Title = %q, want Dune", book.Title)
	}
	if !book.Available {
		t.Error("new book must be available")
	}
}

func TestCreateBook_Validation(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if _, err := svc.CreateBook(ctx, "", "Author", year(2000)); err == nil {
		t.Error("expected error for empty title")
	}
	if _, err := svc.CreateBook(ctx, "Title", "", year(2000)); err == nil {
		t.Error("expected error for empty author")
	}
	if _, err := svc.CreateBook(ctx, "   ", "Author", year(2000)); err == nil {
		t.Error("expected error for whitespace title")
	}

	if got := svc.ListBooks(ctx); len(got) != 0 {
		t.Errorf("rejected books must not be stored, got %d", len(got))
	}
}

func TestListBooks_TitleOrder(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	mustCreateBook(t, svc, "Zorba the Greek", "Nikos Kazantzakis")
	mustCreateBook(t, svc, "animal Farm", "George Orwell")
	mustCreateBook(t, svc, "Brave New World", "Aldous Huxley")

	books := svc.ListBooks(ctx)
	if len(books) != 3 {
		t.Fatalf("len(books) = %d, want 3", len(books))
	}
	if books[0].Title != "animal Farm" || books[2].Title != "Zorba the Greek" {
		t.Errorf("unexpected order: %q, %q, %q", books[0].Title, books[1].Title, books[2].Title)
	}
}

func TestSearchBooks(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	mustCreateBook(t, svc, "1984", "George Orwell")
	mustCreateBook(t, svc, "Animal Farm", "George Orwell")
	mustCreateBook(t, svc, "Brave New World", "Aldous Huxley")

	if got := svc.SearchBooks(ctx, "orwell"); len(got) != 2 {
		t.Errorf("author search: len = %d, want 2", len(got))
	}
	if got := svc.SearchBooks(ctx, "1984"); len(got) != 1 {
		t.Errorf("title search: len = %d, want 1", len(got))
	}
	if got := svc.SearchBooks(ctx, "Tolkien"); len(got) != 0 {
		t.Errorf("miss search: len = %d, want 0", len(got))
	}
	// Empty query returns the full catalog
	if got := svc.SearchBooks(ctx, "  "); len(got) != 3 {
		t.Errorf("empty search: len = %d, want 3", len(got))
	}
}

func TestBorrowReturn_Lifecycle(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	id := mustCreateBook(t, svc, "Dune", "Frank Herbert")

	if !svc.Borrow(ctx, id, "Regular User (user)") {
		t.Fatal("borrow of available book should succeed")
	}

	book, _ := svc.GetBook(ctx, id)
	if book.Available {
		t.Error("borrowed book must not be available")
	}

	loans := svc.ListActiveLoans(ctx)
	if len(loans) != 1 {
		t.Fatalf("len(loans) = %d, want 1", len(loans))
	}
	if loans[0].Borrower != "Regular User (user)" {
		t.Errorf("Borrower = %q", loans[0].Borrower)
	}

	if !svc.Return(ctx, id) {
		t.Fatal("return of borrowed book should succeed")
	}

	book, _ = svc.GetBook(ctx, id)
	if !book.Available {
		t.Error("returned book must be available")
	}
	if loans := svc.ListActiveLoans(ctx); len(loans) != 0 {
		t.Errorf("len(loans) = %d, want 0 after return", len(loans))
	}
}

func TestBorrow_Conflicts(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	id := mustCreateBook(t, svc, "Dune", "Frank Herbert")

	if !svc.Borrow(ctx, id, "First (a)") {
		t.Fatal("first borrow should succeed")
	}
	if svc.Borrow(ctx, id, "Second (b)") {
		t.Error("borrow of borrowed book must fail")
	}
	if svc.Borrow(ctx, 99999, "Ghost (g)") {
		t.Error("borrow of unknown book must fail")
	}
	if svc.Borrow(ctx, id, "  ") {
		t.Error("borrow with empty borrower must fail")
	}

	// The losing borrow must not leave a loan behind.
	if loans := svc.ListActiveLoans(ctx); len(loans) != 1 {
		t.Errorf("len(loans) = %d, want 1", len(loans))
	}
}

func TestReturn_Conflicts(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	id := mustCreateBook(t, svc, "Dune", "Frank Herbert")

	if svc.Return(ctx, id) {
		t.Error("return of available book must fail")
	}
	if svc.Return(ctx, 99999) {
		t.Error("return of unknown book must fail")
	}

	if !svc.Borrow(ctx, id, "Reader (user)") {
		t.Fatal("Borrow failed")
	}
	if !svc.Return(ctx, id) {
		t.Fatal("Return failed")
	}
	if svc.Return(ctx, id) {
		t.Error("second return must fail")
	}
}

func TestBorrow_ConcurrentSingleWinner(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	id := mustCreateBook(t, svc, "Dune", "Frank Herbert")

	const attempts = 10
	var wg sync.WaitGroup
	results := make([]bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			results[n] = svc.Borrow(ctx, id, "Racer (user)")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, ok := range results {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
	if loans := svc.ListActiveLoans(ctx); len(loans) != 1 {
		t.Errorf("len(loans) = %d, want 1", len(loans))
	}
}

func TestBorrowReturn_RoundTripStats(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	for _, title := range []string{"A", "B", "C"} {
		mustCreateBook(t, svc, title, "Author")
	}
	books := svc.ListBooks(ctx)

	before := svc.Stats(ctx)
	if before.TotalBooks != 3 || before.AvailableBooks != 3 || before.BorrowedBooks != 0 {
		t.Fatalf("unexpected initial stats: %+v", before)
	}

	if !svc.Borrow(ctx, books[0].ID, "Reader (user)") {
		t.Fatal("Borrow failed")
	}

	mid := svc.Stats(ctx)
	if mid.AvailableBooks != 2 || mid.BorrowedBooks != 1 {
		t.Errorf("stats after borrow: %+v", mid)
	}

	if !svc.Return(ctx, books[0].ID) {
		t.Fatal("Return failed")
	}

	after := svc.Stats(ctx)
	if after != before {
		t.Errorf("stats after round trip = %+v, want %+v", after, before)
	}
}

func TestUpdateBook_PreservesAvailability(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	id := mustCreateBook(t, svc, "Dune", "Frank Herbert")
	if !svc.Borrow(ctx, id, "Reader (user)") {
		t.Fatal("Borrow failed")
	}

	if !svc.UpdateBook(ctx, id, "Dune (Revised)", "Frank Herbert", year(1965)) {
		t.Fatal("UpdateBook failed")
	}

	book, _ := svc.GetBook(ctx, id)
	if book.Title != "Dune (Revised)" {
		t.Errorf("Title = %q", book.Title)
	}
	if book.Available {
		t.Error("UpdateBook must not change availability")
	}
}

func TestUpdateBook_Missing(t *testing.T) {
	svc := testService(t)

	if svc.UpdateBook(context.Background(), 99999, "T", "A", year(2000)) {
		t.Error("update of unknown book must fail")
	}
}

func TestDeleteBook(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	id := mustCreateBook(t, svc, "Dune", "Frank Herbert")

	if !svc.DeleteBook(ctx, id) {
		t.Fatal("DeleteBook failed")
	}
	if _, ok := svc.GetBook(ctx, id); ok {
		t.Error("deleted book still present")
	}
	if svc.DeleteBook(ctx, id) {
		t.Error("second delete must fail")
	}
}

func TestCreateUser(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	ok := svc.CreateUser(ctx, "reader", "secret", model.RoleUser, "Test Reader",
		sql.NullString{String: "reader@example.com", Valid: true})
	if !ok {
		t.Fatal("CreateUser failed")
	}

	// Duplicate username
	if svc.CreateUser(ctx, "reader", "other", model.RoleUser, "Other Reader", sql.NullString{}) {
		t.Error("duplicate username must fail")
	}

	// Invalid role
	if svc.CreateUser(ctx, "boss", "secret", "superadmin", "The Boss", sql.NullString{}) {
		t.Error("invalid role must fail")
	}

	// Empty fields
	if svc.CreateUser(ctx, "", "secret", model.RoleUser, "No Name", sql.NullString{}) {
		t.Error("empty username must fail")
	}

	if users := svc.ListUsers(ctx); len(users) != 1 {
		t.Errorf("len(users) = %d, want 1", len(users))
	}
}

func TestAuthenticate(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	if !svc.CreateUser(ctx, "reader", "secret", model.RoleUser, "Test Reader", sql.NullString{}) {
		t.Fatal("CreateUser failed")
	}

	user, ok := svc.Authenticate(ctx, "reader", "secret")
	if !ok {
		t.Fatal("Authenticate failed for correct credentials")
	}
	if user.Username != "reader" {
		t.Errorf("Username = %q", user.Username)
	}
	if user.DisplayIdentity() != "Test Reader (reader)" {
		t.Errorf("DisplayIdentity = %q", user.DisplayIdentity())
	}

	if _, ok := svc.Authenticate(ctx, "reader", "wrong"); ok {
		t.Error("wrong password must fail")
	}
	if _, ok := svc.Authenticate(ctx, "ghost", "secret"); ok {
		t.Error("unknown user must fail")
	}
}

func TestAuthenticate_LegacyHashUpgrade(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	// Simulate an account imported from the old system with an unsalted
	// SHA-256 password digest.
	q := store.New(svc.db)
	legacy, err := q.CreateUser(ctx, store.CreateUserParams{
		Username:     "oldtimer",
		PasswordHash: "240be518fabd2724ddb6f04eeb1da5967448d7e831c08c8fa822809f74c720a9", // sha256("admin123")
		Role:         model.RoleAdmin,
		FullName:     "Old Timer",
		CreatedDate:  time.Now(),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	user, ok := svc.Authenticate(ctx, "oldtimer", "admin123")
	if !ok {
		t.Fatal("Authenticate must accept the legacy digest")
	}
	if user.ID != legacy.ID {
		t.Errorf("ID = %d, want %d", user.ID, legacy.ID)
	}

	// The hash must now be argon2id.
	upgraded, err := q.GetUserByID(ctx, legacy.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if upgraded.PasswordHash == legacy.PasswordHash {
		t.Error("legacy hash was not upgraded on login")
	}

	// And the password still works.
	if _, ok := svc.Authenticate(ctx, "oldtimer", "admin123"); !ok {
		t.Error("Authenticate must still succeed after rehash")
	}
}

func TestStats_Empty(t *testing.T) {
	svc := testService(t)

	st := svc.Stats(context.Background())
	if st.TotalBooks != 0 || st.AvailableBooks != 0 || st.BorrowedBooks != 0 {
		t.Errorf("stats on empty catalog = %+v, want zeros", st)
	}
}
