package mapping

import (
	"testing"

	"go.uber.org/zap/zaptest"
	"go.viam.com/test"

	"github.com/soar/padkit/backend"
	"github.com/soar/padkit/event"
)

const testGUID = "03000000010000000100000001000000"

func testDB(t *testing.T) *Database {
	t.Helper()
	return NewDatabase(zaptest.NewLogger(t).Sugar())
}

func TestDatabaseInsertLookup(t *testing.T) {
	db := testDB(t)
	err := db.Insert(testGUID+",Pad,a:b0,", SourceUser)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, db.Len(), test.ShouldEqual, 1)

	u, err := backend.ParseGUID(testGUID)
	test.That(t, err, test.ShouldBeNil)
	m, ok := db.Lookup(u)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, m.Name(), test.ShouldEqual, "Pad")

	_, ok = db.Lookup(backend.GUIDFromIDs(3, 0xdead, 0xbeef, 1))
	test.That(t, ok, test.ShouldBeFalse)
}

func TestDatabaseSourcePriority(t *testing.T) {
	db := testDB(t)
	u, err := backend.ParseGUID(testGUID)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, db.Insert(testGUID+",Bundled,a:b0,", SourceBundled), test.ShouldBeNil)
	test.That(t, db.Insert(testGUID+",User,a:b0,", SourceUser), test.ShouldBeNil)

	// A lower-ranked source never displaces a higher one.
	test.That(t, db.Insert(testGUID+",Env,a:b0,", SourceEnv), test.ShouldBeNil)
	m, _ := db.Lookup(u)
	test.That(t, m.Name(), test.ShouldEqual, "User")

	// Within the same source, last insert wins.
	test.That(t, db.Insert(testGUID+",User2,a:b0,", SourceUser), test.ShouldBeNil)
	m, _ = db.Lookup(u)
	test.That(t, m.Name(), test.ShouldEqual, "User2")
	test.That(t, db.Len(), test.ShouldEqual, 1)
}

func TestDatabaseSkipsForeignPlatform(t *testing.T) {
	if currentPlatform == "" {
		t.Skip("unmapped platform accepts every record")
	}
	db := testDB(t)
	err := db.Insert(testGUID+",Pad,a:b0,platform:Atari,", SourceUser)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, db.Len(), test.ShouldEqual, 0)
}

func TestDatabaseInsertAll(t *testing.T) {
	db := testDB(t)
	text := "# comment\n" +
		"\n" +
		testGUID + ",Pad,a:b0,\n" +
		"not a mapping\n" +
		"030000000200000002000000020000000,Bad GUID Pad,a:b0,\n" +
		"03000000020000000200000002000000,Other Pad,b:b1,\n"
	n := db.InsertAll(text, SourceEnv)
	test.That(t, n, test.ShouldEqual, 2)
	test.That(t, db.Len(), test.ShouldEqual, 2)
}

func TestDatabaseBundled(t *testing.T) {
	if currentPlatform != "Linux" {
		t.Skip("bundled excerpt carries Linux records")
	}
	db := testDB(t)
	n := db.LoadBundled()
	test.That(t, n, test.ShouldBeGreaterThan, 5)

	// The stock X-Box 360 record must resolve.
	u := backend.GUIDFromIDs(0x0003, 0x045e, 0x028e, 0x0114)
	m, ok := db.Lookup(u)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, m.Button(0), test.ShouldEqual, event.ButtonSouth)
	test.That(t, m.Axis(0), test.ShouldEqual, event.AxisLeftStickX)
}
